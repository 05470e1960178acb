package replay

import (
	"context"
	"log"

	"armbridge/internal/input"
	"armbridge/internal/pipeline"
)

// Source plays a recorded log as an input source.
type Source struct {
	Records []Record
	Speed   float64
	Loop    bool
	Sleeper Sleeper
}

// Run emits every decodable frame. Frames that no longer decode are skipped.
func (s *Source) Run(ctx context.Context, emit func(pipeline.Frame)) error {
	speed := s.Speed
	if speed == 0 {
		speed = 1
	}
	return Play(ctx, s.Records, speed, s.Loop, s.Sleeper, func(raw []byte) error {
		f, err := input.Decode(raw)
		if err != nil {
			log.Printf("replay: skipping frame: %v", err)
			return nil
		}
		emit(f)
		return nil
	})
}

var _ input.Source = (*Source)(nil)
