package replay

import (
	"time"

	"armbridge/internal/input"
)

// Summary describes a frame log for the -summarize-log command.
type Summary struct {
	Segments    int
	Frames      int
	Invalid     int
	MaxDuration time.Duration
	// ControllerCounts maps controllers-per-frame to the number of frames.
	ControllerCounts map[int]int
	Recenters        int
}

// Summarize decodes every frame; undecodable frames count as invalid.
func Summarize(records []Record) Summary {
	s := Summary{ControllerCounts: map[int]int{}}
	hasFrames := false

	for _, r := range records {
		if r.Frame == nil {
			s.Segments++
			continue
		}
		hasFrames = true
		s.Frames++
		if r.At > s.MaxDuration {
			s.MaxDuration = r.At
		}

		f, err := input.Decode(r.Frame)
		if err != nil {
			s.Invalid++
			continue
		}
		s.ControllerCounts[len(f.Controllers)]++
		if f.Recenter {
			s.Recenters++
		}
	}
	if s.Segments == 0 && hasFrames {
		s.Segments = 1
	}
	return s
}
