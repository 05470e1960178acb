package sim

import (
	"context"
	"time"

	"armbridge/internal/pipeline"
)

// Source emits one scenario sample per Interval. Elapsed time is counted in
// frames, so a run is reproducible regardless of scheduling jitter.
type Source struct {
	Scenario *Scenario
	Interval time.Duration
	Loop     bool

	// wait defaults to a timer; tests replace it.
	wait func(ctx context.Context, d time.Duration) bool
}

func (s *Source) Run(ctx context.Context, emit func(pipeline.Frame)) error {
	wait := s.wait
	if wait == nil {
		wait = sleepCtx
	}
	interval := s.Interval
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}

	for n := 0; ; n++ {
		elapsed := time.Duration(n) * interval
		if !s.Loop && elapsed > s.Scenario.Duration() {
			return nil
		}
		emit(s.Scenario.StateAt(elapsed, s.Loop))
		if !wait(ctx, interval) {
			return nil
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
