package input

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"armbridge/internal/pipeline"
)

// Source delivers decoded frames to emit until ctx is done or the source is
// exhausted. emit is called from a single goroutine.
type Source interface {
	Run(ctx context.Context, emit func(pipeline.Frame)) error
}

// Snapshot is the health of a source as shown on the status page.
type Snapshot struct {
	Name        string `json:"name"`
	State       string `json:"state"`
	LastError   string `json:"last_error,omitempty"`
	LastSeenUTC string `json:"last_seen_utc,omitempty"`
	Frames      uint64 `json:"frames"`
	Dropped     uint64 `json:"dropped"`
}

// stats is shared bookkeeping for the network and serial sources.
type stats struct {
	name    string
	frames  atomic.Uint64
	dropped atomic.Uint64

	mu       sync.RWMutex
	state    string
	lastErr  string
	lastSeen time.Time
}

func (s *stats) setState(state, lastErr string) {
	s.mu.Lock()
	s.state = state
	s.lastErr = lastErr
	s.mu.Unlock()
}

func (s *stats) seen(now time.Time) {
	s.frames.Add(1)
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *stats) drop(err error) {
	s.dropped.Add(1)
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
}

func (s *stats) snapshot() Snapshot {
	s.mu.RLock()
	out := Snapshot{Name: s.name, State: s.state, LastError: s.lastErr}
	lastSeen := s.lastSeen
	s.mu.RUnlock()
	if !lastSeen.IsZero() {
		out.LastSeenUTC = lastSeen.UTC().Format(time.RFC3339Nano)
	}
	out.Frames = s.frames.Load()
	out.Dropped = s.dropped.Load()
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
