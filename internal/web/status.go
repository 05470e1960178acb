package web

import (
	"math"
	"sync/atomic"
	"time"

	"armbridge/internal/input"
	"armbridge/internal/pipeline"
)

// Status is written by the frame loop and read by HTTP handlers.
type Status struct {
	startUnixNano int64
	lastFrameNano atomic.Int64
	frames        atomic.Uint64
	sendErrors    atomic.Uint64
	static        atomic.Value // StaticInfo
	frame         atomic.Value // FrameInfo
	sources       atomic.Value // func() []input.Snapshot
}

// StaticInfo does not change during a session.
type StaticInfo struct {
	Session string `json:"session"`
	Source  string `json:"source"`
	Dest    string `json:"dest"`
	Preset  string `json:"preset"`
}

// FrameInfo is the latest pipeline state in UI units (degrees, meters).
type FrameInfo struct {
	Mode        string     `json:"mode"`
	Selected    string     `json:"selected"`
	ForearmDeg  float64    `json:"forearm_deg"`
	Message     string     `json:"message"`
	Offset      [3]float64 `json:"offset"`
	Head        [3]float64 `json:"head"`
	Controllers int        `json:"controllers"`
}

func NewStatus() *Status {
	s := &Status{startUnixNano: time.Now().UTC().UnixNano()}
	s.static.Store(StaticInfo{})
	s.frame.Store(FrameInfo{})
	s.sources.Store(func() []input.Snapshot { return nil })
	return s
}

func (s *Status) SetStatic(info StaticInfo) {
	s.static.Store(info)
}

// SetSources registers a callback for source health. It is called on every
// snapshot and must be safe for concurrent use.
func (s *Status) SetSources(fn func() []input.Snapshot) {
	if fn != nil {
		s.sources.Store(fn)
	}
}

// MarkFrame publishes one processed frame.
func (s *Status) MarkFrame(nowUTC time.Time, out pipeline.Output) {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	s.frame.Store(FrameInfo{
		Mode:        out.Mode.String(),
		Selected:    out.Selected,
		ForearmDeg:  out.ForearmRoll * 180 / math.Pi,
		Message:     out.Message,
		Offset:      [3]float64{out.Offset.X, out.Offset.Y, out.Offset.Z},
		Head:        [3]float64{out.HeadPosition.X, out.HeadPosition.Y, out.HeadPosition.Z},
		Controllers: len(out.Controllers),
	})
	s.frames.Add(1)
	s.lastFrameNano.Store(nowUTC.UnixNano())
}

func (s *Status) MarkSendError() {
	s.sendErrors.Add(1)
}

type StatusSnapshot struct {
	Service      string           `json:"service"`
	NowUTC       string           `json:"now_utc"`
	UptimeSec    int64            `json:"uptime_sec"`
	Static       StaticInfo       `json:"static"`
	Frame        FrameInfo        `json:"frame"`
	Frames       uint64           `json:"frames_total"`
	SendErrors   uint64           `json:"send_errors_total"`
	LastFrameUTC string           `json:"last_frame_utc,omitempty"`
	Sources      []input.Snapshot `json:"sources,omitempty"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, s.startUnixNano).UTC()
	snap := StatusSnapshot{
		Service:    "armbridge",
		NowUTC:     nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec:  int64(nowUTC.Sub(start).Seconds()),
		Static:     s.static.Load().(StaticInfo),
		Frame:      s.frame.Load().(FrameInfo),
		Frames:     s.frames.Load(),
		SendErrors: s.sendErrors.Load(),
		Sources:    s.sources.Load().(func() []input.Snapshot)(),
	}
	if last := s.lastFrameNano.Load(); last != 0 {
		snap.LastFrameUTC = time.Unix(0, last).UTC().Format(time.RFC3339Nano)
	}
	return snap
}
