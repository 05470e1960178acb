package main

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"armbridge/internal/config"
	"armbridge/internal/input"
	"armbridge/internal/modes"
	"armbridge/internal/pipeline"
	"armbridge/internal/udp"
	"armbridge/internal/web"
)

type sender interface {
	Send(payload []byte) error
}

type frameRecorder interface {
	WriteFrame(now time.Time, frame []byte) error
	Close() error
}

// runtime owns the pipeline. process and loop must only be called from one
// goroutine; RequestRecenter may be called from anywhere.
type runtime struct {
	session uuid.UUID
	pipe    *pipeline.Pipeline
	out     sender
	status  *web.Status
	rec     frameRecorder
	debug   bool

	recenter    atomic.Bool
	seq         uint64
	lastMessage string
	lastMode    string
}

func newRuntime(cfg config.Config, status *web.Status, out sender, rec frameRecorder) (*runtime, error) {
	if status == nil {
		return nil, fmt.Errorf("status is nil")
	}
	if out == nil {
		return nil, fmt.Errorf("sender is nil")
	}
	pc, err := cfg.Pipeline.Build()
	if err != nil {
		return nil, err
	}
	p, err := pipeline.New(pc)
	if err != nil {
		return nil, err
	}
	p.SetForearmRoll(cfg.Pipeline.ForearmRoll)

	return &runtime{
		session:  uuid.New(),
		pipe:     p,
		out:      out,
		status:   status,
		rec:      rec,
		debug:    cfg.Log.Debug(),
		lastMode: "default",
	}, nil
}

// RequestRecenter latches a locomotion reset for the next frame.
func (rt *runtime) RequestRecenter() {
	rt.recenter.Store(true)
}

func (rt *runtime) process(now time.Time, f pipeline.Frame) error {
	if rt.recenter.Swap(false) {
		f.Recenter = true
	}

	if rt.rec != nil {
		raw, err := input.Encode(f)
		if err == nil {
			err = rt.rec.WriteFrame(now, raw)
		}
		if err != nil {
			log.Printf("record failed, disabling: %v", err)
			_ = rt.rec.Close()
			rt.rec = nil
		}
	}

	out, err := rt.pipe.Update(f)
	if err != nil {
		return err
	}
	rt.seq++

	payload, err := udp.NewFrame(rt.session, rt.seq, out).Marshal()
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	if err := rt.out.Send(payload); err != nil {
		rt.status.MarkSendError()
		if rt.debug {
			log.Printf("send failed: %v", err)
		}
	}
	rt.status.MarkFrame(now, out)

	if mode := out.Mode.String(); mode != rt.lastMode {
		log.Printf("mode %s -> %s", rt.lastMode, mode)
		rt.lastMode = mode
	}
	// Arm messages track the angle every frame; only log selections.
	if out.Message != rt.lastMessage && out.Message != "" && out.Mode != modes.Arm {
		log.Printf("message: %s", out.Message)
	}
	rt.lastMessage = out.Message
	if f.Recenter {
		log.Printf("recentered")
	}
	if rt.debug {
		log.Printf("frame seq=%d mode=%s forearm=%.3f offset=%v head=%v", rt.seq, out.Mode, out.ForearmRoll, out.Offset, out.HeadPosition)
	}
	return nil
}

// loop consumes frames until the channel closes or ctx ends.
func (rt *runtime) loop(ctx context.Context, frames <-chan pipeline.Frame) {
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			if err := rt.process(time.Now(), f); err != nil {
				log.Printf("frame dropped: %v", err)
			}
		}
	}
}

func (rt *runtime) close() {
	if rt.rec != nil {
		if err := rt.rec.Close(); err != nil {
			log.Printf("record close failed: %v", err)
		}
		rt.rec = nil
	}
}
