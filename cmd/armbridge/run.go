package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"armbridge/internal/config"
	"armbridge/internal/input"
	"armbridge/internal/pipeline"
	"armbridge/internal/replay"
	"armbridge/internal/sim"
	"armbridge/internal/udp"
	"armbridge/internal/web"
)

// buildSource returns the configured frame source, its display name and an
// optional health callback.
func buildSource(cfg config.Config) (input.Source, string, func() []input.Snapshot, error) {
	in := cfg.Input
	switch in.Source {
	case config.SourceUDP:
		src := input.NewUDPSource(in.Listen)
		return src, "udp " + in.Listen, func() []input.Snapshot { return []input.Snapshot{src.Snapshot()} }, nil
	case config.SourceSerial:
		src, err := input.NewSerialSource(input.SerialConfig{Path: in.Serial.Path, Baud: in.Serial.Baud})
		if err != nil {
			return nil, "", nil, err
		}
		return src, "serial " + in.Serial.Path, func() []input.Snapshot { return []input.Snapshot{src.Snapshot()} }, nil
	case config.SourceReplay:
		recs, err := replay.ReadFile(in.Replay.Path)
		if err != nil {
			return nil, "", nil, fmt.Errorf("read replay log: %w", err)
		}
		return &replay.Source{Records: recs, Speed: in.Replay.Speed, Loop: in.Replay.Loop}, "replay " + in.Replay.Path, nil, nil
	case config.SourceSim:
		script, err := sim.LoadScenarioScript(in.Sim.Path)
		if err != nil {
			return nil, "", nil, fmt.Errorf("load scenario: %w", err)
		}
		scn, err := sim.NewScenario(script)
		if err != nil {
			return nil, "", nil, fmt.Errorf("scenario %s: %w", in.Sim.Path, err)
		}
		return &sim.Source{Scenario: scn, Interval: in.Sim.Interval, Loop: in.Sim.Loop}, "sim " + in.Sim.Path, nil, nil
	default:
		return nil, "", nil, fmt.Errorf("unknown input source %q", in.Source)
	}
}

func run(ctx context.Context, cfg config.Config, logs *web.LogBuffer) error {
	src, srcName, health, err := buildSource(cfg)
	if err != nil {
		return err
	}

	broadcaster, err := udp.NewBroadcaster(cfg.Output.Dest)
	if err != nil {
		return fmt.Errorf("udp broadcaster init failed: %w", err)
	}
	defer broadcaster.Close()

	var rec frameRecorder
	if cfg.Input.Record.Enable {
		w, err := replay.CreateWriter(cfg.Input.Record.Path)
		if err != nil {
			return fmt.Errorf("record init failed: %w", err)
		}
		rec = w
	}

	status := web.NewStatus()
	rt, err := newRuntime(cfg, status, broadcaster, rec)
	if err != nil {
		if rec != nil {
			_ = rec.Close()
		}
		return err
	}
	defer rt.close()

	status.SetStatic(web.StaticInfo{
		Session: rt.session.String(),
		Source:  srcName,
		Dest:    broadcaster.Dest(),
		Preset:  cfg.Pipeline.Preset,
	})
	status.SetSources(health)

	log.Printf("armbridge starting session=%s", rt.session)
	log.Printf("input=%s output=%s preset=%s", srcName, cfg.Output.Dest, cfg.Pipeline.Preset)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup

	if cfg.Web.Enable {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("web listening on %s", cfg.Web.Listen)
			if err := web.Serve(runCtx, cfg.Web.Listen, status, logs, rt); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("web server stopped: %v", err)
			}
		}()
	}

	if rc := cfg.Input.Recenter; rc.Enable {
		btn, err := input.OpenRecenterButton(input.RecenterConfig{Chip: rc.Chip, Line: rc.Line, ActiveLow: rc.ActiveLow, Poll: rc.Poll})
		if err != nil {
			// The button is a convenience; run without it.
			log.Printf("recenter gpio unavailable: %v", err)
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer btn.Close()
				btn.Watch(runCtx, rt.RequestRecenter)
			}()
		}
	}

	frames := make(chan pipeline.Frame, 64)
	srcErr := make(chan error, 1)
	go func() {
		defer close(frames)
		srcErr <- src.Run(runCtx, func(f pipeline.Frame) {
			select {
			case frames <- f:
			case <-runCtx.Done():
			}
		})
	}()

	rt.loop(runCtx, frames)
	cancel()
	wg.Wait()

	// The source may still be draining after a cancel; its error only
	// matters when it ended on its own.
	select {
	case err := <-srcErr:
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("input %s: %w", srcName, err)
		}
	default:
	}
	if ctx.Err() == nil {
		log.Printf("input %s finished", srcName)
	}
	return nil
}
