package input

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"armbridge/internal/pipeline"
)

// SerialConfig selects the controller bridge's serial port.
type SerialConfig struct {
	Path           string
	Baud           int
	ReconnectDelay time.Duration
	MaxLineBytes   int
}

// SerialSource reads newline-delimited frames from a serial port and reopens
// the port after read errors (USB bridges come and go).
type SerialSource struct {
	cfg   SerialConfig
	open  func(path string, baud int) (io.ReadCloser, error)
	stats stats
}

func NewSerialSource(cfg SerialConfig) (*SerialSource, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("serial path is required")
	}
	if cfg.Baud <= 0 {
		cfg.Baud = 115200
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 1 * time.Second
	}
	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = 64 * 1024
	}
	s := &SerialSource{cfg: cfg, open: openSerial}
	s.stats.name = "serial " + cfg.Path
	s.stats.state = "stopped"
	return s, nil
}

func (s *SerialSource) Snapshot() Snapshot { return s.stats.snapshot() }

func (s *SerialSource) Run(ctx context.Context, emit func(pipeline.Frame)) error {
	for {
		if ctx.Err() != nil {
			s.stats.setState("stopped", "")
			return nil
		}

		s.stats.setState("connecting", "")
		port, err := s.open(s.cfg.Path, s.cfg.Baud)
		if err != nil {
			s.stats.setState("error", err.Error())
			log.Printf("input: serial %s: %v", s.cfg.Path, err)
			if !sleepCtx(ctx, s.cfg.ReconnectDelay) {
				s.stats.setState("stopped", "")
				return nil
			}
			continue
		}

		s.stats.setState("connected", "")
		err = s.readLines(ctx, port, emit)
		_ = port.Close()
		if ctx.Err() != nil {
			s.stats.setState("stopped", "")
			return nil
		}
		if err != nil {
			s.stats.setState("disconnected", err.Error())
		} else {
			s.stats.setState("disconnected", "")
		}
		if !sleepCtx(ctx, s.cfg.ReconnectDelay) {
			s.stats.setState("stopped", "")
			return nil
		}
	}
}

func (s *SerialSource) readLines(ctx context.Context, r io.Reader, emit func(pipeline.Frame)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 4096), s.cfg.MaxLineBytes)

	// The port only unblocks on data; closing it from here is the only way to
	// stop a blocked read.
	if c, ok := r.(io.Closer); ok {
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			select {
			case <-ctx.Done():
				_ = c.Close()
			case <-stop:
			}
		}()
	}

	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		f, err := Decode(line)
		if err != nil {
			s.stats.drop(err)
			continue
		}
		s.stats.seen(time.Now())
		emit(f)
	}
	return sc.Err()
}
