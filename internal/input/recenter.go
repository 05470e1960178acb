package input

import (
	"context"
	"log"
	"time"
)

// lineReader is one digital input line; 1 means pressed.
type lineReader interface {
	Value() (int, error)
	Close() error
}

// RecenterButton is a push button wired to a GPIO line that resets the fly
// offset.
type RecenterButton struct {
	line lineReader
	poll time.Duration
}

// RecenterConfig selects the GPIO line of the recenter button.
type RecenterConfig struct {
	Chip      string
	Line      int
	ActiveLow bool
	Poll      time.Duration
}

// OpenRecenterButton requests the configured line as an input.
func OpenRecenterButton(cfg RecenterConfig) (*RecenterButton, error) {
	l, err := openRecenterLineFn(cfg.Chip, cfg.Line, cfg.ActiveLow)
	if err != nil {
		return nil, err
	}
	return newRecenterButton(l, cfg.Poll), nil
}

func newRecenterButton(l lineReader, poll time.Duration) *RecenterButton {
	if poll <= 0 {
		poll = 20 * time.Millisecond
	}
	return &RecenterButton{line: l, poll: poll}
}

// Watch polls the line and calls onPress once per press (rising edge) until
// ctx is done. Read errors are logged once per streak and treated as
// released.
func (b *RecenterButton) Watch(ctx context.Context, onPress func()) {
	t := time.NewTicker(b.poll)
	defer t.Stop()

	prev := false
	failing := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		v, err := b.line.Value()
		if err != nil {
			if !failing {
				log.Printf("input: recenter gpio read failed: %v", err)
			}
			failing = true
			prev = false
			continue
		}
		failing = false

		pressed := v != 0
		if pressed && !prev {
			onPress()
		}
		prev = pressed
	}
}

func (b *RecenterButton) Close() error {
	if b == nil || b.line == nil {
		return nil
	}
	err := b.line.Close()
	b.line = nil
	return err
}
