//go:build linux && (arm || arm64)

package input

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

func openRecenterLine(chipName string, offset int, activeLow bool) (lineReader, error) {
	if offset < 0 {
		return nil, fmt.Errorf("input: invalid recenter gpio line %d", offset)
	}
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("input: open %s: %w", chipName, err)
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithConsumer("armbridge-recenter")}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow, gpiocdev.WithPullUp)
	} else {
		opts = append(opts, gpiocdev.WithPullDown)
	}
	line, err := chip.RequestLine(offset, opts...)
	if err != nil {
		_ = chip.Close()
		return nil, fmt.Errorf("input: request %s line %d: %w", chipName, offset, err)
	}
	return &gpiodLine{chip: chip, line: line}, nil
}

var openRecenterLineFn = openRecenterLine

type gpiodLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func (g *gpiodLine) Value() (int, error) {
	if g == nil || g.line == nil {
		return 0, fmt.Errorf("input: recenter gpio not initialized")
	}
	return g.line.Value()
}

func (g *gpiodLine) Close() error {
	if g == nil || g.line == nil {
		return nil
	}
	err := g.line.Close()
	g.line = nil
	if g.chip != nil {
		_ = g.chip.Close()
		g.chip = nil
	}
	return err
}
