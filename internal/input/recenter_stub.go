//go:build !linux || (!arm && !arm64)

package input

import "fmt"

func openRecenterLine(chipName string, offset int, activeLow bool) (lineReader, error) {
	return nil, fmt.Errorf("input: recenter gpio unsupported on this platform")
}

var openRecenterLineFn = openRecenterLine
