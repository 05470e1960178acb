//go:build !linux

package input

import (
	"fmt"
	"io"
)

func openSerial(path string, baud int) (io.ReadCloser, error) {
	return nil, fmt.Errorf("serial input not supported on this platform")
}
