// Package replay records input frames to a line log and plays them back with
// their original timing.
//
// Log format, one record per line:
//
//	START            resets the time origin; a file may hold several sessions
//	<t_ns>,<json>    t_ns is nanoseconds since the last START
//
// Blank lines and lines starting with '#' are ignored.
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Record is one log line. A nil Frame marks a START.
type Record struct {
	At    time.Duration
	Frame []byte
}

type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadFile opens path and reads every record.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return NewReader(f).ReadAll()
}

func (rr *Reader) ReadAll() ([]Record, error) {
	s := bufio.NewScanner(rr.r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	recs := make([]Record, 0, 1024)
	lineNo := 0
	for s.Scan() {
		lineNo++
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "START" {
			recs = append(recs, Record{})
			continue
		}

		tsStr, payload, ok := strings.Cut(line, ",")
		if !ok {
			return nil, fmt.Errorf("line %d: missing comma", lineNo)
		}
		tsStr = strings.TrimSpace(tsStr)
		payload = strings.TrimSpace(payload)
		if tsStr == "" || payload == "" {
			return nil, fmt.Errorf("line %d: empty field", lineNo)
		}

		tsNs, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid timestamp %q: %w", lineNo, tsStr, err)
		}
		if tsNs < 0 {
			return nil, fmt.Errorf("line %d: negative timestamp %d", lineNo, tsNs)
		}
		if !json.Valid([]byte(payload)) {
			return nil, fmt.Errorf("line %d: payload is not valid JSON", lineNo)
		}

		recs = append(recs, Record{At: time.Duration(tsNs), Frame: []byte(payload)})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

type Writer struct {
	f      *os.File
	w      *bufio.Writer
	start  time.Time
	closed bool
}

// CreateWriter truncates path and writes the START marker.
func CreateWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriterSize(f, 64*1024)
	if _, err := bw.WriteString("START\n"); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{f: f, w: bw, start: time.Now()}, nil
}

// WriteFrame appends one compact JSON frame stamped relative to the writer's
// creation time.
func (ww *Writer) WriteFrame(now time.Time, frame []byte) error {
	if ww.closed {
		return errors.New("replay writer is closed")
	}
	if len(frame) == 0 {
		return errors.New("frame is empty")
	}
	if strings.ContainsAny(string(frame), "\r\n") {
		return errors.New("frame must be a single line")
	}

	d := now.Sub(ww.start)
	if d < 0 {
		d = 0
	}
	_, err := fmt.Fprintf(ww.w, "%d,%s\n", d.Nanoseconds(), frame)
	return err
}

func (ww *Writer) Flush() error {
	if ww.closed {
		return nil
	}
	return ww.w.Flush()
}

func (ww *Writer) Close() error {
	if ww.closed {
		return nil
	}
	ww.closed = true
	if err := ww.w.Flush(); err != nil {
		_ = ww.f.Close()
		return err
	}
	return ww.f.Close()
}

// Sleeper waits between records. It returns false when ctx ended first.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) bool
}

type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Play invokes cb for every frame record, waiting out the recorded gaps.
// START markers reset the origin so sessions are not separated by a pause.
//
// speed: 1.0 = real time, 2.0 = twice as fast.
func Play(ctx context.Context, records []Record, speed float64, loop bool, sleeper Sleeper, cb func(frame []byte) error) error {
	if speed <= 0 {
		return fmt.Errorf("speed must be > 0")
	}
	if sleeper == nil {
		sleeper = realSleeper{}
	}
	if cb == nil {
		return errors.New("callback is nil")
	}
	if !hasFrames(records) {
		return errors.New("no records")
	}

	for {
		var lastAt time.Duration
		haveLast := false

		for _, r := range records {
			if ctx.Err() != nil {
				return nil
			}
			if r.Frame == nil {
				haveLast = false
				continue
			}

			if haveLast {
				wait := r.At - lastAt
				if wait > 0 {
					if !sleeper.Sleep(ctx, time.Duration(float64(wait)/speed)) {
						return nil
					}
				}
			}
			if err := cb(r.Frame); err != nil {
				return err
			}
			lastAt = r.At
			haveLast = true
		}

		if !loop {
			return nil
		}
	}
}

func hasFrames(records []Record) bool {
	for _, r := range records {
		if r.Frame != nil {
			return true
		}
	}
	return false
}
