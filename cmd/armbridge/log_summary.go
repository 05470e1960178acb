package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"armbridge/internal/replay"
)

func printLogSummary(w io.Writer, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path is empty")
	}
	recs, err := replay.ReadFile(path)
	if err != nil {
		return err
	}

	s := replay.Summarize(recs)
	fmt.Fprintf(w, "path: %s\n", path)
	fmt.Fprintf(w, "segments: %d\n", s.Segments)
	fmt.Fprintf(w, "frames: %d\n", s.Frames)
	fmt.Fprintf(w, "invalid_frames: %d\n", s.Invalid)
	fmt.Fprintf(w, "recenters: %d\n", s.Recenters)
	fmt.Fprintf(w, "max_duration: %s\n", s.MaxDuration)

	keys := make([]int, 0, len(s.ControllerCounts))
	for k := range s.ControllerCounts {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	fmt.Fprintf(w, "controllers_per_frame:\n")
	for _, k := range keys {
		fmt.Fprintf(w, "  %d: %d\n", k, s.ControllerCounts[k])
	}
	return nil
}
