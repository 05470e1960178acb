// Package web serves the status page and a small control API.
package web

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Recenterer accepts out-of-band recenter requests. It must be safe for
// concurrent use.
type Recenterer interface {
	RequestRecenter()
}

// ScenarioDir is where /api/scenarios looks for sim scripts.
var ScenarioDir = filepath.FromSlash("configs/scenarios")

func Handler(status *Status, logs *LogBuffer, rc Recenterer) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		writeJSON(w, status.Snapshot(time.Now().UTC()))
	})

	mux.HandleFunc("/api/recenter", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		if rc == nil {
			http.Error(w, "recenter unavailable", http.StatusNotFound)
			return
		}
		rc.RequestRecenter()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{\"ok\":true}\n"))
	})

	// Sim scripts available on this box, e.g. "./configs/scenarios/arm.yaml".
	mux.HandleFunc("/api/scenarios", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		entries, err := os.ReadDir(ScenarioDir)
		paths := []string{}
		if err == nil {
			for _, e := range entries {
				lower := strings.ToLower(e.Name())
				if e.IsDir() || !(strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")) {
					continue
				}
				paths = append(paths, "./"+filepath.ToSlash(filepath.Join(ScenarioDir, e.Name())))
			}
			sort.Strings(paths)
		}
		writeJSON(w, struct {
			Paths []string `json:"paths"`
		}{Paths: paths})
	})

	if logs != nil {
		mux.Handle("/api/logs", logs.Handler())
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		snap := status.Snapshot(time.Now().UTC())
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprintf(w, "<!doctype html><html><head><meta charset=\"utf-8\"><meta http-equiv=\"refresh\" content=\"1\"><title>armbridge</title></head><body>")
		_, _ = fmt.Fprintf(w, "<h1>armbridge</h1><p>%s</p>", html.EscapeString(snap.Frame.Message))
		_, _ = fmt.Fprintf(w, "<pre>session=%s\nsource=%s\ndest=%s\nmode=%s selected=%s\nforearm_deg=%.0f\nframes_total=%d\nlast_frame_utc=%s</pre>",
			html.EscapeString(snap.Static.Session), html.EscapeString(snap.Static.Source), html.EscapeString(snap.Static.Dest),
			snap.Frame.Mode, html.EscapeString(snap.Frame.Selected), snap.Frame.ForearmDeg, snap.Frames, snap.LastFrameUTC,
		)
		_, _ = fmt.Fprintf(w, "<form method=\"post\" action=\"/api/recenter\"><button>Recenter</button></form>")
		_, _ = fmt.Fprintf(w, "<p><a href=\"/api/status\">/api/status</a> <a href=\"/api/logs?format=text\">/api/logs</a></p></body></html>")
	})

	return mux
}

func Serve(ctx context.Context, listenAddr string, status *Status, logs *LogBuffer, rc Recenterer) error {
	if status == nil {
		status = NewStatus()
	}

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           Handler(status, logs, rc),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
