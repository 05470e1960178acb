package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"armbridge/internal/config"
	"armbridge/internal/web"
)

func main() {
	var configPath string
	var summarizeLog string
	flag.StringVar(&configPath, "config", "./armbridge.yaml", "Path to YAML config")
	flag.StringVar(&summarizeLog, "summarize-log", "", "Print a summary of a recorded frame log and exit")
	flag.Parse()

	if summarizeLog != "" {
		if err := printLogSummary(os.Stdout, summarizeLog); err != nil {
			log.Fatalf("summarize log failed: %v", err)
		}
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logs := web.NewLogBuffer(2000)
	log.SetOutput(io.MultiWriter(os.Stderr, logs))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logs); err != nil {
		log.Fatalf("armbridge: %v", err)
	}
	log.Printf("armbridge stopped")
}
