package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bosley/chatrttm/chat"
	"github.com/bosley/chatrttm/config"
	"github.com/bosley/chatrttm/manifest"
	"github.com/bosley/chatrttm/pairs"
	"github.com/bosley/chatrttm/scribe"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	chaDir := flag.String("cha", "", "Directory of .cha transcripts")
	wavDir := flag.String("wav", "", "Directory of .wav audio files")
	rttmDir := flag.String("rttm", "", "Output directory for .rttm files")
	manifestPath := flag.String("manifest", "", "Write a NeMo manifest to this .jsonl file")
	listPairs := flag.Bool("pairs", false, "Print matching wav/rttm pairs after export")
	serve := flag.Bool("serve", false, "Watch the transcript directory and serve exports over HTTP")
	logLevel := flag.String("log-level", "", "Log level: debug|info|warn|error")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "chatrttm: %v\n", err)
			return 1
		}
		cfg = loaded
	}

	// Flags win over the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "cha":
			cfg.Paths.Annotations = *chaDir
		case "wav":
			cfg.Paths.Audio = *wavDir
		case "rttm":
			cfg.Paths.RTTM = *rttmDir
		case "manifest":
			cfg.Paths.Manifest = *manifestPath
		case "log-level":
			cfg.LogLevel = config.LogLevel(*logLevel)
		}
	})
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "chatrttm: %v\n", err)
		return 2
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel.Level()}))
	slog.SetDefault(logger)

	if cfg.Paths.Annotations == "" || cfg.Paths.RTTM == "" {
		slog.Error("Transcript and rttm directories must be provided")
		flag.Usage()
		return 2
	}

	if *serve {
		return runServe(cfg)
	}
	return runExport(cfg, *listPairs)
}

func runExport(cfg *config.Config, listPairs bool) int {
	reader, err := chat.FromDir(cfg.Paths.Annotations, chat.WithFormatter(cfg.Formatter.Formatter()))
	if reader == nil {
		slog.Error("Failed to load transcripts", "error", err)
		return 1
	}
	var batchErr *chat.BatchError
	if errors.As(err, &batchErr) {
		for _, f := range batchErr.Failures {
			slog.Warn("Skipped transcript", "path", f.Path, "error", f.Err)
		}
	}

	if err := reader.SaveRTTMs(cfg.Paths.RTTM); err != nil {
		slog.Error("Failed to save rttm files", "error", err)
		return 1
	}
	slog.Info("Saved rttm files", "count", reader.Len(), "dir", cfg.Paths.RTTM)

	if cfg.Paths.Manifest != "" {
		entries, err := manifest.Build(reader, cfg.Paths.RTTM, cfg.Paths.Audio, cfg.Manifest.Skip())
		if err != nil {
			slog.Error("Failed to build manifest", "error", err)
			return 1
		}
		if err := manifest.Save(cfg.Paths.Manifest, entries); err != nil {
			slog.Error("Failed to save manifest", "error", err)
			return 1
		}
		slog.Info("Saved manifest", "entries", len(entries), "path", cfg.Paths.Manifest)
	}

	if listPairs {
		if cfg.Paths.Audio == "" {
			slog.Error("Audio directory must be provided to list pairs")
			return 2
		}
		found, err := pairs.WavRTTM(cfg.Paths.Audio, cfg.Paths.RTTM)
		if err != nil {
			slog.Error("Failed to pair files", "error", err)
			return 1
		}
		for _, p := range found {
			fmt.Printf("%s\t%s\n", p.Audio, p.RTTM)
		}
	}

	if batchErr != nil {
		return 1
	}
	return 0
}

func runServe(cfg *config.Config) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Debug("Received shutdown signal")
		cancel()
	}()

	scribeService, err := scribe.New(scribe.Config{
		AnnotationDir: cfg.Paths.Annotations,
		RTTMDir:       cfg.Paths.RTTM,
		AudioDir:      cfg.Paths.Audio,
		HTTPAddr:      cfg.Serve.HTTPAddr,
		CertFile:      cfg.Serve.CertFile,
		KeyFile:       cfg.Serve.KeyFile,
		Workers:       cfg.Serve.Workers,
		Formatter:     cfg.Formatter.Formatter(),
	})
	if err != nil {
		slog.Error("Failed to initialize Scribe", "error", err)
		return 1
	}

	// Ensure Scribe is stopped on shutdown
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := scribeService.Stop(stopCtx); err != nil {
			slog.Error("Failed to stop Scribe service", "error", err)
		}
	}()

	if err := scribeService.Start(ctx); err != nil {
		slog.Error("Scribe service failed", "error", err)
		return 1
	}

	slog.Debug("Program exiting")
	return 0
}
