package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"shortreel/internal/config"
	"shortreel/internal/logging"
	"shortreel/internal/pipeline"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "Path to application config")
		specPath   = flag.String("spec", "", "Path to VideoSpec JSON (required)")
		clean      = flag.Bool("clean", false, "Purge abandoned run directories before starting")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	// Positional form: shortreel video_config.json
	if *specPath == "" && flag.NArg() > 0 {
		*specPath = flag.Arg(0)
	}
	if *specPath == "" {
		fmt.Fprintln(os.Stderr, "usage: shortreel [-config config.yaml] [-clean] [-verbose] <spec.json>")
		os.Exit(2)
	}

	// Optional .env for local development
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	if *clean {
		removed, err := pipeline.CleanAbandoned(cfg.Paths.OutputRoot, logger)
		if err != nil {
			logger.Fatalf("Clean failed: %v", err)
		}
		logger.Infof("purged %d abandoned run(s)", removed)
	}

	spec, warnings, err := config.LoadSpec(*specPath)
	if err != nil {
		logger.Fatalf("Invalid video spec: %v", err)
	}

	run, err := pipeline.New(cfg, spec, *specPath, warnings)
	if err != nil {
		logger.Fatalf("Failed to prepare run: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Warnf("received signal %v, aborting run", sig)
		cancel()
	}()

	if err := run.Run(ctx); err != nil {
		logger.Errorf("Run failed: %v", err)
		os.Exit(1)
	}

	logger.Infof("output written to %s", run.RunDir())
}
