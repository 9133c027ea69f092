package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"shortreel/internal/config"
	"shortreel/internal/logging"
	"shortreel/internal/tts"
)

// ttsgen synthesizes narration audio in isolation: either free text or one
// segment of a video spec.
func main() {
	var (
		configPath = flag.String("config", "config.yaml", "Path to application config")
		specPath   = flag.String("spec", "", "Path to VideoSpec JSON")
		segmentID  = flag.Int("segment", 1, "Segment id to synthesize when -spec is given")
		text       = flag.String("text", "", "Text to synthesize (standalone mode)")
		voice      = flag.String("voice", "af_heart", "Voice name")
		output     = flag.String("output", "narration.wav", "Output audio path")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewConsoleLogger()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	narration := *text
	voiceName := *voice

	if *specPath != "" {
		spec, _, err := config.LoadSpec(*specPath)
		if err != nil {
			logger.Fatalf("Invalid video spec: %v", err)
		}

		found := false
		for _, seg := range spec.Segments {
			if seg.ID == *segmentID {
				narration = seg.AudioText
				found = true
				break
			}
		}
		if !found {
			logger.Fatalf("Segment %d not found in spec", *segmentID)
		}
		voiceName = spec.VoiceName
	}

	if narration == "" {
		fmt.Fprintln(os.Stderr, "usage: ttsgen (-text <text> | -spec <spec.json> -segment <id>) [-voice <name>] [-output <path>]")
		os.Exit(2)
	}

	synth := tts.NewSynthesizer(cfg.TTS, cfg.Assembler.FFprobePath, logger)
	duration, err := synth.Synthesize(context.Background(), narration, voiceName, *output)
	if err != nil {
		logger.Fatalf("Synthesis failed: %v", err)
	}

	logger.Infof("wrote %s (%.2fs)", *output, duration)
}
