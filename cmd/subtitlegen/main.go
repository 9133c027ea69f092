package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"shortreel/internal/assembler"
	"shortreel/internal/config"
	"shortreel/internal/logging"
	"shortreel/internal/transcribe"
	"shortreel/pkg/models"
)

// subtitlegen exercises the transcription adapter in isolation: produce an
// SRT track for an audio file, and optionally burn the cues into a video.
func main() {
	var (
		configPath = flag.String("config", "config.yaml", "Path to application config")
		audioPath  = flag.String("audio", "", "Narration audio to transcribe (required)")
		srtPath    = flag.String("srt", "subtitles.srt", "Output SRT path")
		videoPath  = flag.String("video", "", "Optional video to burn subtitles into")
		outPath    = flag.String("output", "subtitled.mp4", "Output video path when -video is given")
		platform   = flag.String("platform", "youtube_shorts", "Subtitle style platform")
	)
	flag.Parse()

	if *audioPath == "" {
		fmt.Fprintln(os.Stderr, "usage: subtitlegen -audio <audio> [-srt <path>] [-video <in.mp4> -output <out.mp4>]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewConsoleLogger()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx := context.Background()

	transcriber := transcribe.NewTranscriber(cfg.Transcribe, cfg.Assembler.FFmpegPath, logger)
	words, err := transcriber.Transcribe(ctx, *audioPath)
	if err != nil {
		logger.Fatalf("Transcription failed: %v", err)
	}

	cues := transcribe.BuildCues(words, transcribe.DefaultWordsPerCue)
	if err := transcribe.WriteSRT(cues, *srtPath); err != nil {
		logger.Fatalf("Failed to write SRT: %v", err)
	}
	logger.Infof("wrote %s (%d cues)", *srtPath, len(cues))

	if *videoPath == "" {
		return
	}

	asm := assembler.New(cfg.Assembler, cfg.Paths.MusicDir, logger)
	if err := asm.BurnSubtitles(ctx, *videoPath, *outPath, cues, models.Platform(*platform)); err != nil {
		logger.Fatalf("Subtitle burn-in failed: %v", err)
	}
	logger.Infof("wrote %s", *outPath)
}
