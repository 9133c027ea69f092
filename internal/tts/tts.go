package tts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"shortreel/internal/config"
	"shortreel/internal/logging"
	"shortreel/pkg/models"
)

// Synthesizer wraps an external text-to-speech engine invoked as a command.
// The engine must accept --text, --voice and --output arguments; Kokoro-style
// CLIs and edge-tts wrappers both fit that shape.
type Synthesizer struct {
	cfg         config.TTSConfig
	ffprobePath string
	logger      *logging.Logger
}

// NewSynthesizer creates a synthesizer from configuration
func NewSynthesizer(cfg config.TTSConfig, ffprobePath string, logger *logging.Logger) *Synthesizer {
	return &Synthesizer{cfg: cfg, ffprobePath: ffprobePath, logger: logger}
}

// Synthesize renders text as narration audio at outputPath and returns the
// measured duration in seconds.
func (s *Synthesizer) Synthesize(ctx context.Context, text, voice, outputPath string) (float64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, &models.SynthesisError{Voice: voice, Reason: "empty narration text"}
	}
	if !voiceKnown(voice) {
		return 0, &models.SynthesisError{Voice: voice, Reason: "unsupported voice"}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return 0, &models.SynthesisError{Voice: voice, Reason: "cannot create output dir", Err: err}
	}

	// Write to a temp path and rename on success so a cancelled run never
	// leaves a half-written narration file behind.
	tmpPath := outputPath + ".tmp"
	defer os.Remove(tmpPath)

	var err error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			s.logger.Warnf("TTS attempt %d failed, retrying in %s: %v", attempt, backoff, err)
			select {
			case <-ctx.Done():
				return 0, &models.SynthesisError{Voice: voice, Reason: "cancelled", Err: ctx.Err()}
			case <-time.After(backoff):
			}
		}

		if err = s.runEngine(ctx, text, voice, tmpPath); err == nil {
			break
		}
	}
	if err != nil {
		return 0, &models.SynthesisError{Voice: voice, Reason: "engine failed", Err: err}
	}

	duration, err := s.AudioDuration(ctx, tmpPath)
	if err != nil {
		return 0, &models.SynthesisError{Voice: voice, Reason: "cannot measure narration duration", Err: err}
	}
	if duration <= 0 {
		return 0, &models.SynthesisError{Voice: voice, Reason: "engine produced empty audio"}
	}

	if err := os.Rename(tmpPath, outputPath); err != nil {
		return 0, &models.SynthesisError{Voice: voice, Reason: "cannot commit narration file", Err: err}
	}

	return duration, nil
}

func (s *Synthesizer) runEngine(ctx context.Context, text, voice, outputPath string) error {
	runCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	parts := strings.Fields(s.cfg.Command)
	if len(parts) == 0 {
		return fmt.Errorf("no TTS command configured")
	}

	args := append(parts[1:],
		"--voice", voice,
		"--text", text,
		"--output", outputPath,
	)

	cmd := exec.CommandContext(runCtx, parts[0], args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("tts engine failed: %w, stderr: %s", err, stderr.String())
	}

	return nil
}

// AudioDuration measures an audio file's duration via ffprobe
func (s *Synthesizer) AudioDuration(ctx context.Context, audioPath string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		audioPath,
	}

	cmd := exec.CommandContext(ctx, s.ffprobePath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w, stderr: %s", err, stderr.String())
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}

	return duration, nil
}

func voiceKnown(voice string) bool {
	for _, v := range models.ValidVoices {
		if v == voice {
			return true
		}
	}
	return false
}
