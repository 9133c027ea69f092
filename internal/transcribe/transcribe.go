package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"shortreel/internal/config"
	"shortreel/internal/logging"
	"shortreel/pkg/models"
)

// Transcriber wraps an external whisper CLI to recover per-word timestamps
// from narration audio. The audio is first downmixed to mono 16kHz, the
// sample rate whisper models expect.
type Transcriber struct {
	cfg        config.TranscribeConfig
	ffmpegPath string
	logger     *logging.Logger
}

// NewTranscriber creates a transcriber from configuration
func NewTranscriber(cfg config.TranscribeConfig, ffmpegPath string, logger *logging.Logger) *Transcriber {
	return &Transcriber{cfg: cfg, ffmpegPath: ffmpegPath, logger: logger}
}

// Transcribe recovers word timestamps for a narration file. Timestamps are
// relative to the start of that file; the caller offsets them into the full
// timeline.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) ([]models.WordStamp, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, &models.TranscriptionError{AudioPath: audioPath, Reason: "audio file missing", Err: err}
	}

	workDir, err := os.MkdirTemp("", "whisper-*")
	if err != nil {
		return nil, &models.TranscriptionError{AudioPath: audioPath, Reason: "cannot create work dir", Err: err}
	}
	defer os.RemoveAll(workDir)

	wavPath := filepath.Join(workDir, "input.wav")
	if err := t.extractWav(ctx, audioPath, wavPath); err != nil {
		return nil, &models.TranscriptionError{AudioPath: audioPath, Reason: "audio extraction failed", Err: err}
	}

	start := time.Now()
	err = t.runWhisper(ctx, wavPath, workDir)
	t.logger.LogAdapterCall("whisper", filepath.Base(audioPath), time.Since(start), err)
	if err != nil {
		return nil, &models.TranscriptionError{AudioPath: audioPath, Reason: "whisper failed", Err: err}
	}

	words, err := parseWhisperOutput(filepath.Join(workDir, "input.json"))
	if err != nil {
		return nil, &models.TranscriptionError{AudioPath: audioPath, Reason: "cannot parse whisper output", Err: err}
	}
	return words, nil
}

// extractWav downmixes the narration to mono 16kHz PCM
func (t *Transcriber) extractWav(ctx context.Context, src, dest string) error {
	args := []string{
		"-y", "-i", src,
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}

	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg extract failed: %w, stderr: %s", err, stderr.String())
	}
	return nil
}

func (t *Transcriber) runWhisper(ctx context.Context, wavPath, outputDir string) error {
	runCtx := ctx
	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	parts := strings.Fields(t.cfg.WhisperCommand)
	if len(parts) == 0 {
		return fmt.Errorf("no whisper command configured")
	}

	args := append(parts[1:],
		wavPath,
		"--model", t.cfg.Model,
		"--language", t.cfg.Language,
		"--word_timestamps", "True",
		"--output_format", "json",
		"--output_dir", outputDir,
	)

	cmd := exec.CommandContext(runCtx, parts[0], args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("whisper failed: %w, stderr: %s", err, stderr.String())
	}
	return nil
}

type whisperWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type whisperSegment struct {
	Words []whisperWord `json:"words"`
}

type whisperOutput struct {
	Segments []whisperSegment `json:"segments"`
}

// parseWhisperOutput flattens whisper's segment/word JSON into word stamps.
// Whisper pads words with leading spaces; they are trimmed here.
func parseWhisperOutput(path string) ([]models.WordStamp, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read whisper output: %w", err)
	}

	var output whisperOutput
	if err := json.Unmarshal(data, &output); err != nil {
		return nil, fmt.Errorf("failed to unmarshal whisper output: %w", err)
	}

	var words []models.WordStamp
	for _, seg := range output.Segments {
		for _, w := range seg.Words {
			word := strings.TrimSpace(w.Word)
			if word == "" {
				continue
			}
			words = append(words, models.WordStamp{
				Word:  word,
				Start: w.Start,
				End:   w.End,
			})
		}
	}

	if len(words) == 0 {
		return nil, fmt.Errorf("whisper produced no word timestamps")
	}
	return words, nil
}
