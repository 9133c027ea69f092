package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shortreel/pkg/models"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "generated_videos", cfg.Paths.OutputRoot)
	assert.Equal(t, "kokoro-tts", cfg.TTS.Command)
	assert.Equal(t, 2, cfg.Footage.MaxRetries)
	assert.Equal(t, 4, cfg.Footage.MaxConcurrent)
	assert.Equal(t, 24*time.Hour, cfg.Footage.CacheTTL)
	assert.Equal(t, "base", cfg.Transcribe.Model)
	assert.Equal(t, 23, cfg.Assembler.CRF)
	assert.InDelta(t, -22.0, cfg.Assembler.MusicVolumeDB, 1e-9)
	assert.False(t, cfg.Publish.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
logging:
  level: debug
paths:
  outputRoot: /tmp/videos
footage:
  maxConcurrent: 8
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/videos", cfg.Paths.OutputRoot)
	assert.Equal(t, 8, cfg.Footage.MaxConcurrent)
	// Unset keys keep their defaults.
	assert.Equal(t, "kokoro-tts", cfg.TTS.Command)
}

func TestLoadSpec(t *testing.T) {
	body := `{
		"video_name": "hydration_tips",
		"target_platform": "tiktok",
		"target_duration_seconds": 25,
		"voice_name": "af_heart",
		"background_music_genre": "lofi",
		"script_segments": [
			{
				"segment_id": 1,
				"audio_text": "Drink water first thing in the morning.",
				"broll_clips": [
					{"type": "video", "search_query": "glass of water", "min_duration": 4}
				]
			}
		]
	}`
	path := filepath.Join(t.TempDir(), "spec.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	spec, warnings, err := LoadSpec(path)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, "hydration_tips", spec.VideoName)
	assert.Equal(t, models.PlatformTikTok, spec.TargetPlatform)
	require.Len(t, spec.Segments, 1)
	assert.InDelta(t, 4.0, spec.Segments[0].BrollClips[0].MinDurationSec, 1e-9)
}

func TestLoadSpecErrors(t *testing.T) {
	var cfgErr *models.ConfigError

	_, _, err := LoadSpec(filepath.Join(t.TempDir(), "absent.json"))
	require.ErrorAs(t, err, &cfgErr)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, _, err = LoadSpec(path)
	require.ErrorAs(t, err, &cfgErr)

	path = filepath.Join(t.TempDir(), "invalid.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"video_name": "x"}`), 0o644))
	_, _, err = LoadSpec(path)
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoadCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api_keys.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"pexels": "pk", "pixabay": "xk"}`), 0o644))

	creds, err := LoadCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, "pk", creds.Pexels)
	assert.Equal(t, "xk", creds.Pixabay)
}

func TestLoadCredentialsMissingFile(t *testing.T) {
	creds, err := LoadCredentials(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Empty(t, creds.Pexels)
	assert.Empty(t, creds.Pixabay)
}
