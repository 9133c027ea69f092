package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"shortreel/pkg/models"
)

// Config holds all configuration for the application
type Config struct {
	Logging    LoggingConfig
	Paths      PathsConfig
	TTS        TTSConfig
	Footage    FootageConfig
	Transcribe TranscribeConfig
	Assembler  AssemblerConfig
	Publish    PublishConfig
}

// LoggingConfig holds log output configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// PathsConfig holds filesystem layout configuration
type PathsConfig struct {
	OutputRoot  string
	CacheDir    string
	MusicDir    string
	Credentials string
}

// TTSConfig holds text-to-speech engine configuration
type TTSConfig struct {
	Command    string
	Timeout    time.Duration
	MaxRetries int
}

// FootageConfig holds stock-footage provider configuration
type FootageConfig struct {
	HTTPTimeout      time.Duration
	DownloadTimeout  time.Duration
	MaxRetries       int
	MaxConcurrent    int
	CacheTTL         time.Duration
	PerPage          int
	PexelsPerHour    int
	PixabayPerHour   int
}

// TranscribeConfig holds speech-to-text configuration
type TranscribeConfig struct {
	WhisperCommand string
	Model          string
	Language       string
	Timeout        time.Duration
}

// AssemblerConfig holds media assembly configuration
type AssemblerConfig struct {
	FFmpegPath    string
	FFprobePath   string
	Preset        string
	CRF           int
	FrameRate     int
	MusicVolumeDB float64
	MusicFadeSec  float64
}

// PublishConfig holds optional artifact-store configuration. The pipeline
// uploads the terminal artifact only when Enabled is set.
type PublishConfig struct {
	Enabled         bool
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
}

// Load reads application configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine: defaults plus environment cover
		// every setting. Any other read error is fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")

	// Path defaults
	viper.SetDefault("paths.outputRoot", "generated_videos")
	viper.SetDefault("paths.cacheDir", ".cache")
	viper.SetDefault("paths.musicDir", "music")
	viper.SetDefault("paths.credentials", "config/api_keys.json")

	// TTS defaults
	viper.SetDefault("tts.command", "kokoro-tts")
	viper.SetDefault("tts.timeout", "120s")
	viper.SetDefault("tts.maxRetries", 2)

	// Footage defaults
	viper.SetDefault("footage.httpTimeout", "10s")
	viper.SetDefault("footage.downloadTimeout", "60s")
	viper.SetDefault("footage.maxRetries", 2)
	viper.SetDefault("footage.maxConcurrent", 4)
	viper.SetDefault("footage.cacheTTL", "24h")
	viper.SetDefault("footage.perPage", 15)
	viper.SetDefault("footage.pexelsPerHour", 200)
	viper.SetDefault("footage.pixabayPerHour", 5000)

	// Transcription defaults
	viper.SetDefault("transcribe.whisperCommand", "whisper")
	viper.SetDefault("transcribe.model", "base")
	viper.SetDefault("transcribe.language", "en")
	viper.SetDefault("transcribe.timeout", "300s")

	// Assembler defaults
	viper.SetDefault("assembler.ffmpegPath", "ffmpeg")
	viper.SetDefault("assembler.ffprobePath", "ffprobe")
	viper.SetDefault("assembler.preset", "medium")
	viper.SetDefault("assembler.crf", 23)
	viper.SetDefault("assembler.frameRate", 30)
	viper.SetDefault("assembler.musicVolumeDB", -22.0)
	viper.SetDefault("assembler.musicFadeSec", 2.0)

	// Publish defaults
	viper.SetDefault("publish.enabled", false)
	viper.SetDefault("publish.endpoint", "localhost:9000")
	viper.SetDefault("publish.bucketName", "videos")
	viper.SetDefault("publish.region", "us-east-1")
	viper.SetDefault("publish.useSSL", false)
}

// LoadSpec reads and validates a VideoSpec JSON document. Schema violations
// surface as ConfigError; warnings are soft planning notes only.
func LoadSpec(path string) (*models.VideoSpec, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &models.ConfigError{Reason: fmt.Sprintf("cannot read spec file: %v", err)}
	}

	var spec models.VideoSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, nil, &models.ConfigError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	warnings, err := spec.Validate()
	if err != nil {
		return nil, nil, err
	}

	return &spec, warnings, nil
}

// Credentials holds the footage-provider API keys, read from a local
// credentials file rather than the environment. A missing key degrades that
// provider to unavailable without aborting the run.
type Credentials struct {
	Pexels  string `json:"pexels"`
	Pixabay string `json:"pixabay"`
}

// LoadCredentials reads the provider keys file. A missing file yields empty
// credentials, not an error.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Credentials{}, nil
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	return &creds, nil
}
