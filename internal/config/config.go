// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrInvalidPort is returned when PORT is outside 1-65535.
	ErrInvalidPort = errors.New("config: PORT must be between 1 and 65535")
	// ErrInvalidNoiseDB is returned when SILENCE_NOISE_DB is not a negative dB level.
	ErrInvalidNoiseDB = errors.New("config: SILENCE_NOISE_DB must be between -120 and 0")
	// ErrInvalidMinSilence is returned when SILENCE_MIN_DURATION_SEC is not positive.
	ErrInvalidMinSilence = errors.New("config: SILENCE_MIN_DURATION_SEC must be positive")
	// ErrInvalidHistoryLimit is returned when JOB_HISTORY_LIMIT is not positive.
	ErrInvalidHistoryLimit = errors.New("config: JOB_HISTORY_LIMIT must be positive")
	// ErrOutputNameRequired is returned when OUTPUT_NAME is empty or contains a path separator.
	ErrOutputNameRequired = errors.New("config: OUTPUT_NAME must be a plain file name")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port           int      `env:"PORT, default=8000" json:"port"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS, default=*" json:"allowed_origins"`

	// Tool settings
	FFmpegPath string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`

	// Sync settings
	WorkDir           string  `env:"WORK_DIR, default=." json:"work_dir"`
	SilenceNoiseDB    float64 `env:"SILENCE_NOISE_DB, default=-60" json:"silence_noise_db"`
	SilenceMinSec     float64 `env:"SILENCE_MIN_DURATION_SEC, default=0.5" json:"silence_min_duration_sec"`
	OutputName        string  `env:"OUTPUT_NAME, default=OUTPUT_SYNCED.eac3" json:"output_name"`
	OutputCodec       string  `env:"OUTPUT_CODEC, default=eac3" json:"output_codec"`
	OutputBitrate     string  `env:"OUTPUT_BITRATE, default=640k" json:"output_bitrate"`
	KeepIntermediates bool    `env:"KEEP_INTERMEDIATES, default=true" json:"keep_intermediates"`
	JobHistoryLimit   int     `env:"JOB_HISTORY_LIMIT, default=50" json:"job_history_limit"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig
// and validates it.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if c.SilenceNoiseDB < -120 || c.SilenceNoiseDB > 0 {
		return ErrInvalidNoiseDB
	}
	if c.SilenceMinSec <= 0 {
		return ErrInvalidMinSilence
	}
	if c.JobHistoryLimit < 1 {
		return ErrInvalidHistoryLimit
	}
	if c.OutputName == "" || strings.ContainsAny(c.OutputName, `/\`) {
		return ErrOutputNameRequired
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	return c.NewLoggerTo(os.Stdout)
}

// NewLoggerTo is NewLogger writing to w.
func (c *Config) NewLoggerTo(w io.Writer) *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, WorkDir: %s, FFmpegPath: %s, SilenceNoiseDB: %g, SilenceMinSec: %g, OutputName: %s, OutputCodec: %s, OutputBitrate: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.WorkDir,
		c.FFmpegPath,
		c.SilenceNoiseDB,
		c.SilenceMinSec,
		c.OutputName,
		c.OutputCodec,
		c.OutputBitrate,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
