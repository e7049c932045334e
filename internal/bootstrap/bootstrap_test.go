package bootstrap

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/dubsync/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:              8000,
		FFmpegPath:        "ffmpeg",
		WorkDir:           ".",
		SilenceNoiseDB:    -60,
		SilenceMinSec:     0.5,
		OutputName:        "OUTPUT_SYNCED.eac3",
		OutputCodec:       "eac3",
		OutputBitrate:     "640k",
		KeepIntermediates: true,
		JobHistoryLimit:   50,
	}
}

func TestNewDependencies_LocalStorage(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	deps, err := NewDependencies(testConfig(), logger)
	require.NoError(t, err)

	assert.NotNil(t, deps.SyncService)
	assert.False(t, deps.Storage.CanPublish())
}

func TestNewDependencies_S3Storage(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig()
	cfg.S3Bucket = "bucket"
	cfg.S3Region = "us-east-1"
	cfg.S3Endpoint = "http://localhost:9000"
	cfg.AWSAccessKeyID = "key"
	cfg.AWSSecretAccessKey = "secret"

	deps, err := NewDependencies(cfg, logger)
	require.NoError(t, err)

	assert.True(t, deps.Storage.CanPublish())
}
