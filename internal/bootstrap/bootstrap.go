// Package bootstrap provides dependency initialization for dubsync.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/maauso/dubsync/internal/config"
	"github.com/maauso/dubsync/internal/job"
	"github.com/maauso/dubsync/internal/media"
	"github.com/maauso/dubsync/internal/storage"
)

// Dependencies holds all initialized dependencies for the entry points.
type Dependencies struct {
	SyncService *job.SyncService
	Storage     storage.Storage
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	// Initialize storage
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	// One ffmpeg wrapper serves extraction, silence detection and rendering
	ff := media.NewFFmpeg(cfg.FFmpegPath)
	prober := media.NewFFprobe()

	// Initialize job repository
	repo := job.NewMemoryRepository()

	svc := job.NewSyncService(
		repo,
		prober,
		ff,
		ff,
		ff,
		store,
		logger,
		job.WithWorkDir(cfg.WorkDir),
		job.WithSilenceOpts(media.SilenceOpts{
			NoiseDB:     cfg.SilenceNoiseDB,
			MinDuration: cfg.SilenceMinSec,
		}),
		job.WithRenderOpts(media.RenderOpts{
			Codec:   cfg.OutputCodec,
			Bitrate: cfg.OutputBitrate,
		}),
		job.WithOutputName(cfg.OutputName),
		job.WithKeepIntermediates(cfg.KeepIntermediates),
		job.WithHistoryLimit(cfg.JobHistoryLimit),
	)

	return &Dependencies{
		SyncService: svc,
		Storage:     store,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Store, err := storage.NewS3Storage(storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	logger.Info("local storage configured, publishing disabled")
	return storage.NewLocalStorage(), nil
}
