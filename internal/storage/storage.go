// Package storage handles the files a sync job leaves behind: removing
// intermediate PCM and manifest files and publishing the rendered track to
// object storage.
package storage

import (
	"context"
	"errors"
)

// ErrS3NotConfigured is returned when a publish is attempted without S3 configuration.
var ErrS3NotConfigured = errors.New("S3 storage is not configured")

// Storage defines file housekeeping and publishing for sync artifacts.
type Storage interface {
	// Cleanup removes the given files.
	// It continues even if some files fail to delete and returns the first error.
	Cleanup(ctx context.Context, paths []string) error

	// Publish uploads the file at path under key and returns its public URL.
	// Returns ErrS3NotConfigured if no object storage is configured.
	Publish(ctx context.Context, key, path string) (url string, err error)

	// CanPublish reports whether Publish is backed by object storage.
	CanPublish() bool
}
