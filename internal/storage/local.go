package storage

import (
	"context"
	"fmt"
	"os"
)

var _ Storage = (*LocalStorage)(nil)

// LocalStorage implements Storage for artifacts that stay on local disk.
// It cannot publish; wrap it with S3Storage for that.
type LocalStorage struct{}

// NewLocalStorage creates a new LocalStorage instance.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{}
}

// Cleanup removes the specified files, ignoring ones that no longer exist.
func (s *LocalStorage) Cleanup(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove file %s: %w", p, err)
			}
		}
	}
	return firstErr
}

// Publish is not supported by LocalStorage and returns ErrS3NotConfigured.
func (s *LocalStorage) Publish(_ context.Context, _, _ string) (string, error) {
	return "", ErrS3NotConfigured
}

// CanPublish always returns false.
func (s *LocalStorage) CanPublish() bool {
	return false
}
