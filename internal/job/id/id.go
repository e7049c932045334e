// Package id provides unique identifier generation for sync jobs.
package id

import "github.com/google/uuid"

// Prefix is prepended to every generated job ID.
const Prefix = "sync-"

// Generate creates a new unique job ID.
// Format: sync-<uuid>
// Example: sync-1b4e28ba-2fa1-11d2-883f-0016d3cca427
func Generate() string {
	return Prefix + uuid.NewString()
}
