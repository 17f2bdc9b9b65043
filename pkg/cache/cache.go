// Package cache stores generation results between runs.
//
// Two artifacts are cached, each under its own key:
//
//   - layer counts after estimation and tabu search, keyed by the mesh,
//     bounds, surface, and estimator/optimizer parameters ([Keyer.LayerKey])
//   - the complete sigma grid, keyed by the layer-count key and the builder
//     parameters ([Keyer.GridKey])
//
// Changing only the stretching parameters therefore reuses the (expensive)
// optimized layer counts.
//
// Backends:
//   - [FileCache]: snappy-compressed files under the user cache directory
//   - [RedisCache]: a shared Redis instance
//   - [NullCache]: caching disabled
package cache

import (
	"context"
	"time"
)

// Default time-to-live values.
const (
	TTLLayers = 30 * 24 * time.Hour
	TTLGrid   = 7 * 24 * time.Hour
)

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns the value and true on a hit, or nil and false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}
