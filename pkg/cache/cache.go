// Package cache stores rendered strategy artifacts (SVG, PNG, PDF) keyed
// by a content hash of the document they were rendered from, so a
// re-render of an unchanged graph is a read instead of a Graphviz run.
//
// Backends: [FileCache] for CLI and server usage, [NullCache] to disable
// caching. Keys come from [ArtifactKey] over a [DocumentHash]; wrap a
// [Keyer] with [NewScopedKeyer] to namespace entries per document.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-blob cache with per-entry TTL.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key
	// was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A non-positive ttl means the entry never
	// expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
