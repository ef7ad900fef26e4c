// Package blobstore adapts the external content store. Chunk bytes never
// pass through this server: the adapter only answers existence checks and
// issues presigned URLs that clients use to move bytes directly.
package blobstore

import (
	"context"
	"time"
)

// Store is the content-store adapter consumed by the upload orchestrator
// and the manifest builder.
type Store interface {
	// Exists reports whether an object with the given key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// PresignPut returns a temporary URL the client can PUT the object to.
	PresignPut(ctx context.Context, key string, ttl time.Duration) (string, error)

	// PresignGet returns a temporary URL the client can GET the object from.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}
