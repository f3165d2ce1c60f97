// Package objectstore abstracts photo/evidence storage behind a single
// Gateway interface with three interchangeable backends: local filesystem
// (dev), S3-compatible (production), and CDN-fronted (signed public reads).
// Grounded on the S3 artifact store pattern, generalized to deterministic
// keys plus signed upload/download URLs for direct client access.
package objectstore

import (
	"context"
	"io"
	"time"
)

// Gateway is the storage abstraction every backend implements.
type Gateway interface {
	// Put uploads data under key.
	Put(ctx context.Context, key string, data io.Reader, contentType string) error
	// Delete removes the object at key.
	Delete(ctx context.Context, key string) error
	// SignDownload returns a time-limited URL for reading the object at key.
	SignDownload(ctx context.Context, key string, ttl time.Duration) (string, error)
	// SignUpload returns a time-limited URL the client can PUT directly to,
	// bypassing the API server for large photo uploads.
	SignUpload(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// ContentKey builds a deterministic, collision-resistant object key from an
// org, a domain entity (e.g. "photos"), an entity ID, and a filename.
func ContentKey(orgID, entity, entityID, filename string) string {
	return entity + "/" + orgID + "/" + entityID + "/" + filename
}
