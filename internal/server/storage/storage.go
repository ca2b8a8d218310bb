// Package storage puts skill file bytes into object storage and hands back
// opaque references the registry records on each file descriptor.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable is returned while the storage circuit is open.
var ErrUnavailable = errors.New("storage unavailable")

// BlobStore accepts raw bytes and returns an opaque storage reference.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ObjectKey returns the content-addressed key for a blob with the given
// SHA-256 hex digest.
func ObjectKey(sha256 string) string {
	if len(sha256) < 2 {
		return fmt.Sprintf("blobs/sha256/%s", sha256)
	}
	return fmt.Sprintf("blobs/sha256/%s/%s", sha256[:2], sha256)
}
