package interfaces

import (
	"context"
	"io"
)

// BlobStorage publishes finished artifacts and hands back a durable URL
type BlobStorage interface {
	// Upload writes the object under key, replacing any existing object
	Upload(ctx context.Context, key string, contentType string, r io.Reader) error

	// PublicURL returns the URL readers use to fetch the object
	PublicURL(key string) string

	Close() error
}
