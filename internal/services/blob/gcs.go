// Package blob publishes finished reports to object storage.
package blob

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/roomathon/internal/interfaces"
	"google.golang.org/api/option"
)

// GCSStore uploads objects to a Google Cloud Storage bucket
type GCSStore struct {
	client    *storage.Client
	bucket    string
	cdnDomain string
	timeout   time.Duration
	logger    arbor.ILogger
}

var _ interfaces.BlobStorage = (*GCSStore)(nil)

// ClientOptions turns a credentials setting into client options.
// Inline JSON and file paths are both accepted; empty means application default credentials.
func ClientOptions(credentials string) []option.ClientOption {
	creds := strings.TrimSpace(credentials)
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

// NewGCSStore creates a bucket client
func NewGCSStore(ctx context.Context, bucket, cdnDomain, credentials string, timeout time.Duration, logger arbor.ILogger) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("storage.blob.bucket is required for the gcs provider")
	}

	opts := append(ClientOptions(credentials), option.WithScopes(storage.ScopeReadWrite))
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCSStore{
		client:    client,
		bucket:    bucket,
		cdnDomain: cdnDomain,
		timeout:   timeout,
		logger:    logger,
	}, nil
}

// Upload writes r to key, replacing any existing object
func (s *GCSStore) Upload(ctx context.Context, key string, contentType string, r io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "no-cache"

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}

	s.logger.Debug().Str("bucket", s.bucket).Str("key", key).Msg("Object uploaded to GCS")
	return nil
}

// PublicURL prefers the CDN domain when configured
func (s *GCSStore) PublicURL(key string) string {
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cdnDomain, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, key)
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
