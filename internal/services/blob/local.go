package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/roomathon/internal/interfaces"
)

// LocalStore keeps objects on disk under root and serves them from baseURL
type LocalStore struct {
	root    string
	baseURL string
	logger  arbor.ILogger
}

var _ interfaces.BlobStorage = (*LocalStore)(nil)

// NewLocalStore creates root if needed
func NewLocalStore(root, baseURL string, logger arbor.ILogger) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("storage.blob.local_dir is required for the local provider")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &LocalStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}, nil
}

// Root is the directory objects are written to
func (s *LocalStore) Root() string {
	return s.root
}

// Upload writes through a temp file and renames, so readers never see a partial object
func (s *LocalStore) Upload(ctx context.Context, key string, contentType string, r io.Reader) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp object: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, readerWithContext(ctx, r)); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close object: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to publish object: %w", err)
	}

	s.logger.Debug().Str("key", key).Str("path", path).Msg("Object stored locally")
	return nil
}

func (s *LocalStore) PublicURL(key string) string {
	return s.baseURL + "/" + strings.TrimLeft(filepath.ToSlash(key), "/")
}

func (s *LocalStore) Close() error {
	return nil
}

func (s *LocalStore) pathFor(key string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(key))
	if clean == string(filepath.Separator) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}
