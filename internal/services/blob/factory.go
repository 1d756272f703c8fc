package blob

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/roomathon/internal/common"
	"github.com/ternarybob/roomathon/internal/interfaces"
)

// NewFromConfig builds the blob store selected by [storage.blob] provider
func NewFromConfig(ctx context.Context, cfg *common.BlobConfig, logger arbor.ILogger) (interfaces.BlobStorage, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "local":
		return NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL, logger)
	case "gcs":
		timeout := common.ParseDuration(cfg.UploadTimeout, 2*time.Minute)
		return NewGCSStore(ctx, cfg.Bucket, cfg.CDNDomain, cfg.CredentialsFile, timeout, logger)
	default:
		return nil, fmt.Errorf("unsupported blob provider: %s", cfg.Provider)
	}
}
