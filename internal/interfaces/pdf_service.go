package interfaces

import (
	"context"

	"github.com/ternarybob/roomathon/internal/models"
)

// ImageFetcher downloads raw image bytes. Errors are returned, never swallowed.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ReportRenderer serializes a composed report document
type ReportRenderer interface {
	RenderReport(ctx context.Context, doc *models.ReportDocument, images ImageFetcher) (*models.RenderedReport, error)
}
