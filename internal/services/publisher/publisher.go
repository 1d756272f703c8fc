// Package publisher persists a rendered report and records where it lives.
package publisher

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/roomathon/internal/interfaces"
	"github.com/ternarybob/roomathon/internal/models"
	"github.com/ternarybob/roomathon/internal/services/pdf"
)

const contentTypePDF = "application/pdf"

// FileName is the deterministic report file name for an inspection
func FileName(inspectionID string) string {
	return fmt.Sprintf("inspection-report-%s.pdf", inspectionID)
}

// ObjectKey is the blob key a report is published under
func ObjectKey(inspectionID string) string {
	return "reports/" + FileName(inspectionID)
}

// Published describes a successful publish
type Published struct {
	LocalPath   string
	ReportURL   string
	PageCount   int
	GeneratedAt time.Time
}

// Publisher writes the intermediate file, uploads it and updates the inspection
type Publisher struct {
	outputDir string
	blobs     interfaces.BlobStorage
	storage   interfaces.InspectionStorage
	logger    arbor.ILogger
	now       func() time.Time
}

// NewPublisher creates a Publisher writing intermediate files to outputDir
func NewPublisher(outputDir string, blobs interfaces.BlobStorage, storage interfaces.InspectionStorage, logger arbor.ILogger) *Publisher {
	return &Publisher{
		outputDir: outputDir,
		blobs:     blobs,
		storage:   storage,
		logger:    logger,
		now:       time.Now,
	}
}

// LocalPath is where the intermediate file for an inspection is written
func (p *Publisher) LocalPath(inspectionID string) string {
	return filepath.Join(p.outputDir, FileName(inspectionID))
}

// Publish runs every step in order and stops at the first failure.
// The bytes are staged in a temp file beside LocalPath and only replace it
// once the upload and the record update succeeded, so LocalPath always
// holds the last published report.
func (p *Publisher) Publish(ctx context.Context, inspectionID string, data []byte) (*Published, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("rendered report is empty")
	}

	localPath := p.LocalPath(inspectionID)
	staged, err := stageFile(localPath, data)
	if err != nil {
		return nil, fmt.Errorf("failed to write report file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(staged)
		}
	}()

	pages, err := pdf.Inspect(staged)
	if err != nil {
		return nil, fmt.Errorf("report failed validation: %w", err)
	}

	key := ObjectKey(inspectionID)
	if err := p.blobs.Upload(ctx, key, contentTypePDF, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to upload report: %w", err)
	}
	url := p.blobs.PublicURL(key)

	generatedAt := p.now().UTC()
	state := models.ReportState{
		ReportURL:   url,
		Status:      models.InspectionStatusCompleted,
		GeneratedAt: generatedAt,
	}
	if err := p.storage.UpdateReportState(ctx, inspectionID, state); err != nil {
		return nil, fmt.Errorf("failed to update inspection record: %w", err)
	}

	if err := os.Rename(staged, localPath); err != nil {
		return nil, fmt.Errorf("failed to move report file into place: %w", err)
	}
	committed = true

	p.logger.Info().
		Str("inspection_id", inspectionID).
		Str("report_url", url).
		Int("pages", pages).
		Int("bytes", len(data)).
		Msg("Report published")

	return &Published{
		LocalPath:   localPath,
		ReportURL:   url,
		PageCount:   pages,
		GeneratedAt: generatedAt,
	}, nil
}

// stageFile writes data to a temp file in the directory of path and returns its name
func stageFile(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(dir, ".report-*.pdf")
	if err != nil {
		return "", err
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
