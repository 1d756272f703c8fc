// -----------------------------------------------------------------------
// Last Modified: Thursday, 16th October 2025
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

// Package reports runs the inspection report pipeline end to end.
package reports

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/roomathon/internal/common"
	"github.com/ternarybob/roomathon/internal/interfaces"
	"github.com/ternarybob/roomathon/internal/models"
	"github.com/ternarybob/roomathon/internal/services/narrative"
	"github.com/ternarybob/roomathon/internal/services/notify"
	"github.com/ternarybob/roomathon/internal/services/publisher"
	"github.com/ternarybob/roomathon/internal/services/report"
	"github.com/ternarybob/roomathon/internal/services/summary"
)

// ErrNotPublished is returned when a notification is requested for a report that does not exist yet
var ErrNotPublished = errors.New("report has not been generated")

// DataFetcher loads an inspection bundle
type DataFetcher interface {
	Fetch(ctx context.Context, inspectionID string) (*models.InspectionBundle, error)
}

// Summarizer produces the narrative. It degrades instead of failing.
type Summarizer interface {
	Summarize(ctx context.Context, bundle *models.InspectionBundle) summary.Result
}

// Publisher stores a rendered report and records it on the inspection
type Publisher interface {
	Publish(ctx context.Context, inspectionID string, data []byte) (*publisher.Published, error)
	LocalPath(inspectionID string) string
}

// Notifier emails a published report
type Notifier interface {
	Notify(ctx context.Context, req notify.Request) models.NotificationResult
}

// Components are the pipeline stages, in execution order
type Components struct {
	Storage    interfaces.InspectionStorage
	Fetcher    DataFetcher
	Summarizer Summarizer
	Renderer   interfaces.ReportRenderer
	Images     interfaces.ImageFetcher
	Publisher  Publisher
	Notifier   Notifier
}

// Service generates inspection reports
type Service struct {
	c       Components
	title   string
	timeout time.Duration
	locks   *keyedLock
	logger  arbor.ILogger
}

// NewService creates the pipeline. A nil config uses the defaults.
func NewService(config *common.ReportsConfig, c Components, logger arbor.ILogger) *Service {
	if config == nil {
		config = &common.NewDefaultConfig().Reports
	}

	s := &Service{
		c:       c,
		title:   config.Title,
		timeout: common.ParseDuration(config.Timeout, 10*time.Minute),
		logger:  logger,
	}
	if config.SerializePerInspection {
		s.locks = newKeyedLock()
	}
	return s
}

// GenerateReport builds, publishes and emails the report for one inspection.
//
// A missing inspection returns *NotFoundError before anything is written.
// Render, upload or record failures return *PublishError and no email is sent.
// Summary and image problems degrade the report and are listed in the result.
// Email failure is reported in result.Notification, never as an error.
func (s *Service) GenerateReport(ctx context.Context, inspectionID, requesterEmail string) (*models.GenerationResult, error) {
	requestID := common.RequestIDFrom(ctx)
	logger := s.logger.WithCorrelationId(requestID)
	start := time.Now()

	// The deadline covers waiting behind a running generation of the same ID
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if s.locks != nil {
		unlock, err := s.locks.Lock(ctx, inspectionID)
		if err != nil {
			return nil, fmt.Errorf("waiting for running generation of %s: %w", inspectionID, err)
		}
		defer unlock()
	}

	logger.Info().Str("inspection_id", inspectionID).Msg("Report generation started")

	bundle, err := s.c.Fetcher.Fetch(ctx, inspectionID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			logger.Warn().Str("inspection_id", inspectionID).Msg("Inspection not found")
			return nil, &NotFoundError{InspectionID: inspectionID}
		}
		return nil, fmt.Errorf("failed to fetch inspection %s: %w", inspectionID, err)
	}

	sum := s.c.Summarizer.Summarize(ctx, bundle)
	roomNames := make([]string, 0, len(bundle.Rooms))
	for _, room := range bundle.Rooms {
		roomNames = append(roomNames, room.RoomName)
	}
	story := narrative.Split(narrative.Clean(sum.Text), roomNames)
	buckets := report.Classify(bundle.Rooms, story.SummarizedRooms)

	logger.Debug().
		Str("inspection_id", inspectionID).
		Int("sections", len(story.Sections)).
		Int("skipped", len(buckets.Skipped)).
		Int("summarized", len(buckets.Summarized)).
		Int("image_rooms", len(buckets.ImageBearing)).
		Int("excluded", len(buckets.Excluded)).
		Msg("Rooms classified")

	doc := report.Compose(report.ComposeInput{
		Title:      s.title,
		Inspection: bundle.Inspection,
		Property:   bundle.Property,
		Sections:   story.Sections,
		Buckets:    buckets,
		RoomCount:  len(bundle.Rooms),
	})

	rendered, err := s.c.Renderer.RenderReport(ctx, doc, s.c.Images)
	if err != nil {
		return nil, &PublishError{InspectionID: inspectionID, Stage: "render", Err: err}
	}

	published, err := s.c.Publisher.Publish(ctx, inspectionID, rendered.Bytes)
	if err != nil {
		return nil, &PublishError{InspectionID: inspectionID, Stage: "publish", Err: err}
	}

	result := &models.GenerationResult{
		InspectionID:    inspectionID,
		ReportURL:       published.ReportURL,
		LocalPath:       published.LocalPath,
		PageCount:       published.PageCount,
		SummaryDegraded: sum.Degraded,
		ImagesEmbedded:  rendered.ImagesEmbedded,
		ImagesFailed:    rendered.ImagesFailed,
	}

	result.Notification = s.c.Notifier.Notify(ctx, notify.Request{
		InspectionID:   inspectionID,
		OwnerName:      bundle.Inspection.OwnerName,
		OwnerEmail:     bundle.Inspection.OwnerEmail,
		RequesterEmail: requesterEmail,
		LocalPath:      published.LocalPath,
		ReportURL:      published.ReportURL,
	})

	logger.Info().
		Str("inspection_id", inspectionID).
		Str("report_url", result.ReportURL).
		Int("pages", result.PageCount).
		Int("images_failed", len(result.ImagesFailed)).
		Bool("summary_degraded", result.SummaryDegraded).
		Bool("notified", result.Notification.Sent).
		Dur("duration", time.Since(start)).
		Msg("Report generation completed")

	return result, nil
}

// GetInspection returns the inspection record with its report state
func (s *Service) GetInspection(ctx context.Context, inspectionID string) (*models.Inspection, error) {
	inspection, err := s.c.Storage.GetInspection(ctx, inspectionID)
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, &NotFoundError{InspectionID: inspectionID}
	}
	return inspection, err
}

// ResendNotification emails an already published report again
func (s *Service) ResendNotification(ctx context.Context, inspectionID, requesterEmail string) (models.NotificationResult, error) {
	inspection, err := s.GetInspection(ctx, inspectionID)
	if err != nil {
		return models.NotificationResult{}, err
	}
	if inspection.Status != models.InspectionStatusCompleted {
		return models.NotificationResult{}, fmt.Errorf("inspection %s: %w", inspectionID, ErrNotPublished)
	}

	localPath := s.c.Publisher.LocalPath(inspectionID)
	if _, err := os.Stat(localPath); err != nil {
		return models.NotificationResult{}, fmt.Errorf("inspection %s: local report missing: %w", inspectionID, ErrNotPublished)
	}

	return s.c.Notifier.Notify(ctx, notify.Request{
		InspectionID:   inspectionID,
		OwnerName:      inspection.OwnerName,
		OwnerEmail:     inspection.OwnerEmail,
		RequesterEmail: requesterEmail,
		LocalPath:      localPath,
		ReportURL:      inspection.ReportURL,
	}), nil
}
