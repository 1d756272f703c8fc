package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/roomathon/internal/models"
)

// ErrNotFound is returned by storage lookups that match no record
var ErrNotFound = errors.New("record not found")

// InspectionStorage reads inspection data and writes back report state
type InspectionStorage interface {
	// GetInspection returns ErrNotFound when the identifier does not resolve
	GetInspection(ctx context.Context, id string) (*models.Inspection, error)
	GetProperty(ctx context.Context, id string) (*models.Property, error)
	ListRoomComparisons(ctx context.Context, inspectionID string) ([]models.RoomComparison, error)

	// UpdateReportState writes ReportURL, Status and ReportGeneratedAt only
	UpdateReportState(ctx context.Context, id string, state models.ReportState) error

	SaveInspection(ctx context.Context, inspection *models.Inspection) error
	SaveProperty(ctx context.Context, property *models.Property) error
	SaveRoomComparison(ctx context.Context, room *models.RoomComparison) error
}

// NotificationStorage persists report emails that failed to send
type NotificationStorage interface {
	SavePending(ctx context.Context, n *models.PendingNotification) error
	ListPending(ctx context.Context) ([]models.PendingNotification, error)
	DeletePending(ctx context.Context, id string) error
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	InspectionStorage() InspectionStorage
	NotificationStorage() NotificationStorage
	KeyValueStorage() KeyValueStorage
	Close() error
}
