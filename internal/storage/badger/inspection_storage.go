package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/roomathon/internal/interfaces"
	"github.com/ternarybob/roomathon/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// InspectionStorage implements the InspectionStorage interface for Badger
type InspectionStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewInspectionStorage creates a new InspectionStorage instance
func NewInspectionStorage(db *BadgerDB, logger arbor.ILogger) interfaces.InspectionStorage {
	return &InspectionStorage{
		db:     db,
		logger: logger,
	}
}

func (s *InspectionStorage) GetInspection(ctx context.Context, id string) (*models.Inspection, error) {
	var inspection models.Inspection
	if err := s.db.Store().Get(id, &inspection); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("inspection %s: %w", id, interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get inspection: %w", err)
	}
	return &inspection, nil
}

func (s *InspectionStorage) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	var property models.Property
	if err := s.db.Store().Get(id, &property); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("property %s: %w", id, interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return &property, nil
}

// ListRoomComparisons returns every room recorded for the inspection, in no particular order
func (s *InspectionStorage) ListRoomComparisons(ctx context.Context, inspectionID string) ([]models.RoomComparison, error) {
	var rooms []models.RoomComparison
	query := badgerhold.Where("InspectionID").Eq(inspectionID).Index("InspectionID")
	if err := s.db.Store().Find(&rooms, query); err != nil {
		return nil, fmt.Errorf("failed to list room comparisons: %w", err)
	}
	return rooms, nil
}

// UpdateReportState touches only the report fields, inside a single transaction
func (s *InspectionStorage) UpdateReportState(ctx context.Context, id string, state models.ReportState) error {
	if _, err := s.GetInspection(ctx, id); err != nil {
		return err
	}

	generatedAt := state.GeneratedAt
	err := s.db.Store().UpdateMatching(&models.Inspection{}, badgerhold.Where(badgerhold.Key).Eq(id), func(record interface{}) error {
		inspection, ok := record.(*models.Inspection)
		if !ok {
			return fmt.Errorf("unexpected record type %T", record)
		}
		inspection.ReportURL = state.ReportURL
		inspection.Status = state.Status
		inspection.ReportGeneratedAt = &generatedAt
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update report state: %w", err)
	}

	s.logger.Debug().
		Str("inspection_id", id).
		Str("status", string(state.Status)).
		Msg("Report state updated")

	return nil
}

func (s *InspectionStorage) SaveInspection(ctx context.Context, inspection *models.Inspection) error {
	if inspection.ID == "" {
		return fmt.Errorf("inspection ID is required")
	}
	if inspection.Status == "" {
		inspection.Status = models.InspectionStatusPending
	}
	if err := s.db.Store().Upsert(inspection.ID, inspection); err != nil {
		return fmt.Errorf("failed to save inspection: %w", err)
	}
	return nil
}

func (s *InspectionStorage) SaveProperty(ctx context.Context, property *models.Property) error {
	if property.ID == "" {
		return fmt.Errorf("property ID is required")
	}
	if err := s.db.Store().Upsert(property.ID, property); err != nil {
		return fmt.Errorf("failed to save property: %w", err)
	}
	return nil
}

func (s *InspectionStorage) SaveRoomComparison(ctx context.Context, room *models.RoomComparison) error {
	if room.ID == "" || room.InspectionID == "" {
		return fmt.Errorf("room comparison requires ID and inspection ID")
	}
	// Rooms live in a per-inspection namespace
	key := room.InspectionID + "/" + room.ID
	if err := s.db.Store().Upsert(key, room); err != nil {
		return fmt.Errorf("failed to save room comparison: %w", err)
	}
	return nil
}
