// Package inspections reads everything a report needs from storage.
package inspections

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/roomathon/internal/interfaces"
	"github.com/ternarybob/roomathon/internal/models"
)

// Fetcher loads an inspection bundle
type Fetcher struct {
	storage interfaces.InspectionStorage
	logger  arbor.ILogger
}

// NewFetcher creates a new Fetcher
func NewFetcher(storage interfaces.InspectionStorage, logger arbor.ILogger) *Fetcher {
	return &Fetcher{
		storage: storage,
		logger:  logger,
	}
}

// Fetch reads the inspection, its property and its rooms.
// A missing inspection returns an error wrapping interfaces.ErrNotFound.
// A missing property is tolerated and leaves Property zero-valued.
// Rooms are ordered by lower-cased name, then ID.
func (f *Fetcher) Fetch(ctx context.Context, inspectionID string) (*models.InspectionBundle, error) {
	if strings.TrimSpace(inspectionID) == "" {
		return nil, fmt.Errorf("inspection ID is required")
	}

	inspection, err := f.storage.GetInspection(ctx, inspectionID)
	if err != nil {
		return nil, err
	}

	bundle := &models.InspectionBundle{Inspection: *inspection}

	if inspection.PropertyID != "" {
		property, err := f.storage.GetProperty(ctx, inspection.PropertyID)
		switch {
		case err == nil:
			bundle.Property = *property
		case errors.Is(err, interfaces.ErrNotFound):
			f.logger.Warn().
				Str("inspection_id", inspectionID).
				Str("property_id", inspection.PropertyID).
				Msg("Property not found, continuing without property details")
		default:
			f.logger.Warn().
				Err(err).
				Str("inspection_id", inspectionID).
				Str("property_id", inspection.PropertyID).
				Msg("Failed to read property, continuing without property details")
		}
	}

	rooms, err := f.storage.ListRoomComparisons(ctx, inspectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms for inspection %s: %w", inspectionID, err)
	}
	SortRooms(rooms)
	bundle.Rooms = rooms

	f.logger.Debug().
		Str("inspection_id", inspectionID).
		Int("rooms", len(rooms)).
		Msg("Inspection data fetched")

	return bundle, nil
}

// SortRooms orders rooms by lower-cased name, then ID, in place
func SortRooms(rooms []models.RoomComparison) {
	sort.SliceStable(rooms, func(i, j int) bool {
		a, b := strings.ToLower(rooms[i].RoomName), strings.ToLower(rooms[j].RoomName)
		if a != b {
			return a < b
		}
		return rooms[i].ID < rooms[j].ID
	})
}
