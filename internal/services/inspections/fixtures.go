package inspections

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/roomathon/internal/interfaces"
	"github.com/ternarybob/roomathon/internal/models"
)

// Fixtures is a YAML document of source records, used to seed a local store
type Fixtures struct {
	Properties  []models.Property       `yaml:"properties" validate:"dive"`
	Inspections []models.Inspection     `yaml:"inspections" validate:"dive"`
	Rooms       []models.RoomComparison `yaml:"rooms" validate:"dive"`
}

// SeedCounts reports how many records were written
type SeedCounts struct {
	Properties  int
	Inspections int
	Rooms       int
}

// LoadFixtures reads and validates a fixtures file
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures %s: %w", path, err)
	}
	return ParseFixtures(data)
}

// ParseFixtures decodes fixtures YAML. Every room must reference a declared inspection.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}

	if err := validator.New().Struct(&f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return nil, fmt.Errorf("invalid fixture %s: failed %q", fe.Namespace(), fe.Tag())
		}
		return nil, fmt.Errorf("invalid fixtures: %w", err)
	}

	known := make(map[string]bool, len(f.Inspections))
	for _, in := range f.Inspections {
		known[in.ID] = true
	}
	for _, room := range f.Rooms {
		if !known[room.InspectionID] {
			return nil, fmt.Errorf("room %s references unknown inspection %q", room.ID, room.InspectionID)
		}
	}

	return &f, nil
}

// Seed writes fixtures into storage. New inspections start pending.
func Seed(ctx context.Context, storage interfaces.InspectionStorage, f *Fixtures, logger arbor.ILogger) (SeedCounts, error) {
	var counts SeedCounts
	now := time.Now()

	for i := range f.Properties {
		if err := storage.SaveProperty(ctx, &f.Properties[i]); err != nil {
			return counts, fmt.Errorf("failed to save property %s: %w", f.Properties[i].ID, err)
		}
		counts.Properties++
	}

	for i := range f.Inspections {
		in := &f.Inspections[i]
		if in.Status == "" {
			in.Status = models.InspectionStatusPending
		}
		if in.CreatedAt.IsZero() {
			in.CreatedAt = now
		}
		if err := storage.SaveInspection(ctx, in); err != nil {
			return counts, fmt.Errorf("failed to save inspection %s: %w", in.ID, err)
		}
		counts.Inspections++
	}

	for i := range f.Rooms {
		if err := storage.SaveRoomComparison(ctx, &f.Rooms[i]); err != nil {
			return counts, fmt.Errorf("failed to save room %s: %w", f.Rooms[i].ID, err)
		}
		counts.Rooms++
	}

	logger.Info().
		Int("properties", counts.Properties).
		Int("inspections", counts.Inspections).
		Int("rooms", counts.Rooms).
		Msg("Fixtures seeded")

	return counts, nil
}
