package inspections

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/roomathon/internal/interfaces"
	"github.com/ternarybob/roomathon/internal/models"
)

type stubStorage struct {
	interfaces.InspectionStorage
	inspections map[string]models.Inspection
	properties  map[string]models.Property
	rooms       map[string][]models.RoomComparison
	propertyErr error
}

func (s *stubStorage) GetInspection(ctx context.Context, id string) (*models.Inspection, error) {
	i, ok := s.inspections[id]
	if !ok {
		return nil, fmt.Errorf("inspection %s: %w", id, interfaces.ErrNotFound)
	}
	return &i, nil
}

func (s *stubStorage) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	if s.propertyErr != nil {
		return nil, s.propertyErr
	}
	p, ok := s.properties[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return &p, nil
}

func (s *stubStorage) ListRoomComparisons(ctx context.Context, inspectionID string) ([]models.RoomComparison, error) {
	return append([]models.RoomComparison(nil), s.rooms[inspectionID]...), nil
}

func newStub() *stubStorage {
	return &stubStorage{
		inspections: map[string]models.Inspection{
			"X1": {ID: "X1", OwnerName: "Ann", PropertyID: "P1"},
			"X2": {ID: "X2", OwnerName: "Ben", PropertyID: "missing"},
		},
		properties: map[string]models.Property{
			"P1": {ID: "P1", Name: "Oak House", Address: "12 Oak St"},
		},
		rooms: map[string][]models.RoomComparison{
			"X1": {
				{ID: "r3", RoomName: "kitchen"},
				{ID: "r2", RoomName: "Bedroom 2"},
				{ID: "r1", RoomName: "Bedroom 2"},
				{ID: "r4", RoomName: "Attic"},
			},
		},
	}
}

func TestFetch(t *testing.T) {
	f := NewFetcher(newStub(), arbor.NewLogger())

	bundle, err := f.Fetch(context.Background(), "X1")
	require.NoError(t, err)

	assert.Equal(t, "Ann", bundle.Inspection.OwnerName)
	assert.Equal(t, "Oak House", bundle.Property.Name)

	var ids []string
	for _, r := range bundle.Rooms {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"r4", "r1", "r2", "r3"}, ids)
}

func TestFetch_NotFound(t *testing.T) {
	f := NewFetcher(newStub(), arbor.NewLogger())

	_, err := f.Fetch(context.Background(), "nope")
	assert.True(t, errors.Is(err, interfaces.ErrNotFound))
}

func TestFetch_MissingPropertyIsTolerated(t *testing.T) {
	f := NewFetcher(newStub(), arbor.NewLogger())

	bundle, err := f.Fetch(context.Background(), "X2")
	require.NoError(t, err)
	assert.Equal(t, models.Property{}, bundle.Property)
	assert.Empty(t, bundle.Rooms)
}

func TestFetch_PropertyReadErrorIsTolerated(t *testing.T) {
	stub := newStub()
	stub.propertyErr = errors.New("disk on fire")
	f := NewFetcher(stub, arbor.NewLogger())

	bundle, err := f.Fetch(context.Background(), "X1")
	require.NoError(t, err)
	assert.Empty(t, bundle.Property.Name)
}

func TestFetch_EmptyID(t *testing.T) {
	f := NewFetcher(newStub(), arbor.NewLogger())

	_, err := f.Fetch(context.Background(), "  ")
	assert.Error(t, err)
}
