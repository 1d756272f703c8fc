package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/roomathon/internal/common"
	"github.com/ternarybob/roomathon/internal/interfaces"
	"github.com/ternarybob/roomathon/internal/models"
)

func newTestManager(t *testing.T) interfaces.StorageManager {
	t.Helper()
	manager, err := NewManager(arbor.NewLogger(), &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })
	return manager
}

func TestInspectionStorage_GetMissing(t *testing.T) {
	store := newTestManager(t).InspectionStorage()

	_, err := store.GetInspection(context.Background(), "missing")
	assert.True(t, errors.Is(err, interfaces.ErrNotFound))

	_, err = store.GetProperty(context.Background(), "missing")
	assert.True(t, errors.Is(err, interfaces.ErrNotFound))
}

func TestInspectionStorage_RoomsScopedToInspection(t *testing.T) {
	ctx := context.Background()
	store := newTestManager(t).InspectionStorage()

	require.NoError(t, store.SaveInspection(ctx, &models.Inspection{ID: "X1", OwnerName: "Ann"}))
	require.NoError(t, store.SaveInspection(ctx, &models.Inspection{ID: "X2", OwnerName: "Ben"}))
	require.NoError(t, store.SaveRoomComparison(ctx, &models.RoomComparison{ID: "r1", InspectionID: "X1", RoomName: "Kitchen"}))
	require.NoError(t, store.SaveRoomComparison(ctx, &models.RoomComparison{ID: "r2", InspectionID: "X1", RoomName: "Bedroom 2"}))
	require.NoError(t, store.SaveRoomComparison(ctx, &models.RoomComparison{ID: "r1", InspectionID: "X2", RoomName: "Lounge"}))

	rooms, err := store.ListRoomComparisons(ctx, "X1")
	require.NoError(t, err)
	assert.Len(t, rooms, 2)

	rooms, err = store.ListRoomComparisons(ctx, "X2")
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "Lounge", rooms[0].RoomName)

	rooms, err = store.ListRoomComparisons(ctx, "none")
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

func TestInspectionStorage_UpdateReportStateOnlyTouchesReportFields(t *testing.T) {
	ctx := context.Background()
	store := newTestManager(t).InspectionStorage()

	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveInspection(ctx, &models.Inspection{
		ID:         "X1",
		OwnerName:  "Ann",
		OwnerEmail: "ann@example.com",
		PropertyID: "P1",
		CreatedAt:  created,
	}))

	generated := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpdateReportState(ctx, "X1", models.ReportState{
		ReportURL:   "https://example.com/reports/inspection-report-X1.pdf",
		Status:      models.InspectionStatusCompleted,
		GeneratedAt: generated,
	}))

	got, err := store.GetInspection(ctx, "X1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/reports/inspection-report-X1.pdf", got.ReportURL)
	assert.Equal(t, models.InspectionStatusCompleted, got.Status)
	require.NotNil(t, got.ReportGeneratedAt)
	assert.True(t, generated.Equal(*got.ReportGeneratedAt))

	assert.Equal(t, "Ann", got.OwnerName)
	assert.Equal(t, "ann@example.com", got.OwnerEmail)
	assert.Equal(t, "P1", got.PropertyID)
	assert.True(t, created.Equal(got.CreatedAt))
}

func TestInspectionStorage_UpdateReportStateMissing(t *testing.T) {
	store := newTestManager(t).InspectionStorage()

	err := store.UpdateReportState(context.Background(), "nope", models.ReportState{Status: models.InspectionStatusCompleted})
	assert.True(t, errors.Is(err, interfaces.ErrNotFound))
}

func TestNotificationStorage_Outbox(t *testing.T) {
	ctx := context.Background()
	store := newTestManager(t).NotificationStorage()

	require.NoError(t, store.SavePending(ctx, &models.PendingNotification{ID: "n1", InspectionID: "X1", Recipients: []string{"a@example.com"}}))
	require.NoError(t, store.SavePending(ctx, &models.PendingNotification{ID: "n2", InspectionID: "X2", Recipients: []string{"b@example.com"}}))

	pending, err := store.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	require.NoError(t, store.DeletePending(ctx, "n1"))
	pending, err = store.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "n2", pending[0].ID)

	assert.ErrorIs(t, store.DeletePending(ctx, "n1"), interfaces.ErrNotFound)
}

func TestKVStorage_CaseInsensitive(t *testing.T) {
	ctx := context.Background()
	kv := newTestManager(t).KeyValueStorage()

	require.NoError(t, kv.Set(ctx, "SMTP_Host", "mail.example.com", "SMTP server"))

	v, err := kv.Get(ctx, "smtp_host")
	require.NoError(t, err)
	assert.Equal(t, "mail.example.com", v)

	_, err = kv.Get(ctx, "smtp_port")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)

	all, err := kv.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"smtp_host": "mail.example.com"}, all)
}
