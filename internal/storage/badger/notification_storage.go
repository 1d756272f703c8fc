package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/roomathon/internal/interfaces"
	"github.com/ternarybob/roomathon/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// NotificationStorage is the outbox of report emails awaiting retry
type NotificationStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

func NewNotificationStorage(db *BadgerDB, logger arbor.ILogger) interfaces.NotificationStorage {
	return &NotificationStorage{
		db:     db,
		logger: logger,
	}
}

func (s *NotificationStorage) SavePending(ctx context.Context, n *models.PendingNotification) error {
	if n.ID == "" {
		return fmt.Errorf("notification ID is required")
	}
	now := time.Now()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now

	if err := s.db.Store().Upsert(n.ID, n); err != nil {
		return fmt.Errorf("failed to save pending notification: %w", err)
	}
	return nil
}

// ListPending returns queued notifications, oldest update first
func (s *NotificationStorage) ListPending(ctx context.Context) ([]models.PendingNotification, error) {
	var pending []models.PendingNotification
	if err := s.db.Store().Find(&pending, badgerhold.Where("ID").Ne("").SortBy("UpdatedAt")); err != nil {
		return nil, fmt.Errorf("failed to list pending notifications: %w", err)
	}
	return pending, nil
}

func (s *NotificationStorage) DeletePending(ctx context.Context, id string) error {
	err := s.db.Store().Delete(id, &models.PendingNotification{})
	if errors.Is(err, badgerhold.ErrNotFound) {
		return interfaces.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete pending notification: %w", err)
	}
	return nil
}
