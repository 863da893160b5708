package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/enfdev/letterbox/internal/model"
	"github.com/enfdev/letterbox/internal/repository"
)

// NotificationService exposes each user's notification feed.
type NotificationService struct {
	notifications repository.NotificationRepository
	logger        *slog.Logger
}

func NewNotificationService(notifications repository.NotificationRepository, logger *slog.Logger) *NotificationService {
	return &NotificationService{notifications: notifications, logger: logger}
}

// List returns the caller's notifications, oldest first. Fetching the list
// marks everything as delivered, so entries appear unsent at most once.
func (s *NotificationService) List(ctx context.Context, userID string) ([]model.Notification, error) {
	list, err := s.notifications.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/notification: listing for user %s: %w", userID, err)
	}
	if err := s.notifications.MarkAllSent(ctx, userID); err != nil {
		return nil, fmt.Errorf("service/notification: marking sent for user %s: %w", userID, err)
	}
	return list, nil
}

// DeleteAll clears the caller's notification feed.
func (s *NotificationService) DeleteAll(ctx context.Context, userID string) error {
	if err := s.notifications.DeleteAllByUser(ctx, userID); err != nil {
		return fmt.Errorf("service/notification: deleting for user %s: %w", userID, err)
	}
	s.logger.Info("notifications cleared", slog.String("userID", userID))
	return nil
}
