package repository

import (
	"context"

	"taskboard/internal/domain"
)

// NotificationRepository defines persistence operations for notifications.
type NotificationRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, notification *domain.Notification) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id int64) error
}
