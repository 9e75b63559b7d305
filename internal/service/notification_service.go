package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"taskboard/internal/domain"
	"taskboard/internal/repository"
)

// Notifier delivers a stored notification to its recipient in real time on a
// best-effort basis. Implementations must never block for long and must never
// return delivery failures to the caller.
type Notifier interface {
	Dispatch(notification domain.Notification)
}

// NoopNotifier drops every dispatch. Used when no realtime channel is wired.
type NoopNotifier struct{}

func (NoopNotifier) Dispatch(domain.Notification) {}

// NotificationService persists notifications and hands them to the realtime
// dispatcher. The durable write always happens first; the push is best effort.
type NotificationService interface {
	Notify(ctx context.Context, userID, taskID int64, message string) (*domain.Notification, error)
	ListForUser(ctx context.Context, userID int64) ([]domain.Notification, error)
	MarkRead(ctx context.Context, actorID, id int64) error
}

type notificationService struct {
	notifications repository.NotificationRepository
	notifier      Notifier
	logger        *logrus.Logger
}

func NewNotificationService(notifications repository.NotificationRepository, notifier Notifier, logger *logrus.Logger) NotificationService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &notificationService{
		notifications: notifications,
		notifier:      notifier,
		logger:        logger,
	}
}

func (s *notificationService) Notify(ctx context.Context, userID, taskID int64, message string) (*domain.Notification, error) {
	notification := &domain.Notification{
		UserID:  userID,
		TaskID:  taskID,
		Message: message,
	}
	if _, err := s.notifications.Create(ctx, notification); err != nil {
		return nil, err
	}

	s.notifier.Dispatch(*notification)
	return notification, nil
}

func (s *notificationService) ListForUser(ctx context.Context, userID int64) ([]domain.Notification, error) {
	return s.notifications.ListByUser(ctx, userID)
}

// MarkRead flips the read flag. Only the recipient may mark their own
// notifications; the flag is monotonic so repeated calls succeed.
func (s *notificationService) MarkRead(ctx context.Context, actorID, id int64) error {
	notification, err := s.notifications.Get(ctx, id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return ErrNotFound
		}
		return err
	}
	if notification.UserID != actorID {
		return ErrForbidden
	}
	return s.notifications.MarkRead(ctx, id)
}
