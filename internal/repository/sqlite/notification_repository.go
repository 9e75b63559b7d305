package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"taskboard/internal/domain"
	"taskboard/internal/repository"
)

const createNotificationsTable = `
CREATE TABLE IF NOT EXISTS notifications (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id),
	task_id INTEGER NOT NULL REFERENCES tasks(id),
	message TEXT NOT NULL,
	read INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);
`

type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) repository.NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createNotificationsTable); err != nil {
		return fmt.Errorf("create notifications table: %w", err)
	}
	return nil
}

func (r *NotificationRepository) Create(ctx context.Context, notification *domain.Notification) (int64, error) {
	notification.CreatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
INSERT INTO notifications (user_id, task_id, message, read, created_at)
VALUES (?, ?, ?, ?, ?)`,
		notification.UserID,
		notification.TaskID,
		notification.Message,
		notification.Read,
		notification.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("notification last insert id: %w", err)
	}
	notification.ID = id
	return id, nil
}

func (r *NotificationRepository) Get(ctx context.Context, id int64) (*domain.Notification, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, task_id, message, read, created_at
FROM notifications
WHERE id=?`,
		id,
	)
	return scanNotification(row)
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, task_id, message, read, created_at
FROM notifications
WHERE user_id=?
ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, *n)
	}
	return notifications, rows.Err()
}

// MarkRead flips the read flag to true. Repeated calls are harmless.
func (r *NotificationRepository) MarkRead(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE notifications
SET read=1
WHERE id=?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("notification update rows affected: %w", err)
	}
	if aff == 0 {
		return fmt.Errorf("notification not found")
	}
	return nil
}

func scanNotification(row interface {
	Scan(dest ...any) error
}) (*domain.Notification, error) {
	var (
		n         domain.Notification
		createdAt time.Time
	)
	if err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.TaskID,
		&n.Message,
		&n.Read,
		&createdAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("notification not found")
		}
		return nil, fmt.Errorf("scan notification: %w", err)
	}
	n.CreatedAt = createdAt.Local()
	return &n, nil
}
