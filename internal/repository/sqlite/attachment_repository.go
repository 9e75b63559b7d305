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

const createAttachmentsTable = `
CREATE TABLE IF NOT EXISTS attachments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id INTEGER NOT NULL REFERENCES tasks(id),
	file_name TEXT NOT NULL,
	size INTEGER NOT NULL DEFAULT 0,
	content_type TEXT NOT NULL DEFAULT '',
	s3_location TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
`

type AttachmentRepository struct {
	db *sql.DB
}

func NewAttachmentRepository(db *sql.DB) repository.AttachmentRepository {
	return &AttachmentRepository{db: db}
}

func (r *AttachmentRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createAttachmentsTable); err != nil {
		return fmt.Errorf("create attachments table: %w", err)
	}
	return nil
}

func (r *AttachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) (int64, error) {
	attachment.CreatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
INSERT INTO attachments (task_id, file_name, size, content_type, s3_location, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		attachment.TaskID,
		attachment.FileName,
		attachment.Size,
		attachment.ContentType,
		attachment.S3Location,
		attachment.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert attachment: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("attachment last insert id: %w", err)
	}
	attachment.ID = id
	return id, nil
}

func (r *AttachmentRepository) Get(ctx context.Context, id int64) (*domain.Attachment, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, task_id, file_name, size, content_type, s3_location, created_at
FROM attachments
WHERE id=?`,
		id,
	)
	return scanAttachment(row)
}

func (r *AttachmentRepository) ListByTask(ctx context.Context, taskID int64) ([]domain.Attachment, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, task_id, file_name, size, content_type, s3_location, created_at
FROM attachments
WHERE task_id=?
ORDER BY id ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("query attachments: %w", err)
	}
	defer rows.Close()

	var attachments []domain.Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, *a)
	}
	return attachments, rows.Err()
}

func (r *AttachmentRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attachments WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("attachment delete rows affected: %w", err)
	}
	if aff == 0 {
		return fmt.Errorf("attachment not found")
	}
	return nil
}

func scanAttachment(row interface {
	Scan(dest ...any) error
}) (*domain.Attachment, error) {
	var (
		a         domain.Attachment
		createdAt time.Time
	)
	if err := row.Scan(
		&a.ID,
		&a.TaskID,
		&a.FileName,
		&a.Size,
		&a.ContentType,
		&a.S3Location,
		&createdAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("attachment not found")
		}
		return nil, fmt.Errorf("scan attachment: %w", err)
	}
	a.CreatedAt = createdAt.Local()
	return &a, nil
}
