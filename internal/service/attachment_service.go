package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"taskboard/internal/domain"
	"taskboard/internal/repository"
	"taskboard/internal/storage"
)

// ErrStorageUnavailable is returned when no object storage is configured.
var ErrStorageUnavailable = fmt.Errorf("object storage not configured")

// AttachmentService stores attachment bytes in object storage and their
// metadata in the relational store.
type AttachmentService interface {
	Upload(ctx context.Context, actorID, taskID int64, fileName, contentType string, size int64, body io.Reader) (*domain.Attachment, error)
	ListForTask(ctx context.Context, taskID int64) ([]domain.Attachment, error)
	DownloadURL(ctx context.Context, id int64) (string, error)
	Delete(ctx context.Context, actorID, id int64) error
	CleanupObjects(ctx context.Context, attachments []domain.Attachment)
}

type attachmentService struct {
	attachments repository.AttachmentRepository
	tasks       repository.TaskRepository
	store       storage.Service
	bucket      string
	keyPrefix   string
	urlTTL      time.Duration
	logger      *logrus.Logger
}

func NewAttachmentService(
	attachments repository.AttachmentRepository,
	tasks repository.TaskRepository,
	store storage.Service,
	bucket, keyPrefix string,
	logger *logrus.Logger,
) AttachmentService {
	if logger == nil {
		logger = logrus.New()
	}
	return &attachmentService{
		attachments: attachments,
		tasks:       tasks,
		store:       store,
		bucket:      bucket,
		keyPrefix:   strings.Trim(keyPrefix, "/"),
		urlTTL:      15 * time.Minute,
		logger:      logger,
	}
}

func (s *attachmentService) Upload(ctx context.Context, actorID, taskID int64, fileName, contentType string, size int64, body io.Reader) (*domain.Attachment, error) {
	if s.store == nil || s.bucket == "" {
		return nil, ErrStorageUnavailable
	}
	fileName = path.Base(strings.TrimSpace(fileName))
	if fileName == "" || fileName == "." || fileName == "/" {
		return nil, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}

	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, fmt.Errorf("task %d: %w", taskID, ErrNotFound)
		}
		return nil, err
	}
	if !canMutate(task, actorID) {
		return nil, fmt.Errorf("task %d: %w", taskID, ErrForbidden)
	}

	key := fmt.Sprintf("task-%d/%s/%s", taskID, uuid.NewString(), fileName)
	if s.keyPrefix != "" {
		key = s.keyPrefix + "/" + key
	}

	location, err := s.store.Upload(ctx, s.bucket, key, contentType, body)
	if err != nil {
		return nil, fmt.Errorf("upload attachment: %w", err)
	}

	attachment := &domain.Attachment{
		TaskID:      taskID,
		FileName:    fileName,
		Size:        size,
		ContentType: contentType,
		S3Location:  location,
	}
	if _, err := s.attachments.Create(ctx, attachment); err != nil {
		// Metadata write failed after the object landed; remove the orphan.
		if delErr := s.store.Delete(ctx, s.bucket, key); delErr != nil {
			s.logger.Warnf("remove orphaned object %s: %v", key, delErr)
		}
		return nil, err
	}

	return attachment, nil
}

func (s *attachmentService) ListForTask(ctx context.Context, taskID int64) ([]domain.Attachment, error) {
	return s.attachments.ListByTask(ctx, taskID)
}

func (s *attachmentService) DownloadURL(ctx context.Context, id int64) (string, error) {
	if s.store == nil {
		return "", ErrStorageUnavailable
	}
	attachment, err := s.getAttachment(ctx, id)
	if err != nil {
		return "", err
	}
	bucket, key, err := storage.ParseLocation(attachment.S3Location)
	if err != nil {
		return "", err
	}
	return s.store.PresignGet(ctx, bucket, key, s.urlTTL)
}

func (s *attachmentService) Delete(ctx context.Context, actorID, id int64) error {
	attachment, err := s.getAttachment(ctx, id)
	if err != nil {
		return err
	}

	task, err := s.tasks.Get(ctx, attachment.TaskID)
	if err == nil && !canMutate(task, actorID) {
		return fmt.Errorf("attachment %d: %w", id, ErrForbidden)
	}

	if s.store != nil {
		if bucket, key, err := storage.ParseLocation(attachment.S3Location); err == nil {
			if err := s.store.Delete(ctx, bucket, key); err != nil {
				s.logger.Warnf("delete object for attachment %d: %v", id, err)
			}
		}
	}

	return s.attachments.Delete(ctx, id)
}

// CleanupObjects removes stored objects for attachments whose metadata rows
// are already gone, typically after a task delete. Failures are logged only.
func (s *attachmentService) CleanupObjects(ctx context.Context, attachments []domain.Attachment) {
	if s.store == nil {
		return
	}
	for _, attachment := range attachments {
		bucket, key, err := storage.ParseLocation(attachment.S3Location)
		if err != nil {
			continue
		}
		if err := s.store.Delete(ctx, bucket, key); err != nil {
			s.logger.Warnf("delete object %s: %v", key, err)
		}
	}
}

func (s *attachmentService) getAttachment(ctx context.Context, id int64) (*domain.Attachment, error) {
	attachment, err := s.attachments.Get(ctx, id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, fmt.Errorf("attachment %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return attachment, nil
}
