package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"taskboard/internal/domain"
	"taskboard/internal/repository"
)

// CreateTaskInput carries validated-on-entry data for a new task.
type CreateTaskInput struct {
	Title       string
	Description string
	Status      domain.TaskStatus
	Priority    domain.TaskPriority
	DueDate     *time.Time
	AssigneeID  *int64
}

// UpdateTaskInput is a partial update. Nil fields are left untouched; the
// double pointers distinguish "clear" from "leave unchanged".
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *domain.TaskStatus
	Priority    *domain.TaskPriority
	DueDate     **time.Time
	AssigneeID  **int64
}

// TaskService coordinates task CRUD, authorization, and the notification
// side effects raised by mutations.
type TaskService interface {
	CreateTask(ctx context.Context, actorID int64, input CreateTaskInput) (*domain.Task, error)
	GetTask(ctx context.Context, id int64) (*domain.Task, error)
	UpdateTask(ctx context.Context, actorID, id int64, input UpdateTaskInput) (*domain.Task, error)
	DeleteTask(ctx context.Context, actorID, id int64) error
	ListTasks(ctx context.Context) ([]domain.Task, error)
	ListByUser(ctx context.Context, userID int64, kind repository.UserTaskKind) ([]domain.Task, error)
	ListByStatus(ctx context.Context, status domain.TaskStatus) ([]domain.Task, error)
	ListOverdue(ctx context.Context, userID int64) ([]domain.Task, error)
	SearchTasks(ctx context.Context, query string, userID int64) ([]domain.Task, error)
	FilterTasks(ctx context.Context, filter repository.TaskFilter, userID int64) ([]domain.Task, error)
}

type taskService struct {
	tasks         repository.TaskRepository
	users         repository.UserRepository
	attachments   repository.AttachmentRepository
	notifications NotificationService
	logger        *logrus.Logger
	now           func() time.Time
}

func NewTaskService(
	tasks repository.TaskRepository,
	users repository.UserRepository,
	attachments repository.AttachmentRepository,
	notifications NotificationService,
	logger *logrus.Logger,
) TaskService {
	if logger == nil {
		logger = logrus.New()
	}
	return &taskService{
		tasks:         tasks,
		users:         users,
		attachments:   attachments,
		notifications: notifications,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *taskService) CreateTask(ctx context.Context, actorID int64, input CreateTaskInput) (*domain.Task, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Status == "" {
		input.Status = domain.TaskStatusTodo
	}
	if input.Priority == "" {
		input.Priority = domain.TaskPriorityMedium
	}
	if err := validateTaskFields(input.Title, input.Description, input.Status, input.Priority); err != nil {
		return nil, err
	}
	if input.AssigneeID != nil {
		if err := s.ensureUserExists(ctx, *input.AssigneeID); err != nil {
			return nil, err
		}
	}

	task := &domain.Task{
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
		DueDate:     input.DueDate,
		CreatorID:   actorID,
		AssigneeID:  input.AssigneeID,
	}

	if _, err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	if task.AssigneeID != nil && *task.AssigneeID != actorID {
		s.notify(ctx, *task.AssigneeID, task.ID,
			fmt.Sprintf("You have been assigned a new task: %s", task.Title))
	}

	return task, nil
}

func (s *taskService) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	task, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, s.mapTaskError(err, id)
	}
	attachments, err := s.attachments.ListByTask(ctx, id)
	if err != nil {
		return nil, err
	}
	task.Attachments = attachments
	return task, nil
}

func (s *taskService) UpdateTask(ctx context.Context, actorID, id int64, input UpdateTaskInput) (*domain.Task, error) {
	existing, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, s.mapTaskError(err, id)
	}

	if !canMutate(existing, actorID) {
		return nil, fmt.Errorf("task %d: %w", id, ErrForbidden)
	}

	if err := s.validateUpdate(ctx, input); err != nil {
		return nil, err
	}

	updated, err := s.tasks.Update(ctx, id, repository.TaskUpdate{
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
		DueDate:     input.DueDate,
		AssigneeID:  input.AssigneeID,
	})
	if err != nil {
		return nil, s.mapTaskError(err, id)
	}

	// Assignment side effect: a new non-nil assignee, different from both the
	// previous assignee and the actor, gets notified.
	if input.AssigneeID != nil && *input.AssigneeID != nil {
		newAssignee := **input.AssigneeID
		changed := existing.AssigneeID == nil || *existing.AssigneeID != newAssignee
		if changed && newAssignee != actorID {
			s.notify(ctx, newAssignee, id,
				fmt.Sprintf("You have been assigned a task: %s", existing.Title))
		}
	}

	// Completion side effect: fires on the transition into completed, not on
	// the completed state, and never back to the actor themselves.
	if input.Status != nil && *input.Status == domain.TaskStatusCompleted &&
		existing.Status != domain.TaskStatusCompleted && existing.CreatorID != actorID {
		s.notify(ctx, existing.CreatorID, id,
			fmt.Sprintf("Task %q has been marked as completed", existing.Title))
	}

	return updated, nil
}

func (s *taskService) DeleteTask(ctx context.Context, actorID, id int64) error {
	existing, err := s.tasks.Get(ctx, id)
	if err != nil {
		return s.mapTaskError(err, id)
	}
	if existing.CreatorID != actorID {
		return fmt.Errorf("task %d: %w", id, ErrForbidden)
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		return s.mapTaskError(err, id)
	}
	return nil
}

func (s *taskService) ListTasks(ctx context.Context) ([]domain.Task, error) {
	return s.tasks.List(ctx)
}

func (s *taskService) ListByUser(ctx context.Context, userID int64, kind repository.UserTaskKind) ([]domain.Task, error) {
	switch kind {
	case repository.UserTasksAssigned, repository.UserTasksCreated, repository.UserTasksAll:
	case "":
		kind = repository.UserTasksAll
	default:
		return nil, fmt.Errorf("%w: unknown task listing kind %q", ErrInvalidInput, kind)
	}
	return s.tasks.ListByUser(ctx, userID, kind)
}

func (s *taskService) ListByStatus(ctx context.Context, status domain.TaskStatus) ([]domain.Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	return s.tasks.ListByStatus(ctx, status)
}

func (s *taskService) ListOverdue(ctx context.Context, userID int64) ([]domain.Task, error) {
	return s.tasks.ListOverdue(ctx, userID, s.now())
}

func (s *taskService) SearchTasks(ctx context.Context, query string, userID int64) ([]domain.Task, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", ErrInvalidInput)
	}
	return s.tasks.Search(ctx, query, userID)
}

func (s *taskService) FilterTasks(ctx context.Context, filter repository.TaskFilter, userID int64) ([]domain.Task, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, filter.Status)
	}
	if filter.Priority != "" && !filter.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, filter.Priority)
	}
	switch filter.Due {
	case "", repository.DueToday, repository.DueThisWeek, repository.DueThisMonth, repository.DueOverdue:
	default:
		return nil, fmt.Errorf("%w: unknown due filter %q", ErrInvalidInput, filter.Due)
	}
	return s.tasks.Filter(ctx, filter, userID, s.now())
}

// notify records the notification and lets the dispatcher push it. A failed
// write is logged and swallowed: the task mutation already succeeded and must
// not be failed retroactively.
func (s *taskService) notify(ctx context.Context, userID, taskID int64, message string) {
	if _, err := s.notifications.Notify(ctx, userID, taskID, message); err != nil {
		s.logger.Warnf("create notification for user %d (task %d): %v", userID, taskID, err)
	}
}

func (s *taskService) validateUpdate(ctx context.Context, input UpdateTaskInput) error {
	if input.Title != nil && len(strings.TrimSpace(*input.Title)) < 3 {
		return fmt.Errorf("%w: title must be at least 3 characters", ErrInvalidInput)
	}
	if input.Description != nil && *input.Description != "" && len(*input.Description) < 5 {
		return fmt.Errorf("%w: description must be at least 5 characters", ErrInvalidInput)
	}
	if input.Status != nil && !input.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *input.Status)
	}
	if input.Priority != nil && !input.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, *input.Priority)
	}
	if input.AssigneeID != nil && *input.AssigneeID != nil {
		if err := s.ensureUserExists(ctx, **input.AssigneeID); err != nil {
			return err
		}
	}
	return nil
}

func (s *taskService) ensureUserExists(ctx context.Context, userID int64) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return fmt.Errorf("%w: assignee %d does not exist", ErrInvalidInput, userID)
		}
		return err
	}
	return nil
}

func (s *taskService) mapTaskError(err error, id int64) error {
	if strings.Contains(strings.ToLower(err.Error()), "not found") {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return err
}

func canMutate(task *domain.Task, actorID int64) bool {
	if task.CreatorID == actorID {
		return true
	}
	return task.AssigneeID != nil && *task.AssigneeID == actorID
}

func validateTaskFields(title, description string, status domain.TaskStatus, priority domain.TaskPriority) error {
	if len(title) < 3 {
		return fmt.Errorf("%w: title must be at least 3 characters", ErrInvalidInput)
	}
	if description != "" && len(description) < 5 {
		return fmt.Errorf("%w: description must be at least 5 characters", ErrInvalidInput)
	}
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	if !priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, priority)
	}
	return nil
}
