package repository

import (
	"context"
	"time"

	"taskboard/internal/domain"
)

// UserTaskKind selects which relation of a user to their tasks a listing covers.
type UserTaskKind string

const (
	UserTasksAssigned UserTaskKind = "assigned"
	UserTasksCreated  UserTaskKind = "created"
	UserTasksAll      UserTaskKind = "all"
)

// DueBucket names a relative due-date window used by task filtering.
type DueBucket string

const (
	DueToday     DueBucket = "today"
	DueThisWeek  DueBucket = "this_week"
	DueThisMonth DueBucket = "this_month"
	DueOverdue   DueBucket = "overdue"
)

// TaskFilter narrows a task listing. Zero values mean "no constraint".
type TaskFilter struct {
	Status     domain.TaskStatus
	Priority   domain.TaskPriority
	AssigneeID *int64
	Due        DueBucket
}

// TaskUpdate carries a partial update; nil fields are left untouched.
// AssigneeID uses a double pointer so that "clear the assignee" (inner nil)
// and "leave unchanged" (outer nil) stay distinguishable.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *domain.TaskStatus
	Priority    *domain.TaskPriority
	DueDate     **time.Time
	AssigneeID  **int64
}

// TaskRepository exposes persistence operations for Task aggregates.
type TaskRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, task *domain.Task) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Task, error)
	Update(ctx context.Context, id int64, update TaskUpdate) (*domain.Task, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]domain.Task, error)
	ListByUser(ctx context.Context, userID int64, kind UserTaskKind) ([]domain.Task, error)
	ListByStatus(ctx context.Context, status domain.TaskStatus) ([]domain.Task, error)
	ListOverdue(ctx context.Context, userID int64, now time.Time) ([]domain.Task, error)
	Search(ctx context.Context, query string, userID int64) ([]domain.Task, error)
	Filter(ctx context.Context, filter TaskFilter, userID int64, now time.Time) ([]domain.Task, error)
}

// AttachmentRepository manages task attachment metadata.
type AttachmentRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, attachment *domain.Attachment) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Attachment, error)
	ListByTask(ctx context.Context, taskID int64) ([]domain.Attachment, error)
	Delete(ctx context.Context, id int64) error
}
