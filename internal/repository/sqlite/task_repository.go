package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskboard/internal/domain"
	"taskboard/internal/repository"
)

const createTasksTable = `
CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'todo',
	priority TEXT NOT NULL DEFAULT 'medium',
	due_date DATETIME NULL,
	creator_id INTEGER NOT NULL REFERENCES users(id),
	assignee_id INTEGER NULL REFERENCES users(id),
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

const taskColumns = `id, title, description, status, priority, due_date, creator_id, assignee_id, created_at, updated_at`

type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) repository.TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTasksTable); err != nil {
		return fmt.Errorf("create tasks table: %w", err)
	}
	return nil
}

func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) (int64, error) {
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO tasks (title, description, status, priority, due_date, creator_id, assignee_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.Title,
		task.Description,
		string(task.Status),
		string(task.Priority),
		nullTime(task.DueDate),
		task.CreatorID,
		nullInt(task.AssigneeID),
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("task last insert id: %w", err)
	}
	task.ID = id
	return id, nil
}

func (r *TaskRepository) Get(ctx context.Context, id int64) (*domain.Task, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+taskColumns+`
FROM tasks
WHERE id=?`,
		id,
	)
	return scanTask(row)
}

func (r *TaskRepository) Update(ctx context.Context, id int64, update repository.TaskUpdate) (*domain.Task, error) {
	sets := []string{"updated_at=?"}
	args := []any{time.Now().UTC()}

	if update.Title != nil {
		sets = append(sets, "title=?")
		args = append(args, *update.Title)
	}
	if update.Description != nil {
		sets = append(sets, "description=?")
		args = append(args, *update.Description)
	}
	if update.Status != nil {
		sets = append(sets, "status=?")
		args = append(args, string(*update.Status))
	}
	if update.Priority != nil {
		sets = append(sets, "priority=?")
		args = append(args, string(*update.Priority))
	}
	if update.DueDate != nil {
		sets = append(sets, "due_date=?")
		args = append(args, nullTime(*update.DueDate))
	}
	if update.AssigneeID != nil {
		sets = append(sets, "assignee_id=?")
		args = append(args, nullInt(*update.AssigneeID))
	}

	args = append(args, id)
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE tasks SET %s WHERE id=?`, strings.Join(sets, ", ")),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("task update rows affected: %w", err)
	}
	if aff == 0 {
		return nil, fmt.Errorf("task not found")
	}

	return r.Get(ctx, id)
}

func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM notifications WHERE task_id=?`, id); err != nil {
		return fmt.Errorf("delete task notifications: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM attachments WHERE task_id=?`, id); err != nil {
		return fmt.Errorf("delete task attachments: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("task delete rows affected: %w", err)
	}
	if aff == 0 {
		return fmt.Errorf("task not found")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit task delete: %w", err)
	}
	return nil
}

func (r *TaskRepository) List(ctx context.Context) ([]domain.Task, error) {
	return r.queryTasks(ctx, `
SELECT `+taskColumns+`
FROM tasks
ORDER BY created_at DESC, id DESC`)
}

func (r *TaskRepository) ListByUser(ctx context.Context, userID int64, kind repository.UserTaskKind) ([]domain.Task, error) {
	var where string
	switch kind {
	case repository.UserTasksAssigned:
		where = "assignee_id=?"
	case repository.UserTasksCreated:
		where = "creator_id=?"
	default:
		return r.queryTasks(ctx, `
SELECT `+taskColumns+`
FROM tasks
WHERE assignee_id=? OR creator_id=?
ORDER BY created_at DESC, id DESC`, userID, userID)
	}

	return r.queryTasks(ctx, `
SELECT `+taskColumns+`
FROM tasks
WHERE `+where+`
ORDER BY created_at DESC, id DESC`, userID)
}

func (r *TaskRepository) ListByStatus(ctx context.Context, status domain.TaskStatus) ([]domain.Task, error) {
	return r.queryTasks(ctx, `
SELECT `+taskColumns+`
FROM tasks
WHERE status=?
ORDER BY created_at DESC, id DESC`, string(status))
}

func (r *TaskRepository) ListOverdue(ctx context.Context, userID int64, now time.Time) ([]domain.Task, error) {
	return r.queryTasks(ctx, `
SELECT `+taskColumns+`
FROM tasks
WHERE (assignee_id=? OR creator_id=?)
  AND due_date IS NOT NULL AND due_date < ?
  AND status != ?
ORDER BY due_date ASC, id DESC`,
		userID,
		userID,
		startOfDay(now),
		string(domain.TaskStatusCompleted),
	)
}

func (r *TaskRepository) Search(ctx context.Context, query string, userID int64) ([]domain.Task, error) {
	pattern := "%" + query + "%"
	return r.queryTasks(ctx, `
SELECT `+taskColumns+`
FROM tasks
WHERE (assignee_id=? OR creator_id=?)
  AND (title LIKE ? OR description LIKE ?)
ORDER BY created_at DESC, id DESC`,
		userID,
		userID,
		pattern,
		pattern,
	)
}

func (r *TaskRepository) Filter(ctx context.Context, filter repository.TaskFilter, userID int64, now time.Time) ([]domain.Task, error) {
	conditions := []string{"(assignee_id=? OR creator_id=?)"}
	args := []any{userID, userID}

	if filter.Status != "" {
		conditions = append(conditions, "status=?")
		args = append(args, string(filter.Status))
	}
	if filter.Priority != "" {
		conditions = append(conditions, "priority=?")
		args = append(args, string(filter.Priority))
	}
	if filter.AssigneeID != nil {
		conditions = append(conditions, "assignee_id=?")
		args = append(args, *filter.AssigneeID)
	}

	if filter.Due != "" {
		today := startOfDay(now)
		switch filter.Due {
		case repository.DueToday:
			conditions = append(conditions, "due_date >= ? AND due_date < ?")
			args = append(args, today, today.AddDate(0, 0, 1))
		case repository.DueThisWeek:
			conditions = append(conditions, "due_date >= ? AND due_date < ?")
			args = append(args, today, today.AddDate(0, 0, 7))
		case repository.DueThisMonth:
			conditions = append(conditions, "due_date >= ? AND due_date < ?")
			args = append(args, today, today.AddDate(0, 1, 0))
		case repository.DueOverdue:
			conditions = append(conditions, "due_date IS NOT NULL AND due_date < ? AND status != ?")
			args = append(args, today, string(domain.TaskStatusCompleted))
		default:
			return nil, fmt.Errorf("unknown due bucket %q", filter.Due)
		}
	}

	query := fmt.Sprintf(`
SELECT `+taskColumns+`
FROM tasks
WHERE %s
ORDER BY created_at DESC, id DESC`, strings.Join(conditions, " AND "))

	return r.queryTasks(ctx, query, args...)
}

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...any) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func scanTask(scanner interface {
	Scan(dest ...any) error
}) (*domain.Task, error) {
	var (
		task       domain.Task
		status     string
		priority   string
		dueDate    sql.NullTime
		assigneeID sql.NullInt64
		createdAt  time.Time
		updatedAt  time.Time
	)

	if err := scanner.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&status,
		&priority,
		&dueDate,
		&task.CreatorID,
		&assigneeID,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task not found")
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}

	task.Status = domain.TaskStatus(status)
	task.Priority = domain.TaskPriority(priority)
	task.CreatedAt = createdAt.Local()
	task.UpdatedAt = updatedAt.Local()
	if dueDate.Valid {
		t := dueDate.Time.Local()
		task.DueDate = &t
	}
	if assigneeID.Valid {
		v := assigneeID.Int64
		task.AssigneeID = &v
	}

	return &task, nil
}

func startOfDay(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).UTC()
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
