package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"taskboard/internal/domain"
	"taskboard/internal/repository"
)

// In-memory repository fakes used across the service tests.

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: make(map[int64]domain.User)}
}

func (r *fakeUserRepo) Init(context.Context) error { return nil }

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == user.Username {
			return 0, fmt.Errorf("user already exists")
		}
	}
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = *user
	return user.ID, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == username {
			u := user
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user not found")
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user not found")
	}
	u := user
	return &u, nil
}

func (r *fakeUserRepo) List(context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]domain.User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, user)
	}
	return users, nil
}

func (r *fakeUserRepo) add(username string) int64 {
	id, _ := r.Create(context.Background(), &domain.User{Username: username, Name: username})
	return id
}

type fakeTaskRepo struct {
	mu     sync.Mutex
	nextID int64
	tasks  map[int64]domain.Task
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{nextID: 1, tasks: make(map[int64]domain.Task)}
}

func (r *fakeTaskRepo) Init(context.Context) error { return nil }

func (r *fakeTaskRepo) Create(_ context.Context, task *domain.Task) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task.ID = r.nextID
	r.nextID++
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	r.tasks[task.ID] = *task
	return task.ID, nil
}

func (r *fakeTaskRepo) Get(_ context.Context, id int64) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task not found")
	}
	t := task
	return &t, nil
}

func (r *fakeTaskRepo) Update(_ context.Context, id int64, update repository.TaskUpdate) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task not found")
	}
	if update.Title != nil {
		task.Title = *update.Title
	}
	if update.Description != nil {
		task.Description = *update.Description
	}
	if update.Status != nil {
		task.Status = *update.Status
	}
	if update.Priority != nil {
		task.Priority = *update.Priority
	}
	if update.DueDate != nil {
		task.DueDate = *update.DueDate
	}
	if update.AssigneeID != nil {
		task.AssigneeID = *update.AssigneeID
	}
	task.UpdatedAt = time.Now().UTC()
	r.tasks[id] = task
	t := task
	return &t, nil
}

func (r *fakeTaskRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return fmt.Errorf("task not found")
	}
	delete(r.tasks, id)
	return nil
}

func (r *fakeTaskRepo) List(context.Context) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tasks := make([]domain.Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (r *fakeTaskRepo) ListByUser(_ context.Context, userID int64, kind repository.UserTaskKind) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var tasks []domain.Task
	for _, task := range r.tasks {
		assigned := task.AssigneeID != nil && *task.AssigneeID == userID
		created := task.CreatorID == userID
		switch kind {
		case repository.UserTasksAssigned:
			if assigned {
				tasks = append(tasks, task)
			}
		case repository.UserTasksCreated:
			if created {
				tasks = append(tasks, task)
			}
		default:
			if assigned || created {
				tasks = append(tasks, task)
			}
		}
	}
	return tasks, nil
}

func (r *fakeTaskRepo) ListByStatus(_ context.Context, status domain.TaskStatus) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var tasks []domain.Task
	for _, task := range r.tasks {
		if task.Status == status {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func (r *fakeTaskRepo) ListOverdue(_ context.Context, userID int64, now time.Time) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var tasks []domain.Task
	for _, task := range r.tasks {
		mine := task.CreatorID == userID || (task.AssigneeID != nil && *task.AssigneeID == userID)
		if mine && task.Overdue(now) {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func (r *fakeTaskRepo) Search(context.Context, string, int64) ([]domain.Task, error) {
	return nil, nil
}

func (r *fakeTaskRepo) Filter(context.Context, repository.TaskFilter, int64, time.Time) ([]domain.Task, error) {
	return nil, nil
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	nextID        int64
	notifications map[int64]domain.Notification
	failCreate    bool
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{nextID: 1, notifications: make(map[int64]domain.Notification)}
}

func (r *fakeNotificationRepo) Init(context.Context) error { return nil }

func (r *fakeNotificationRepo) Create(_ context.Context, n *domain.Notification) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return 0, fmt.Errorf("insert notification: disk full")
	}
	n.ID = r.nextID
	r.nextID++
	n.CreatedAt = time.Now().UTC()
	r.notifications[n.ID] = *n
	return n.ID, nil
}

func (r *fakeNotificationRepo) Get(_ context.Context, id int64) (*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok {
		return nil, fmt.Errorf("notification not found")
	}
	out := n
	return &out, nil
}

func (r *fakeNotificationRepo) ListByUser(_ context.Context, userID int64) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notification
	for _, n := range r.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok {
		return fmt.Errorf("notification not found")
	}
	n.Read = true
	r.notifications[id] = n
	return nil
}

func (r *fakeNotificationRepo) all() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Notification, 0, len(r.notifications))
	for _, n := range r.notifications {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type fakeAttachmentRepo struct {
	mu          sync.Mutex
	nextID      int64
	attachments map[int64]domain.Attachment
}

func newFakeAttachmentRepo() *fakeAttachmentRepo {
	return &fakeAttachmentRepo{nextID: 1, attachments: make(map[int64]domain.Attachment)}
}

func (r *fakeAttachmentRepo) Init(context.Context) error { return nil }

func (r *fakeAttachmentRepo) Create(_ context.Context, a *domain.Attachment) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = r.nextID
	r.nextID++
	a.CreatedAt = time.Now().UTC()
	r.attachments[a.ID] = *a
	return a.ID, nil
}

func (r *fakeAttachmentRepo) Get(_ context.Context, id int64) (*domain.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attachments[id]
	if !ok {
		return nil, fmt.Errorf("attachment not found")
	}
	out := a
	return &out, nil
}

func (r *fakeAttachmentRepo) ListByTask(_ context.Context, taskID int64) ([]domain.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Attachment
	for _, a := range r.attachments {
		if a.TaskID == taskID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAttachmentRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.attachments[id]; !ok {
		return fmt.Errorf("attachment not found")
	}
	delete(r.attachments, id)
	return nil
}

// captureNotifier records dispatched notifications.
type captureNotifier struct {
	mu         sync.Mutex
	dispatched []domain.Notification
}

func (n *captureNotifier) Dispatch(notification domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dispatched = append(n.dispatched, notification)
}

func (n *captureNotifier) all() []domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Notification(nil), n.dispatched...)
}
