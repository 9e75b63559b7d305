package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"taskboard/internal/domain"
	"taskboard/internal/repository"
)

type testRepos struct {
	db            *sql.DB
	users         repository.UserRepository
	tasks         repository.TaskRepository
	notifications repository.NotificationRepository
	attachments   repository.AttachmentRepository
}

func openTestDB(t *testing.T) *testRepos {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "taskboard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repos := &testRepos{
		db:            db,
		users:         NewUserRepository(db),
		tasks:         NewTaskRepository(db),
		notifications: NewNotificationRepository(db),
		attachments:   NewAttachmentRepository(db),
	}

	ctx := context.Background()
	require.NoError(t, repos.users.Init(ctx))
	require.NoError(t, repos.tasks.Init(ctx))
	require.NoError(t, repos.notifications.Init(ctx))
	require.NoError(t, repos.attachments.Init(ctx))
	return repos
}

func (r *testRepos) mustUser(t *testing.T, username string) int64 {
	t.Helper()
	id, err := r.users.Create(context.Background(), &domain.User{
		Username:     username,
		Name:         username,
		PasswordHash: "x",
	})
	require.NoError(t, err)
	return id
}

func (r *testRepos) mustTask(t *testing.T, task domain.Task) *domain.Task {
	t.Helper()
	_, err := r.tasks.Create(context.Background(), &task)
	require.NoError(t, err)
	return &task
}

func dueIn(now time.Time, days int) *time.Time {
	d := now.AddDate(0, 0, days)
	return &d
}
