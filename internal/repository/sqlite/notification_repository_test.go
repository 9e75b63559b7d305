package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/domain"
)

func TestNotificationCreateAndListNewestFirst(t *testing.T) {
	repos := openTestDB(t)
	ctx := context.Background()
	alice := repos.mustUser(t, "alice")
	bob := repos.mustUser(t, "bob")
	task := repos.mustTask(t, domain.Task{Title: "Shared task", Status: domain.TaskStatusTodo, Priority: domain.TaskPriorityLow, CreatorID: alice})

	first, err := repos.notifications.Create(ctx, &domain.Notification{UserID: bob, TaskID: task.ID, Message: "first"})
	require.NoError(t, err)
	second, err := repos.notifications.Create(ctx, &domain.Notification{UserID: bob, TaskID: task.ID, Message: "second"})
	require.NoError(t, err)
	_, err = repos.notifications.Create(ctx, &domain.Notification{UserID: alice, TaskID: task.ID, Message: "for someone else"})
	require.NoError(t, err)

	list, err := repos.notifications.ListByUser(ctx, bob)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].ID)
	assert.Equal(t, first, list[1].ID)
	assert.False(t, list[0].Read)
}

func TestNotificationMarkRead(t *testing.T) {
	repos := openTestDB(t)
	ctx := context.Background()
	alice := repos.mustUser(t, "alice")
	task := repos.mustTask(t, domain.Task{Title: "Task", Status: domain.TaskStatusTodo, Priority: domain.TaskPriorityLow, CreatorID: alice})

	id, err := repos.notifications.Create(ctx, &domain.Notification{UserID: alice, TaskID: task.ID, Message: "unread"})
	require.NoError(t, err)

	require.NoError(t, repos.notifications.MarkRead(ctx, id))
	n, err := repos.notifications.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, n.Read)

	// Already-read rows still count as updated.
	require.NoError(t, repos.notifications.MarkRead(ctx, id))
}

func TestNotificationMarkReadMissing(t *testing.T) {
	repos := openTestDB(t)
	err := repos.notifications.MarkRead(context.Background(), 999)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
