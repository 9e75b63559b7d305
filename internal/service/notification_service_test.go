package service

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyPersistsThenDispatches(t *testing.T) {
	repo := newFakeNotificationRepo()
	notifier := &captureNotifier{}
	svc := NewNotificationService(repo, notifier, logrus.New())

	n, err := svc.Notify(context.Background(), 7, 3, "You have been assigned a new task: Draft proposal")
	require.NoError(t, err)
	assert.NotZero(t, n.ID)
	assert.False(t, n.Read)

	dispatched := notifier.all()
	require.Len(t, dispatched, 1)
	assert.Equal(t, n.ID, dispatched[0].ID, "dispatch carries the stored record")
}

func TestNotifyFailedWriteSkipsDispatch(t *testing.T) {
	repo := newFakeNotificationRepo()
	repo.failCreate = true
	notifier := &captureNotifier{}
	svc := NewNotificationService(repo, notifier, logrus.New())

	_, err := svc.Notify(context.Background(), 7, 3, "never stored")
	require.Error(t, err)
	assert.Empty(t, notifier.all())
}

func TestMarkReadOnlyRecipient(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := NewNotificationService(repo, nil, logrus.New())
	ctx := context.Background()

	n, err := svc.Notify(ctx, 7, 3, "hello")
	require.NoError(t, err)

	err = svc.MarkRead(ctx, 8, n.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, svc.MarkRead(ctx, 7, n.ID))

	stored, err := repo.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, stored.Read)

	// Monotonic flag, repeat calls are fine.
	require.NoError(t, svc.MarkRead(ctx, 7, n.ID))
}

func TestMarkReadMissing(t *testing.T) {
	svc := NewNotificationService(newFakeNotificationRepo(), nil, logrus.New())
	err := svc.MarkRead(context.Background(), 7, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}
