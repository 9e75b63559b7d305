package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/domain"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestClientAuthenticatesAndReceives(t *testing.T) {
	hub, srv := newTestHub(t)

	events := make(chan Event, 16)
	client := NewClient(ClientConfig{
		URL:     wsURL(srv),
		UserID:  42,
		OnEvent: func(e Event) { events <- e },
		Logger:  quietLogger(),
	})
	require.NoError(t, client.Start(context.Background()))
	defer client.Close()

	require.Eventually(t, func() bool {
		_, ok := hub.Registry().Lookup(42)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	hub.Dispatch(domain.Notification{ID: 1, UserID: 42, TaskID: 9, Message: "hello", CreatedAt: time.Now()})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-events:
			if event.Type == MessageTypeNotification {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for notification event")
		}
	}
}

func TestClientReconnectsAfterDrop(t *testing.T) {
	hub, srv := newTestHub(t)

	client := NewClient(ClientConfig{
		URL:                  wsURL(srv),
		UserID:               7,
		ReconnectDelay:       50 * time.Millisecond,
		MaxReconnectAttempts: 10,
		Logger:               quietLogger(),
	})
	require.NoError(t, client.Start(context.Background()))
	defer client.Close()

	require.Eventually(t, func() bool {
		_, ok := hub.Registry().Lookup(7)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	// Kill the server side of the connection; the client must come back and
	// re-send its auth message.
	conn, ok := hub.Registry().Lookup(7)
	require.True(t, ok)
	hub.Registry().Unregister(conn)
	conn.Close()

	require.Eventually(t, func() bool {
		_, ok := hub.Registry().Lookup(7)
		return ok
	}, 5*time.Second, 25*time.Millisecond)
}

func TestClientGivesUpAfterBoundedAttempts(t *testing.T) {
	_, srv := newTestHub(t)

	client := NewClient(ClientConfig{
		URL:                  wsURL(srv),
		UserID:               3,
		ReconnectDelay:       20 * time.Millisecond,
		MaxReconnectAttempts: 2,
		Logger:               quietLogger(),
	})
	require.NoError(t, client.Start(context.Background()))

	// Take the server away; every reconnect attempt now fails.
	srv.CloseClientConnections()
	srv.Close()

	select {
	case <-client.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("client did not give up after exhausting attempts")
	}
}

func TestClientInitialDialFailure(t *testing.T) {
	client := NewClient(ClientConfig{
		URL:    "ws://127.0.0.1:1/ws",
		UserID: 1,
		Logger: quietLogger(),
	})
	err := client.Start(context.Background())
	assert.Error(t, err)
}
