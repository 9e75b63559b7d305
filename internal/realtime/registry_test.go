package realtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	payloads [][]byte
	closed   bool
}

func (c *fakeConn) Send(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.payloads = append(c.payloads, payload)
	return true
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.payloads...)
}

func TestRegistryLastWriteWins(t *testing.T) {
	registry := NewRegistry()
	first := &fakeConn{}
	second := &fakeConn{}

	registry.Register(42, first)
	registry.Register(42, second)

	conn, ok := registry.Lookup(42)
	require.True(t, ok)
	assert.Same(t, second, conn)
	assert.Equal(t, 1, registry.Len())
}

func TestRegistryUnregisterByIdentity(t *testing.T) {
	registry := NewRegistry()
	first := &fakeConn{}
	second := &fakeConn{}

	registry.Register(42, first)
	registry.Register(42, second)

	// The stale connection no longer owns the entry; removing it is a no-op.
	registry.Unregister(first)
	conn, ok := registry.Lookup(42)
	require.True(t, ok)
	assert.Same(t, second, conn)

	registry.Unregister(second)
	_, ok = registry.Lookup(42)
	assert.False(t, ok)
	assert.Zero(t, registry.Len())
}

func TestRegistryReauthReplacesIdentity(t *testing.T) {
	registry := NewRegistry()
	conn := &fakeConn{}

	registry.Register(1, conn)
	registry.Register(2, conn)

	_, ok := registry.Lookup(1)
	assert.False(t, ok, "old identity must be dropped on re-auth")
	got, ok := registry.Lookup(2)
	require.True(t, ok)
	assert.Same(t, conn, got)
	assert.Equal(t, 1, registry.Len())

	registry.Unregister(conn)
	assert.Zero(t, registry.Len())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	registry := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			conn := &fakeConn{}
			registry.Register(userID, conn)
			registry.Lookup(userID)
			registry.Unregister(conn)
		}(int64(i % 10))
	}
	wg.Wait()
	assert.Zero(t, registry.Len())
}
