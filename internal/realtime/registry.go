package realtime

import "sync"

// Connection is a live outbound channel to one subscriber.
type Connection interface {
	// Send queues a payload for delivery. It must not block; the return value
	// reports whether the payload was accepted.
	Send(payload []byte) bool
	Close()
}

// Registry tracks at most one live connection per user. All access is
// serialized by an internal lock; the registry is constructed once at process
// start and handed to the connection loop and the dispatcher.
type Registry struct {
	mu    sync.Mutex
	conns map[int64]Connection
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[int64]Connection)}
}

// Register binds a user to a connection. A prior entry for the same user is
// silently replaced: last authenticated connection wins. Any identity the
// connection held before is dropped, so a connection is registered under at
// most one user at a time.
func (r *Registry) Register(userID int64, conn Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.conns {
		if existing == conn && id != userID {
			delete(r.conns, id)
		}
	}
	r.conns[userID] = conn
}

// Unregister removes whichever entry currently points at this exact
// connection. A connection that was already replaced by a newer one for the
// same user is left alone.
func (r *Registry) Unregister(conn Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for userID, existing := range r.conns {
		if existing == conn {
			delete(r.conns, userID)
			return
		}
	}
}

// Lookup returns the live connection for a user, if any.
func (r *Registry) Lookup(userID int64) (Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[userID]
	return conn, ok
}

// Len reports the number of registered connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
