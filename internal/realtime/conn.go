package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	sendQueueSize = 16
	writeTimeout  = 10 * time.Second
)

// wsConn wraps a websocket connection with a buffered outbound queue and a
// single writer goroutine, so that the dispatcher and the lifecycle loop never
// write to the socket concurrently.
type wsConn struct {
	ws     *websocket.Conn
	send   chan []byte
	logger *logrus.Logger

	closeOnce sync.Once
	done      chan struct{}
}

func newWSConn(ws *websocket.Conn, logger *logrus.Logger) *wsConn {
	c := &wsConn{
		ws:     ws,
		send:   make(chan []byte, sendQueueSize),
		logger: logger,
		done:   make(chan struct{}),
	}
	go c.writePump()
	return c
}

// Send queues a payload without blocking. Payloads are dropped when the queue
// is full or the connection is closing; delivery is best effort.
func (c *wsConn) Send(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		c.logger.Debugf("realtime: outbound queue full, dropping message")
		return false
	}
}

func (c *wsConn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

func (c *wsConn) writePump() {
	for {
		select {
		case payload := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Debugf("realtime: write failed: %v", err)
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}
