package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	defaultReconnectDelay    = 3 * time.Second
	defaultReconnectAttempts = 5
)

// Event is a message received by the subscriber client.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ClientConfig configures a realtime subscriber.
type ClientConfig struct {
	URL    string
	UserID int64
	// OnEvent is invoked for every decoded server message. Optional.
	OnEvent func(Event)
	// ReconnectDelay is the fixed pause between reconnect attempts.
	ReconnectDelay time.Duration
	// MaxReconnectAttempts bounds consecutive failed reconnects; once
	// exhausted the client gives up silently.
	MaxReconnectAttempts int
	Logger               *logrus.Logger
}

// Client subscribes to the realtime channel. It authenticates on every
// (re)connect and retries dropped connections with a fixed delay up to a
// bounded attempt count.
type Client struct {
	cfg ClientConfig

	mu     sync.Mutex
	ws     *websocket.Conn
	closed bool
	stop   chan struct{}
	done   chan struct{}
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = defaultReconnectAttempts
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Client{
		cfg:  cfg,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Start dials the server and begins listening. The initial dial failure is
// returned; later drops are handled by the reconnect loop.
func (c *Client) Start(ctx context.Context) error {
	ws, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.setConn(ws)
	go c.run(ctx)
	return nil
}

// Close stops the client and tears down the current connection.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.stop)
	if c.ws != nil {
		_ = c.ws.Close()
	}
	c.mu.Unlock()
	<-c.done
}

// Done is closed once the client has stopped listening, either after Close or
// after exhausting its reconnect attempts.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)

	for {
		c.listen()

		if c.isClosed() || ctx.Err() != nil {
			return
		}

		if !c.reconnect(ctx) {
			c.cfg.Logger.Warnf("realtime client: giving up after %d reconnect attempts", c.cfg.MaxReconnectAttempts)
			return
		}
	}
}

// listen reads the current connection until it drops.
func (c *Client) listen() {
	ws := c.conn()
	if ws == nil {
		return
	}
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			c.cfg.Logger.Warnf("realtime client: malformed message: %v", err)
			continue
		}
		if c.cfg.OnEvent != nil {
			c.cfg.OnEvent(event)
		}
	}
}

// reconnect retries with a fixed delay. Returns false once the attempt budget
// is spent or the client is closed.
func (c *Client) reconnect(ctx context.Context) bool {
	for attempt := 1; attempt <= c.cfg.MaxReconnectAttempts; attempt++ {
		select {
		case <-c.stop:
			return false
		case <-ctx.Done():
			return false
		case <-time.After(c.cfg.ReconnectDelay):
		}

		ws, err := c.dial(ctx)
		if err != nil {
			c.cfg.Logger.Debugf("realtime client: reconnect %d/%d failed: %v", attempt, c.cfg.MaxReconnectAttempts, err)
			continue
		}
		c.setConn(ws)
		return true
	}
	return false
}

// dial opens a connection and immediately authenticates it.
func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return nil, err
	}
	auth := AuthMessage{Type: MessageTypeAuth, UserID: c.cfg.UserID}
	if err := ws.WriteJSON(auth); err != nil {
		_ = ws.Close()
		return nil, err
	}
	return ws, nil
}

func (c *Client) setConn(ws *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		_ = ws.Close()
		return
	}
	c.ws = ws
}

func (c *Client) conn() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
