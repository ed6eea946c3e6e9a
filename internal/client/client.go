// Package client implements store.Store against a remote toptrumps server
// over WebSocket.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/toptrumps/internal/server" // Reuse message types
	"github.com/lox/toptrumps/internal/store"
)

var (
	// ErrDisconnected is returned for requests that cannot complete because
	// the connection is gone.
	ErrDisconnected = errors.New("disconnected from server")
)

// RemoteError is an error reported by the server.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Client is a WebSocket connection to a toptrumps server that behaves as a
// store.Store.
type Client struct {
	serverURL      string
	conn           *websocket.Conn
	send           chan *server.Message
	logger         *log.Logger
	ctx            context.Context
	cancel         context.CancelFunc
	mu             sync.RWMutex
	connected      bool
	closeOnce      sync.Once
	nextID         atomic.Uint64
	requestTimeout time.Duration

	pending       map[string]chan *server.Message
	subscriptions map[string]*store.Subscriber
}

var _ store.Store = (*Client)(nil)

// NewClient creates a new WebSocket client
func NewClient(serverURL string, logger *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		serverURL:      serverURL,
		send:           make(chan *server.Message, 256),
		logger:         logger.WithPrefix("client"),
		ctx:            ctx,
		cancel:         cancel,
		requestTimeout: 30 * time.Second,
		pending:        make(map[string]chan *server.Message),
		subscriptions:  make(map[string]*store.Subscriber),
	}
}

// SetRequestTimeout bounds how long a request waits for its response.
func (c *Client) SetRequestTimeout(d time.Duration) {
	c.requestTimeout = d
}

// Connect establishes a WebSocket connection to the server
func (c *Client) Connect(ctx context.Context) error {
	c.logger.Info("Connecting to server", "url", c.serverURL)

	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	// Convert http/https to ws/wss
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	// Add WebSocket path
	u.Path = "/ws"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readPump()
	go c.writePump()

	c.logger.Info("Connected to server")
	return nil
}

// Disconnect closes the WebSocket connection and ends every subscription
func (c *Client) Disconnect() error {
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		defer c.mu.Unlock()

		if c.conn != nil {
			_ = c.conn.Close() // Ignore close errors during shutdown
			c.connected = false
		}
		for id, sub := range c.subscriptions {
			sub.Close()
			delete(c.subscriptions, id)
		}

		c.logger.Info("Disconnected from server")
	})
	return nil
}

// IsConnected returns whether the client is connected
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Get implements store.Store.
func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	reply, err := c.request(ctx, server.MessageTypeGet, server.GetData{Path: path})
	if err != nil {
		var remote *RemoteError
		if errors.As(err, &remote) && remote.Code == server.ErrorCodeNotFound {
			return nil, fmt.Errorf("%s: %w", path, store.ErrNotFound)
		}
		return nil, err
	}

	var data server.ValueData
	if err := json.Unmarshal(reply.Data, &data); err != nil {
		return nil, fmt.Errorf("decoding value: %w", err)
	}
	return data.Value, nil
}

// Update implements store.Store.
func (c *Client) Update(ctx context.Context, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	data := server.UpdateData{Values: make(map[string]json.RawMessage, len(values))}
	for path, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		data.Values[path] = raw
	}

	_, err := c.request(ctx, server.MessageTypeUpdate, data)
	return err
}

// Set implements store.Store.
func (c *Client) Set(ctx context.Context, path string, value any) error {
	return c.Update(ctx, map[string]any{path: value})
}

// Subscribe implements store.Store. It returns once the server has sent the
// initial value.
func (c *Client) Subscribe(ctx context.Context, path string, fn func(json.RawMessage)) (func(), error) {
	id := "s" + strconv.FormatUint(c.nextID.Add(1), 10)
	sub := store.NewSubscriber(fn)

	c.mu.Lock()
	c.subscriptions[id] = sub
	c.mu.Unlock()

	if _, err := c.requestWithID(ctx, id, server.MessageTypeSubscribe, server.SubscribeData{Path: path}); err != nil {
		c.dropSubscription(id)
		return nil, err
	}

	unsubscribe := func() {
		if !c.dropSubscription(id) {
			return
		}
		msg, err := server.NewMessage(server.MessageTypeUnsubscribe, server.UnsubscribeData{SubscriptionID: id})
		if err != nil {
			return
		}
		msg.RequestID = "u" + strconv.FormatUint(c.nextID.Add(1), 10)
		_ = c.SendMessage(msg) // The ack is not awaited
	}
	stop := context.AfterFunc(ctx, unsubscribe)
	return func() {
		stop()
		unsubscribe()
	}, nil
}

func (c *Client) dropSubscription(id string) bool {
	c.mu.Lock()
	sub, ok := c.subscriptions[id]
	delete(c.subscriptions, id)
	c.mu.Unlock()
	if ok {
		sub.Close()
	}
	return ok
}

// SendMessage sends a message to the server
func (c *Client) SendMessage(msg *server.Message) error {
	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return ErrDisconnected
	default:
		return fmt.Errorf("send buffer full")
	}
}

func (c *Client) request(ctx context.Context, messageType server.MessageType, data any) (*server.Message, error) {
	id := "r" + strconv.FormatUint(c.nextID.Add(1), 10)
	return c.requestWithID(ctx, id, messageType, data)
}

// requestWithID sends a message and waits for the first response carrying
// its request id.
func (c *Client) requestWithID(ctx context.Context, id string, messageType server.MessageType, data any) (*server.Message, error) {
	msg, err := server.NewMessage(messageType, data)
	if err != nil {
		return nil, err
	}
	msg.RequestID = id

	reply := make(chan *server.Message, 1)
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil, ErrDisconnected
	}
	c.pending[id] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.SendMessage(msg); err != nil {
		return nil, err
	}

	timer := time.NewTimer(c.requestTimeout)
	defer timer.Stop()

	select {
	case resp, ok := <-reply:
		if !ok {
			return nil, ErrDisconnected
		}
		if resp.Type == server.MessageTypeError {
			var data server.ErrorData
			if err := json.Unmarshal(resp.Data, &data); err != nil {
				return nil, fmt.Errorf("decoding error: %w", err)
			}
			return nil, &RemoteError{Code: data.Code, Message: data.Message}
		}
		return resp, nil
	case <-timer.C:
		return nil, fmt.Errorf("timeout waiting for %s response", messageType)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.ctx.Done():
		return nil, ErrDisconnected
	}
}

// readPump handles incoming messages from the server
func (c *Client) readPump() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		c.mu.Unlock()
	}()

	for {
		var msg server.Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		c.logger.Debug("Received message", "type", msg.Type, "request", msg.RequestID)
		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the server
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second) // Ping interval
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Ignore close errors during cleanup
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// handleMessage routes snapshots to their subscription and every response
// to the request waiting for it. Snapshots are pushed from the read loop so
// a subscription sees them in the order the server sent them.
func (c *Client) handleMessage(msg *server.Message) {
	if msg.Type == server.MessageTypeSnapshot {
		var data server.SnapshotData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.logger.Warn("Dropping malformed snapshot", "error", err)
			return
		}
		value := data.Value
		if string(value) == "null" {
			value = nil
		}

		c.mu.RLock()
		sub, ok := c.subscriptions[data.SubscriptionID]
		c.mu.RUnlock()
		if ok {
			sub.Push(value)
		}
	}

	c.mu.Lock()
	reply, ok := c.pending[msg.RequestID]
	if ok {
		delete(c.pending, msg.RequestID)
	}
	c.mu.Unlock()

	if ok {
		reply <- msg
	} else if msg.Type == server.MessageTypeError {
		var data server.ErrorData
		_ = json.Unmarshal(msg.Data, &data)
		c.logger.Warn("Server error", "request", msg.RequestID, "code", data.Code, "message", data.Message)
	}
}
