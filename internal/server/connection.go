package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/toptrumps/internal/store"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn          *websocket.Conn
	send          chan *Message
	store         store.Store
	logger        *log.Logger
	ctx           context.Context
	cancel        context.CancelFunc
	mu            sync.Mutex
	subscriptions map[string]func()
	closeOnce     sync.Once
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, s store.Store, logger *log.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:          conn,
		send:          make(chan *Message, 256),
		store:         s,
		logger:        logger.WithPrefix("conn").With("remote", conn.RemoteAddr().String()),
		ctx:           ctx,
		cancel:        cancel,
		subscriptions: make(map[string]func()),
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close ends every subscription and closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		c.mu.Lock()
		for id, unsubscribe := range c.subscriptions {
			unsubscribe()
			delete(c.subscriptions, id)
		}
		c.mu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// Done is closed when the connection shuts down.
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Subscriptions returns the number of live subscriptions.
func (c *Connection) Subscriptions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subscriptions)
}

// SendMessage queues a message for the client
func (c *Connection) SendMessage(msg *Message) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close() // Ignore close errors
		return ErrConnectionClosed
	}
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Round results accumulate in
	// the match document and are written back whole.
	maxMessageSize = 1 << 20
)

var (
	ErrConnectionClosed = errors.New("connection closed")
)

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }() // Ignore close errors during cleanup

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Ignore close errors during cleanup
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// handleMessage processes incoming messages from the client. Requests are
// handled in the order they arrive.
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "request", msg.RequestID)

	switch msg.Type {
	case MessageTypeGet:
		var data GetData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(msg.RequestID, ErrorCodeInvalidMessage, "Failed to parse get data")
			return
		}
		c.handleGet(msg.RequestID, data)

	case MessageTypeUpdate:
		var data UpdateData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(msg.RequestID, ErrorCodeInvalidMessage, "Failed to parse update data")
			return
		}
		c.handleUpdate(msg.RequestID, data)

	case MessageTypeSet:
		var data SetData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(msg.RequestID, ErrorCodeInvalidMessage, "Failed to parse set data")
			return
		}
		c.handleUpdate(msg.RequestID, UpdateData{Values: map[string]json.RawMessage{data.Path: data.Value}})

	case MessageTypeSubscribe:
		var data SubscribeData
		if err := json.Unmarshal(msg.Data, &data); err != nil || msg.RequestID == "" {
			c.sendError(msg.RequestID, ErrorCodeInvalidMessage, "Subscribe needs a path and a request id")
			return
		}
		c.handleSubscribe(msg.RequestID, data)

	case MessageTypeUnsubscribe:
		var data UnsubscribeData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(msg.RequestID, ErrorCodeInvalidMessage, "Failed to parse unsubscribe data")
			return
		}
		c.handleUnsubscribe(msg.RequestID, data)

	default:
		c.sendError(msg.RequestID, ErrorCodeUnknownType, "Unknown message type: "+msg.Type.String())
	}
}

func (c *Connection) reply(requestID string, messageType MessageType, data any) {
	msg, err := NewMessage(messageType, data)
	if err != nil {
		c.logger.Error("Failed to create message", "type", messageType, "error", err)
		return
	}
	msg.RequestID = requestID
	_ = c.SendMessage(msg) // Ignore send errors
}

// sendError sends an error message to the client
func (c *Connection) sendError(requestID, code, message string) {
	c.reply(requestID, MessageTypeError, ErrorData{Code: code, Message: message})
}

func (c *Connection) handleGet(requestID string, data GetData) {
	raw, err := c.store.Get(c.ctx, data.Path)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.sendError(requestID, ErrorCodeNotFound, err.Error())
	case err != nil:
		c.sendError(requestID, ErrorCodeStoreFailure, err.Error())
	default:
		c.reply(requestID, MessageTypeValue, ValueData{Path: data.Path, Value: raw})
	}
}

func (c *Connection) handleUpdate(requestID string, data UpdateData) {
	values := make(map[string]any, len(data.Values))
	for path, raw := range data.Values {
		values[path] = raw
	}
	if err := c.store.Update(c.ctx, values); err != nil {
		c.sendError(requestID, ErrorCodeStoreFailure, err.Error())
		return
	}
	c.reply(requestID, MessageTypeAck, struct{}{})
}

func (c *Connection) handleSubscribe(id string, data SubscribeData) {
	c.mu.Lock()
	if _, exists := c.subscriptions[id]; exists {
		c.mu.Unlock()
		c.sendError(id, ErrorCodeInvalidMessage, "Subscription already exists")
		return
	}
	c.mu.Unlock()

	unsubscribe, err := c.store.Subscribe(c.ctx, data.Path, func(raw json.RawMessage) {
		if raw == nil {
			raw = json.RawMessage("null")
		}
		c.reply(id, MessageTypeSnapshot, SnapshotData{SubscriptionID: id, Path: data.Path, Value: raw})
	})
	if err != nil {
		c.sendError(id, ErrorCodeStoreFailure, err.Error())
		return
	}

	c.mu.Lock()
	c.subscriptions[id] = unsubscribe
	c.mu.Unlock()
	c.logger.Debug("Subscribed", "path", data.Path, "subscription", id)
}

func (c *Connection) handleUnsubscribe(requestID string, data UnsubscribeData) {
	c.mu.Lock()
	unsubscribe, ok := c.subscriptions[data.SubscriptionID]
	delete(c.subscriptions, data.SubscriptionID)
	c.mu.Unlock()

	if ok {
		unsubscribe()
	}
	c.reply(requestID, MessageTypeAck, struct{}{})
}
