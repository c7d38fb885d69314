// internal/websocket/client.go
package websocket

import (
	"context"
	"sync"
	"time"

	wstypes "fieldmapper-service/internal/domain/websocket"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024 // 512KB
)

// ClientAuth holds the resolved identity of a socket.
type ClientAuth struct {
	UID       string
	SessionID string
	Email     string
	Device    string
}

type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	uid       string
	sessionID string
	email     string
	device    string
	logger    *zap.Logger

	// Channel subscriptions
	subscriptions map[wstypes.ChannelType]bool
	subMutex      sync.RWMutex

	// Record watches by absolute store path, each holding its cancel
	watches   map[string]func()
	watchesMu sync.Mutex

	dropOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc
}

func NewClient(hub *Hub, conn *websocket.Conn, auth *ClientAuth, logger *zap.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		hub:           hub,
		conn:          conn,
		send:          make(chan []byte, 256),
		uid:           auth.UID,
		sessionID:     auth.SessionID,
		email:         auth.Email,
		device:        auth.Device,
		logger:        logger,
		subscriptions: make(map[wstypes.ChannelType]bool),
		watches:       make(map[string]func()),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// UID returns the authenticated user ID behind the socket.
func (c *Client) UID() string {
	return c.uid
}

// SessionID returns the token id the socket authenticated with.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Done exposes the client's lifetime for goroutines pumping into it.
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Subscribe to a channel
func (c *Client) Subscribe(channel wstypes.ChannelType) {
	c.subMutex.Lock()
	defer c.subMutex.Unlock()
	c.subscriptions[channel] = true
}

// Unsubscribe from a channel
func (c *Client) Unsubscribe(channel wstypes.ChannelType) {
	c.subMutex.Lock()
	defer c.subMutex.Unlock()
	delete(c.subscriptions, channel)
}

// IsSubscribed checks if client is subscribed to a channel
func (c *Client) IsSubscribed(channel wstypes.ChannelType) bool {
	c.subMutex.RLock()
	defer c.subMutex.RUnlock()
	return c.subscriptions[channel]
}

// AddWatch records a live store subscription so it can be cancelled when
// the socket goes away. Returns false if the path is already watched.
func (c *Client) AddWatch(path string, cancel func()) bool {
	c.watchesMu.Lock()
	defer c.watchesMu.Unlock()
	if _, exists := c.watches[path]; exists {
		return false
	}
	c.watches[path] = cancel
	return true
}

// RemoveWatch cancels and forgets one store subscription.
func (c *Client) RemoveWatch(path string) bool {
	c.watchesMu.Lock()
	defer c.watchesMu.Unlock()
	cancel, exists := c.watches[path]
	if !exists {
		return false
	}
	delete(c.watches, path)
	cancel()
	return true
}

func (c *Client) clearWatches() {
	c.watchesMu.Lock()
	defer c.watchesMu.Unlock()
	for path, cancel := range c.watches {
		delete(c.watches, path)
		cancel()
	}
}

// ReadPump handles incoming messages from client
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			_, message, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					c.logger.Warn("websocket read error", zap.Error(err))
				}
				return
			}

			c.handleMessage(message)
		}
	}
}

// WritePump handles outgoing messages to client
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes incoming messages from client
func (c *Client) handleMessage(data []byte) {
	msg, err := wstypes.ParseMessage(data)
	if err != nil {
		c.SendError("invalid_message", "Failed to parse message", err.Error())
		return
	}

	// Registered handlers get first crack
	if err := c.hub.HandleClientMessage(context.Background(), c, msg); err != nil {
		c.SendError("handler_error", "Failed to process message", err.Error())
		return
	}

	// Built-in message handling
	switch msg.Type {
	case wstypes.EventTypePing:
		c.SendMessage(wstypes.NewMessage(wstypes.EventTypePong, nil))

	case wstypes.EventTypeSubscribe:
		var req wstypes.SubscribeRequest
		if err := mapToStruct(msg.Data, &req); err != nil {
			c.SendError("invalid_subscribe", "Invalid subscribe request", err.Error())
			return
		}
		for _, channel := range req.Channels {
			c.Subscribe(channel)
		}
		c.SendMessage(wstypes.NewMessage(wstypes.EventTypeSubscribe, map[string]interface{}{
			"channels": req.Channels,
			"status":   "subscribed",
		}))

	case wstypes.EventTypeUnsubscribe:
		var req wstypes.UnsubscribeRequest
		if err := mapToStruct(msg.Data, &req); err != nil {
			c.SendError("invalid_unsubscribe", "Invalid unsubscribe request", err.Error())
			return
		}
		for _, channel := range req.Channels {
			c.Unsubscribe(channel)
		}
		c.SendMessage(wstypes.NewMessage(wstypes.EventTypeUnsubscribe, map[string]interface{}{
			"channels": req.Channels,
			"status":   "unsubscribed",
		}))
	}
}

// SendMessage sends a message to the client
func (c *Client) SendMessage(msg *wstypes.WSMessage) {
	data, err := msg.ToJSON()
	if err != nil {
		c.logger.Error("failed to marshal message", zap.Error(err))
		return
	}

	select {
	case c.send <- data:
	case <-c.ctx.Done():
	default:
		// Channel full, drop the connection
		c.drop()
	}
}

// drop tears a slow or dead client down without blocking the caller. The
// caller is often the hub's own Run goroutine mid-broadcast, so the
// unregister hand-off must not wait on that same goroutine.
func (c *Client) drop() {
	c.dropOnce.Do(func() {
		c.cancel()
		go func() { c.hub.unregister <- c }()
	})
}

// SendError sends an error message to the client
func (c *Client) SendError(code, message, details string) {
	c.SendMessage(wstypes.NewMessage(wstypes.EventTypeError, wstypes.ErrorData{
		Code:    code,
		Message: message,
		Details: details,
	}))
}

// Close gracefully shuts the client down, cancelling its record watches.
func (c *Client) Close() {
	c.clearWatches()
	c.cancel()
}
