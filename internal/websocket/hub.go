// internal/websocket/hub.go
package websocket

import (
	"context"
	"sync"

	wstypes "fieldmapper-service/internal/domain/websocket"
	"fieldmapper-service/internal/pkg/jwt"
	"fieldmapper-service/internal/pkg/session"

	"go.uber.org/zap"
)

// Hub tracks live connections per user and fans events out to them. It
// authenticates sockets with the same verifier and session store the HTTP
// layer uses, so a revoked token cannot hold a socket open past its session.
type Hub struct {
	clients map[string]map[*Client]bool
	mu      sync.RWMutex

	Register   chan *Client
	unregister chan *Client

	broadcast chan *BroadcastMessage

	handlerRegistry *HandlerRegistry

	jwtVerifier    *jwt.Verifier
	sessionManager *session.Manager
	logger         *zap.Logger
}

type BroadcastMessage struct {
	// UIDs nil means every connected client
	UIDs    []string
	Channel wstypes.ChannelType
	Message *wstypes.WSMessage
}

func NewHub(jwtVerifier *jwt.Verifier, sessionManager *session.Manager, logger *zap.Logger) *Hub {
	return &Hub{
		clients:         make(map[string]map[*Client]bool),
		Register:        make(chan *Client),
		unregister:      make(chan *Client),
		broadcast:       make(chan *BroadcastMessage, 256),
		handlerRegistry: NewHandlerRegistry(),
		jwtVerifier:     jwtVerifier,
		sessionManager:  sessionManager,
		logger:          logger,
	}
}

// AuthenticateClient validates the JWT token and resolves the session
// behind it.
func (h *Hub) AuthenticateClient(ctx context.Context, token string) (*ClientAuth, error) {
	claims, err := h.jwtVerifier.VerifyAccessToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	blacklisted, err := h.sessionManager.IsTokenBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return nil, ErrTokenRevoked
	}

	sessionData, err := h.sessionManager.GetSession(ctx, claims.UID, claims.ID)
	if err != nil {
		return nil, ErrSessionExpired
	}

	return &ClientAuth{
		UID:       claims.UID,
		SessionID: claims.ID,
		Email:     sessionData.Email,
		Device:    claims.Device,
	}, nil
}

// RegisterHandler registers a message handler
func (h *Hub) RegisterHandler(handler MessageHandler) {
	h.handlerRegistry.Register(handler)
}

// HandleClientMessage routes a client message to its registered handler,
// if any. Unrouted types fall through to the client's built-in handling.
func (h *Hub) HandleClientMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) error {
	handler, exists := h.handlerRegistry.GetHandler(msg.Type)
	if !exists {
		return nil
	}
	return handler.HandleMessage(ctx, client, msg)
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.BroadcastMessage(msg)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.uid] == nil {
		h.clients[client.uid] = make(map[*Client]bool)
	}
	h.clients[client.uid][client] = true

	h.logger.Info("websocket client connected",
		zap.String("uid", client.uid),
		zap.String("session", client.sessionID),
		zap.Int("total", h.totalClients()))

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, map[string]interface{}{
		"uid":        client.uid,
		"session_id": client.sessionID,
		"device":     client.device,
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.uid]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			client.Close()

			if len(clients) == 0 {
				delete(h.clients, client.uid)
			}

			h.logger.Info("websocket client disconnected",
				zap.String("uid", client.uid),
				zap.String("session", client.sessionID),
				zap.Int("total", h.totalClients()))
		}
	}
}

func (h *Hub) BroadcastMessage(msg *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if msg.UIDs == nil {
		for _, clients := range h.clients {
			for client := range clients {
				if client.IsSubscribed(msg.Channel) {
					client.SendMessage(msg.Message)
				}
			}
		}
		return
	}

	for _, uid := range msg.UIDs {
		if clients, ok := h.clients[uid]; ok {
			for client := range clients {
				if client.IsSubscribed(msg.Channel) {
					client.SendMessage(msg.Message)
				}
			}
		}
	}
}

func (h *Hub) GetConnectedClients(uid string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.clients[uid]; ok {
		return len(clients)
	}
	return 0
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalClients()
}

// ForceLogout tells a user's connections their session ended. An empty
// sessionID means every session.
func (h *Hub) ForceLogout(uid, sessionID, reason string) {
	msg := wstypes.NewMessage(wstypes.EventTypeForceLogout, wstypes.SessionEventData{
		SessionID: sessionID,
		Reason:    reason,
		Message:   "You have been logged out",
	})
	h.broadcast <- &BroadcastMessage{
		UIDs:    []string{uid},
		Channel: wstypes.ChannelSystem,
		Message: msg,
	}
}

// IsUserConnected checks if a user has any active connections
func (h *Hub) IsUserConnected(uid string) bool {
	return h.GetConnectedClients(uid) > 0
}

// DisconnectUser forcefully drops all of a user's connections.
func (h *Hub) DisconnectUser(uid string, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[uid]; ok {
		disconnectMsg := wstypes.NewMessage(wstypes.EventTypeDisconnected, map[string]interface{}{
			"reason": reason,
		})

		for client := range clients {
			client.SendMessage(disconnectMsg)
			client.Close()
		}

		delete(h.clients, uid)
		h.logger.Info("disconnected all clients",
			zap.String("uid", uid), zap.String("reason", reason))
	}
}

// caller holds h.mu
func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			client.Close()
		}
	}
}
