// internal/pkg/session/manager.go
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Manager keeps authenticated sessions in Redis, keyed by uid and token id.
// Redis is the source of truth; a session that is not there is not valid.
type Manager struct {
	client *redis.Client
	logger *zap.Logger
}

func NewManager(client *redis.Client, logger *zap.Logger) *Manager {
	return &Manager{
		client: client,
		logger: logger,
	}
}

// CreateSession stores a new session in Redis with a TTL matching its expiry.
func (m *Manager) CreateSession(ctx context.Context, session *SessionData) error {
	key := m.sessionKey(session.UID, session.JTI)

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	if err := m.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session in redis: %w", err)
	}

	return nil
}

// GetSession retrieves a session and bumps its last-activity timestamp.
func (m *Manager) GetSession(ctx context.Context, uid, jti string) (*SessionData, error) {
	key := m.sessionKey(uid, jti)

	data, err := m.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var session SessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	session.LastActivityAt = time.Now()
	go m.touch(context.Background(), uid, jti)

	return &session, nil
}

// touch rewrites the stored session with a fresh last-activity timestamp.
func (m *Manager) touch(ctx context.Context, uid, jti string) {
	key := m.sessionKey(uid, jti)

	data, err := m.client.Get(ctx, key).Bytes()
	if err != nil {
		return // gone or expired, nothing to update
	}

	var session SessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return
	}

	session.LastActivityAt = time.Now()

	updated, err := json.Marshal(session)
	if err != nil {
		return
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl > 0 {
		if err := m.client.Set(ctx, key, updated, ttl).Err(); err != nil {
			m.logger.Warn("failed to update session activity", zap.Error(err))
		}
	}
}

// InvalidateSession removes a single session.
func (m *Manager) InvalidateSession(ctx context.Context, uid, jti string) error {
	key := m.sessionKey(uid, jti)
	if err := m.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// InvalidateAllUserSessions removes every session belonging to a user,
// e.g. on password change.
func (m *Manager) InvalidateAllUserSessions(ctx context.Context, uid string) error {
	pattern := fmt.Sprintf("session:%s:*", uid)

	iter := m.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := m.client.Del(ctx, iter.Val()).Err(); err != nil {
			m.logger.Warn("failed to delete session",
				zap.String("key", iter.Val()), zap.Error(err))
		}
	}

	return iter.Err()
}

// GetUserActiveSessions returns all live sessions for a user.
func (m *Manager) GetUserActiveSessions(ctx context.Context, uid string) ([]*SessionData, error) {
	pattern := fmt.Sprintf("session:%s:*", uid)

	var sessions []*SessionData
	iter := m.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		data, err := m.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue // expired between scan and get
		}

		var session SessionData
		if err := json.Unmarshal(data, &session); err != nil {
			continue
		}

		sessions = append(sessions, &session)
	}

	return sessions, iter.Err()
}

// BlacklistToken marks a token id as revoked until its natural expiry.
func (m *Manager) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	key := m.blacklistKey(jti)
	return m.client.Set(ctx, key, "1", ttl).Err()
}

// IsTokenBlacklisted checks whether a token id has been revoked.
func (m *Manager) IsTokenBlacklisted(ctx context.Context, jti string) (bool, error) {
	key := m.blacklistKey(jti)
	exists, err := m.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	return exists > 0, nil
}

func (m *Manager) sessionKey(uid, jti string) string {
	return fmt.Sprintf("session:%s:%s", uid, jti)
}

func (m *Manager) blacklistKey(jti string) string {
	return fmt.Sprintf("blacklist:%s", jti)
}
