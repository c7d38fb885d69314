package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewManager(client, zap.NewNop()), mr
}

func testSession(uid, jti string) *SessionData {
	now := time.Now()
	return &SessionData{
		JTI:            jti,
		UID:            uid,
		Email:          "user@example.com",
		Provider:       "local",
		LoginAt:        now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(time.Hour),
	}
}

func TestCreateAndGetSession(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.CreateSession(ctx, testSession("u1", "jti-1")))

	got, err := m.GetSession(ctx, "u1", "jti-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UID)
	assert.Equal(t, "user@example.com", got.Email)
	assert.Equal(t, "local", got.Provider)
}

func TestGetSessionMissing(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.GetSession(context.Background(), "u1", "no-such-jti")
	assert.Error(t, err)
}

func TestCreateSessionExpired(t *testing.T) {
	m, _ := newTestManager(t)

	s := testSession("u1", "jti-1")
	s.ExpiresAt = time.Now().Add(-time.Minute)
	assert.Error(t, m.CreateSession(context.Background(), s))
}

func TestSessionTTLExpiry(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.CreateSession(ctx, testSession("u1", "jti-1")))

	mr.FastForward(2 * time.Hour)

	_, err := m.GetSession(ctx, "u1", "jti-1")
	assert.Error(t, err)
}

func TestInvalidateSession(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.CreateSession(ctx, testSession("u1", "jti-1")))
	require.NoError(t, m.InvalidateSession(ctx, "u1", "jti-1"))

	_, err := m.GetSession(ctx, "u1", "jti-1")
	assert.Error(t, err)
}

func TestInvalidateAllUserSessions(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.CreateSession(ctx, testSession("u1", "jti-1")))
	require.NoError(t, m.CreateSession(ctx, testSession("u1", "jti-2")))
	require.NoError(t, m.CreateSession(ctx, testSession("u2", "jti-3")))

	require.NoError(t, m.InvalidateAllUserSessions(ctx, "u1"))

	_, err := m.GetSession(ctx, "u1", "jti-1")
	assert.Error(t, err)
	_, err = m.GetSession(ctx, "u1", "jti-2")
	assert.Error(t, err)

	// Other users are untouched
	got, err := m.GetSession(ctx, "u2", "jti-3")
	require.NoError(t, err)
	assert.Equal(t, "u2", got.UID)
}

func TestGetUserActiveSessions(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.CreateSession(ctx, testSession("u1", "jti-1")))
	require.NoError(t, m.CreateSession(ctx, testSession("u1", "jti-2")))

	sessions, err := m.GetUserActiveSessions(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestTokenBlacklist(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()

	blacklisted, err := m.IsTokenBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, blacklisted)

	require.NoError(t, m.BlacklistToken(ctx, "jti-1", time.Hour))

	blacklisted, err = m.IsTokenBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, blacklisted)

	// Blacklist entries expire with the token
	mr.FastForward(2 * time.Hour)
	blacklisted, err = m.IsTokenBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, blacklisted)
}

func TestLoginRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	rl := NewRateLimiter(client)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, _, err := rl.CheckLoginAttempt(ctx, "1.2.3.4", "user@example.com")
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, remaining, err := rl.CheckLoginAttempt(ctx, "1.2.3.4", "user@example.com")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, int64(0), remaining)

	// A different address is tracked separately
	allowed, _, err = rl.CheckLoginAttempt(ctx, "5.6.7.8", "user@example.com")
	require.NoError(t, err)
	assert.True(t, allowed)

	require.NoError(t, rl.ResetLoginAttempts(ctx, "1.2.3.4", "user@example.com"))
	allowed, _, err = rl.CheckLoginAttempt(ctx, "1.2.3.4", "user@example.com")
	require.NoError(t, err)
	assert.True(t, allowed)
}
