package websocket

import (
	"context"
	"testing"
	"time"

	wstypes "fieldmapper-service/internal/domain/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()

	hub := NewHub(nil, nil, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func registerTestClient(t *testing.T, hub *Hub, uid, sessionID string) *Client {
	t.Helper()

	c := NewClient(hub, nil, &ClientAuth{UID: uid, SessionID: sessionID}, zap.NewNop())
	select {
	case hub.Register <- c:
	case <-time.After(time.Second):
		t.Fatal("timed out registering client")
	}
	return c
}

func TestHubRegisterAndUnregister(t *testing.T) {
	hub := newTestHub(t)

	c := registerTestClient(t, hub, "user-1", "s1")
	assert.Eventually(t, func() bool {
		return hub.GetConnectedClients("user-1") == 1
	}, time.Second, 10*time.Millisecond)

	hub.unregister <- c
	assert.Eventually(t, func() bool {
		return hub.GetConnectedClients("user-1") == 0
	}, time.Second, 10*time.Millisecond)
}

func TestSlowClientDoesNotStallHub(t *testing.T) {
	hub := newTestHub(t)

	slow := registerTestClient(t, hub, "user-1", "s1")
	slow.Subscribe(wstypes.ChannelSystem)

	// Nothing reads the socket, so the outbound buffer fills up entirely
	for i := 0; i < cap(slow.send)+1; i++ {
		slow.SendMessage(wstypes.NewMessage(wstypes.EventTypePong, nil))
	}

	// A broadcast to the stalled client runs on the hub's own goroutine
	hub.ForceLogout("user-1", "s1", "session ended")

	// The hub must keep servicing registrations afterwards
	next := NewClient(hub, nil, &ClientAuth{UID: "user-2", SessionID: "s2"}, zap.NewNop())
	select {
	case hub.Register <- next:
	case <-time.After(2 * time.Second):
		t.Fatal("hub stopped accepting registrations after broadcasting to a slow client")
	}

	// The stalled client gets dropped rather than wedged
	assert.Eventually(t, func() bool {
		return hub.GetConnectedClients("user-1") == 0
	}, time.Second, 10*time.Millisecond)

	select {
	case <-slow.Done():
	case <-time.After(time.Second):
		t.Fatal("slow client's context was never cancelled")
	}
}

func TestForceLogoutReachesSystemSubscribers(t *testing.T) {
	hub := newTestHub(t)

	c := registerTestClient(t, hub, "user-1", "s1")
	c.Subscribe(wstypes.ChannelSystem)

	// Drain the registration ack first
	select {
	case <-c.send:
	case <-time.After(time.Second):
		t.Fatal("no registration ack")
	}

	hub.ForceLogout("user-1", "s1", "session ended")

	select {
	case raw := <-c.send:
		msg, err := wstypes.ParseMessage(raw)
		require.NoError(t, err)
		assert.Equal(t, wstypes.EventTypeForceLogout, msg.Type)
	case <-time.After(time.Second):
		t.Fatal("force-logout never delivered")
	}
}
