package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestValidatePath(t *testing.T) {
	valid := []string{"users", "users/u1", "users/u1/polygons/01K3"}
	for _, p := range valid {
		assert.NoError(t, ValidatePath(p), p)
	}

	invalid := []string{"", "/users", "users/", "users//u1", "users/ /u1"}
	for _, p := range invalid {
		assert.Error(t, ValidatePath(p), p)
	}
}

func TestAncestors(t *testing.T) {
	assert.Equal(t, []string{"a"}, ancestors("a"))
	assert.Equal(t, []string{"a/b/c", "a/b", "a"}, ancestors("a/b/c"))
}

func TestSnapshotAbsentIsNotAnError(t *testing.T) {
	snap := NewSnapshot("users/u1/polygons", nil)
	assert.False(t, snap.Exists())
	assert.Nil(t, snap.Raw())

	children, err := snap.Children()
	require.NoError(t, err)
	assert.Empty(t, children, "no data at path reads as an empty collection")
}

func TestSnapshotChildrenOrderedByKey(t *testing.T) {
	snap := NewSnapshot("users/u1/polygons", json.RawMessage(
		`{"01B":{"area":2},"01A":{"area":1},"01C":{"area":3}}`,
	))
	children, err := snap.Children()
	require.NoError(t, err)
	require.Len(t, children, 3)
	assert.Equal(t, "01A", children[0].Key)
	assert.Equal(t, "01B", children[1].Key)
	assert.Equal(t, "01C", children[2].Key)
}

func TestAssembleMergesOwnRowWithDescendants(t *testing.T) {
	rows := []row{
		{path: "users/u1", value: json.RawMessage(`{"name":"Ann","email":"a@x.com"}`)},
		{path: "users/u1/googleProfile", value: json.RawMessage(`{"locale":"en"}`)},
		{path: "users/u1/polygons/01A", value: json.RawMessage(`{"area":1.5}`)},
		{path: "users/u1/polygons/01B", value: json.RawMessage(`{"area":0.7}`)},
		{path: "users/u2", value: json.RawMessage(`{"name":"other"}`)},
	}

	raw := assemble("users/u1", rows)
	var got map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.JSONEq(t, `"Ann"`, string(got["name"]))
	assert.JSONEq(t, `{"locale":"en"}`, string(got["googleProfile"]))
	assert.JSONEq(t, `{"01A":{"area":1.5},"01B":{"area":0.7}}`, string(got["polygons"]))
	assert.NotContains(t, got, "u2")
}

func TestAssembleLeafOnly(t *testing.T) {
	rows := []row{{path: "users/u1", value: json.RawMessage(`{"name":"Ann"}`)}}
	assert.JSONEq(t, `{"name":"Ann"}`, string(assemble("users/u1", rows)))

	assert.Nil(t, assemble("users/u1", nil))
}

// memReader serves canned snapshots so notifier behavior can be tested
// without Postgres.
type memReader struct {
	mu   sync.Mutex
	data map[string]json.RawMessage
}

func (m *memReader) set(path string, v json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[path] = v
}

func (m *memReader) ReadOnce(_ context.Context, path string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return NewSnapshot(path, m.data[path]), nil
}

func newTestNotifier(t *testing.T) (*Notifier, *memReader) {
	t.Helper()
	n := NewNotifier(nil, zap.NewNop())
	r := &memReader{data: make(map[string]json.RawMessage)}
	n.bind(r)
	return n, r
}

func waitSnapshot(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case snap := <-ch:
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func TestSubscribeDeliversCurrentValueFirst(t *testing.T) {
	n, r := newTestNotifier(t)
	r.set("users/u1", json.RawMessage(`{"name":"Ann"}`))

	ch, cancel := n.subscribe("users/u1")
	defer cancel()

	snap := waitSnapshot(t, ch)
	assert.True(t, snap.Exists())
	assert.JSONEq(t, `{"name":"Ann"}`, string(snap.Raw()))
}

func TestSubscribeSeesDescendantWrites(t *testing.T) {
	n, r := newTestNotifier(t)

	ch, cancel := n.subscribe("users/u1/polygons")
	defer cancel()

	first := waitSnapshot(t, ch)
	assert.False(t, first.Exists())

	r.set("users/u1/polygons", json.RawMessage(`{"01A":{"area":1}}`))
	n.changed("users/u1/polygons/01A")

	next := waitSnapshot(t, ch)
	assert.True(t, next.Exists())
}

func TestRapidWritesConvergeOnLatestValue(t *testing.T) {
	n, r := newTestNotifier(t)

	ch, cancel := n.subscribe("users/u1")
	defer cancel()
	waitSnapshot(t, ch) // initial absent value

	// Far more writes than the subscription buffer holds, none consumed yet
	var last json.RawMessage
	for i := 0; i < 100; i++ {
		last = json.RawMessage(fmt.Sprintf(`{"seq":%d}`, i))
		r.set("users/u1", last)
		n.changed("users/u1")
	}

	// Drain everything queued; the final snapshot must carry the final write
	var got json.RawMessage
	for {
		select {
		case snap := <-ch:
			got = snap.Raw()
			continue
		case <-time.After(300 * time.Millisecond):
		}
		break
	}

	require.NotNil(t, got)
	assert.JSONEq(t, string(last), string(got))
}

func TestCancelStopsDeliveryAndIsIdempotent(t *testing.T) {
	n, r := newTestNotifier(t)

	ch, cancel := n.subscribe("users/u1")
	waitSnapshot(t, ch)

	cancel()
	cancel() // second cancel must be harmless

	r.set("users/u1", json.RawMessage(`{"name":"Ann"}`))
	n.changed("users/u1")

	_, open := <-ch
	assert.False(t, open, "channel closes after cancel")
}
