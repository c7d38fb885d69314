package store

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Integration coverage for the Postgres-backed store. Runs only when
// FIELDMAPPER_TEST_DATABASE_URL points at a disposable database.
func openTestStore(t *testing.T) *RecordStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	url := os.Getenv("FIELDMAPPER_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("FIELDMAPPER_TEST_DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	rs := NewRecordStore(pool, NewNotifier(nil, zap.NewNop()), zap.NewNop())
	require.NoError(t, rs.EnsureSchema(ctx))

	_, err = pool.Exec(ctx, `DELETE FROM records WHERE path LIKE 'test/%'`)
	require.NoError(t, err)
	return rs
}

func TestWriteReadRoundTrip(t *testing.T) {
	rs := openTestStore(t)
	ctx := context.Background()

	type doc struct {
		Name string `json:"name"`
	}
	require.NoError(t, rs.Write(ctx, "test/users/u1", doc{Name: "Ann"}))

	snap, err := rs.ReadOnce(ctx, "test/users/u1")
	require.NoError(t, err)
	require.True(t, snap.Exists())

	var got doc
	require.NoError(t, snap.Decode(&got))
	assert.Equal(t, "Ann", got.Name)
}

func TestMergePreservesUnnamedFields(t *testing.T) {
	rs := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, rs.Write(ctx, "test/users/u2", map[string]any{
		"name":      "Ann",
		"createdAt": "2026-01-01T00:00:00Z",
	}))
	require.NoError(t, rs.Merge(ctx, "test/users/u2", map[string]any{
		"lastLogin": "2026-02-01T00:00:00Z",
	}))

	snap, err := rs.ReadOnce(ctx, "test/users/u2")
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, snap.Decode(&got))
	assert.Equal(t, "Ann", got["name"])
	assert.Equal(t, "2026-01-01T00:00:00Z", got["createdAt"])
	assert.Equal(t, "2026-02-01T00:00:00Z", got["lastLogin"])
}

func TestPushGeneratesOrderedUniqueKeys(t *testing.T) {
	rs := openTestStore(t)
	ctx := context.Background()

	k1, err := rs.Push(ctx, "test/users/u3/polygons", map[string]any{"area": 1.0})
	require.NoError(t, err)
	k2, err := rs.Push(ctx, "test/users/u3/polygons", map[string]any{"area": 2.0})
	require.NoError(t, err)
	require.NotEqual(t, k1, k2)

	snap, err := rs.ReadOnce(ctx, "test/users/u3/polygons")
	require.NoError(t, err)
	children, err := snap.Children()
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, k1, children[0].Key, "push keys iterate in insertion order")
	assert.Equal(t, k2, children[1].Key)
}

func TestReadAssemblesUserTree(t *testing.T) {
	rs := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, rs.Write(ctx, "test/users/u4", map[string]any{"name": "Ann"}))
	require.NoError(t, rs.Write(ctx, "test/users/u4/googleProfile", map[string]any{"locale": "en"}))
	_, err := rs.Push(ctx, "test/users/u4/polygons", map[string]any{"area": 1.0})
	require.NoError(t, err)

	snap, err := rs.ReadOnce(ctx, "test/users/u4")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, snap.Decode(&got))
	assert.Equal(t, "Ann", got["name"])
	assert.Contains(t, got, "googleProfile")
	assert.Contains(t, got, "polygons")
}

func TestReadAbsentPathIsEmpty(t *testing.T) {
	rs := openTestStore(t)

	snap, err := rs.ReadOnce(context.Background(), "test/users/none/polygons")
	require.NoError(t, err)
	assert.False(t, snap.Exists())
}
