package field

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"fieldmapper-service/internal/geo"
	xerrors "fieldmapper-service/internal/pkg/errors"
	"fieldmapper-service/internal/store"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memStore keeps leaf rows by path and assembles parent reads from them,
// mirroring how the record store reports collections.
type memStore struct {
	mu   sync.Mutex
	data map[string]json.RawMessage
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]json.RawMessage)}
}

func (m *memStore) ReadOnce(_ context.Context, path string) (store.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if raw, ok := m.data[path]; ok {
		return store.NewSnapshot(path, raw), nil
	}

	// Assemble direct children into a collection
	prefix := path + "/"
	children := make(map[string]json.RawMessage)
	for p, v := range m.data {
		if len(p) > len(prefix) && p[:len(prefix)] == prefix {
			children[p[len(prefix):]] = v
		}
	}
	if len(children) == 0 {
		return store.NewSnapshot(path, nil), nil
	}
	raw, err := json.Marshal(children)
	if err != nil {
		return store.Snapshot{}, err
	}
	return store.NewSnapshot(path, raw), nil
}

func (m *memStore) Write(_ context.Context, path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[path] = raw
	return nil
}

func (m *memStore) Merge(ctx context.Context, path string, value any) error {
	return m.Write(ctx, path, value)
}

func (m *memStore) Push(ctx context.Context, path string, value any) (string, error) {
	key := ulid.Make().String()
	return key, m.Write(ctx, path+"/"+key, value)
}

func (m *memStore) Subscribe(string) (<-chan store.Snapshot, func()) {
	ch := make(chan store.Snapshot)
	return ch, func() { close(ch) }
}

// roughly a 100m x 100m square, about one hectare
func squareBoundary() []geo.LatLng {
	const d = 100.0 / (geo.EarthRadiusMeters * 3.141592653589793 / 180.0)
	return []geo.LatLng{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: d},
		{Lat: d, Lng: d},
		{Lat: d, Lng: 0},
	}
}

func newTestService() (*FieldService, *memStore) {
	ms := newMemStore()
	return NewFieldService(ms, zap.NewNop()), ms
}

func TestSaveField(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	rec, err := svc.SaveField(ctx, "u1", "u1@example.com", squareBoundary())
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "u1", rec.UserID)
	assert.Equal(t, "u1@example.com", rec.UserEmail)
	assert.NotEmpty(t, rec.CreatedAt)
	assert.InEpsilon(t, 1.0, rec.Area, 0.01)
}

func TestSaveFieldValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.SaveField(ctx, "", "x@example.com", squareBoundary())
	assert.ErrorIs(t, err, xerrors.ErrUnauthorized)

	_, err = svc.SaveField(ctx, "u1", "x@example.com", squareBoundary()[:2])
	assert.ErrorIs(t, err, xerrors.ErrTooFewVertices)
}

func TestListEmpty(t *testing.T) {
	svc, _ := newTestService()

	records, err := svc.List(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestListOrderedByInsertion(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first, err := svc.SaveField(ctx, "u1", "u1@example.com", squareBoundary())
	require.NoError(t, err)
	second, err := svc.SaveField(ctx, "u1", "u1@example.com", squareBoundary())
	require.NoError(t, err)

	records, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, first.ID, records[0].ID)
	assert.Equal(t, second.ID, records[1].ID)
}

func TestListScopedToUser(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.SaveField(ctx, "u1", "u1@example.com", squareBoundary())
	require.NoError(t, err)

	records, err := svc.List(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestGet(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	saved, err := svc.SaveField(ctx, "u1", "u1@example.com", squareBoundary())
	require.NoError(t, err)

	got, err := svc.Get(ctx, "u1", saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
	assert.Len(t, got.Coordinates, 4)
	assert.InEpsilon(t, saved.Area, got.Area, 1e-9)

	_, err = svc.Get(ctx, "u1", "missing-id")
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}
