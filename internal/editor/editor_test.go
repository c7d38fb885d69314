package editor

import (
	"testing"
	"time"

	"fieldmapper-service/internal/geo"
	xerrors "fieldmapper-service/internal/pkg/errors"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func triangle(base float64) []geo.LatLng {
	return []geo.LatLng{
		{Lat: base, Lng: base},
		{Lat: base + 0.001, Lng: base},
		{Lat: base, Lng: base + 0.001},
	}
}

func activeCount(e *Editor) int {
	n := 0
	for _, ov := range e.Overlays() {
		if ov.State == StateActive {
			n++
		}
	}
	return n
}

func TestCompleteDrawingLocksAndDisablesDrawing(t *testing.T) {
	e := New(0)
	require.True(t, e.DrawingEnabled())

	ov, err := e.CompleteDrawing(triangle(10))
	require.NoError(t, err)
	assert.Equal(t, StateLocked, ov.State)
	assert.NotEmpty(t, ov.ID)
	assert.False(t, e.DrawingEnabled())

	// drawing is disabled while an overlay exists
	_, err = e.CompleteDrawing(triangle(20))
	assert.ErrorIs(t, err, xerrors.ErrDrawingDisabled)
}

func TestCompleteDrawingSettleDelay(t *testing.T) {
	e := New(10 * time.Millisecond)
	ov, err := e.CompleteDrawing(triangle(10))
	require.NoError(t, err)
	assert.Equal(t, StateDrawing, ov.State)

	assert.Eventually(t, func() bool {
		return e.Overlays()[0].State == StateLocked
	}, time.Second, 5*time.Millisecond)
}

func TestCompleteDrawingRejectsShortPath(t *testing.T) {
	e := New(0)
	_, err := e.CompleteDrawing([]geo.LatLng{{Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}})
	assert.ErrorIs(t, err, xerrors.ErrTooFewVertices)
}

func TestToggleKeepsSingleActiveInvariant(t *testing.T) {
	e := New(0)
	first, err := e.CompleteDrawing(triangle(10))
	require.NoError(t, err)

	// drawing re-enables after deleting, so we can add a second overlay
	_, err = e.Toggle(first.ID)
	require.NoError(t, err)
	require.NoError(t, e.DeleteActive())
	first, err = e.CompleteDrawing(triangle(10))
	require.NoError(t, err)

	got, err := e.Toggle(first.ID)
	require.NoError(t, err)
	assert.Equal(t, StateActive, got.State)
	assert.Equal(t, 1, activeCount(e))

	// toggling the active overlay locks it again
	got, err = e.Toggle(first.ID)
	require.NoError(t, err)
	assert.Equal(t, StateLocked, got.State)
	assert.Equal(t, 0, activeCount(e))

	_, ok := e.ActiveOverlay()
	assert.False(t, ok)
}

// seedOverlays drops n locked overlays straight into the collection, the
// shape the editor reaches when several saved fields were on the map at once.
func seedOverlays(e *Editor, n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := 0; i < n; i++ {
		e.overlays = append(e.overlays, &Overlay{
			ID:    ulid.Make().String(),
			State: StateLocked,
			Path:  triangle(float64(i)),
		})
	}
	e.drawingOn = false
}

func TestToggleForcesOthersLocked(t *testing.T) {
	e := New(0)
	seedOverlays(e, 3)

	// the invariant holds across arbitrary toggle sequences
	for i := 0; i < 10; i++ {
		for _, ov := range e.Overlays() {
			_, err := e.Toggle(ov.ID)
			require.NoError(t, err)
			assert.LessOrEqual(t, activeCount(e), 1)
		}
	}
}

func TestDeleteOneOfSeveral(t *testing.T) {
	e := New(0)
	seedOverlays(e, 3)

	overlays := e.Overlays()
	_, err := e.Toggle(overlays[1].ID)
	require.NoError(t, err)
	require.NoError(t, e.DeleteActive())

	assert.Len(t, e.Overlays(), 2)
	assert.False(t, e.DrawingEnabled(), "drawing stays disabled while overlays remain")
	assert.Equal(t, 0, activeCount(e))

	// insertion order of the survivors is preserved
	kept := e.Overlays()
	assert.Equal(t, overlays[0].ID, kept[0].ID)
	assert.Equal(t, overlays[2].ID, kept[1].ID)
}

func TestDeleteActiveOnly(t *testing.T) {
	e := New(0)
	err := e.DeleteActive()
	assert.ErrorIs(t, err, xerrors.ErrNoActiveOverlay)

	ov, err := e.CompleteDrawing(triangle(10))
	require.NoError(t, err)

	// locked overlay cannot be deleted
	err = e.DeleteActive()
	assert.ErrorIs(t, err, xerrors.ErrNoActiveOverlay)

	_, err = e.Toggle(ov.ID)
	require.NoError(t, err)
	require.NoError(t, e.DeleteActive())

	assert.Empty(t, e.Overlays())
	assert.True(t, e.DrawingEnabled(), "deleting the only overlay re-enables drawing")
}

func TestLoadSavedReplacesCollection(t *testing.T) {
	e := New(0)
	_, err := e.CompleteDrawing(triangle(10))
	require.NoError(t, err)

	saved := triangle(27)
	ov, bounds, err := e.LoadSaved(saved)
	require.NoError(t, err)

	assert.Equal(t, StateLocked, ov.State)
	assert.Equal(t, saved, ov.Path, "vertex sequence survives the round trip")
	assert.Len(t, e.Overlays(), 1)
	assert.False(t, e.DrawingEnabled())

	assert.Equal(t, geo.LatLng{Lat: 27, Lng: 27}, bounds.SouthWest)
	assert.Equal(t, geo.LatLng{Lat: 27.001, Lng: 27.001}, bounds.NorthEast)
}

func TestToggleUnknownOverlay(t *testing.T) {
	e := New(0)
	_, err := e.Toggle("01J0000000000000000000000")
	assert.ErrorIs(t, err, xerrors.ErrOverlayNotFound)
}

func TestViewportState(t *testing.T) {
	e := New(0)
	assert.Equal(t, MapTypeSatellite, e.MapType())

	e.SetMapType(MapTypeHybrid)
	assert.Equal(t, MapTypeHybrid, e.MapType())

	_, ok := e.Location()
	assert.False(t, ok)
	e.SetLocation(geo.LatLng{Lat: 27.34, Lng: 75.79})
	loc, ok := e.Location()
	require.True(t, ok)
	assert.Equal(t, geo.LatLng{Lat: 27.34, Lng: 75.79}, loc)

	e.SetFullscreen(true)
	assert.True(t, e.Fullscreen())
}

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry(0, time.Hour, zap.NewNop())

	e := r.Open()
	got, err := r.Get(e.ID())
	require.NoError(t, err)
	assert.Same(t, e, got)

	r.Close(e.ID())
	_, err = r.Get(e.ID())
	assert.ErrorIs(t, err, xerrors.ErrEditorNotFound)

	// double close is harmless
	r.Close(e.ID())
	assert.Zero(t, r.Len())
}

func TestRegistrySweep(t *testing.T) {
	r := NewRegistry(0, 10*time.Millisecond, zap.NewNop())
	e := r.Open()

	time.Sleep(20 * time.Millisecond)
	r.sweep()

	_, err := r.Get(e.ID())
	assert.ErrorIs(t, err, xerrors.ErrEditorNotFound)
}
