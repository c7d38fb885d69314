package editor

import (
	"sync"
	"time"

	"fieldmapper-service/internal/geo"
	xerrors "fieldmapper-service/internal/pkg/errors"

	"github.com/oklog/ulid/v2"
)

// OverlayState is the lifecycle state of an on-map polygon overlay.
type OverlayState string

const (
	// StateDrawing covers the settle window right after the drawing tool
	// reports a finished vertex sequence.
	StateDrawing OverlayState = "drawing"
	// StateLocked is the default resting state: visible, not editable.
	StateLocked OverlayState = "locked"
	// StateActive is the single editable/draggable overlay.
	StateActive OverlayState = "active"
)

// MapType mirrors the base-map render modes the client can switch between.
type MapType string

const (
	MapTypeSatellite MapType = "satellite"
	MapTypeHybrid    MapType = "hybrid"
	MapTypeRoadmap   MapType = "roadmap"
	MapTypeTerrain   MapType = "terrain"
)

// Overlay is one drawn polygon. Every overlay gets a stable ID at creation so
// lock/unlock toggles keep targeting the right shape after deletions.
type Overlay struct {
	ID    string       `json:"id"`
	State OverlayState `json:"state"`
	Path  []geo.LatLng `json:"path"`
}

// Editor holds the transient per-visit state of the map page: the overlay
// collection, the single-active invariant, and the viewport knobs. It is
// discarded when the visit ends.
type Editor struct {
	mu sync.Mutex

	id        string
	overlays  []*Overlay
	activeID  string
	drawingOn bool

	mapType      MapType
	lastLocation *geo.LatLng
	fullscreen   bool

	settleDelay time.Duration
	lastUsed    time.Time
}

// New creates an empty editor session. settleDelay is the grace window before
// a freshly completed overlay locks; zero locks synchronously.
func New(settleDelay time.Duration) *Editor {
	return &Editor{
		id:          ulid.Make().String(),
		drawingOn:   true,
		mapType:     MapTypeSatellite,
		settleDelay: settleDelay,
		lastUsed:    time.Now(),
	}
}

func (e *Editor) ID() string { return e.id }

func (e *Editor) touch() { e.lastUsed = time.Now() }

// CompleteDrawing registers a finished vertex sequence as a new overlay. The
// overlay settles into Locked after the grace delay, and drawing mode turns
// off while any overlay exists.
func (e *Editor) CompleteDrawing(path []geo.LatLng) (*Overlay, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	if !e.drawingOn {
		return nil, xerrors.ErrDrawingDisabled
	}
	if len(path) < 3 {
		return nil, xerrors.ErrTooFewVertices
	}

	ov := &Overlay{
		ID:    ulid.Make().String(),
		State: StateDrawing,
		Path:  clonePath(path),
	}
	e.overlays = append(e.overlays, ov)
	e.drawingOn = false

	if e.settleDelay <= 0 {
		ov.State = StateLocked
	} else {
		id := ov.ID
		time.AfterFunc(e.settleDelay, func() { e.settle(id) })
	}
	return cloneOverlay(ov), nil
}

// settle promotes a drawing overlay to Locked once the grace delay elapses.
func (e *Editor) settle(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ov := e.find(id); ov != nil && ov.State == StateDrawing {
		ov.State = StateLocked
	}
}

// Toggle flips the lock state of the clicked overlay. All other overlays are
// forced to Locked first, so at most one overlay is ever Active.
func (e *Editor) Toggle(id string) (*Overlay, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	target := e.find(id)
	if target == nil {
		return nil, xerrors.ErrOverlayNotFound
	}

	for _, ov := range e.overlays {
		if ov.ID != id && ov.State == StateActive {
			ov.State = StateLocked
		}
	}

	if e.activeID == id {
		target.State = StateLocked
		e.activeID = ""
	} else {
		target.State = StateActive
		e.activeID = id
	}
	return cloneOverlay(target), nil
}

// DeleteActive removes the Active overlay from the collection. Drawing mode
// comes back only when the collection empties.
func (e *Editor) DeleteActive() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	if e.activeID == "" {
		return xerrors.ErrNoActiveOverlay
	}
	kept := e.overlays[:0]
	for _, ov := range e.overlays {
		if ov.ID != e.activeID {
			kept = append(kept, ov)
		}
	}
	e.overlays = kept
	e.activeID = ""
	if len(e.overlays) == 0 {
		e.drawingOn = true
	}
	return nil
}

// LoadSaved replaces the whole collection with a single Locked overlay
// reconstructed from stored vertices and returns the bounds to frame it.
func (e *Editor) LoadSaved(path []geo.LatLng) (*Overlay, geo.Bounds, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	if len(path) < 3 {
		return nil, geo.Bounds{}, xerrors.ErrTooFewVertices
	}
	ov := &Overlay{
		ID:    ulid.Make().String(),
		State: StateLocked,
		Path:  clonePath(path),
	}
	e.overlays = []*Overlay{ov}
	e.activeID = ""
	e.drawingOn = false

	bounds, _ := geo.BoundsOf(ov.Path)
	return cloneOverlay(ov), bounds, nil
}

// ActiveOverlay returns the single Active overlay, if any. Save is offered
// only while this returns true.
func (e *Editor) ActiveOverlay() (*Overlay, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.activeID == "" {
		return nil, false
	}
	ov := e.find(e.activeID)
	if ov == nil {
		return nil, false
	}
	return cloneOverlay(ov), true
}

// Overlays returns the overlay collection in insertion order.
func (e *Editor) Overlays() []*Overlay {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Overlay, 0, len(e.overlays))
	for _, ov := range e.overlays {
		out = append(out, cloneOverlay(ov))
	}
	return out
}

// DrawingEnabled reports whether a new polygon may be started.
func (e *Editor) DrawingEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drawingOn
}

// SetMapType switches the base-map render mode.
func (e *Editor) SetMapType(t MapType) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()
	e.mapType = t
}

func (e *Editor) MapType() MapType {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mapType
}

// SetLocation records the last known device position. A failed lookup never
// reaches here; the client reports it and the map center stays put.
func (e *Editor) SetLocation(p geo.LatLng) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()
	loc := p
	e.lastLocation = &loc
}

func (e *Editor) Location() (geo.LatLng, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastLocation == nil {
		return geo.LatLng{}, false
	}
	return *e.lastLocation, true
}

// SetFullscreen records the fullscreen flag.
func (e *Editor) SetFullscreen(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()
	e.fullscreen = on
}

func (e *Editor) Fullscreen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fullscreen
}

// IdleSince reports the last time a gesture touched this session.
func (e *Editor) IdleSince() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastUsed
}

func (e *Editor) find(id string) *Overlay {
	for _, ov := range e.overlays {
		if ov.ID == id {
			return ov
		}
	}
	return nil
}

func clonePath(path []geo.LatLng) []geo.LatLng {
	out := make([]geo.LatLng, len(path))
	copy(out, path)
	return out
}

func cloneOverlay(ov *Overlay) *Overlay {
	return &Overlay{ID: ov.ID, State: ov.State, Path: clonePath(ov.Path)}
}
