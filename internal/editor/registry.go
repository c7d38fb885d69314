package editor

import (
	"context"
	"sync"
	"time"

	xerrors "fieldmapper-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// Registry tracks live editor sessions. Sessions are bound to a page visit;
// anything the client forgets to close is swept after idleTTL.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Editor

	settleDelay time.Duration
	idleTTL     time.Duration
	logger      *zap.Logger
}

func NewRegistry(settleDelay, idleTTL time.Duration, logger *zap.Logger) *Registry {
	return &Registry{
		sessions:    make(map[string]*Editor),
		settleDelay: settleDelay,
		idleTTL:     idleTTL,
		logger:      logger,
	}
}

// Open creates a new editor session and returns it.
func (r *Registry) Open() *Editor {
	e := New(r.settleDelay)
	r.mu.Lock()
	r.sessions[e.ID()] = e
	r.mu.Unlock()
	return e
}

// Get returns the editor session with the given ID.
func (r *Registry) Get(id string) (*Editor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, xerrors.ErrEditorNotFound
	}
	return e, nil
}

// Close discards an editor session. Closing twice is harmless.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Run sweeps idle sessions until the context is cancelled.
func (r *Registry) Run(ctx context.Context) {
	if r.idleTTL <= 0 {
		return
	}
	ticker := time.NewTicker(r.idleTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *Registry) sweep() {
	cutoff := time.Now().Add(-r.idleTTL)
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.sessions {
		if e.IdleSince().Before(cutoff) {
			delete(r.sessions, id)
			r.logger.Info("swept idle editor session", zap.String("editor_id", id))
		}
	}
}
