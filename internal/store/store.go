package store

import (
	"context"
	"encoding/json"
	"fmt"

	xerrors "fieldmapper-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Store is the record store gateway: typed read/write/subscribe operations
// against the hierarchical store.
type Store interface {
	// ReadOnce returns the current value at path. Absence is a snapshot
	// with Exists() == false, not an error.
	ReadOnce(ctx context.Context, path string) (Snapshot, error)
	// Write replaces the value at path and acknowledges on durability.
	Write(ctx context.Context, path string, value any) error
	// Merge shallow-merges the fields of value into the record at path,
	// creating it if absent. Existing fields not named in value survive.
	Merge(ctx context.Context, path string, value any) error
	// Push appends value under path with a store-generated key, unique
	// within the parent, and returns the key.
	Push(ctx context.Context, path string, value any) (string, error)
	// Subscribe yields the current value followed by a snapshot on every
	// change at or under path, until cancel is called. Cancel exactly once.
	Subscribe(path string) (<-chan Snapshot, func())
}

// RecordStore is the Postgres-backed Store. Each leaf path is one jsonb row;
// reads assemble a path's own row with everything beneath it. Change fan-out
// goes through a Notifier so views subscribed to a parent path see child
// writes.
type RecordStore struct {
	pool     *pgxpool.Pool
	notifier *Notifier
	logger   *zap.Logger
}

func NewRecordStore(pool *pgxpool.Pool, notifier *Notifier, logger *zap.Logger) *RecordStore {
	rs := &RecordStore{pool: pool, notifier: notifier, logger: logger}
	notifier.bind(rs)
	return rs
}

// EnsureSchema creates the records table if missing.
func (s *RecordStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS records (
			path       TEXT PRIMARY KEY,
			value      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure records schema: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS records_path_prefix_idx
		ON records (path text_pattern_ops)
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure records index: %w", err)
	}
	return nil
}

func (s *RecordStore) ReadOnce(ctx context.Context, path string) (Snapshot, error) {
	if err := ValidatePath(path); err != nil {
		return Snapshot{}, xerrors.Wrap(err, xerrors.ErrStoreRead.Error())
	}

	rows, err := s.pool.Query(ctx, `
		SELECT path, value FROM records
		WHERE path = $1 OR path LIKE $1 || '/%'
		ORDER BY path
	`, path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", xerrors.ErrStoreRead, err)
	}
	defer rows.Close()

	var stored []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.path, &r.value); err != nil {
			return Snapshot{}, fmt.Errorf("%w: %v", xerrors.ErrStoreRead, err)
		}
		stored = append(stored, r)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", xerrors.ErrStoreRead, err)
	}

	return NewSnapshot(path, assemble(path, stored)), nil
}

func (s *RecordStore) Write(ctx context.Context, path string, value any) error {
	if err := ValidatePath(path); err != nil {
		return xerrors.Wrap(err, xerrors.ErrStoreWrite.Error())
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", xerrors.ErrStoreWrite, err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO records (path, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (path) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, path, data)
	if err != nil {
		return fmt.Errorf("%w: %v", xerrors.ErrStoreWrite, err)
	}

	s.notifier.changed(path)
	return nil
}

func (s *RecordStore) Merge(ctx context.Context, path string, value any) error {
	if err := ValidatePath(path); err != nil {
		return xerrors.Wrap(err, xerrors.ErrStoreWrite.Error())
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", xerrors.ErrStoreWrite, err)
	}

	// jsonb || is a shallow merge: named fields replace, the rest survive
	_, err = s.pool.Exec(ctx, `
		INSERT INTO records (path, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (path) DO UPDATE SET value = records.value || EXCLUDED.value, updated_at = now()
	`, path, data)
	if err != nil {
		return fmt.Errorf("%w: %v", xerrors.ErrStoreWrite, err)
	}

	s.notifier.changed(path)
	return nil
}

func (s *RecordStore) Push(ctx context.Context, path string, value any) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", xerrors.Wrap(err, xerrors.ErrStoreWrite.Error())
	}
	key := ulid.Make().String()
	if err := s.Write(ctx, Join(path, key), value); err != nil {
		return "", err
	}
	return key, nil
}

func (s *RecordStore) Subscribe(path string) (<-chan Snapshot, func()) {
	return s.notifier.subscribe(path)
}
