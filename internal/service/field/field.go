// internal/service/field/field.go
package field

import (
	"context"
	"fmt"
	"time"

	"fieldmapper-service/internal/domain/field"
	"fieldmapper-service/internal/geo"
	xerrors "fieldmapper-service/internal/pkg/errors"
	"fieldmapper-service/internal/store"

	"go.uber.org/zap"
)

// FieldService owns the saved-field collection at users/{uid}/polygons.
type FieldService struct {
	records store.Store
	logger  *zap.Logger
}

func NewFieldService(records store.Store, logger *zap.Logger) *FieldService {
	return &FieldService{
		records: records,
		logger:  logger,
	}
}

func polygonsPath(uid string) string {
	return "users/" + uid + "/polygons"
}

// SaveField computes the geodesic area of the boundary and appends the
// record to the user's collection. The returned record carries the
// store-generated key.
func (s *FieldService) SaveField(ctx context.Context, uid, email string, coordinates []geo.LatLng) (*field.Record, error) {
	if uid == "" {
		return nil, xerrors.ErrUnauthorized
	}
	if len(coordinates) < 3 {
		return nil, xerrors.ErrTooFewVertices
	}

	record := &field.Record{
		UserID:      uid,
		Coordinates: coordinates,
		Area:        geo.AreaHectares(coordinates),
		UserEmail:   email,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}

	key, err := s.records.Push(ctx, polygonsPath(uid), record)
	if err != nil {
		return nil, fmt.Errorf("failed to save field: %w", err)
	}
	record.ID = key

	s.logger.Info("field saved",
		zap.String("uid", uid),
		zap.String("field_id", key),
		zap.Float64("area_ha", record.Area))

	return record, nil
}

// List returns the user's saved fields in insertion order. A user with no
// saved fields gets an empty list, not an error.
func (s *FieldService) List(ctx context.Context, uid string) ([]field.Record, error) {
	if uid == "" {
		return nil, xerrors.ErrUnauthorized
	}

	snap, err := s.records.ReadOnce(ctx, polygonsPath(uid))
	if err != nil {
		return nil, fmt.Errorf("failed to load fields: %w", err)
	}

	children, err := snap.Children()
	if err != nil {
		return nil, fmt.Errorf("failed to decode fields: %w", err)
	}

	records := make([]field.Record, 0, len(children))
	for _, child := range children {
		var rec field.Record
		if err := store.NewSnapshot(child.Key, child.Value).Decode(&rec); err != nil {
			s.logger.Warn("skipping malformed field record",
				zap.String("uid", uid),
				zap.String("field_id", child.Key),
				zap.Error(err))
			continue
		}
		rec.ID = child.Key
		records = append(records, rec)
	}

	return records, nil
}

// Get loads a single saved field by its key.
func (s *FieldService) Get(ctx context.Context, uid, id string) (*field.Record, error) {
	if uid == "" {
		return nil, xerrors.ErrUnauthorized
	}

	snap, err := s.records.ReadOnce(ctx, polygonsPath(uid)+"/"+id)
	if err != nil {
		return nil, fmt.Errorf("failed to load field: %w", err)
	}
	if !snap.Exists() {
		return nil, xerrors.ErrNotFound
	}

	var rec field.Record
	if err := snap.Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode field: %w", err)
	}
	rec.ID = id

	return &rec, nil
}
