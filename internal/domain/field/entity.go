package field

import "fieldmapper-service/internal/geo"

// Record is one saved polygon under users/{uid}/polygons/{key}. Records are
// written exactly once per completed draw-then-save action and never updated.
type Record struct {
	ID          string       `json:"id,omitempty"` // store-generated key, set on read
	UserID      string       `json:"userId"`
	Coordinates []geo.LatLng `json:"coordinates"`
	Area        float64      `json:"area"` // hectares
	UserEmail   string       `json:"userEmail"`
	CreatedAt   string       `json:"createdAt"`
}
