package field

import "fieldmapper-service/internal/geo"

// SaveRequest persists a finished polygon directly by its vertex path.
type SaveRequest struct {
	Coordinates []geo.LatLng `json:"coordinates" binding:"required"`
}

// SaveResponse reports the generated record key and computed area.
type SaveResponse struct {
	ID   string  `json:"id"`
	Area float64 `json:"area"`
}

// ListResponse is the dashboard feed: saved polygons in store iteration
// order. An empty store path yields an empty list, not an error.
type ListResponse struct {
	Fields []Record `json:"fields"`
	Total  int      `json:"total"`
}
