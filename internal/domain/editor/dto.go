// internal/domain/editor/dto.go
package editor

import "fieldmapper-service/internal/geo"

// CompleteDrawingRequest closes a drawn boundary into an overlay.
type CompleteDrawingRequest struct {
	Coordinates []geo.LatLng `json:"coordinates" binding:"required"`
}

// LoadFieldRequest loads one saved field into the editor.
type LoadFieldRequest struct {
	FieldID string `json:"field_id" binding:"required"`
}

// LocationRequest records the device position shown on the map.
type LocationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// MapTypeRequest switches the base layer.
type MapTypeRequest struct {
	MapType string `json:"map_type" binding:"required"`
}

// FullscreenRequest toggles the fullscreen flag.
type FullscreenRequest struct {
	Fullscreen bool `json:"fullscreen"`
}

// OverlayView is one polygon as the map page renders it.
type OverlayView struct {
	ID    string       `json:"id"`
	State string       `json:"state"`
	Path  []geo.LatLng `json:"path"`
	// Area in hectares
	Area float64 `json:"area"`
}

// SessionView is the full editing-session state for one map page.
type SessionView struct {
	ID             string        `json:"id"`
	Overlays       []OverlayView `json:"overlays"`
	ActiveID       string        `json:"active_id,omitempty"`
	DrawingEnabled bool          `json:"drawing_enabled"`
	MapType        string        `json:"map_type"`
	Fullscreen     bool          `json:"fullscreen"`
	Location       *geo.LatLng   `json:"location,omitempty"`
}

// LoadFieldResponse carries the loaded overlay and the viewport that fits it.
type LoadFieldResponse struct {
	Overlay OverlayView `json:"overlay"`
	Bounds  geo.Bounds  `json:"bounds"`
	Center  geo.LatLng  `json:"center"`
}
