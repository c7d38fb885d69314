// internal/handlers/editor/editor_handler.go
package editor

import (
	"net/http"

	editordto "fieldmapper-service/internal/domain/editor"
	"fieldmapper-service/internal/editor"
	"fieldmapper-service/internal/geo"
	"fieldmapper-service/internal/middleware"
	xerrors "fieldmapper-service/internal/pkg/errors"
	"fieldmapper-service/internal/pkg/response"
	fieldService "fieldmapper-service/internal/service/field"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EditorHandler exposes the map page's editing session: drawing, locking,
// toggling and deleting polygons, loading saved fields and the viewport
// state that goes with them.
type EditorHandler struct {
	registry *editor.Registry
	fields   *fieldService.FieldService
	logger   *zap.Logger
}

func NewEditorHandler(registry *editor.Registry, fields *fieldService.FieldService, logger *zap.Logger) *EditorHandler {
	return &EditorHandler{
		registry: registry,
		fields:   fields,
		logger:   logger,
	}
}

func overlayView(ov *editor.Overlay) editordto.OverlayView {
	return editordto.OverlayView{
		ID:    ov.ID,
		State: string(ov.State),
		Path:  ov.Path,
		Area:  geo.AreaHectares(ov.Path),
	}
}

func sessionView(e *editor.Editor) editordto.SessionView {
	view := editordto.SessionView{
		ID:             e.ID(),
		Overlays:       []editordto.OverlayView{},
		DrawingEnabled: e.DrawingEnabled(),
		MapType:        string(e.MapType()),
		Fullscreen:     e.Fullscreen(),
	}
	for _, ov := range e.Overlays() {
		view.Overlays = append(view.Overlays, overlayView(ov))
	}
	if active, ok := e.ActiveOverlay(); ok {
		view.ActiveID = active.ID
	}
	if loc, ok := e.Location(); ok {
		view.Location = &loc
	}
	return view
}

// Open starts a fresh editing session
func (h *EditorHandler) Open(c *gin.Context) {
	e := h.registry.Open()

	h.logger.Info("editor session opened",
		zap.String("uid", middleware.MustGetUID(c)),
		zap.String("session", e.ID()))

	response.Success(c, http.StatusCreated, "session opened", sessionView(e))
}

// Get returns the current session state
func (h *EditorHandler) Get(c *gin.Context) {
	e, err := h.registry.Get(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "session", sessionView(e))
}

// Close discards a session
func (h *EditorHandler) Close(c *gin.Context) {
	h.registry.Close(c.Param("id"))
	response.Success(c, http.StatusOK, "session closed", nil)
}

// CompleteDrawing closes a drawn boundary into a locked overlay
func (h *EditorHandler) CompleteDrawing(c *gin.Context) {
	e, err := h.registry.Get(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	var req editordto.CompleteDrawingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	overlay, err := e.CompleteDrawing(req.Coordinates)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "overlay created", overlayView(overlay))
}

// Toggle flips one overlay between locked and active
func (h *EditorHandler) Toggle(c *gin.Context) {
	e, err := h.registry.Get(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	overlay, err := e.Toggle(c.Param("overlayId"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "overlay toggled", overlayView(overlay))
}

// DeleteActive removes the active overlay
func (h *EditorHandler) DeleteActive(c *gin.Context) {
	e, err := h.registry.Get(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	if err := e.DeleteActive(); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "overlay deleted", sessionView(e))
}

// LoadField replaces the session's polygons with one saved field
func (h *EditorHandler) LoadField(c *gin.Context) {
	uid := middleware.MustGetUID(c)

	e, err := h.registry.Get(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	var req editordto.LoadFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	record, err := h.fields.Get(c.Request.Context(), uid, req.FieldID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	overlay, bounds, err := e.LoadSaved(record.Coordinates)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "field loaded", editordto.LoadFieldResponse{
		Overlay: overlayView(overlay),
		Bounds:  bounds,
		Center:  bounds.Center(),
	})
}

// SaveActive persists the session's active overlay as a saved field
func (h *EditorHandler) SaveActive(c *gin.Context) {
	uid := middleware.MustGetUID(c)
	email, _ := middleware.GetEmail(c)

	e, err := h.registry.Get(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	active, ok := e.ActiveOverlay()
	if !ok {
		response.FromError(c, xerrors.ErrNoActiveOverlay)
		return
	}

	record, err := h.fields.SaveField(c.Request.Context(), uid, email, active.Path)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "field saved", record)
}

// SetLocation records the device position for the session
func (h *EditorHandler) SetLocation(c *gin.Context) {
	e, err := h.registry.Get(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	var req editordto.LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	e.SetLocation(geo.LatLng{Lat: req.Lat, Lng: req.Lng})
	response.Success(c, http.StatusOK, "location updated", nil)
}

// SetMapType switches the base layer for the session
func (h *EditorHandler) SetMapType(c *gin.Context) {
	e, err := h.registry.Get(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	var req editordto.MapTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	e.SetMapType(editor.MapType(req.MapType))
	response.Success(c, http.StatusOK, "map type updated", sessionView(e))
}

// SetFullscreen toggles the fullscreen flag for the session
func (h *EditorHandler) SetFullscreen(c *gin.Context) {
	e, err := h.registry.Get(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	var req editordto.FullscreenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	e.SetFullscreen(req.Fullscreen)
	response.Success(c, http.StatusOK, "fullscreen updated", sessionView(e))
}
