// internal/handlers/field/field_handler.go
package field

import (
	"net/http"

	"fieldmapper-service/internal/domain/field"
	"fieldmapper-service/internal/middleware"
	"fieldmapper-service/internal/pkg/response"
	fieldService "fieldmapper-service/internal/service/field"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type FieldHandler struct {
	fieldService *fieldService.FieldService
	logger       *zap.Logger
}

func NewFieldHandler(svc *fieldService.FieldService, logger *zap.Logger) *FieldHandler {
	return &FieldHandler{
		fieldService: svc,
		logger:       logger,
	}
}

// Save persists a polygon boundary for the signed-in user
func (h *FieldHandler) Save(c *gin.Context) {
	uid := middleware.MustGetUID(c)
	email, _ := middleware.GetEmail(c)

	var req field.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	record, err := h.fieldService.SaveField(c.Request.Context(), uid, email, req.Coordinates)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "field saved", field.SaveResponse{
		ID:   record.ID,
		Area: record.Area,
	})
}

// List returns the user's saved fields for the dashboard
func (h *FieldHandler) List(c *gin.Context) {
	uid := middleware.MustGetUID(c)

	records, err := h.fieldService.List(c.Request.Context(), uid)
	if err != nil {
		h.logger.Error("failed to list fields", zap.String("uid", uid), zap.Error(err))
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "fields", field.ListResponse{
		Fields: records,
		Total:  len(records),
	})
}

// Get returns one saved field by its key
func (h *FieldHandler) Get(c *gin.Context) {
	uid := middleware.MustGetUID(c)

	record, err := h.fieldService.Get(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "field", record)
}
