// internal/handlers/profile/profile_handler.go
package profile

import (
	"encoding/json"
	"net/http"

	"fieldmapper-service/internal/middleware"
	"fieldmapper-service/internal/pkg/response"
	"fieldmapper-service/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProfileHandler serves the profile page view: the user record as stored,
// with the polygon collection reduced to a count.
type ProfileHandler struct {
	records store.Store
	logger  *zap.Logger
}

func NewProfileHandler(records store.Store, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		records: records,
		logger:  logger,
	}
}

// Get returns the signed-in user's profile document
func (h *ProfileHandler) Get(c *gin.Context) {
	uid := middleware.MustGetUID(c)

	snap, err := h.records.ReadOnce(c.Request.Context(), "users/"+uid)
	if err != nil {
		h.logger.Error("failed to load profile", zap.String("uid", uid), zap.Error(err))
		response.FromError(c, err)
		return
	}

	profile := map[string]json.RawMessage{}
	if snap.Exists() {
		if err := snap.Decode(&profile); err != nil {
			response.FromError(c, err)
			return
		}
	}

	fieldsTotal := 0
	if polygons, ok := profile["polygons"]; ok {
		var keyed map[string]json.RawMessage
		if err := json.Unmarshal(polygons, &keyed); err == nil {
			fieldsTotal = len(keyed)
		}
		delete(profile, "polygons")
	}

	response.Success(c, http.StatusOK, "profile", gin.H{
		"uid":          uid,
		"profile":      profile,
		"fields_total": fieldsTotal,
	})
}
