// internal/handlers/mapcfg/map_handler.go
package mapcfg

import (
	"net/http"

	"fieldmapper-service/internal/geo"
	xerrors "fieldmapper-service/internal/pkg/errors"
	"fieldmapper-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// MapConfig is what the map page needs to boot: the tile provider key and
// the viewport to open on before geolocation resolves.
type MapConfig struct {
	APIKey        string     `json:"api_key"`
	DefaultCenter geo.LatLng `json:"default_center"`
	DefaultZoom   int        `json:"default_zoom"`
	MapType       string     `json:"map_type"`
}

type MapHandler struct {
	config MapConfig
}

func NewMapHandler(config MapConfig) *MapHandler {
	return &MapHandler{config: config}
}

// Get returns the map bootstrap config. Without a provider key the map
// cannot load, which the page reports rather than rendering blank tiles.
func (h *MapHandler) Get(c *gin.Context) {
	if h.config.APIKey == "" {
		response.FromError(c, xerrors.ErrMapLoad)
		return
	}

	response.Success(c, http.StatusOK, "map config", h.config)
}
