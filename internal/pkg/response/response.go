// internal/pkg/response/response.go
package response

import (
	"errors"
	"net/http"

	xerrors "fieldmapper-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
)

// Response defines the standard API response format.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success sends a successful response with a message and optional data.
func Success(c *gin.Context, status int, message string, data interface{}) {
	if status == 0 {
		status = http.StatusOK
	}

	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends a standardized error response.
func Error(c *gin.Context, code int, message string, err error, data ...interface{}) {
	// CRITICAL: Abort FIRST before writing response
	c.Abort()

	response := Response{
		Success: false,
		Message: message,
	}

	if err != nil {
		response.Error = err.Error()
	}

	if len(data) > 0 {
		response.Data = data[0]
	}

	c.JSON(code, response)
}

// FromError maps a service error onto an HTTP status based on the sentinel
// it wraps, then sends it. Unknown errors become 500 with a generic message
// so internals never leak to the client.
func FromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, xerrors.ErrInvalidInput),
		errors.Is(err, xerrors.ErrTooFewVertices),
		errors.Is(err, xerrors.ErrDrawingDisabled),
		errors.Is(err, xerrors.ErrNoActiveOverlay):
		Error(c, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, xerrors.ErrInvalidCredentials),
		errors.Is(err, xerrors.ErrUnauthorized),
		errors.Is(err, xerrors.ErrSessionExpired):
		Error(c, http.StatusUnauthorized, err.Error(), err)
	case errors.Is(err, xerrors.ErrForbidden):
		Error(c, http.StatusForbidden, err.Error(), err)
	case errors.Is(err, xerrors.ErrNotFound),
		errors.Is(err, xerrors.ErrAccountNotFound),
		errors.Is(err, xerrors.ErrOverlayNotFound),
		errors.Is(err, xerrors.ErrEditorNotFound):
		Error(c, http.StatusNotFound, err.Error(), err)
	case errors.Is(err, xerrors.ErrDuplicateAccount):
		Error(c, http.StatusConflict, err.Error(), err)
	case errors.Is(err, xerrors.ErrMapLoad):
		Error(c, http.StatusServiceUnavailable, err.Error(), err)
	case errors.Is(err, xerrors.ErrProviderExchange):
		Error(c, http.StatusBadGateway, err.Error(), err)
	default:
		Error(c, http.StatusInternalServerError, "internal server error", nil)
	}
}

// ValidationError sends a 400 Bad Request response for invalid input.
func ValidationError(c *gin.Context, message string, err error) {
	Error(c, http.StatusBadRequest, message, err)
}

// Unauthorized sends a 401 Unauthorized response.
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message, nil)
}

// Forbidden sends a 403 Forbidden response.
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message, nil)
}

// NotFound sends a 404 Not Found response.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message, nil)
}
