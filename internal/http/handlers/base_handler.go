// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bantay/internal/annotation"
	"bantay/internal/geo"
	"bantay/internal/geolocation"
	"bantay/internal/mapengine"
	"bantay/internal/modules/mapview"
)

var errForbidden = errors.New("view belongs to another user")

type errorResponse struct {
	Error string `json:"error"`
	// Retry is set when the map engine failed to start and the client
	// should call the retry endpoint.
	Retry bool `json:"retry,omitempty"`
}

// isValidID accepts the uuid view ids the manager issues.
func isValidID(v string) bool {
	_, err := uuid.Parse(v)
	return err == nil
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeViewError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, mapview.ErrViewNotFound), errors.Is(err, annotation.ErrDisposed):
		writeError(c, http.StatusNotFound, mapview.ErrViewNotFound.Error())
	case errors.Is(err, errForbidden), errors.Is(err, annotation.ErrNotAllowed):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, mapview.ErrEngineUnavailable),
		errors.Is(err, mapengine.ErrStyleLoad),
		errors.Is(err, mapengine.ErrLoadTimeout):
		writeJSON(c, http.StatusServiceUnavailable, errorResponse{Error: err.Error(), Retry: true})
	case errors.Is(err, mapview.ErrBadEvent),
		errors.Is(err, annotation.ErrUnknownAction),
		errors.Is(err, geo.ErrInvalidCoordinates),
		errors.Is(err, mapengine.ErrNotFound):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, geolocation.ErrTimeout), errors.Is(err, geolocation.ErrUnavailable):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
