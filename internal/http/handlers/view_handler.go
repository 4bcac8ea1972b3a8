// README: Map view handlers: open/retry, inputs, device location, placemark, client events, state.
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"bantay/internal/geolocation"
	"bantay/internal/http/middleware"
	"bantay/internal/modules/mapview"
	"bantay/internal/types"
)

type ViewHandler struct {
	views *mapview.Manager
	log   zerolog.Logger
}

func NewViewHandler(views *mapview.Manager, log zerolog.Logger) *ViewHandler {
	return &ViewHandler{views: views, log: log}
}

// view resolves :id and checks the caller owns it.
func (h *ViewHandler) view(c *gin.Context) (*mapview.View, bool) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid view id")
		return nil, false
	}
	v, err := h.views.Get(id)
	if err != nil {
		writeViewError(c, err)
		return nil, false
	}
	if v.Owner != middleware.CallerUID(c) {
		writeViewError(c, errForbidden)
		return nil, false
	}
	return v, true
}

// state answers with the view document, or 503 when the engine is down.
func (h *ViewHandler) state(c *gin.Context, v *mapview.View, status int) {
	st := v.State()
	if st.Status == mapview.StatusError {
		writeJSON(c, http.StatusServiceUnavailable, gin.H{"error": st.Error, "retry": true, "view": st})
		return
	}
	writeJSON(c, status, st)
}

type openViewReq struct {
	Style  string `json:"style"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (h *ViewHandler) Open(c *gin.Context) {
	var req openViewReq
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	v, err := h.views.Open(c.Request.Context(), mapview.OpenRequest{
		Style:  strings.TrimSpace(req.Style),
		Width:  req.Width,
		Height: req.Height,
		Owner:  middleware.CallerUID(c),
	})
	if err != nil {
		_ = c.Error(err)
	}
	h.state(c, v, http.StatusCreated)
}

func (h *ViewHandler) Retry(c *gin.Context) {
	v, ok := h.view(c)
	if !ok {
		return
	}
	if err := v.Retry(c.Request.Context()); err != nil {
		_ = c.Error(err)
	}
	h.state(c, v, http.StatusOK)
}

func (h *ViewHandler) Get(c *gin.Context) {
	v, ok := h.view(c)
	if !ok {
		return
	}
	h.state(c, v, http.StatusOK)
}

func (h *ViewHandler) Delete(c *gin.Context) {
	v, ok := h.view(c)
	if !ok {
		return
	}
	if err := h.views.Close(v.ID); err != nil {
		writeViewError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ViewHandler) SetInputs(c *gin.Context) {
	v, ok := h.view(c)
	if !ok {
		return
	}
	var u mapview.Update
	if err := c.ShouldBindJSON(&u); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := v.SetInputs(c.Request.Context(), u, middleware.CanEdit(c)); err != nil {
		writeViewError(c, err)
		return
	}
	h.state(c, v, http.StatusOK)
}

type setStyleReq struct {
	Style string `json:"style"`
}

func (h *ViewHandler) SetStyle(c *gin.Context) {
	v, ok := h.view(c)
	if !ok {
		return
	}
	var req setStyleReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Style) == "" {
		writeError(c, http.StatusBadRequest, "missing style")
		return
	}
	if err := v.SetStyle(c.Request.Context(), strings.TrimSpace(req.Style)); err != nil {
		_ = c.Error(err)
	}
	h.state(c, v, http.StatusOK)
}

// locationReq carries either a fix or the browser's failure reason.
type locationReq struct {
	Lat       *float64  `json:"lat"`
	Lng       *float64  `json:"lng"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error"`
}

func (h *ViewHandler) ReportLocation(c *gin.Context) {
	v, ok := h.view(c)
	if !ok {
		return
	}
	var req locationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Error != "" {
		v.ReportLocationError(req.Error)
		c.Status(http.StatusNoContent)
		return
	}
	if req.Lat == nil || req.Lng == nil {
		writeError(c, http.StatusBadRequest, "missing lat/lng")
		return
	}
	err := v.ReportLocation(geolocation.Position{
		Point:     types.Point{Lat: *req.Lat, Lng: *req.Lng},
		Accuracy:  req.Accuracy,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		writeViewError(c, err)
		return
	}
	h.state(c, v, http.StatusOK)
}

type placemarkReq struct {
	Active bool `json:"active"`
}

func (h *ViewHandler) SetPlacemark(c *gin.Context) {
	v, ok := h.view(c)
	if !ok {
		return
	}
	var req placemarkReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := v.SetPlacemark(req.Active); err != nil {
		writeViewError(c, err)
		return
	}
	h.state(c, v, http.StatusOK)
}

// eventReq is a mapview.Event, or a popup button press when Kind is "action".
type eventReq struct {
	mapview.Event
	Action string `json:"action"`
	PinID  string `json:"pinId"`
}

const eventAction = "action"

func (h *ViewHandler) Dispatch(c *gin.Context) {
	v, ok := h.view(c)
	if !ok {
		return
	}
	var req eventReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	var err error
	if req.Kind == eventAction {
		err = v.HandleAction(req.Action, req.PinID)
	} else {
		err = v.Dispatch(req.Event)
	}
	if err != nil {
		writeViewError(c, err)
		return
	}
	h.state(c, v, http.StatusOK)
}

type destinationReq struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label"`
}

func (h *ViewHandler) SelectDestination(c *gin.Context) {
	v, ok := h.view(c)
	if !ok {
		return
	}
	var req destinationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	p := types.Point{Lat: req.Lat, Lng: req.Lng}
	if err := v.SelectDestination(p, strings.TrimSpace(req.Label)); err != nil {
		writeViewError(c, err)
		return
	}
	h.state(c, v, http.StatusOK)
}
