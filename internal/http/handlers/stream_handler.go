// README: WebSocket push of the view state document.
package handlers

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	ws "github.com/gorilla/websocket"
)

const (
	streamInterval = 250 * time.Millisecond
	pingInterval   = 30 * time.Second
	writeWait      = 10 * time.Second
)

var upgrader = ws.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 16 * 1024}

// Stream upgrades to a WebSocket and sends the view state each time it
// changes. Queued pin actions are drained into the stream like a GET would.
func (h *ViewHandler) Stream(c *gin.Context) {
	v, ok := h.view(c)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("view", v.ID).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	// Client frames are ignored; reading only detects the close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	tick := time.NewTicker(streamInterval)
	defer tick.Stop()
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	var last []byte
	for {
		if _, err := h.views.Get(v.ID); err != nil {
			_ = conn.WriteControl(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, "view closed"), time.Now().Add(writeWait))
			return
		}
		data, err := json.Marshal(v.State())
		if err != nil {
			h.log.Error().Err(err).Str("view", v.ID).Msg("encode view state")
			return
		}
		if !bytes.Equal(data, last) {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
				h.log.Debug().Err(err).Str("view", v.ID).Msg("websocket write")
				return
			}
			last = data
		}

		select {
		case <-gone:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			if err := conn.WriteControl(ws.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-tick.C:
		}
	}
}
