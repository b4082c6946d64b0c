package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const errWSUnavailable = "websocket unavailable"

// upgrader builds the HTTP -> WebSocket upgrader. Browsers must come from an
// allowed origin; clients without an Origin header (ESP boards, CLIs) are accepted.
func (h *Handler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || h.isAllowedOrigin(origin)
		},
	}
}

// wsConnect upgrades the connection and hands it to the hub, which sends the
// initial status_update and every subsequent change.
func (h *Handler) wsConnect(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errWSUnavailable})
		return
	}

	up := h.upgrader()
	conn, err := up.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	h.hub.Serve(c.Request.Context(), conn)
}
