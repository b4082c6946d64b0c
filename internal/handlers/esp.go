package handlers

import (
	"errors"
	"net/http"
	"strings"

	"smart_home/internal/repository"

	"github.com/gin-gonic/gin"
)

const errEspIDRequired = "espId required"

// HeartbeatRequest is the payload ESP boards post periodically.
type HeartbeatRequest struct {
	EspID string `json:"espId" example:"esp32"`
}

// @Summary      ESP heartbeat
// @Tags         esp
// @Accept       json
// @Produce      json
// @Param        body  body      HeartbeatRequest  true  "Board id"
// @Success      200   {object}  map[string]bool
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/esp/heartbeat [post]
func (h *Handler) espHeartbeat(c *gin.Context) {
	var req HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, errEspIDRequired, "esp_heartbeat_bad_request", err)
		return
	}
	if err := h.services.Devices.Heartbeat(c.Request.Context(), req.EspID); err != nil {
		if errors.Is(err, repository.ErrInvalidInput) {
			h.badRequest(c, errEspIDRequired, "esp_heartbeat_bad_request", err)
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to record heartbeat", "esp_heartbeat_failed", err, "esp_id", req.EspID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// @Summary      ESP command poll
// @Description  Light and fan targets for the board, derived from the current state.
// @Tags         esp
// @Produce      json
// @Param        espId  query     string  true  "Board id"
// @Success      200    {object}  models.EspCommand
// @Failure      400    {object}  map[string]string
// @Router       /api/esp/command [get]
func (h *Handler) espCommand(c *gin.Context) {
	if strings.TrimSpace(c.Query("espId")) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errEspIDRequired})
		return
	}
	c.JSON(http.StatusOK, h.services.Monitoring.EspCommand(c.Request.Context()))
}
