package handlers

import (
	"errors"
	"io"
	"math"
	"net/http"

	"smart_home/internal/models"
	"smart_home/internal/repository"
	"smart_home/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK   = "ok"
	bannerText = "Smart Home backend ✅"

	errInvalidStatus = "Invalid status. Expected boolean."
	errInvalidSpeed  = "Invalid speed. Expected integer 0..5."

	// maxTelemetryBody caps ESP payloads; real reports are a few dozen bytes.
	maxTelemetryBody = 1 << 16
)

// LightRequest is the payload of POST /api/light.
type LightRequest struct {
	// Desired light state
	Status *bool `json:"status" example:"true"`
}

// FanRequest is the payload of POST /api/fan. Speed is decoded as a number so
// that non-integers can be rejected explicitly.
type FanRequest struct {
	// Fan speed, integer 0..5
	Speed *float64 `json:"speed" example:"3"`
}

// @Summary      Banner
// @Tags         system
// @Produce      plain
// @Success      200  {string}  string
// @Router       / [get]
func (h *Handler) banner(c *gin.Context) {
	c.String(http.StatusOK, bannerText)
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Get current state
// @Description  Refreshes the weather first when it is missing or stale.
// @Tags         devices
// @Produce      json
// @Success      200  {object}  models.DeviceState
// @Router       /api/status [get]
func (h *Handler) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Monitoring.GetStatus(c.Request.Context()))
}

// @Summary      Switch the light
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        body  body      LightRequest  true  "Light payload"
// @Success      200   {object}  map[string]interface{}  "success, lightOn"
// @Failure      400   {object}  map[string]string
// @Router       /api/light [post]
func (h *Handler) setLight(c *gin.Context) {
	var req LightRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == nil {
		h.badRequest(c, errInvalidStatus, "light_bad_request", err)
		return
	}
	st := h.services.Devices.SetLight(c.Request.Context(), *req.Status, service.SourceREST)
	c.JSON(http.StatusOK, gin.H{"success": true, "lightOn": st.LightOn})
}

// @Summary      Set fan speed
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        body  body      FanRequest  true  "Fan payload"
// @Success      200   {object}  map[string]interface{}  "success, fanSpeed"
// @Failure      400   {object}  map[string]string
// @Router       /api/fan [post]
func (h *Handler) setFan(c *gin.Context) {
	var req FanRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Speed == nil {
		h.badRequest(c, errInvalidSpeed, "fan_bad_request", err)
		return
	}
	speed := *req.Speed
	if speed != math.Trunc(speed) || speed < models.MinFanSpeed || speed > models.MaxFanSpeed {
		h.badRequest(c, errInvalidSpeed, "fan_bad_request", nil, "speed", speed)
		return
	}
	st, err := h.services.Devices.SetFanSpeed(c.Request.Context(), int(speed), service.SourceREST)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidInput) {
			h.badRequest(c, errInvalidSpeed, "fan_bad_request", err)
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to set fan speed", "fan_set_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "fanSpeed": st.FanSpeed})
}

// @Summary      Submit ESP telemetry
// @Description  Tolerant merge: malformed or missing fields are ignored, the request is never rejected.
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        body  body      models.Telemetry  false  "tankLevel, pumpOn, smokeDetected"
// @Success      200   {object}  map[string]bool
// @Router       /api/telemetry-update [post]
// @Router       /api/update [post]
func (h *Handler) telemetryUpdate(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxTelemetryBody))
	if err != nil && h.log != nil {
		h.log.Warnw("telemetry_body_read_failed", "err", err)
	}
	h.services.Devices.ApplyTelemetry(c.Request.Context(), models.ParseTelemetry(raw), service.SourceREST)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) badRequest(c *gin.Context, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Infow(logKey, fields...)
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": userMsg})
}

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}
