package models

import "time"

// Event types written to the audit log.
const (
	EventLight        = "LIGHT"
	EventFan          = "FAN"
	EventTelemetry    = "TELEMETRY"
	EventWeather      = "WEATHER"
	EventWeatherError = "WEATHER_ERROR"
	EventHeartbeat    = "HEARTBEAT"
)

// DeviceEvent is a single audit log entry. The log is history only; state is never rebuilt from it.
type DeviceEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // LIGHT | FAN | TELEMETRY | WEATHER | WEATHER_ERROR | HEARTBEAT
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
