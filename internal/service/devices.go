package service

import (
	"context"
	"fmt"
	"strings"

	"smart_home/internal/logger"
	"smart_home/internal/models"
	"smart_home/internal/repository"
)

type DevicesService struct {
	store  *repository.StateStore
	events repository.EventRepo
	log    *logger.Logger
}

func NewDevicesService(store *repository.StateStore, events repository.EventRepo, log *logger.Logger) *DevicesService {
	return &DevicesService{store: store, events: events, log: log}
}

// SetLight switches the light and logs LIGHT.
func (s *DevicesService) SetLight(ctx context.Context, on bool, source string) models.DeviceState {
	st := s.store.SetLight(on)
	s.record(ctx, models.DeviceEvent{
		Type:        models.EventLight,
		Description: "Light switched " + strings.ToLower(switchWord(on)),
		Metadata:    map[string]any{"light_on": on, "source": source},
	})
	return st
}

// SetFanSpeed sets the fan speed and logs FAN. Out-of-range speeds return
// repository.ErrInvalidInput and leave the state untouched.
func (s *DevicesService) SetFanSpeed(ctx context.Context, speed int, source string) (models.DeviceState, error) {
	st, err := s.store.SetFanSpeed(speed)
	if err != nil {
		return st, err
	}
	s.record(ctx, models.DeviceEvent{
		Type:        models.EventFan,
		Description: fmt.Sprintf("Fan speed set to %d", speed),
		Metadata:    map[string]any{"fan_speed": speed, "source": source},
	})
	return st, nil
}

// ApplyTelemetry merges a board report and logs TELEMETRY. Empty reports are
// still applied so every submission fans out a status update.
func (s *DevicesService) ApplyTelemetry(ctx context.Context, t models.Telemetry, source string) models.DeviceState {
	st := s.store.ApplyTelemetry(t)
	s.record(ctx, models.DeviceEvent{
		Type:        models.EventTelemetry,
		Description: "Telemetry received",
		Metadata: map[string]any{
			"tank_level":     st.TankLevel,
			"pump_on":        st.PumpOn,
			"smoke_detected": st.SmokeDetected,
			"source":         source,
		},
	})
	return st
}

// Heartbeat records that an ESP board checked in.
func (s *DevicesService) Heartbeat(ctx context.Context, espID string) error {
	espID = strings.TrimSpace(espID)
	if espID == "" {
		return fmt.Errorf("%w: espId required", repository.ErrInvalidInput)
	}
	if s.events == nil {
		return nil
	}
	return s.events.Append(ctx, models.DeviceEvent{
		Type:        models.EventHeartbeat,
		Description: "Heartbeat from " + espID,
		Metadata:    map[string]any{"esp_id": espID},
	})
}

// record appends to the audit log. The mutation has already been applied and
// broadcast, so a failed write is only logged.
func (s *DevicesService) record(ctx context.Context, e models.DeviceEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Append(ctx, e); err != nil && s.log != nil {
		s.log.Warnw("event_append_failed", "err", err, "type", e.Type)
	}
}

func switchWord(on bool) string {
	if on {
		return models.SwitchOn
	}
	return models.SwitchOff
}
