package handlers

import (
	"context"
	"sync"

	"smart_home/internal/models"
	"smart_home/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockDevices struct {
	mu sync.Mutex

	state        models.DeviceState
	fanErr       error
	heartbeatErr error

	lastTelemetry models.Telemetry
	lastSource    string
	lastEspID     string
	lightCalls    int
	fanCalls      int
	telemetryHits int
}

func (m *mockDevices) SetLight(ctx context.Context, on bool, source string) models.DeviceState {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lightCalls++
	m.lastSource = source
	m.state.LightOn = on
	return m.state
}

func (m *mockDevices) SetFanSpeed(ctx context.Context, speed int, source string) (models.DeviceState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fanCalls++
	m.lastSource = source
	if m.fanErr != nil {
		return m.state, m.fanErr
	}
	m.state.FanSpeed = speed
	return m.state, nil
}

func (m *mockDevices) ApplyTelemetry(ctx context.Context, t models.Telemetry, source string) models.DeviceState {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.telemetryHits++
	m.lastTelemetry = t
	m.lastSource = source
	return m.state
}

func (m *mockDevices) Heartbeat(ctx context.Context, espID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastEspID = espID
	return m.heartbeatErr
}

type mockMonitoring struct {
	state      models.DeviceState
	statusHits int
}

func (m *mockMonitoring) GetStatus(ctx context.Context) models.DeviceState {
	m.statusHits++
	return m.state
}

func (m *mockMonitoring) EspCommand(ctx context.Context) models.EspCommand {
	return models.NewEspCommand(m.state)
}

type mockEventLog struct {
	resp   []models.DeviceEvent
	err    error
	last   service.LogFilter
	called int
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.DeviceEvent, error) {
	m.called++
	m.last = f
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(s, nil, nil, []string{"http://localhost:3000"})
	return h.InitRoutes()
}
