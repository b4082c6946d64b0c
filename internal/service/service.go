package service

import (
	"context"
	"time"

	"smart_home/internal/logger"
	"smart_home/internal/models"
	"smart_home/internal/repository"
	"smart_home/internal/weather"
)

// Mutation sources recorded in the audit log.
const (
	SourceREST = "rest"
	SourceWS   = "ws"
	SourceMQTT = "mqtt"
)

// Devices exposes the validated mutation entry points. Every applied mutation
// is fanned out by the state store's listeners before these methods return.
type Devices interface {
	SetLight(ctx context.Context, on bool, source string) models.DeviceState
	SetFanSpeed(ctx context.Context, speed int, source string) (models.DeviceState, error)
	ApplyTelemetry(ctx context.Context, t models.Telemetry, source string) models.DeviceState
	Heartbeat(ctx context.Context, espID string) error
}

// Monitoring exposes read-only views of the state.
type Monitoring interface {
	GetStatus(ctx context.Context) models.DeviceState
	EspCommand(ctx context.Context) models.EspCommand
}

// Weather keeps the climate part of the state fresh.
// Stop Run via context cancellation in main() for graceful shutdown.
type Weather interface {
	Refresh(ctx context.Context) error
	RefreshIfStale(ctx context.Context) error
	Run(ctx context.Context, interval time.Duration)
}

// EventLog exposes the audit log with filtering.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.DeviceEvent, error)
}

// Service aggregates all sub-services.
type Service struct {
	Devices
	Monitoring
	Weather
	EventLog
}

// LogFilter supports history filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "LIGHT", "FAN", "TELEMETRY", "WEATHER", "WEATHER_ERROR", "HEARTBEAT"
}

// NewService wires the repositories and the forecast provider into concrete services.
func NewService(repos *repository.Repository, provider weather.Provider, ttl time.Duration, log *logger.Logger) *Service {
	weatherSvc := NewWeatherService(provider, repos.State, repos.EventRepo, ttl, log.Named("weather"))
	return &Service{
		Devices:    NewDevicesService(repos.State, repos.EventRepo, log.Named("devices")),
		Monitoring: NewMonitoringService(repos.State, weatherSvc),
		Weather:    weatherSvc,
		EventLog:   NewEventLogService(repos.EventRepo),
	}
}
