package service

import (
	"context"

	"smart_home/internal/models"
	"smart_home/internal/repository"
)

type staleRefresher interface {
	RefreshIfStale(ctx context.Context) error
}

type MonitoringService struct {
	store   *repository.StateStore
	climate staleRefresher
}

func NewMonitoringService(store *repository.StateStore, climate staleRefresher) *MonitoringService {
	return &MonitoringService{store: store, climate: climate}
}

// GetStatus refreshes the weather first when it is missing or older than the
// TTL, then returns the current snapshot. A failed refresh still returns the
// last known state.
func (s *MonitoringService) GetStatus(ctx context.Context) models.DeviceState {
	if s.climate != nil {
		_ = s.climate.RefreshIfStale(ctx)
	}
	return s.store.Snapshot()
}

// EspCommand returns the light/fan view polled by ESP boards.
func (s *MonitoringService) EspCommand(ctx context.Context) models.EspCommand {
	return models.NewEspCommand(s.store.Snapshot())
}
