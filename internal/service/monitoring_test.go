package service

import (
	"context"
	"testing"

	"smart_home/internal/models"
	"smart_home/internal/repository"
)

type countingRefresher struct{ calls int }

func (r *countingRefresher) RefreshIfStale(context.Context) error {
	r.calls++
	return nil
}

func TestMonitoringService_GetStatusRefreshesFirst(t *testing.T) {
	store := repository.NewStateStore()
	r := &countingRefresher{}
	svc := NewMonitoringService(store, r)

	st := svc.GetStatus(context.Background())
	if r.calls != 1 {
		t.Fatalf("want 1 refresh check, got %d", r.calls)
	}
	if st != models.DefaultDeviceState() {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestMonitoringService_EspCommand(t *testing.T) {
	store := repository.NewStateStore()
	svc := NewMonitoringService(store, nil)

	cmd := svc.EspCommand(context.Background())
	if cmd != (models.EspCommand{LightStatus: "OFF", FanStatus: "OFF", FanSpeed: 0}) {
		t.Fatalf("defaults: %+v", cmd)
	}

	store.SetLight(true)
	if _, err := store.SetFanSpeed(4); err != nil {
		t.Fatal(err)
	}
	cmd = svc.EspCommand(context.Background())
	if cmd != (models.EspCommand{LightStatus: "ON", FanStatus: "ON", FanSpeed: 4}) {
		t.Fatalf("after mutation: %+v", cmd)
	}
}
