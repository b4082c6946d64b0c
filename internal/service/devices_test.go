package service

import (
	"context"
	"errors"
	"testing"

	"smart_home/internal/logger"
	"smart_home/internal/models"
	"smart_home/internal/repository"
)

func newDevices(t *testing.T) (*DevicesService, *repository.StateStore, *fakeEventRepo) {
	t.Helper()
	store := repository.NewStateStore()
	events := &fakeEventRepo{}
	return NewDevicesService(store, events, logger.NewNop()), store, events
}

func TestDevicesService_SetLight(t *testing.T) {
	svc, store, events := newDevices(t)

	var changes []repository.Change
	store.Subscribe(func(c repository.Change) { changes = append(changes, c) })

	st := svc.SetLight(context.Background(), true, SourceREST)
	if !st.LightOn || !store.Snapshot().LightOn {
		t.Fatalf("light not switched on: %+v", st)
	}
	if len(changes) != 1 || changes[0].Kind != repository.ChangeLight {
		t.Fatalf("listener not notified once: %+v", changes)
	}
	if got := events.types(); len(got) != 1 || got[0] != models.EventLight {
		t.Fatalf("events: %v", got)
	}
	if events.appended[0].Description != "Light switched on" {
		t.Fatalf("description: %q", events.appended[0].Description)
	}
}

func TestDevicesService_SetFanSpeed_RejectsOutOfRange(t *testing.T) {
	svc, store, events := newDevices(t)
	if _, err := svc.SetFanSpeed(context.Background(), 3, SourceREST); err != nil {
		t.Fatalf("set 3: %v", err)
	}

	notified := 0
	store.Subscribe(func(repository.Change) { notified++ })

	for _, speed := range []int{-1, 6, 7} {
		st, err := svc.SetFanSpeed(context.Background(), speed, SourceWS)
		if !errors.Is(err, repository.ErrInvalidInput) {
			t.Fatalf("speed %d: want ErrInvalidInput, got %v", speed, err)
		}
		if st.FanSpeed != 3 {
			t.Fatalf("speed %d: state changed to %d", speed, st.FanSpeed)
		}
	}
	if notified != 0 {
		t.Fatalf("rejected mutations must not notify, got %d", notified)
	}
	if got := events.types(); len(got) != 1 {
		t.Fatalf("rejected mutations must not be logged: %v", got)
	}
}

func TestDevicesService_ApplyTelemetry(t *testing.T) {
	svc, _, events := newDevices(t)

	st := svc.ApplyTelemetry(context.Background(), models.Telemetry{
		TankLevel: models.Some(150.0),
		PumpOn:    models.Some(true),
	}, SourceREST)

	if st.TankLevel != 100 || !st.PumpOn || st.SmokeDetected {
		t.Fatalf("unexpected state: %+v", st)
	}

	// Empty reports still count as a mutation.
	st = svc.ApplyTelemetry(context.Background(), models.Telemetry{}, SourceMQTT)
	if st.TankLevel != 100 || !st.PumpOn {
		t.Fatalf("empty report changed state: %+v", st)
	}
	if got := events.types(); len(got) != 2 || got[1] != models.EventTelemetry {
		t.Fatalf("events: %v", got)
	}
}

func TestDevicesService_AuditFailureDoesNotFailMutation(t *testing.T) {
	svc, store, events := newDevices(t)
	events.appendErr = errors.New("disk full")

	st := svc.SetLight(context.Background(), true, SourceREST)
	if !st.LightOn || !store.Snapshot().LightOn {
		t.Fatalf("mutation lost on audit failure")
	}
}

func TestDevicesService_NilEventRepo(t *testing.T) {
	svc := NewDevicesService(repository.NewStateStore(), nil, logger.NewNop())
	if _, err := svc.SetFanSpeed(context.Background(), 2, SourceREST); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Heartbeat(context.Background(), "esp-1"); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
}

func TestDevicesService_Heartbeat(t *testing.T) {
	svc, _, events := newDevices(t)

	if err := svc.Heartbeat(context.Background(), "  "); !errors.Is(err, repository.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
	if err := svc.Heartbeat(context.Background(), "esp-kitchen"); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	if got := events.types(); len(got) != 1 || got[0] != models.EventHeartbeat {
		t.Fatalf("events: %v", got)
	}
}
