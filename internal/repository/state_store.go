package repository

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"smart_home/internal/models"
)

// ErrInvalidInput is returned when a mutation is rejected; the stored state is unchanged.
var ErrInvalidInput = errors.New("invalid input")

// ChangeKind tells listeners which entry point produced a change.
type ChangeKind string

const (
	ChangeLight     ChangeKind = "light"
	ChangeFan       ChangeKind = "fan"
	ChangeTelemetry ChangeKind = "telemetry"
	ChangeClimate   ChangeKind = "climate"
)

// Change is delivered to listeners after every applied mutation.
type Change struct {
	Kind  ChangeKind
	State models.DeviceState
}

// Listener observes applied mutations. Listeners run with the store locked, in
// mutation order, and must not block or call back into the store.
type Listener func(Change)

// StateStore owns the canonical device state. Every mutation replaces the whole
// snapshot under one lock, so readers never see a half-applied update.
type StateStore struct {
	mu        sync.RWMutex
	state     models.DeviceState
	listeners []Listener
}

// NewStateStore returns a store holding the process defaults.
func NewStateStore() *StateStore {
	return &StateStore{state: models.DefaultDeviceState()}
}

// Subscribe registers a listener for subsequent mutations.
func (s *StateStore) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Snapshot returns a copy of the current state.
func (s *StateStore) Snapshot() models.DeviceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// WithSnapshot runs fn with the current state while mutations are held off.
// Whatever fn does is ordered before the next mutation's listeners.
func (s *StateStore) WithSnapshot(fn func(models.DeviceState)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.state)
}

// SetLight switches the light.
func (s *StateStore) SetLight(on bool) models.DeviceState {
	return s.apply(ChangeLight, func(st *models.DeviceState) {
		st.LightOn = on
	})
}

// SetFanSpeed sets the fan speed. Speeds outside 0..5 are rejected, not clamped.
func (s *StateStore) SetFanSpeed(speed int) (models.DeviceState, error) {
	if speed < models.MinFanSpeed || speed > models.MaxFanSpeed {
		return s.Snapshot(), fmt.Errorf("%w: fan speed %d outside %d..%d",
			ErrInvalidInput, speed, models.MinFanSpeed, models.MaxFanSpeed)
	}
	return s.apply(ChangeFan, func(st *models.DeviceState) {
		st.FanSpeed = speed
	}), nil
}

// ApplyTelemetry merges the present telemetry fields. The tank level is rounded
// and clamped to 0..100.
func (s *StateStore) ApplyTelemetry(t models.Telemetry) models.DeviceState {
	return s.apply(ChangeTelemetry, func(st *models.DeviceState) {
		if lvl, ok := t.TankLevel.Get(); ok {
			st.TankLevel = models.RoundHalfUp(clampFloat(lvl, models.MinTankLevel, models.MaxTankLevel))
		}
		if on, ok := t.PumpOn.Get(); ok {
			st.PumpOn = on
		}
		if smoke, ok := t.SmokeDetected.Get(); ok {
			st.SmokeDetected = smoke
		}
	})
}

// MergeClimate replaces the climate part of the state.
func (s *StateStore) MergeClimate(c models.ClimateSnapshot) models.DeviceState {
	return s.apply(ChangeClimate, func(st *models.DeviceState) {
		st.Climate = c
	})
}

// apply edits a copy, swaps it in and notifies listeners before unlocking.
func (s *StateStore) apply(kind ChangeKind, edit func(*models.DeviceState)) models.DeviceState {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state
	edit(&next)
	s.state = next

	change := Change{Kind: kind, State: next}
	for _, l := range s.listeners {
		l(change)
	}
	return next
}

// clampFloat bounds v before rounding so huge readings cannot overflow int.
func clampFloat(v float64, lo, hi int) float64 {
	if math.IsNaN(v) || v < float64(lo) {
		return float64(lo)
	}
	if v > float64(hi) {
		return float64(hi)
	}
	return v
}
