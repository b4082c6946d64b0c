package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"smart_home/internal/logger"
	"smart_home/internal/models"
	"smart_home/internal/repository"
	"smart_home/internal/weather"
)

func sampleForecast() weather.Forecast {
	return weather.Forecast{
		Temperature: f64(24.6),
		Times:       []string{"2024-05-01T09:00", "2024-05-01T10:00"},
		Humidity:    []*float64{f64(50), f64(60)},
		Pressure:    []*float64{f64(1013), f64(1012)},
		Visibility:  []*float64{f64(10000), f64(12000)},
	}
}

type weatherFixture struct {
	svc      *WeatherService
	store    *repository.StateStore
	provider *fakeProvider
	events   *fakeEventRepo
	clock    time.Time
}

func newWeatherFixture(t *testing.T) *weatherFixture {
	t.Helper()
	fx := &weatherFixture{
		store:    repository.NewStateStore(),
		provider: &fakeProvider{forecast: sampleForecast()},
		events:   &fakeEventRepo{},
		clock:    time.Date(2024, 5, 1, 10, 15, 0, 0, time.UTC),
	}
	fx.svc = NewWeatherService(fx.provider, fx.store, fx.events, 10*time.Minute, logger.NewNop())
	fx.svc.now = func() time.Time { return fx.clock }
	return fx
}

func TestWeatherService_FreshStatusTriggersFetch(t *testing.T) {
	fx := newWeatherFixture(t)
	mon := NewMonitoringService(fx.store, fx.svc)

	st := mon.GetStatus(context.Background())

	if fx.provider.fetches() != 1 {
		t.Fatalf("want 1 fetch, got %d", fx.provider.fetches())
	}
	at, ok := st.Climate.UpdatedAt.Get()
	if !ok || !at.Equal(fx.clock) {
		t.Fatalf("updatedAt: %+v", st.Climate.UpdatedAt)
	}
	if st.Climate.TempC != models.Some(25) || st.Climate.Humidity != models.Some(60) {
		t.Fatalf("climate not merged: %+v", st.Climate)
	}
	if st.Climate.Visibility != models.Some(12) || st.Climate.Condition != models.ConditionPartlyCloudy {
		t.Fatalf("derived fields: %+v", st.Climate)
	}
	if got := fx.events.types(); len(got) != 1 || got[0] != models.EventWeather {
		t.Fatalf("events: %v", got)
	}
}

func TestWeatherService_WithinTTLDoesNotRefetch(t *testing.T) {
	fx := newWeatherFixture(t)
	mon := NewMonitoringService(fx.store, fx.svc)

	mon.GetStatus(context.Background())
	first := fx.svc.LastFetchAt()

	fx.clock = fx.clock.Add(9 * time.Minute)
	mon.GetStatus(context.Background())

	if fx.provider.fetches() != 1 {
		t.Fatalf("second status within TTL must not fetch, got %d fetches", fx.provider.fetches())
	}
	if !fx.svc.LastFetchAt().Equal(first) {
		t.Fatalf("lastFetchAt changed: %v -> %v", first, fx.svc.LastFetchAt())
	}

	fx.clock = fx.clock.Add(2 * time.Minute) // 11 minutes after the fetch
	mon.GetStatus(context.Background())
	if fx.provider.fetches() != 2 {
		t.Fatalf("stale cache must refetch, got %d fetches", fx.provider.fetches())
	}
}

func TestWeatherService_FailureKeepsPreviousClimate(t *testing.T) {
	fx := newWeatherFixture(t)

	if err := fx.svc.Refresh(context.Background()); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	before := fx.store.Snapshot().Climate
	lastBefore := fx.svc.LastFetchAt()

	fx.clock = fx.clock.Add(time.Hour)
	fx.provider.set(weather.Forecast{}, fmt.Errorf("%w: HTTP 503", weather.ErrUpstreamUnavailable))

	err := fx.svc.Refresh(context.Background())
	if !errors.Is(err, weather.ErrUpstreamUnavailable) {
		t.Fatalf("want ErrUpstreamUnavailable, got %v", err)
	}
	if fx.store.Snapshot().Climate != before {
		t.Fatalf("climate changed after failed fetch")
	}
	if !fx.svc.LastFetchAt().Equal(lastBefore) {
		t.Fatalf("lastFetchAt must not move on failure")
	}
	if !fx.svc.Stale() {
		t.Fatalf("cache should still be stale so the next call retries")
	}

	// Next eligible call retries and succeeds.
	fx.provider.set(sampleForecast(), nil)
	if err := fx.svc.RefreshIfStale(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if fx.provider.fetches() != 3 {
		t.Fatalf("want 3 fetches, got %d", fx.provider.fetches())
	}

	types := fx.events.types()
	if len(types) != 3 || types[1] != models.EventWeatherError {
		t.Fatalf("events: %v", types)
	}
}

func TestWeatherService_FailureOnFreshProcessStillServesStatus(t *testing.T) {
	fx := newWeatherFixture(t)
	fx.provider.set(weather.Forecast{}, weather.ErrUpstreamUnavailable)
	mon := NewMonitoringService(fx.store, fx.svc)

	st := mon.GetStatus(context.Background())
	if st.Climate.TempC.Set || st.Climate.UpdatedAt.Set {
		t.Fatalf("climate should stay absent: %+v", st.Climate)
	}
	if st.TankLevel != models.DefaultTankLevel {
		t.Fatalf("device state altered: %+v", st)
	}
}

func TestWeatherService_ConcurrentTriggersShareOneFetch(t *testing.T) {
	fx := newWeatherFixture(t)
	fx.provider.gate = make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = fx.svc.Refresh(context.Background())
		}()
	}

	deadline := time.Now().Add(time.Second)
	for fx.provider.fetches() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond) // let the other callers join the flight
	close(fx.provider.gate)
	wg.Wait()

	if got := fx.provider.fetches(); got != 1 {
		t.Fatalf("want a single outbound fetch, got %d", got)
	}
}

func TestWeatherService_RunFetchesImmediatelyAndOnSchedule(t *testing.T) {
	fx := newWeatherFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		fx.svc.Run(ctx, 20*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for fx.provider.fetches() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if fx.provider.fetches() < 2 {
		t.Fatalf("expected startup fetch plus scheduled fetch, got %d", fx.provider.fetches())
	}
}

func TestWeatherService_KeepsTempWhenCurrentMissing(t *testing.T) {
	fx := newWeatherFixture(t)
	if err := fx.svc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	f := sampleForecast()
	f.Temperature = nil
	fx.provider.set(f, nil)
	fx.clock = fx.clock.Add(time.Hour)
	if err := fx.svc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := fx.store.Snapshot().Climate.TempC; got != models.Some(25) {
		t.Fatalf("tempC should be kept, got %+v", got)
	}
}
