package service

import (
	"context"
	"sync"
	"time"

	"smart_home/internal/logger"
	"smart_home/internal/models"
	"smart_home/internal/repository"
	"smart_home/internal/weather"

	"golang.org/x/sync/singleflight"
)

// DefaultWeatherTTL is how long a fetched forecast stays fresh.
const DefaultWeatherTTL = 10 * time.Minute

const weatherFlightKey = "forecast"

// WeatherService is the weather cache: it fetches the forecast at most once per
// TTL window (plus retries after failures) and merges the derived climate into
// the state store.
type WeatherService struct {
	provider weather.Provider
	store    *repository.StateStore
	events   repository.EventRepo
	ttl      time.Duration
	log      *logger.Logger
	now      func() time.Time

	// flight collapses scheduled and on-demand triggers into one outbound fetch.
	flight singleflight.Group

	mu          sync.RWMutex
	lastFetchAt time.Time
}

func NewWeatherService(provider weather.Provider, store *repository.StateStore, events repository.EventRepo, ttl time.Duration, log *logger.Logger) *WeatherService {
	if ttl <= 0 {
		ttl = DefaultWeatherTTL
	}
	return &WeatherService{
		provider: provider,
		store:    store,
		events:   events,
		ttl:      ttl,
		log:      log,
		now:      time.Now,
	}
}

// LastFetchAt returns the time of the last successful fetch (zero if none).
func (s *WeatherService) LastFetchAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastFetchAt
}

// Stale reports whether the climate is missing a temperature or older than the TTL.
func (s *WeatherService) Stale() bool {
	if !s.store.Snapshot().Climate.TempC.Set {
		return true
	}
	last := s.LastFetchAt()
	return last.IsZero() || s.now().Sub(last) > s.ttl
}

// RefreshIfStale fetches only when Stale reports true.
func (s *WeatherService) RefreshIfStale(ctx context.Context) error {
	if !s.Stale() {
		return nil
	}
	return s.Refresh(ctx)
}

// Refresh fetches the forecast and merges it into the state. On failure the
// previous climate and lastFetchAt are kept so the next trigger retries.
// Concurrent callers share a single fetch; a canceled caller does not abort it.
func (s *WeatherService) Refresh(ctx context.Context) error {
	fetchCtx := context.WithoutCancel(ctx)
	_, err, _ := s.flight.Do(weatherFlightKey, func() (any, error) {
		return nil, s.fetch(fetchCtx)
	})
	return err
}

func (s *WeatherService) fetch(ctx context.Context) error {
	forecast, err := s.provider.Fetch(ctx)
	if err != nil {
		s.log.Errorw("weather_fetch_failed", "err", err)
		s.record(ctx, models.DeviceEvent{
			Type:        models.EventWeatherError,
			Description: "Weather fetch failed",
			Metadata:    map[string]any{"error": err.Error()},
		})
		return err
	}

	now := s.now().UTC()
	prevTemp := s.store.Snapshot().Climate.TempC
	climate := weather.Derive(forecast, prevTemp, now)
	s.store.MergeClimate(climate)

	s.mu.Lock()
	s.lastFetchAt = now
	s.mu.Unlock()

	s.log.Infow("weather_updated",
		"temp_c", climate.TempC,
		"humidity", climate.Humidity,
		"feels_like", climate.FeelsLike,
		"condition", climate.Condition,
	)
	s.record(ctx, models.DeviceEvent{
		OccurredAt:  now,
		Type:        models.EventWeather,
		Description: "Weather updated: " + string(climate.Condition),
		Metadata:    climate,
	})
	return nil
}

// Run fetches once immediately and then every interval until ctx is canceled.
// Failures are logged and never stop the loop.
func (s *WeatherService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.ttl
	}
	_ = s.Refresh(ctx)

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_ = s.Refresh(ctx)
		}
	}
}

func (s *WeatherService) record(ctx context.Context, e models.DeviceEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Append(ctx, e); err != nil {
		s.log.Warnw("event_append_failed", "err", err, "type", e.Type)
	}
}
