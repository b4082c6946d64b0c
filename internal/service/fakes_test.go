package service

import (
	"context"
	"sync"
	"time"

	"smart_home/internal/models"
	"smart_home/internal/weather"
)

// fakeEventRepo is a minimal stub that satisfies repository.EventRepo.
type fakeEventRepo struct {
	mu sync.Mutex

	// captured inputs
	gotFrom  time.Time
	gotTo    time.Time
	gotType  string
	appended []models.DeviceEvent

	// configured outputs
	events    []models.DeviceEvent
	err       error
	appendErr error

	calls int
}

func (f *fakeEventRepo) List(ctx context.Context, from, to time.Time, typ string) ([]models.DeviceEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotFrom = from
	f.gotTo = to
	f.gotType = typ
	return f.events, f.err
}

func (f *fakeEventRepo) Append(ctx context.Context, e models.DeviceEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, e)
	return f.appendErr
}

func (f *fakeEventRepo) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.appended))
	for _, e := range f.appended {
		out = append(out, e.Type)
	}
	return out
}

// fakeProvider returns a canned forecast and counts fetches.
type fakeProvider struct {
	mu       sync.Mutex
	forecast weather.Forecast
	err      error
	calls    int
	// gate, when set, blocks Fetch until closed.
	gate chan struct{}
}

func (p *fakeProvider) Fetch(ctx context.Context) (weather.Forecast, error) {
	p.mu.Lock()
	p.calls++
	gate := p.gate
	p.mu.Unlock()
	if gate != nil {
		<-gate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.forecast, p.err
}

func (p *fakeProvider) fetches() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *fakeProvider) set(f weather.Forecast, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.forecast = f
	p.err = err
}

func f64(v float64) *float64 { return &v }

func fixedZone(name string, offsetSec int) *time.Location {
	return time.FixedZone(name, offsetSec)
}

func mustTimeIn(loc *time.Location, y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, loc)
}
