// Package metrics records device and climate readings as InfluxDB time series.
package metrics

import (
	"sync"
	"time"

	"smart_home/internal/logger"
	"smart_home/internal/models"
	"smart_home/internal/repository"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementDevice    = "device_state"
	MeasurementTelemetry = "telemetry"
	MeasurementClimate   = "climate"
)

const pendingPoints = 256

// PointWriter is satisfied by api.WriteAPI. Its WritePoint may block while a
// batch is being flushed.
type PointWriter interface {
	WritePoint(point *write.Point)
	Flush()
}

// Recorder turns state changes into points. Points are queued and handed to
// the writer on the recorder goroutine, so OnChange never waits on InfluxDB.
type Recorder struct {
	w   PointWriter
	now func() time.Time
	log *logger.Logger

	mu      sync.RWMutex
	closed  bool
	pending chan *write.Point
	done    chan struct{}
}

func NewRecorder(w PointWriter, log *logger.Logger) *Recorder {
	if log == nil {
		log = logger.NewNop()
	}
	return &Recorder{
		w:       w,
		now:     time.Now,
		log:     log,
		pending: make(chan *write.Point, pendingPoints),
		done:    make(chan struct{}),
	}
}

// Start launches the goroutine that feeds queued points to the writer.
func (r *Recorder) Start() {
	go func() {
		defer close(r.done)
		for p := range r.pending {
			r.w.WritePoint(p)
		}
	}()
}

// Close stops accepting points, writes what is queued and flushes the writer.
// Start must have been called.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.pending)
	r.mu.Unlock()

	<-r.done
	r.w.Flush()
}

// OnChange is a repository.Listener. It only queues; a full queue drops the point.
func (r *Recorder) OnChange(ch repository.Change) {
	p := r.point(ch)
	if p == nil {
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.pending <- p:
	default:
		r.log.Warnw("influx_point_dropped", "reason", "queue full", "measurement", p.Name())
	}
}

func (r *Recorder) point(ch repository.Change) *write.Point {
	st := ch.State
	ts := r.now()

	switch ch.Kind {
	case repository.ChangeLight:
		return write.NewPoint(MeasurementDevice,
			map[string]string{"device": models.DeviceLight},
			map[string]interface{}{"on": st.LightOn},
			ts)
	case repository.ChangeFan:
		return write.NewPoint(MeasurementDevice,
			map[string]string{"device": models.DeviceFan},
			map[string]interface{}{"on": st.FanSpeed > 0, "speed": st.FanSpeed},
			ts)
	case repository.ChangeTelemetry:
		return write.NewPoint(MeasurementTelemetry, nil,
			map[string]interface{}{
				"tank_level":     st.TankLevel,
				"pump_on":        st.PumpOn,
				"smoke_detected": st.SmokeDetected,
			},
			ts)
	case repository.ChangeClimate:
		return climatePoint(st.Climate, ts)
	}
	return nil
}

// climatePoint skips absent readings; a snapshot with none yields no point.
func climatePoint(c models.ClimateSnapshot, ts time.Time) *write.Point {
	fields := make(map[string]interface{}, 5)
	for key, v := range map[string]models.Optional[int]{
		"temp_c":        c.TempC,
		"humidity":      c.Humidity,
		"feels_like":    c.FeelsLike,
		"pressure":      c.Pressure,
		"visibility_km": c.Visibility,
	} {
		if val, ok := v.Get(); ok {
			fields[key] = val
		}
	}
	if len(fields) == 0 {
		return nil
	}
	if at, ok := c.UpdatedAt.Get(); ok {
		ts = at
	}
	return write.NewPoint(MeasurementClimate,
		map[string]string{"condition": string(c.Condition)},
		fields,
		ts)
}
