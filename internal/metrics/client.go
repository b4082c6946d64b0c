package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smart_home/internal/config"
	"smart_home/internal/logger"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

const (
	connectTimeout = 10 * time.Second
	batchSize      = 100
	flushInterval  = 10_000 // milliseconds
)

// ErrConnectionFailed is returned when the server cannot be reached or is unhealthy.
var ErrConnectionFailed = errors.New("influxdb connection failed")

// Client owns the InfluxDB connection, its non-blocking write API and the
// recorder feeding it.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	recorder *Recorder
}

// Connect pings the server and sets up batched writes. Async write errors are logged.
func Connect(cfg config.InfluxDBConfig, log *logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.NewNop()
	}
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(batchSize).
			SetFlushInterval(flushInterval))

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	go func() {
		for err := range writeAPI.Errors() {
			log.Warnw("influx_write_failed", "err", err)
		}
	}()
	log.Infow("influx_connected", "url", cfg.URL, "bucket", cfg.Bucket)

	rec := NewRecorder(writeAPI, log)
	rec.Start()
	return &Client{client: client, writeAPI: writeAPI, recorder: rec}, nil
}

// Recorder returns the running recorder writing through this client.
func (c *Client) Recorder() *Recorder {
	return c.recorder
}

// Close drains the recorder, flushes pending points and closes the client.
func (c *Client) Close() {
	c.recorder.Close()
	c.client.Close()
}
