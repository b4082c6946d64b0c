// Package bridge connects ESP boards over MQTT: telemetry published by the boards
// is merged into the state store, and light/fan changes are pushed back as
// retained command messages.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"smart_home/internal/logger"
	"smart_home/internal/models"
	"smart_home/internal/repository"
	"smart_home/internal/service"
)

const pendingCommands = 16

// Transport is the subset of an MQTT client the bridge needs.
type Transport interface {
	Subscribe(topic string, handler func(payload []byte)) error
	Publish(topic string, payload []byte, retained bool) error
	Close() error
}

// TelemetrySink applies board reports. service.Devices satisfies it.
type TelemetrySink interface {
	ApplyTelemetry(ctx context.Context, t models.Telemetry, source string) models.DeviceState
}

// Topics names the two channels shared with the firmware.
type Topics struct {
	Telemetry string
	Command   string
}

type Bridge struct {
	transport Transport
	sink      TelemetrySink
	topics    Topics
	log       *logger.Logger

	pending chan models.EspCommand
}

func New(t Transport, sink TelemetrySink, topics Topics, log *logger.Logger) *Bridge {
	if log == nil {
		log = logger.NewNop()
	}
	return &Bridge{
		transport: t,
		sink:      sink,
		topics:    topics,
		log:       log,
		pending:   make(chan models.EspCommand, pendingCommands),
	}
}

// Start subscribes to the telemetry topic and publishes commands until ctx is
// canceled. The initial state is queued first so boards pick up the current
// targets from the retained message.
func (b *Bridge) Start(ctx context.Context, initial models.DeviceState) error {
	if err := b.transport.Subscribe(b.topics.Telemetry, func(payload []byte) {
		b.handleTelemetry(ctx, payload)
	}); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.topics.Telemetry, err)
	}
	b.enqueue(models.NewEspCommand(initial))
	go b.publishLoop(ctx)
	return nil
}

// OnChange is a repository.Listener. It only queues work; publishing happens
// on the bridge goroutine.
func (b *Bridge) OnChange(ch repository.Change) {
	switch ch.Kind {
	case repository.ChangeLight, repository.ChangeFan:
		b.enqueue(models.NewEspCommand(ch.State))
	}
}

// Close disconnects the transport.
func (b *Bridge) Close() error {
	return b.transport.Close()
}

func (b *Bridge) enqueue(cmd models.EspCommand) {
	select {
	case b.pending <- cmd:
	default:
		b.log.Warnw("mqtt_command_dropped", "reason", "queue full")
	}
}

func (b *Bridge) handleTelemetry(ctx context.Context, payload []byte) {
	t := models.ParseTelemetry(payload)
	st := b.sink.ApplyTelemetry(ctx, t, service.SourceMQTT)
	b.log.Debugw("mqtt_telemetry_applied", "tank_level", st.TankLevel, "pump_on", st.PumpOn)
}

func (b *Bridge) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-b.pending:
			payload, err := json.Marshal(cmd)
			if err != nil {
				b.log.Errorw("mqtt_command_marshal_failed", "err", err)
				continue
			}
			if err := b.transport.Publish(b.topics.Command, payload, true); err != nil {
				b.log.Warnw("mqtt_publish_failed", "topic", b.topics.Command, "err", err)
			}
		}
	}
}
