package bridge

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"smart_home/internal/config"
	"smart_home/internal/logger"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectTimeout    = 10 * time.Second
	publishTimeout    = 5 * time.Second
	retryInterval     = 5 * time.Second
	keepAlive         = 60 * time.Second
	disconnectQuiesce = 1000 // milliseconds
	qosAtLeastOnce    = 1
)

var errTimeout = errors.New("mqtt: timeout")

// PahoTransport is the broker-backed Transport.
type PahoTransport struct {
	client paho.Client
	log    *logger.Logger

	mu   sync.Mutex
	subs map[string]func([]byte)
}

// Connect dials the broker with auto-reconnect; subscriptions are restored on
// every reconnect.
func Connect(cfg config.MQTTConfig, log *logger.Logger) (*PahoTransport, error) {
	if log == nil {
		log = logger.NewNop()
	}
	t := &PahoTransport{log: log, subs: make(map[string]func([]byte))}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(retryInterval).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(keepAlive).
		SetOnConnectHandler(func(paho.Client) { t.restoreSubscriptions() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warnw("mqtt_connection_lost", "err", err)
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	t.client = paho.NewClient(opts)
	if err := awaitConnect(t.client, t.client.Connect(), connectTimeout); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}
	log.Infow("mqtt_connected", "broker", cfg.Broker, "client_id", cfg.ClientID)
	return t, nil
}

type disconnecter interface {
	Disconnect(quiesce uint)
}

// awaitConnect waits for the connect token. On failure the client is
// disconnected so its retry loop does not outlive the caller.
func awaitConnect(c disconnecter, token paho.Token, timeout time.Duration) error {
	err := errTimeout
	if token.WaitTimeout(timeout) {
		err = token.Error()
	}
	if err != nil {
		c.Disconnect(0)
	}
	return err
}

func (t *PahoTransport) Subscribe(topic string, handler func([]byte)) error {
	t.mu.Lock()
	t.subs[topic] = handler
	t.mu.Unlock()
	return t.subscribe(topic, handler)
}

func (t *PahoTransport) subscribe(topic string, handler func([]byte)) error {
	token := t.client.Subscribe(topic, qosAtLeastOnce, func(_ paho.Client, msg paho.Message) {
		handler(msg.Payload())
	})
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("subscribe %s: %w", topic, errTimeout)
	}
	return token.Error()
}

func (t *PahoTransport) restoreSubscriptions() {
	t.mu.Lock()
	subs := make(map[string]func([]byte), len(t.subs))
	for k, v := range t.subs {
		subs[k] = v
	}
	t.mu.Unlock()

	for topic, handler := range subs {
		if err := t.subscribe(topic, handler); err != nil {
			t.log.Warnw("mqtt_resubscribe_failed", "topic", topic, "err", err)
		}
	}
}

func (t *PahoTransport) Publish(topic string, payload []byte, retained bool) error {
	token := t.client.Publish(topic, qosAtLeastOnce, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: %w", topic, errTimeout)
	}
	return token.Error()
}

func (t *PahoTransport) Close() error {
	t.client.Disconnect(disconnectQuiesce)
	return nil
}
