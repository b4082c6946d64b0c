package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"smart_home/internal/logger"
	"smart_home/internal/models"
	"smart_home/internal/repository"
	"smart_home/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrMalformedMessage marks inbound payloads that are not a recognized command.
var ErrMalformedMessage = errors.New("malformed message")

// Send/receive timing configuration and message size limits.
const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	defaultMaxMsgSize = 1 << 12 // 4 KB
	defaultSendBuffer = 64
)

// CommandHandler applies inbound device commands. service.Devices satisfies it.
type CommandHandler interface {
	SetLight(ctx context.Context, on bool, source string) models.DeviceState
	SetFanSpeed(ctx context.Context, speed int, source string) (models.DeviceState, error)
}

// Options tunes per-client buffering and limits. Zero values fall back to defaults.
type Options struct {
	SendBuffer     int
	MaxMessageSize int64
}

// Hub keeps every connected client in sync with the state store.
type Hub struct {
	store    *repository.StateStore
	commands CommandHandler
	log      *logger.Logger
	opts     Options

	mu      sync.Mutex
	clients map[*Client]struct{}
	closed  bool
}

func New(store *repository.StateStore, commands CommandHandler, log *logger.Logger, opts Options) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = defaultMaxMsgSize
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Hub{
		store:    store,
		commands: commands,
		log:      log,
		opts:     opts,
		clients:  make(map[*Client]struct{}),
	}
}

// Client is one open WebSocket connection.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// ID returns the identifier used in logs.
func (c *Client) ID() string { return c.id }

// Serve registers conn, delivers the initial status_update and pumps messages
// until the connection closes. It blocks for the lifetime of the connection.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn) {
	c := &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, h.opts.SendBuffer),
	}

	registered := false
	// The snapshot is taken and the client registered under the store read
	// lock, so no mutation can slip between the initial sync and the first broadcast.
	h.store.WithSnapshot(func(st models.DeviceState) {
		msg, err := json.Marshal(models.NewStatusUpdate(st))
		if err != nil {
			h.log.Errorw("ws_marshal_failed", "err", err)
			return
		}
		c.send <- msg
		registered = h.register(c)
	})
	if !registered {
		_ = conn.Close()
		return
	}
	h.log.Infow("ws_client_connected", "client", c.id, "clients", h.ClientCount())

	go h.writePump(c)
	h.readPump(ctx, c)
}

// OnChange is a repository.Listener: it fans the mutation out to every open client.
// Light and fan changes go out as device messages, everything else as a full
// status_update.
func (h *Hub) OnChange(ch repository.Change) {
	var payload any
	switch ch.Kind {
	case repository.ChangeLight:
		payload = models.LightUpdate(ch.State.LightOn)
	case repository.ChangeFan:
		payload = models.FanUpdate(ch.State.FanSpeed)
	default:
		payload = models.NewStatusUpdate(ch.State)
	}
	msg, err := json.Marshal(payload)
	if err != nil {
		h.log.Errorw("ws_marshal_failed", "err", err, "kind", ch.Kind)
		return
	}
	h.Broadcast(msg)
}

// Broadcast sends msg to every registered client without blocking. A client
// whose buffer is full is disconnected.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Warnw("ws_client_too_slow", "client", c.id)
			h.dropLocked(c)
		}
	}
}

// ClientCount returns the number of open clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.dropLocked(c)
	}
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

// dropLocked removes c and closes its send channel; the write pump then exits.
func (h *Hub) dropLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) readPump(ctx context.Context, c *Client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
		h.log.Infow("ws_client_disconnected", "client", c.id)
	}()

	c.conn.SetReadLimit(h.opts.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Infow("ws_read_closed", "client", c.id, "err", err)
			}
			return
		}
		if err := h.handleInbound(ctx, data); err != nil {
			h.log.Warnw("ws_message_dropped", "client", c.id, "err", err)
		}
	}
}

func (h *Hub) writePump(c *Client) {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.log.Infow("ws_write_failed", "client", c.id, "err", err)
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.log.Infow("ws_ping_failed", "client", c.id, "err", err)
				return
			}
		}
	}
}

// handleInbound applies a command message. The resulting broadcast reaches all
// clients, the sender included, through the store listener.
func (h *Hub) handleInbound(ctx context.Context, data []byte) error {
	var cmd models.Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if cmd.Type != models.MessageCommand {
		return fmt.Errorf("%w: unexpected type %q", ErrMalformedMessage, cmd.Type)
	}
	if h.commands == nil {
		return fmt.Errorf("%w: commands disabled", ErrMalformedMessage)
	}

	switch cmd.Device {
	case models.DeviceLight:
		if cmd.State == nil {
			return fmt.Errorf("%w: light command without state", ErrMalformedMessage)
		}
		h.commands.SetLight(ctx, *cmd.State, service.SourceWS)
		return nil
	case models.DeviceFan:
		if cmd.Speed == nil || *cmd.Speed != math.Trunc(*cmd.Speed) {
			return fmt.Errorf("%w: fan command needs an integer speed", ErrMalformedMessage)
		}
		if *cmd.Speed < models.MinFanSpeed || *cmd.Speed > models.MaxFanSpeed {
			return fmt.Errorf("%w: fan speed %v", repository.ErrInvalidInput, *cmd.Speed)
		}
		_, err := h.commands.SetFanSpeed(ctx, int(*cmd.Speed), service.SourceWS)
		return err
	default:
		return fmt.Errorf("%w: unknown device %q", ErrMalformedMessage, cmd.Device)
	}
}
