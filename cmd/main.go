package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smart_home/internal/bridge"
	"smart_home/internal/config"
	"smart_home/internal/handlers"
	"smart_home/internal/hub"
	"smart_home/internal/logger"
	"smart_home/internal/metrics"
	"smart_home/internal/repository"
	"smart_home/internal/repository/db"
	"smart_home/internal/server"
	"smart_home/internal/service"
	"smart_home/internal/weather"

	"github.com/spf13/pflag"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configDir := pflag.String("config", "configs", "directory containing config.yml")
	pflag.Parse()

	// load config.yml + env
	cfg, cfgErr := config.Load(*configDir)
	level := logger.InfoLevel
	if cfgErr == nil {
		level = cfg.LogLevel
	}
	log := logger.Get(level)
	defer func() { _ = log.Sync() }()
	if cfgErr != nil {
		log.Fatalw("error reading config", "err", cfgErr)
	}

	// open DB
	conn, err := openDB(cfg, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	repos := repository.NewRepository(conn)
	provider := weather.NewOpenMeteo(cfg.Weather.BaseURL, cfg.Weather.Latitude, cfg.Weather.Longitude, nil)
	services := service.NewService(repos, provider, cfg.Weather.TTL, log)

	wsHub := hub.New(repos.State, services.Devices, log.Named("hub"), hub.Options{
		SendBuffer:     cfg.WebSocket.SendBuffer,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
	})
	repos.State.Subscribe(wsHub.OnChange)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	closeInflux := startInflux(cfg, repos.State, log)
	defer closeInflux()
	closeBridge := startBridge(ctx, cfg, repos.State, services.Devices, log)
	defer closeBridge()

	// weather: fetch now, then every TTL
	go services.Weather.Run(ctx, cfg.Weather.TTL)

	// start HTTP server
	apiHandler := handlers.NewHandler(services, wsHub, log.Named("http"), cfg.CORS.AllowedOrigins)
	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, wsHub, log)
}

// openDB initializes the SQLite audit log.
func openDB(cfg *config.Config, log *logger.Logger) (*sql.DB, error) {
	path := cfg.DB.Path
	if path == "" {
		log.Infow("db.path not set in config; using default file", "default", "smart_home.db")
		path = "smart_home.db"
	}
	return db.InitDB(path)
}

// startInflux subscribes the history recorder when InfluxDB is enabled.
// A failed connection only disables history.
func startInflux(cfg *config.Config, store *repository.StateStore, log *logger.Logger) func() {
	if !cfg.InfluxDB.Enabled {
		return func() {}
	}
	client, err := metrics.Connect(cfg.InfluxDB, log.Named("influx"))
	if err != nil {
		log.Errorw("influx_disabled", "err", err)
		return func() {}
	}
	store.Subscribe(client.Recorder().OnChange)
	return client.Close
}

// startBridge connects ESP boards over MQTT when enabled. A failed connection
// only disables the bridge; REST and WebSocket keep working.
func startBridge(ctx context.Context, cfg *config.Config, store *repository.StateStore, sink bridge.TelemetrySink, log *logger.Logger) func() {
	if !cfg.MQTT.Enabled {
		return func() {}
	}
	bridgeLog := log.Named("mqtt")
	transport, err := bridge.Connect(cfg.MQTT, bridgeLog)
	if err != nil {
		log.Errorw("mqtt_disabled", "err", err)
		return func() {}
	}
	b := bridge.New(transport, sink, bridge.Topics{
		Telemetry: cfg.MQTT.TelemetryTopic,
		Command:   cfg.MQTT.CommandTopic,
	}, bridgeLog)
	store.Subscribe(b.OnChange)
	if err := b.Start(ctx, store.Snapshot()); err != nil {
		log.Errorw("mqtt_disabled", "err", err)
		_ = b.Close()
		return func() {}
	}
	return func() { _ = b.Close() }
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		log.Infow("server_listening", "port", port)
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, wsHub *hub.Hub, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()
	wsHub.Close()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
