package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"roombook/internal/api"
	"roombook/internal/config"
	"roombook/internal/directory"
	"roombook/internal/events"
	"roombook/internal/metrics"
	"roombook/internal/store"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("ROOMBOOK_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	bus := events.NewBus()
	subscribeAuditLog(bus, logger)

	dir, err := directory.New(db, bus, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize booking directory")
	}

	server := api.NewServer(dir, api.Options{
		RecurrenceHorizonWeeks: cfg.RecurrenceHorizonWeeks(),
		RateLimit:              cfg.Server.RateLimit,
		RateBurst:              cfg.Server.RateBurst,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.Backup.Enabled {
		backup := store.NewBackupService(cfg.Database.Path, store.BackupConfig{
			Enabled:       true,
			StoragePath:   cfg.Backup.Path,
			IntervalHours: cfg.Backup.IntervalHours,
			RetentionDays: cfg.Backup.RetentionDays,
		}, logger)
		go backup.Start(ctx)
	}

	srv := &http.Server{Addr: cfg.Server.ListenAddr, Handler: server.Router()}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	logger.Info().Str("addr", cfg.Server.ListenAddr).Msg("roombook server started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server error")
	}
}

// subscribeAuditLog writes every directory mutation to the log as a simple
// audit trail.
func subscribeAuditLog(bus *events.Bus, logger zerolog.Logger) {
	auditLogger := logger.With().Str("component", "audit").Logger()
	handler := func(event events.Event) error {
		auditLogger.Info().
			Str("event", event.Type).
			RawJSON("payload", event.Payload).
			Msg("directory mutation")
		return nil
	}
	for _, eventType := range []string{
		events.TypeAccountCreated,
		events.TypeAccountDeleted,
		events.TypeRoomCreated,
		events.TypeRoomUpdated,
		events.TypeRoomDeleted,
		events.TypeBookingCreated,
		events.TypeBookingRescheduled,
		events.TypeBookingCancelled,
	} {
		bus.Subscribe(eventType, handler)
	}
}

func startHealthServer(ctx context.Context, port int, db *store.SQLite, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Ping(); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
