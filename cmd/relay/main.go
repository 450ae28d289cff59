package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/AchilleasB/roombook/booking-client/internal/adapters/messaging"
	"github.com/AchilleasB/roombook/booking-client/internal/adapters/relay"
	"github.com/AchilleasB/roombook/booking-client/internal/adapters/storage"
	"github.com/AchilleasB/roombook/booking-client/internal/config"
	"github.com/AchilleasB/roombook/booking-client/internal/metrics"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	logger.Info("Starting room event relay...")

	cfg := config.LoadRelayConfig()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("relay: failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("relay: database connection initialized - circuit breaker will validate on first operation")

	broker, err := messaging.NewRabbitMQTransport(cfg.RabbitMQURL, cfg.RoomEventsExchange, logger)
	if err != nil {
		logger.Error("relay: failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer broker.Close()
	logger.Info("relay: connected to RabbitMQ", "exchange", cfg.RoomEventsExchange)

	m := metrics.New()
	store := storage.NewPostgresStore(db, cfg.DatabaseURL, logger)
	worker := relay.NewRelay(store, broker, cfg.Labels, m, logger)

	// Start health check HTTP server
	mux := http.NewServeMux()
	relay.NewHealthHandler(worker, broker, logger).Routes(mux)
	mux.Handle("/metrics", m.Handler())

	healthServer := &http.Server{
		Addr:              cfg.HealthAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("relay: starting health check server", "addr", cfg.HealthAddr)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("relay: health server error", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Channel to capture fatal errors from relay worker
	errChan := make(chan error, 1)

	go func() {
		logger.Info("relay: starting event forwarding worker...")
		if err := worker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal or fatal error
	select {
	case sig := <-sigChan:
		logger.Info("relay: received signal, initiating shutdown...", "signal", sig.String())
		cancel()

	case err := <-errChan:
		logger.Error("relay: fatal error, shutting down", "error", err)
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("relay: error shutting down health server", "error", err)
	}

	logger.Info("relay: shutdown complete")
}
