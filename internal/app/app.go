// Package app assembles one application context: durable storage, the
// session, the request gate, the API clients, the broadcast bus and the
// services built on them.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/AchilleasB/roombook/booking-client/internal/adapters/api"
	"github.com/AchilleasB/roombook/booking-client/internal/adapters/broadcast"
	"github.com/AchilleasB/roombook/booking-client/internal/adapters/gateway"
	"github.com/AchilleasB/roombook/booking-client/internal/adapters/messaging"
	"github.com/AchilleasB/roombook/booking-client/internal/adapters/navigation"
	"github.com/AchilleasB/roombook/booking-client/internal/adapters/storage"
	"github.com/AchilleasB/roombook/booking-client/internal/config"
	"github.com/AchilleasB/roombook/booking-client/internal/core/ports"
	"github.com/AchilleasB/roombook/booking-client/internal/core/services"
	"github.com/AchilleasB/roombook/booking-client/internal/metrics"
	"github.com/AchilleasB/roombook/booking-client/internal/session"
)

// Options override what New would otherwise build from the config.
type Options struct {
	// Store replaces the configured storage backend. Contexts that should
	// see each other's writes must share it (or its hub).
	Store     broadcast.SharedStore
	Transport ports.EventTransport
	Navigator ports.Navigator
	Notifier  ports.Notifier
	// OnRedirect is called when the default router is sent to a login page.
	OnRedirect func(path string)
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

type App struct {
	Config   *config.Config
	Session  *session.Session
	Gateway  *gateway.Gateway
	Bus      *broadcast.Bus
	Auth     *services.AuthService
	Rooms    *services.RoomService
	Bookings *services.BookingCoordinator
	Stores   *services.StoreService
	Recovery *services.RecoveryService
	Router   *navigation.Router
	Metrics  *metrics.Metrics

	logger  *slog.Logger
	closers []func() error
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	a := &App{Config: cfg, Metrics: m, logger: logger}

	store := opts.Store
	if store == nil {
		var err error
		if store, err = a.openStore(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	transport := opts.Transport
	if transport == nil {
		var err error
		if transport, err = a.openTransport(store); err != nil {
			a.Close()
			return nil, err
		}
	}

	jar := gateway.NewJar()
	sess, err := session.New(ctx, store, jar, cfg.Labels, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}
	a.Session = sess

	nav := opts.Navigator
	if nav == nil {
		a.Router = navigation.NewRouter("/", opts.OnRedirect, logger)
		nav = a.Router
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = navigation.NewLogNotifier(logger)
	}

	a.Gateway = gateway.New(sess, nav, notifier, gateway.Options{
		BaseURL:     cfg.APIBaseURL,
		HTTPClient:  &http.Client{Timeout: cfg.HTTPTimeout, Jar: jar},
		ExemptPaths: cfg.ExemptPaths,
		Limiter:     newLimiter(cfg),
		Metrics:     m,
		Logger:      logger,
	})

	roomAPI := api.NewRoomClient(a.Gateway)
	a.Bus = broadcast.NewBus(transport, cfg.Labels, m, logger)
	a.Auth = services.NewAuthService(api.NewAuthClient(a.Gateway), sess, logger)
	a.Rooms = services.NewRoomService(roomAPI, api.NewUsageRecordClient(a.Gateway), sess, a.Bus, logger)
	a.Bookings = services.NewBookingCoordinator(api.NewBookingClient(a.Gateway), roomAPI, a.Bus, cfg.Labels, services.CoordinatorOptions{
		CompensationTimeout: cfg.CompensationTimeout,
		Metrics:             m,
		Logger:              logger,
	})
	a.Stores = services.NewStoreService(api.NewStoreClient(a.Gateway), sess, logger)
	a.Recovery = services.NewRecoveryService(api.NewRecoveryClient(a.Gateway), logger)
	a.Rooms.BindCache(a.Bus)

	return a, nil
}

// newLimiter builds the outgoing request limiter. A limiter that could never
// admit a request is replaced: no rate means unlimited, and the burst is at
// least one.
func newLimiter(cfg *config.Config) *rate.Limiter {
	if cfg.RequestRate <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(cfg.RequestRate), max(cfg.RequestBurst, 1))
}

func (a *App) openStore(ctx context.Context) (broadcast.SharedStore, error) {
	switch a.Config.StorageBackend {
	case config.StorageMemory:
		return storage.NewHub(a.logger).Open(), nil

	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     a.Config.RedisAddress,
			Password: a.Config.RedisPassword,
			DB:       0,
		})
		a.closers = append(a.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.logger.Info("app: connected to redis", "addr", a.Config.RedisAddress)
		return storage.NewRedisStore(client, a.logger), nil

	case config.StoragePostgres:
		db, err := sql.Open("postgres", a.Config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := storage.EnsureSchema(ctx, db); err != nil {
			return nil, fmt.Errorf("create storage schema: %w", err)
		}
		return storage.NewPostgresStore(db, a.Config.DatabaseURL, a.logger), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", a.Config.StorageBackend)
}

func (a *App) openTransport(store broadcast.SharedStore) (ports.EventTransport, error) {
	switch a.Config.BusTransport {
	case config.TransportStorage:
		return broadcast.NewStorageTransport(store), nil

	case config.TransportRabbitMQ:
		t, err := messaging.NewRabbitMQTransport(a.Config.RabbitMQURL, a.Config.RoomEventsExchange, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, t.Close)
		return t, nil
	}
	return nil, fmt.Errorf("unknown bus transport %q", a.Config.BusTransport)
}

// Run receives peer room events until ctx is done.
func (a *App) Run(ctx context.Context) error {
	err := a.Bus.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Close drops every listener and releases backend connections.
func (a *App) Close() error {
	if a.Bus != nil {
		a.Bus.Cleanup()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
