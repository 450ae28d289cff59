package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/AchilleasB/roombook/booking-client/internal/adapters/broadcast"
	"github.com/AchilleasB/roombook/booking-client/internal/config"
	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
	"github.com/AchilleasB/roombook/booking-client/internal/core/ports"
	"github.com/AchilleasB/roombook/booking-client/internal/metrics"
)

const (
	// Event processing timeouts
	eventForwardTimeout = 10 * time.Second
	catchUpTimeout      = 30 * time.Second

	// Safety net for missed notifications
	periodicCatchUpInterval = 90 * time.Second

	// Health check configuration
	healthCheckStaleThreshold = 5 * time.Minute
)

// Relay watches the roomStatusUpdate storage key and forwards every valid
// event to a sink transport, so contexts that cannot share the store still
// receive room status changes.
type Relay struct {
	store   broadcast.SharedStore
	sink    ports.EventTransport
	labels  *domain.Labels
	metrics *metrics.Metrics
	logger  *slog.Logger
	storeCB *gobreaker.CircuitBreaker

	mu            sync.RWMutex
	lastProcessed time.Time
	lastPayload   string
	isHealthy     bool
}

func NewRelay(store broadcast.SharedStore, sink ports.EventTransport, labels *domain.Labels, m *metrics.Metrics, logger *slog.Logger) *Relay {
	if m == nil {
		m = metrics.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		store:         store,
		sink:          sink,
		labels:        labels,
		metrics:       m,
		logger:        logger,
		storeCB:       config.NewCircuitBreaker("Relay-Storage", logger),
		lastProcessed: time.Now(),
		isHealthy:     true,
	}
}

// IsHealthy reports whether the relay process is alive. It is meant for
// liveness checks and ignores dependency state.
func (r *Relay) IsHealthy() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isHealthy
}

// IsReady reports whether the relay can currently forward events.
func (r *Relay) IsReady() bool {
	if r.storeCB.State() == gobreaker.StateOpen {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if time.Since(r.lastProcessed) > healthCheckStaleThreshold {
		return false
	}
	return r.isHealthy
}

// Start forwards events until ctx is cancelled. The key's current value is
// forwarded on startup and re-checked periodically in case a notification
// was missed.
func (r *Relay) Start(ctx context.Context) error {
	changes := make(chan string, 16)
	watchErr := make(chan error, 1)

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		watchErr <- r.store.Watch(watchCtx, ports.KeyRoomStatusUpdate, func(c ports.StorageChange) {
			select {
			case changes <- c.Value:
			case <-watchCtx.Done():
			}
		})
	}()

	r.logger.Info("relay: watching storage", "key", ports.KeyRoomStatusUpdate)

	// Process the current value on startup (catch-up)
	if err := r.catchUp(ctx); err != nil {
		r.logger.Error("relay: error processing startup value", "error", err)
	}

	ticker := time.NewTicker(periodicCatchUpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("relay: shutting down")
			return ctx.Err()

		case err := <-watchErr:
			r.setHealthy(false)
			if err == nil {
				err = ctx.Err()
			}
			return err

		case payload := <-changes:
			if err := r.forward(ctx, payload); err != nil {
				r.logger.Error("relay: error forwarding event", "error", err)
			}

		case <-ticker.C:
			if err := r.catchUp(ctx); err != nil {
				r.logger.Error("relay: error in periodic catch-up", "error", err)
			}
		}
	}
}

func (r *Relay) catchUp(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, catchUpTimeout)
	defer cancel()

	res, err := r.storeCB.Execute(func() (interface{}, error) {
		v, ok, err := r.store.Get(ctx, ports.KeyRoomStatusUpdate)
		if err != nil || !ok {
			return "", err
		}
		return v, nil
	})
	if err != nil {
		return err
	}
	payload := res.(string)
	if payload == "" {
		r.touch()
		return nil
	}
	return r.forward(ctx, payload)
}

// forward sends one payload to the sink. Invalid payloads are skipped, and
// the payload forwarded last is never sent twice in a row.
func (r *Relay) forward(ctx context.Context, payload string) error {
	r.mu.RLock()
	duplicate := payload == r.lastPayload
	r.mu.RUnlock()
	if duplicate {
		r.touch()
		return nil
	}

	evt, err := broadcast.Decode([]byte(payload), r.labels)
	if err != nil {
		// Skip bad data instead of retrying it forever.
		r.metrics.BusDropped.WithLabelValues("relay_invalid").Inc()
		r.logger.Warn("relay: invalid payload", "error", err)
		r.remember(payload)
		return nil
	}

	body, err := broadcast.Encode(evt)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, eventForwardTimeout)
	defer cancel()
	if err := r.sink.Send(ctx, body); err != nil {
		return err
	}

	r.metrics.RelayForwarded.Inc()
	r.remember(payload)
	r.logger.Debug("relay: forwarded room status", "room_id", evt.RoomID, "status", evt.Status, "timestamp", evt.Timestamp)
	return nil
}

func (r *Relay) remember(payload string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastPayload = payload
	r.lastProcessed = time.Now()
	r.isHealthy = true
}

func (r *Relay) touch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastProcessed = time.Now()
}

func (r *Relay) setHealthy(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.isHealthy = v
}
