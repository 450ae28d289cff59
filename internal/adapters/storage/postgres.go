package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sony/gobreaker"

	"github.com/AchilleasB/roombook/booking-client/internal/config"
	"github.com/AchilleasB/roombook/booking-client/internal/core/ports"
)

const (
	// PostgreSQL NOTIFY/LISTEN configuration
	listenerMinReconnectInterval = 10 * time.Second
	listenerMaxReconnectInterval = time.Minute
	listenerPingInterval         = 90 * time.Second
	storageChannelName           = "client_storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS client_storage (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore keeps durable keys in the client_storage table and fans
// writes out with NOTIFY on the client_storage channel.
type PostgresStore struct {
	db     *sql.DB
	dbURL  string
	origin string
	cb     *gobreaker.CircuitBreaker
	logger *slog.Logger
}

var (
	_ ports.KVStore    = (*PostgresStore)(nil)
	_ ports.ChangeFeed = (*PostgresStore)(nil)
)

func NewPostgresStore(db *sql.DB, dbURL string, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{
		db:     db,
		dbURL:  dbURL,
		origin: uuid.NewString(),
		cb:     config.NewCircuitBreaker("PostgreSQL-Storage", logger),
		logger: logger,
	}
}

// EnsureSchema creates the storage table if it is missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

func (s *PostgresStore) Origin() string {
	return s.origin
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	res, err := s.cb.Execute(func() (interface{}, error) {
		var value string
		err := s.db.QueryRowContext(ctx,
			"SELECT value FROM client_storage WHERE key = $1",
			key,
		).Scan(&value)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return value, nil
	})
	if err != nil {
		return "", false, fmt.Errorf("postgres get %s: %w", key, err)
	}
	if res == nil {
		return "", false, nil
	}
	return res.(string), true, nil
}

// Set upserts the value and notifies listeners in the same transaction, so
// the notification is only sent if the write commits.
func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	payload, err := json.Marshal(ports.StorageChange{Key: key, Value: value, Origin: s.origin})
	if err != nil {
		return err
	}

	_, err = s.cb.Execute(func() (interface{}, error) {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		defer tx.Rollback()

		_, err = tx.ExecContext(ctx, `
			INSERT INTO client_storage (key, value, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
			key,
			value,
		)
		if err != nil {
			return nil, err
		}

		if _, err := tx.ExecContext(ctx, "SELECT pg_notify($1, $2)", storageChannelName, string(payload)); err != nil {
			return nil, err
		}

		return nil, tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("postgres set %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.cb.Execute(func() (interface{}, error) {
		return s.db.ExecContext(ctx, "DELETE FROM client_storage WHERE key = ANY($1)", pq.Array(keys))
	})
	if err != nil {
		return fmt.Errorf("postgres delete: %w", err)
	}
	return nil
}

// Watch listens on the storage channel and delivers changes to key made by
// other stores. It returns nil when ctx is done.
func (s *PostgresStore) Watch(ctx context.Context, key string, fn func(ports.StorageChange)) error {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			s.logger.Warn("storage: listener error", "error", err)
		}
	}

	listener := pq.NewListener(s.dbURL, listenerMinReconnectInterval, listenerMaxReconnectInterval, reportProblem)
	defer listener.Close()

	if err := listener.Listen(storageChannelName); err != nil {
		return fmt.Errorf("postgres listen: %w", err)
	}

	ticker := time.NewTicker(listenerPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case n := <-listener.Notify:
			if n == nil {
				// reconnected; notifications sent meanwhile are lost
				s.logger.Warn("storage: listener reconnected")
				continue
			}
			change, ok := s.decode(n.Extra)
			if !ok || change.Key != key || change.Origin == s.origin {
				continue
			}
			fn(change)

		case <-ticker.C:
			go listener.Ping()
		}
	}
}

func (s *PostgresStore) decode(extra string) (ports.StorageChange, bool) {
	var change ports.StorageChange
	if err := json.Unmarshal([]byte(extra), &change); err != nil {
		s.logger.Warn("storage: malformed notification payload", "error", err)
		return change, false
	}
	return change, true
}
