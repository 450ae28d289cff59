package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/AchilleasB/roombook/booking-client/internal/config"
	"github.com/AchilleasB/roombook/booking-client/internal/core/ports"
)

const (
	redisKeyPrefix     = "roombook:"
	redisChannelPrefix = "storage:"
)

// RedisStore keeps durable keys in Redis and announces writes on a per-key
// pub/sub channel so peer contexts on other processes observe them.
type RedisStore struct {
	client redis.UniversalClient
	origin string
	cb     *gobreaker.CircuitBreaker
	logger *slog.Logger
}

var (
	_ ports.KVStore    = (*RedisStore)(nil)
	_ ports.ChangeFeed = (*RedisStore)(nil)
)

func NewRedisStore(client redis.UniversalClient, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{
		client: client,
		origin: uuid.NewString(),
		cb:     config.NewCircuitBreaker("Redis-Storage", logger),
		logger: logger,
	}
}

func (s *RedisStore) Origin() string {
	return s.origin
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	res, err := s.cb.Execute(func() (interface{}, error) {
		v, err := s.client.Get(ctx, redisKeyPrefix+key).Result()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return v, nil
	})
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if res == nil {
		return "", false, nil
	}
	return res.(string), true, nil
}

// Set writes the value and publishes the change in one MULTI/EXEC.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	payload, err := json.Marshal(ports.StorageChange{Key: key, Value: value, Origin: s.origin})
	if err != nil {
		return err
	}

	_, err = s.cb.Execute(func() (interface{}, error) {
		return s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, redisKeyPrefix+key, value, 0)
			pipe.Publish(ctx, redisChannelPrefix+key, payload)
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = redisKeyPrefix + k
	}
	_, err := s.cb.Execute(func() (interface{}, error) {
		return s.client.Del(ctx, prefixed...).Result()
	})
	if err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// Watch subscribes to changes of key published by other stores. It fails if
// the subscription cannot be established and returns nil when ctx is done.
func (s *RedisStore) Watch(ctx context.Context, key string, fn func(ports.StorageChange)) error {
	sub := s.client.Subscribe(ctx, redisChannelPrefix+key)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("redis subscribe %s: %w", key, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var change ports.StorageChange
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				s.logger.Warn("storage: malformed redis change notification", "channel", msg.Channel, "error", err)
				continue
			}
			if change.Origin == s.origin {
				continue
			}
			fn(change)
		}
	}
}
