package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
)

const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"

	TransportStorage  = "storage"
	TransportRabbitMQ = "rabbitmq"
)

var defaultExemptPaths = []string{
	"/api/user/check-username",
	"/api/user/verify-phone",
	"/api/user/reset-password",
}

type Config struct {
	APIBaseURL          string
	HTTPTimeout         time.Duration
	StorageBackend      string
	RedisAddress        string
	RedisPassword       string
	DatabaseURL         string
	BusTransport        string
	RabbitMQURL         string
	RoomEventsExchange  string
	ExemptPaths         []string
	RequestRate         float64
	RequestBurst        int
	CompensationTimeout time.Duration
	Labels              *domain.Labels
}

// Load reads the environment, after an optional .env file.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("config: failed to read .env", "error", err)
	}

	backend := getenv("STORAGE_BACKEND", StorageRedis)
	switch backend {
	case StorageMemory, StorageRedis, StoragePostgres:
	default:
		panic("STORAGE_BACKEND must be one of memory, redis, postgres; got " + backend)
	}

	transport := getenv("BUS_TRANSPORT", TransportStorage)
	switch transport {
	case TransportStorage, TransportRabbitMQ:
	default:
		panic("BUS_TRANSPORT must be storage or rabbitmq; got " + transport)
	}

	dbURL := os.Getenv("DB_CONNECTION_STRING")
	if backend == StoragePostgres && dbURL == "" {
		panic("DB_CONNECTION_STRING environment variable is required for the postgres backend")
	}

	rabbitURL := os.Getenv("RABBITMQ_URL")
	if transport == TransportRabbitMQ && rabbitURL == "" {
		panic("RABBITMQ_URL environment variable is required for the rabbitmq transport")
	}

	requestRate := getenvFloat("REQUEST_RATE", 20)
	requestBurst := getenvInt("REQUEST_BURST", 10)
	if requestRate <= 0 {
		panic("REQUEST_RATE must be positive")
	}
	if requestBurst < 1 {
		panic("REQUEST_BURST must be at least 1")
	}

	labels, err := LoadLabels(os.Getenv("STATUS_LABELS_FILE"))
	if err != nil {
		panic("Failed to load room status labels: " + err.Error())
	}

	return &Config{
		APIBaseURL:          strings.TrimRight(getenv("BOOKING_API_URL", "http://localhost:8080"), "/"),
		HTTPTimeout:         getenvDuration("HTTP_TIMEOUT", 10*time.Second),
		StorageBackend:      backend,
		RedisAddress:        getenv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		DatabaseURL:         dbURL,
		BusTransport:        transport,
		RabbitMQURL:         rabbitURL,
		RoomEventsExchange:  getenv("ROOM_EVENTS_EXCHANGE", "room-status"),
		ExemptPaths:         getenvList("EXEMPT_PATHS", defaultExemptPaths),
		RequestRate:         requestRate,
		RequestBurst:        requestBurst,
		CompensationTimeout: getenvDuration("COMPENSATION_TIMEOUT", 5*time.Second),
		Labels:              labels,
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		out := make([]string, len(fallback))
		copy(out, fallback)
		return out
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
