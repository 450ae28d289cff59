package config

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// NewCircuitBreaker creates a circuit breaker with standard settings.
// The name parameter uniquely identifies the circuit breaker instance.
func NewCircuitBreaker(name string, logger *slog.Logger) *gobreaker.CircuitBreaker {
	var timeout time.Duration

	switch name {
	case "Booking-API":
		timeout = time.Second * 10
	case "Redis-Storage", "PostgreSQL-Storage":
		timeout = time.Second * 5
	default:
		timeout = time.Second * 30 // RabbitMQ and other operations
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Second * 10,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Open circuit after 5 consecutive failures
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Error("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}
