package config

import (
	"os"

	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
)

// RelayConfig holds configuration for the room event relay.
// It only needs the storage change feed and the broker.
type RelayConfig struct {
	DatabaseURL        string
	RabbitMQURL        string
	RoomEventsExchange string
	HealthAddr         string
	Labels             *domain.Labels
}

func LoadRelayConfig() *RelayConfig {
	dbURL := os.Getenv("DB_CONNECTION_STRING")
	if dbURL == "" {
		panic("DB_CONNECTION_STRING environment variable is required")
	}

	rabbitURL := os.Getenv("RABBITMQ_URL")
	if rabbitURL == "" {
		panic("RABBITMQ_URL environment variable is required")
	}

	labels, err := LoadLabels(os.Getenv("STATUS_LABELS_FILE"))
	if err != nil {
		panic("Failed to load room status labels: " + err.Error())
	}

	return &RelayConfig{
		DatabaseURL:        dbURL,
		RabbitMQURL:        rabbitURL,
		RoomEventsExchange: getenv("ROOM_EVENTS_EXCHANGE", "room-status"),
		HealthAddr:         getenv("RELAY_HEALTH_ADDR", ":8090"),
		Labels:             labels,
	}
}
