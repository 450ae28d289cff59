package messaging

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"

	"github.com/AchilleasB/roombook/booking-client/internal/config"
)

// RabbitMQTransport implements ports.EventTransport over a fanout exchange.
// Every instance binds its own exclusive queue and skips messages it
// published itself.
type RabbitMQTransport struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	origin   string
	cb       *gobreaker.CircuitBreaker
	logger   *slog.Logger
}

func NewRabbitMQTransport(amqpURL, exchange string, logger *slog.Logger) (*RabbitMQTransport, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareExchange(ch, exchange); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	// Configure circuit breaker for RabbitMQ
	cb := config.NewCircuitBreaker("RabbitMQ-Publisher", logger)

	return &RabbitMQTransport{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
		origin:   uuid.NewString(),
		cb:       cb,
		logger:   logger,
	}, nil
}

// declareExchange is idempotent.
func declareExchange(ch *amqp.Channel, exchange string) error {
	err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeFanout,
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return nil
}

// Origin identifies this transport's messages on the exchange.
func (t *RabbitMQTransport) Origin() string {
	return t.origin
}

// IsClosed reports whether the broker connection is gone.
func (t *RabbitMQTransport) IsClosed() bool {
	return t.conn == nil || t.conn.IsClosed()
}

func (t *RabbitMQTransport) Close() error {
	if t.ch != nil {
		if err := t.ch.Close(); err != nil {
			return err
		}
	}
	if t.conn != nil {
		return t.conn.Close()
	}
	return nil
}
