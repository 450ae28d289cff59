package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/AchilleasB/roombook/booking-client/internal/core/ports"
)

var _ ports.EventTransport = (*RabbitMQTransport)(nil)

var errConsumerClosed = errors.New("rabbitmq consumer channel closed")

func (t *RabbitMQTransport) Send(ctx context.Context, payload []byte) error {
	// Respect context deadline
	if deadline, ok := ctx.Deadline(); ok {
		if time.Until(deadline) <= 0 {
			return ctx.Err()
		}
	}

	// Use circuit breaker to protect RabbitMQ publish operation
	_, err := t.cb.Execute(func() (interface{}, error) {
		err := t.ch.PublishWithContext(
			ctx,
			t.exchange,
			"",    // routing key, ignored by fanout
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType: "application/json",
				AppId:       t.origin,
				Timestamp:   time.Now(),
				Body:        payload,
			},
		)
		return nil, err
	})
	return err
}

// Listen consumes the exchange on a dedicated channel until ctx is done.
func (t *RabbitMQTransport) Listen(ctx context.Context, deliver func(payload []byte)) error {
	ch, err := t.conn.Channel()
	if err != nil {
		return fmt.Errorf("open consumer channel: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // autoDelete
		true,  // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", t.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue to %s: %w", t.exchange, err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"",    // consumer
		true,  // autoAck
		true,  // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", q.Name, err)
	}

	t.logger.Info("rabbitmq: consuming room events", "exchange", t.exchange, "queue", q.Name)
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errConsumerClosed
			}
			if d.AppId == t.origin {
				continue
			}
			deliver(d.Body)
		}
	}
}
