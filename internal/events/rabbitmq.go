package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fitmatch/coaching-api/internal/domain"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ publishes persistent JSON envelopes to a durable topic exchange,
// routed by event type (e.g. "request.accepted").
type RabbitMQ struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	ch       *amqp.Channel
	exchange string
}

func NewRabbitMQ(url, exchange string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // autoDelete
		false,    // internal
		false,    // noWait
		nil,      // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: declare exchange: %w", err)
	}
	return &RabbitMQ{conn: conn, ch: ch, exchange: exchange}, nil
}

func (r *RabbitMQ) Publish(ctx context.Context, event domain.Event) error {
	body, err := encode(event)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ch.PublishWithContext(ctx,
		r.exchange,
		event.Type(),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Type:         event.Type(),
			Body:         body,
		},
	)
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.ch.Close()
	return r.conn.Close()
}
