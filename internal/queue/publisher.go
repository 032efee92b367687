package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/blog-backend/internal/config"
)

// Publisher hands events to the broker.  Callers log failures and carry on;
// a publish error never fails the HTTP request that caused it.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NewPublisher returns an AMQP publisher when the queue is enabled and a
// no-op otherwise.
func NewPublisher(cfg config.QueueConfig) Publisher {
	if !cfg.Enabled {
		return NopPublisher{}
	}
	return &AMQPPublisher{cfg: cfg}
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// AMQPPublisher opens a short-lived connection per event and publishes it as
// a persistent JSON message on the durable queue.  Dialing is bounded by
// cfg.DialTimeout so an unreachable broker cannot stall requests.
type AMQPPublisher struct {
	cfg config.QueueConfig
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := amqp.DialConfig(p.cfg.URL, amqp.Config{Dial: amqp.DefaultDial(p.cfg.DialTimeout)})
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Idempotent; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.cfg.Name, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.OccurredAt,
		Type:         ev.Type,
		Body:         body,
	}
	// default exchange, routing key = queue name
	if err := ch.PublishWithContext(ctx, "", p.cfg.Name, false, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}
