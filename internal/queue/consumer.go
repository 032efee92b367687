package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/blog-backend/internal/config"
)

// StartConsumer consumes the events queue and logs each event until ctx is
// cancelled.  Connection failures are retried with exponential backoff
// capped at 30s; a malformed message is rejected without requeue so it
// cannot loop.
func StartConsumer(ctx context.Context, cfg config.QueueConfig, log *zap.Logger) error {
	backoff := time.Second
	for {
		conn, err := amqp.DialConfig(cfg.URL, amqp.Config{Dial: amqp.DefaultDial(cfg.DialTimeout)})
		if err != nil {
			log.Warn("event consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, cfg.Name, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("event consumer: loop ended, reconnecting", zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queueName string, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("event consumer: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			ev, err := decodeEvent(d.Body)
			if err != nil {
				log.Warn("event consumer: bad message", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			log.Info("blog event",
				zap.String("type", ev.Type),
				zap.Uint64("user_id", ev.UserID),
				zap.Uint64("post_id", ev.PostID),
				zap.String("title", ev.Title),
				zap.Bool("published", ev.Published),
				zap.Time("occurred_at", ev.OccurredAt),
			)
			_ = d.Ack(false)
		}
	}
}

// decodeEvent parses a message body and rejects events without a type.
func decodeEvent(body []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return Event{}, fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return Event{}, errors.New("event without type")
	}
	return ev, nil
}
