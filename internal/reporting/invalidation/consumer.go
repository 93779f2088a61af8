// Package invalidation bumps the report cache when the property system announces
// record changes over RabbitMQ.
package invalidation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// RecordChanged is published by the property system after a write.
type RecordChanged struct {
	Entity  string    `json:"entity"`
	ID      string    `json:"id"`
	OwnerID string    `json:"owner_id,omitempty"`
	At      time.Time `json:"at"`
}

// reportedEntities are the records any summary is computed from.
var reportedEntities = map[string]bool{
	"property":            true,
	"room":                true,
	"bill":                true,
	"bill_line_item":      true,
	"maintenance_ticket":  true,
	"maintenance_request": true,
	"contract":            true,
	"tenant":              true,
}

// Bumper invalidates cached summaries.
type Bumper interface {
	BumpCache(ctx context.Context) error
}

// Config selects the broker topology.
type Config struct {
	URL      string
	Exchange string
	Queue    string
	// Debounce coalesces bursts of changes into one bump. Defaults to 5s.
	Debounce time.Duration
	Prefetch int
}

// Consumer listens for RecordChanged events.
type Consumer struct {
	cfg    Config
	bumper Bumper
	logger *slog.Logger
}

var errDeliveriesClosed = errors.New("invalidation: delivery channel closed")

// NewConsumer validates cfg.
func NewConsumer(cfg Config, bumper Bumper, logger *slog.Logger) (*Consumer, error) {
	if cfg.URL == "" || cfg.Exchange == "" || cfg.Queue == "" {
		return nil, errors.New("invalidation: url, exchange and queue are required")
	}
	if bumper == nil {
		return nil, errors.New("invalidation: bumper required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 5 * time.Second
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{cfg: cfg, bumper: bumper, logger: logger.With(slog.String("component", "invalidation"))}, nil
}

// Run consumes until ctx is cancelled, reconnecting with backoff after broker failures.
func (c *Consumer) Run(ctx context.Context) error {
	for attempt := 0; ; attempt++ {
		err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		wait := backoff(attempt)
		c.logger.Warn("broker session ended", slog.Any("error", err), slog.Duration("retry_in", wait))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Consumer) session(ctx context.Context) error {
	conn, err := amqp091.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.ExchangeDeclare(c.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(c.cfg.Queue, "#", c.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, c.cfg.Queue, "rentdash-reporting", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	c.logger.Info("consuming record changes", slog.String("queue", c.cfg.Queue))
	return c.consume(ctx, msgs)
}

// consume acks relevant deliveries only after the bump that covers them succeeded.
func (c *Consumer) consume(ctx context.Context, msgs <-chan amqp091.Delivery) error {
	var (
		pending []amqp091.Delivery
		timer   *time.Timer
		fire    <-chan time.Time
	)
	settle := func(err error) {
		for _, d := range pending {
			if err != nil {
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
		pending = pending[:0]
	}
	flush := func() {
		if len(pending) == 0 {
			return
		}
		err := c.bumper.BumpCache(ctx)
		if err != nil {
			c.logger.Error("bump cache", slog.Int("changes", len(pending)), slog.Any("error", err))
		} else {
			c.logger.Info("report cache bumped", slog.Int("changes", len(pending)))
		}
		settle(err)
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			settle(ctx.Err())
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				flush()
				return errDeliveriesClosed
			}
			var ev RecordChanged
			if err := json.Unmarshal(d.Body, &ev); err != nil || ev.Entity == "" {
				c.logger.Warn("drop malformed record change", slog.String("message_id", d.MessageId))
				_ = d.Nack(false, false)
				continue
			}
			if !reportedEntities[ev.Entity] {
				_ = d.Ack(false)
				continue
			}
			pending = append(pending, d)
			if fire == nil {
				timer = time.NewTimer(c.cfg.Debounce)
				fire = timer.C
			}
		case <-fire:
			fire = nil
			flush()
		}
	}
}

// backoff doubles from one second up to thirty.
func backoff(attempt int) time.Duration {
	if attempt > 5 {
		return 30 * time.Second
	}
	d := time.Duration(1<<attempt) * time.Second
	if d > 30*time.Second {
		return 30 * time.Second
	}
	return d
}
