package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tintd/salon-dispatch/internal/push"
	"github.com/tintd/salon-dispatch/internal/service"
)

// Consumer drains the push queue and hands each job to a push.Sender.
// Delivery is a single attempt: failed sends are logged and acknowledged.
type Consumer struct {
	url    string
	queue  string
	sender push.Sender
	logger service.Logger
}

func NewConsumer(url, queue string, sender push.Sender, logger service.Logger) *Consumer {
	return &Consumer{url: url, queue: queue, sender: sender, logger: logger}
}

// Run connects to the broker and consumes until ctx is cancelled,
// reconnecting with backoff whenever the connection drops.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Warnj(log.JSON{"event": "push_consumer.dial_failed", "error": err.Error(), "retry_in": backoff.String()})
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warnj(log.JSON{"event": "push_consumer.loop_ended", "error": fmt.Sprint(err)})
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.logger.Warnj(log.JSON{"event": "push_consumer.qos_failed", "error": err.Error()})
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
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
			if err := c.handleMessage(ctx, d.Body); err != nil {
				c.logger.Errorj(log.JSON{"event": "push_consumer.bad_message", "error": err.Error()})
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// handleMessage decodes one job and sends it. Only undecodable bodies are
// reported as errors; send failures are logged here.
func (c *Consumer) handleMessage(ctx context.Context, body []byte) error {
	var ev PushRequested
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := c.sender.Send(ctx, ev.message()); err != nil {
		c.logger.Warnj(log.JSON{
			"event":      "push.failed",
			"partner_id": ev.PartnerID,
			"booking_id": ev.BookingID,
			"error":      err.Error(),
		})
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
