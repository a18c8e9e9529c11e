package queue

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AttemptHeader carries the delivery attempt of a republished message.
const AttemptHeader = "x-attempt"

const maxBackoff = 60 * time.Second

// MessageHandler processes one message body. attempt starts at 1. A nil
// return acks the message; an error schedules another attempt.
type MessageHandler func(ctx context.Context, body []byte, attempt int) error

// republishFunc puts a message back on the queue with the given headers.
type republishFunc func(ctx context.Context, body []byte, headers amqp.Table) error

type Consumer struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	queue       string
	workerCount int
	baseDelay   time.Duration
	handler     MessageHandler
	republish   republishFunc
	logger      *zap.Logger
	wg          sync.WaitGroup
}

type ConsumerConfig struct {
	URL         string
	Queue       string
	Prefetch    int
	WorkerCount int
	BaseDelay   time.Duration
}

func NewConsumer(cfg ConsumerConfig, handler MessageHandler, logger *zap.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", cfg.Queue, err)
	}

	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	c := &Consumer{
		conn:        conn,
		channel:     ch,
		queue:       cfg.Queue,
		workerCount: cfg.WorkerCount,
		baseDelay:   cfg.BaseDelay,
		handler:     handler,
		logger:      logger,
	}
	c.republish = func(ctx context.Context, body []byte, headers amqp.Table) error {
		return ch.PublishWithContext(ctx, "", cfg.Queue, false, false, amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			Headers:      headers,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
		})
	}
	return c, nil
}

// Start runs the worker pool until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.channel.ConsumeWithContext(
		ctx,
		c.queue,
		"",
		false, // autoAck=false
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	c.logger.Info("starting worker pool",
		zap.Int("workers", c.workerCount),
		zap.String("queue", c.queue),
	)

	for i := 0; i < c.workerCount; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i, deliveries)
	}

	<-ctx.Done()
	c.logger.Info("context cancelled, waiting for workers to finish")
	c.wg.Wait()
	return nil
}

func (c *Consumer) worker(ctx context.Context, id int, deliveries <-chan amqp.Delivery) {
	defer c.wg.Done()
	log := c.logger.With(zap.Int("worker_id", id))
	log.Info("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info("worker shutting down")
			return
		case d, ok := <-deliveries:
			if !ok {
				log.Info("delivery channel closed")
				return
			}
			c.processDelivery(ctx, d, log)
		}
	}
}

func (c *Consumer) processDelivery(ctx context.Context, d amqp.Delivery, log *zap.Logger) {
	attempt := AttemptFromHeaders(d.Headers)

	err := c.handler(ctx, d.Body, attempt)
	if err == nil {
		_ = d.Ack(false)
		return
	}

	delay := Backoff(c.baseDelay, attempt)
	log.Warn("message processing failed, retrying",
		zap.Error(err),
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay),
		zap.Uint64("delivery_tag", d.DeliveryTag),
	)

	select {
	case <-time.After(delay):
	case <-ctx.Done():
		// leave it for the next consumer without counting an attempt
		_ = d.Nack(false, true)
		return
	}

	headers := amqp.Table{}
	for k, v := range d.Headers {
		headers[k] = v
	}
	headers[AttemptHeader] = int32(attempt + 1)

	if err := c.republish(ctx, d.Body, headers); err != nil {
		log.Error("republish failed, requeueing", zap.Error(err))
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

// AttemptFromHeaders reads the attempt number of a delivery; first deliveries
// carry no header and count as attempt 1.
func AttemptFromHeaders(h amqp.Table) int {
	if h == nil {
		return 1
	}
	var n int
	switch v := h[AttemptHeader].(type) {
	case int:
		n = v
	case int16:
		n = int(v)
	case int32:
		n = int(v)
	case int64:
		n = int(v)
	default:
		if xDeath, ok := h["x-death"]; ok {
			if deaths, ok := xDeath.([]interface{}); ok && len(deaths) > 0 {
				return len(deaths) + 1
			}
		}
		return 1
	}
	if n < 1 {
		return 1
	}
	return n
}

// Backoff doubles base for every previous attempt, capped at one minute.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(base) * math.Pow(2, float64(attempt-1))
	if delay > float64(maxBackoff) {
		return maxBackoff
	}
	return time.Duration(delay)
}

func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
