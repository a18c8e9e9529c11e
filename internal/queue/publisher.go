package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"DEEPFAKE_DETECTOR/go-backend/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends JSON messages to one durable queue through the default exchange.
type Publisher struct {
	mu      sync.Mutex
	channel *amqp.Channel
	queue   string
}

func NewPublisher(conn *amqp.Connection, queue string) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open publisher channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return &Publisher{channel: ch, queue: queue}, nil
}

func (p *Publisher) Publish(ctx context.Context, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel.PublishWithContext(ctx,
		"",
		p.queue,
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
		},
	)
}

func (p *Publisher) PublishResult(ctx context.Context, res *models.DetectionResult) error {
	body, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return p.Publish(ctx, body)
}

func (p *Publisher) PublishJob(ctx context.Context, job *models.DetectionJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	return p.Publish(ctx, body)
}

func (p *Publisher) Close() error {
	return p.channel.Close()
}
