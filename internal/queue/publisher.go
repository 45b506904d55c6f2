package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher delivers notification events to RabbitMQ. It dials per publish
// so a broker restart never wedges the backend; callers treat failures as
// best-effort (see services.Notifier).
type Publisher struct {
	url string
}

// NewPublisher creates a new Publisher. An empty URL disables publishing;
// Send then reports an error that the notifier logs and drops.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url}
}

// Send publishes a notification event to the named queue. Messages are
// persistent and the queue is declared durable and idempotent.
func (p *Publisher) Send(ctx context.Context, queueName string, userID uuid.UUID, title, message, entityRef string) error {
	if p.url == "" {
		return fmt.Errorf("rabbitmq: no broker configured")
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq: dial failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq: channel open failed: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		return fmt.Errorf("rabbitmq: queue declare failed: %w", err)
	}

	event := NotificationEvent{
		UserID:    userID.String(),
		Title:     title,
		Message:   message,
		EntityRef: entityRef,
		SentAt:    time.Now().UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal event failed: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",        // default exchange
		queueName, // routing key = queue name
		false,     // mandatory
		false,     // immediate
		pub,
	); err != nil {
		return fmt.Errorf("rabbitmq: publish failed: %w", err)
	}

	return nil
}
