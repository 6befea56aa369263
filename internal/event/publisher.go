// Package event publishes mail events to the external delivery
// collaborator. Publishing is fire-and-forget from the ledger's point of
// view: a delivery failure never rolls back ledger state.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	amqp "github.com/streadway/amqp"
)

// MailEvent is the value object handed to the delivery collaborator.
type MailEvent struct {
	To           string         `json:"to"`
	Subject      string         `json:"subject"`
	TemplateData map[string]any `json:"templateData"`
}

// Publisher emits mail events.
type Publisher interface {
	// PublishMail enqueues one mail event. Implementations must not
	// block order or certificate processing on broker trouble.
	PublishMail(ctx context.Context, evt MailEvent) error

	// Close releases the broker connection.
	Close() error
}

// amqpPublisher publishes mail events to a durable RabbitMQ queue.
type amqpPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	logger  zerolog.Logger
}

// NewAMQPPublisher connects to the broker and declares the mail queue.
func NewAMQPPublisher(url, queue string, logger zerolog.Logger) (Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	// Durable so queued mail survives a broker restart.
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	logger = logger.With().Str("component", "mail-publisher").Logger()
	logger.Info().Str("queue", queue).Msg("mail publisher connected")

	return &amqpPublisher{
		conn:    conn,
		channel: ch,
		queue:   queue,
		logger:  logger,
	}, nil
}

// PublishMail enqueues one mail event as persistent JSON.
func (p *amqpPublisher) PublishMail(ctx context.Context, evt MailEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal mail event: %w", err)
	}

	err = p.channel.Publish(
		"",      // default exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish mail event: %w", err)
	}

	p.logger.Debug().
		Str("to", evt.To).
		Str("subject", evt.Subject).
		Msg("mail event published")

	return nil
}

// Close closes the RabbitMQ connection and channel.
func (p *amqpPublisher) Close() error {
	var errs []error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing mail publisher: %v", errs)
	}
	return nil
}

// nopPublisher drops events. Used when mail publishing is disabled.
type nopPublisher struct{}

// NewNopPublisher returns a publisher that discards every event.
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) PublishMail(ctx context.Context, evt MailEvent) error { return nil }
func (nopPublisher) Close() error                                         { return nil }
