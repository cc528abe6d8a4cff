// Package queue publishes domain events to a RabbitMQ topic exchange so
// other services can react to bookings and claims.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"parking-share-backend/internal/notification"
)

// Channel is the subset of *amqp.Channel used by the publisher.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher forwards notification events to an exchange, using the event
// type as routing key.
type Publisher struct {
	exchange string
	ch       Channel
	conn     *amqp.Connection
	events   chan notification.Event
}

// Dial connects to the broker and declares the exchange.
func Dial(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq: channel open failed: %w", err)
	}
	p, err := NewPublisher(ch, exchange)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewPublisher declares a durable topic exchange on ch.
func NewPublisher(ch Channel, exchange string) (*Publisher, error) {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("rabbitmq: exchange declare failed: %w", err)
	}
	return &Publisher{
		exchange: exchange,
		ch:       ch,
		events:   make(chan notification.Event, 256),
	}, nil
}

// Notify queues the event for publishing and never blocks.
func (p *Publisher) Notify(e notification.Event) {
	select {
	case p.events <- e:
	default:
		log.Printf("rabbitmq: queue full, dropping %s", e.Type)
	}
}

// Run publishes queued events until ctx is cancelled, then closes the channel
// and connection.
func (p *Publisher) Run(ctx context.Context) {
	defer p.close()
	for {
		select {
		case e := <-p.events:
			if err := p.Publish(ctx, e); err != nil {
				log.Printf("rabbitmq: publish %s failed: %v", e.Type, err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Publish sends a single persistent message.
func (p *Publisher) Publish(ctx context.Context, e notification.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(ctx, p.exchange, string(e.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

func (p *Publisher) close() {
	_ = p.ch.Close()
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
