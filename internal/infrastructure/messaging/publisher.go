package messaging

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// InventoryQueue receives one message per committed inventory change.
const InventoryQueue = "inventory.changed"

// InventoryChanged is published after a room mutation commits.
type InventoryChanged struct {
	PropertyID string    `json:"propertyId"`
	ActorID    string    `json:"actorId"`
	EventType  string    `json:"eventType"`
	Version    int       `json:"version"`
	IsActive   bool      `json:"isActive"`
	RoomIDs    []string  `json:"roomIds,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher sends inventory events to downstream consumers.
type Publisher interface {
	PublishInventoryChanged(ctx context.Context, event InventoryChanged) error
	Close() error
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) PublishInventoryChanged(context.Context, InventoryChanged) error { return nil }
func (Nop) Close() error { return nil }

// AMQPPublisher publishes to a durable RabbitMQ queue on the default exchange.
// The connection is opened lazily and re-dialed after it drops.
type AMQPPublisher struct {
	url  string
	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{url: url}
}

func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return nil, err
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, err
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(InventoryQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, err
	}
	p.ch = ch
	return ch, nil
}

func (p *AMQPPublisher) PublishInventoryChanged(ctx context.Context, event InventoryChanged) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		log.Warn().Err(err).Str("queue", InventoryQueue).Msg("rabbitmq: channel unavailable")
		return err
	}
	return ch.PublishWithContext(ctx, "", InventoryQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         event.EventType,
		Body:         body,
	})
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}

// Ping reports whether the broker is reachable.
func (p *AMQPPublisher) Ping(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.channel()
	return err
}
