package events

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const publishTimeout = 5 * time.Second

// amqpChannel is the part of *amqp.Channel the bridge uses.
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPBridge forwards every bus event to a topic exchange, using the event
// type as the routing key.
type AMQPBridge struct {
	conn     *amqp.Connection
	ch       amqpChannel
	exchange string
	logger   *zerolog.Logger
}

// DialAMQPBridge connects to url and declares the exchange.
func DialAMQPBridge(url, exchange string, logger *zerolog.Logger) (*AMQPBridge, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	bridge, err := newAMQPBridge(ch, exchange, logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	bridge.conn = conn
	return bridge, nil
}

func newAMQPBridge(ch amqpChannel, exchange string, logger *zerolog.Logger) (*AMQPBridge, error) {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPBridge{ch: ch, exchange: exchange, logger: logger}, nil
}

// Attach subscribes the bridge to every event type on bus.
func (b *AMQPBridge) Attach(bus *EventBus) {
	bus.SubscribeAll(b.Handle)
}

// Handle publishes one event. Failures are logged and never returned to the bus.
func (b *AMQPBridge) Handle(event *Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err := b.ch.PublishWithContext(ctx, b.exchange, event.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.CreatedAt,
		Type:         event.Type,
		Body:         event.Payload,
	})
	if err != nil {
		b.logger.Warn().Err(err).Str("event", event.Type).Msg("Failed to publish event to AMQP")
	}
	return nil
}

func (b *AMQPBridge) Close() error {
	if b.ch != nil {
		_ = b.ch.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
