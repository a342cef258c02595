// Package rabbitmq publishes domain events to a topic exchange with
// publisher confirms.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ariefcatur/go-venue-pos/internal/events"
)

const Exchange = "pos.events"

var ErrNack = errors.New("publish NACK from broker")

// Publisher owns one confirm-mode channel. Publishes are serialized so
// each confirmation pairs with the message that produced it.
type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	acks <-chan amqp.Confirmation
	mu   sync.Mutex
}

func Dial(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	return &Publisher{conn: conn, ch: ch, acks: acks}, nil
}

func (p *Publisher) Ping() error {
	if p.conn == nil || p.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

// Publish implements events.Publisher. The topic becomes the routing key.
func (p *Publisher) Publish(ctx context.Context, topic string, key []byte, env events.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, Exchange, topic, false, false, amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		MessageId:     env.EventID,
		CorrelationId: string(key),
		Timestamp:     time.Now().UTC(),
		Type:          env.EventType,
		Headers: amqp.Table{
			"x-event-version": strconv.Itoa(env.EventVersion),
			"x-trace-id":      env.TraceID,
		},
		Body: body,
	})
	if err != nil {
		return err
	}

	select {
	case conf := <-p.acks:
		if conf.Ack {
			return nil
		}
		return ErrNack
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Publisher) Close() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
