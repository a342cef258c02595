package kafka

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-venue-pos/internal/events"
)

var ErrProducerClosed = errors.New("kafka producer closed")

// Producer buffers messages in an inbox drained by one goroutine that owns
// the writer. The topic is chosen per message.
type Producer struct {
	w        *kafka.Writer
	inbox    chan kafka.Message
	stopping chan struct{}
	closeCh  chan struct{}
	log      *slog.Logger

	mu     sync.RWMutex
	closed bool
}

func NewProducer(brokers []string, buf int, log *slog.Logger) *Producer {
	p := &Producer{
		inbox:    make(chan kafka.Message, buf),
		stopping: make(chan struct{}),
		closeCh:  make(chan struct{}),
		log:      log,
	}
	p.w = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
		Completion:   p.completed,
	}
	return p
}

func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		for {
			select {
			case <-ctx.Done():
				close(p.stopping)
				p.Close()
				for m := range p.inbox {
					p.write(m)
				}
				_ = p.w.Close()
				return
			case m, ok := <-p.inbox:
				if !ok {
					_ = p.w.Close()
					return
				}
				p.write(m)
			}
		}
	}()
}

func (p *Producer) write(m kafka.Message) {
	if err := p.w.WriteMessages(context.Background(), m); err != nil {
		p.log.Error("kafka write failed", "error", err, "topic", m.Topic, "key", string(m.Key))
	}
}

func (p *Producer) completed(msgs []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, m := range msgs {
		p.log.Error("kafka delivery failed", "error", err, "topic", m.Topic, "key", string(m.Key))
	}
}

// Send queues a raw message. It blocks while the inbox is full until ctx
// is done.
func (p *Producer) Send(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrProducerClosed
	}
	select {
	case p.inbox <- kafka.Message{Topic: topic, Key: key, Value: value, Time: time.Now(), Headers: headers}:
		return nil
	case <-p.stopping:
		return ErrProducerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish implements events.Publisher.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, env events.Envelope) error {
	return p.Send(ctx, topic, key, MustMarshal(env),
		kafka.Header{Key: "x-event-type", Value: []byte(env.EventType)},
		kafka.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
	)
}

// Close stops accepting messages; the loop flushes what is queued and
// closes the writer.
func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.inbox)
}

func (p *Producer) WaitClosed() { <-p.closeCh }
