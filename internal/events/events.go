package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// New wraps payload in a version 1 envelope.
func New(eventType, producer, correlationID string, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       b,
	}, nil
}

func UnwrapPayload[T any](env Envelope) (T, error) {
	var t T
	if err := json.Unmarshal(env.Payload, &t); err != nil {
		return t, fmt.Errorf("decode %s payload: %w", env.EventType, err)
	}
	return t, nil
}

// Publisher delivers envelopes to a topic. Key selects the partition (or
// routing key) so events of one aggregate stay ordered.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, env Envelope) error
}

type nop struct{}

func (nop) Publish(context.Context, string, []byte, Envelope) error { return nil }

// Nop drops every event.
var Nop Publisher = nop{}

// Recorder keeps published events in memory. Used in tests and dry runs.
type Recorder struct {
	mu     sync.Mutex
	events []Published
}

type Published struct {
	Topic string
	Key   string
	Env   Envelope
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Publish(_ context.Context, topic string, key []byte, env Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Published{Topic: topic, Key: string(key), Env: env})
	return nil
}

func (r *Recorder) Events() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Published, len(r.events))
	copy(out, r.events)
	return out
}

type traceKey struct{}

// WithTraceID attaches a request id that Stamp copies into envelopes.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

// Stamp copies the trace id carried by ctx into env.
func Stamp(ctx context.Context, env Envelope) Envelope {
	if env.TraceID == "" {
		env.TraceID = TraceID(ctx)
	}
	return env
}
