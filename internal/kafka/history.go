package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-venue-pos/internal/history"
)

const (
	TopicHistory = "pos.history"

	HeaderHistoryID     = "x-history-id"
	HeaderHistoryAction = "x-history-action"
)

// HistorySink ships history entries to TopicHistory, keyed by user so one
// user's trail stays ordered. cmd/historian persists them.
type HistorySink struct {
	p *Producer
}

func NewHistorySink(p *Producer) *HistorySink { return &HistorySink{p: p} }

func (s *HistorySink) AppendHistory(ctx context.Context, e history.Entry) error {
	return s.p.Send(ctx, TopicHistory, []byte(e.UserID), MustMarshal(e),
		kafka.Header{Key: HeaderHistoryID, Value: []byte(e.ID)},
		kafka.Header{Key: HeaderHistoryAction, Value: []byte(e.Action)})
}

// HistoryHandler decodes entries from TopicHistory into sink.
func HistoryHandler(sink history.Sink, log *slog.Logger) Handler {
	return func(ctx context.Context, m kafka.Message) error {
		var e history.Entry
		if err := Decode(m, &e); err != nil {
			// poison message: log and let the offset move on
			log.Error("undecodable history message", "error", err, "offset", m.Offset, "partition", m.Partition)
			return nil
		}
		if e.ID == "" || !e.Action.Valid() {
			log.Error("invalid history entry", "entry_id", e.ID, "action", e.Action, "offset", m.Offset)
			return nil
		}
		if err := sink.AppendHistory(ctx, e); err != nil {
			return fmt.Errorf("append history %s: %w", e.ID, err)
		}
		return nil
	}
}
