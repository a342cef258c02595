package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-venue-pos/internal/history"
	"github.com/ariefcatur/go-venue-pos/internal/logger"
)

type memSink struct {
	entries []history.Entry
	err     error
}

func (s *memSink) AppendHistory(_ context.Context, e history.Entry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, e)
	return nil
}

func TestHistoryHandlerAppendsDecodedEntry(t *testing.T) {
	sink := &memSink{}
	h := HistoryHandler(sink, logger.Discard())

	e := history.Entry{ID: "h-1", UserID: "u1", Action: history.ActionOrderPaid, Details: "order o-1 paid", CreatedAt: time.Now().UTC()}
	require.NoError(t, h(context.Background(), kafka.Message{Value: MustMarshal(e)}))

	require.Len(t, sink.entries, 1)
	assert.Equal(t, "h-1", sink.entries[0].ID)
	assert.Equal(t, history.ActionOrderPaid, sink.entries[0].Action)
}

func TestHistoryHandlerSkipsPoisonMessages(t *testing.T) {
	sink := &memSink{}
	h := HistoryHandler(sink, logger.Discard())

	assert.NoError(t, h(context.Background(), kafka.Message{Value: []byte("{not json")}))
	assert.NoError(t, h(context.Background(), kafka.Message{}))
	assert.NoError(t, h(context.Background(), kafka.Message{Value: MustMarshal(history.Entry{UserID: "u1", Action: history.ActionOrdered})}))
	assert.NoError(t, h(context.Background(), kafka.Message{Value: MustMarshal(history.Entry{ID: "h-2", Action: "DANCED"})}))
	assert.Empty(t, sink.entries)
}

func TestHistoryHandlerReturnsSinkFailure(t *testing.T) {
	down := errors.New("db down")
	h := HistoryHandler(&memSink{err: down}, logger.Discard())

	err := h(context.Background(), kafka.Message{Value: MustMarshal(history.Entry{ID: "h-3", Action: history.ActionOrdered})})
	assert.ErrorIs(t, err, down)
}

func TestProducerRejectsSendAfterClose(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, 1, logger.Discard())
	p.Close()
	p.Close()

	err := p.Send(context.Background(), TopicHistory, []byte("k"), []byte("v"))
	assert.ErrorIs(t, err, ErrProducerClosed)
}

func TestProducerSendHonoursContextWhenInboxFull(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, 1, logger.Discard())
	require.NoError(t, p.Send(context.Background(), TopicHistory, nil, []byte("first")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Send(ctx, TopicHistory, nil, []byte("second"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHistorySinkHeadersAreReadable(t *testing.T) {
	m := kafka.Message{Headers: []kafka.Header{
		{Key: HeaderHistoryAction, Value: []byte("ORDERED")},
		{Key: HeaderHistoryID, Value: []byte("h-9")},
	}}
	assert.Equal(t, "h-9", HeaderValue(m, HeaderHistoryID))
	assert.Empty(t, HeaderValue(m, "x-missing"))
}
