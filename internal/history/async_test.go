package history

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-venue-pos/internal/logger"
)

type memSink struct {
	mu      sync.Mutex
	entries []Entry
	fail    bool
	block   chan struct{}
}

func (s *memSink) AppendHistory(_ context.Context, e Entry) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sink down")
	}
	s.entries = append(s.entries, e)
	return nil
}

func TestAsyncRecorderFlushesOnClose(t *testing.T) {
	sink := &memSink{}
	r := NewAsyncRecorder(sink, 8, logger.Discard())
	r.Start()

	r.Record(context.Background(), "u1", ActionOrdered, "order has been placed")
	r.Record(context.Background(), "u1", ActionOrderPaid, "order has been paid")
	r.Close()
	r.WaitClosed()

	require.Len(t, sink.entries, 2)
	assert.Equal(t, ActionOrdered, sink.entries[0].Action)
	assert.Equal(t, "u1", sink.entries[1].UserID)
	assert.NotEmpty(t, sink.entries[0].ID)
	assert.False(t, sink.entries[0].CreatedAt.IsZero())
}

func TestAsyncRecorderSwallowsSinkFailure(t *testing.T) {
	sink := &memSink{fail: true}
	r := NewAsyncRecorder(sink, 4, logger.Discard())
	r.Start()
	r.Record(context.Background(), "u1", ActionOrderDeleted, "")
	r.Close()
	r.WaitClosed()
	assert.Empty(t, sink.entries)
}

func TestAsyncRecorderDropsWhenFull(t *testing.T) {
	sink := &memSink{block: make(chan struct{})}
	r := NewAsyncRecorder(sink, 1, logger.Discard())

	// not started: the inbox holds exactly one entry
	r.Record(context.Background(), "u1", ActionOrdered, "first")
	r.Record(context.Background(), "u1", ActionOrdered, "second")

	close(sink.block)
	r.Start()
	r.Close()
	r.WaitClosed()

	require.Len(t, sink.entries, 1)
	assert.Equal(t, "first", sink.entries[0].Details)
}

func TestAsyncRecorderIgnoresUnknownActionAndLateRecords(t *testing.T) {
	sink := &memSink{}
	r := NewAsyncRecorder(sink, 4, logger.Discard())
	r.Start()
	r.Record(context.Background(), "u1", Action("BOGUS"), "")
	r.Close()
	r.Close()
	r.Record(context.Background(), "u1", ActionOrdered, "after close")
	r.WaitClosed()
	assert.Empty(t, sink.entries)
}
