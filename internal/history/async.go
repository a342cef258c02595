package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AsyncRecorder queues entries in a bounded inbox drained by one goroutine.
// Record never blocks: when the inbox is full the entry is dropped and logged.
type AsyncRecorder struct {
	sink    Sink
	log     *slog.Logger
	inbox   chan Entry
	closeCh chan struct{}
	mu      sync.RWMutex
	closed  bool
	timeout time.Duration
}

func NewAsyncRecorder(sink Sink, buf int, log *slog.Logger) *AsyncRecorder {
	if buf <= 0 {
		buf = 1
	}
	return &AsyncRecorder{
		sink:    sink,
		log:     log,
		inbox:   make(chan Entry, buf),
		closeCh: make(chan struct{}),
		timeout: 5 * time.Second,
	}
}

func (r *AsyncRecorder) Record(_ context.Context, userID string, action Action, details string) {
	e := Entry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Action:    action,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
	if !action.Valid() {
		r.log.Warn("history entry dropped: unknown action", "action", action, "user_id", userID)
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.log.Warn("history recorder closed, entry dropped", "action", action, "user_id", userID)
		return
	}
	select {
	case r.inbox <- e:
	default:
		r.log.Warn("history inbox full, entry dropped", "action", action, "user_id", userID)
	}
}

// Start drains the inbox until Close is called. Remaining entries are
// flushed before the goroutine exits.
func (r *AsyncRecorder) Start() {
	go func() {
		defer close(r.closeCh)
		for e := range r.inbox {
			r.write(e)
		}
	}()
}

func (r *AsyncRecorder) write(e Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.sink.AppendHistory(ctx, e); err != nil {
		r.log.Error("history append failed", "error", err, "entry_id", e.ID, "action", e.Action, "user_id", e.UserID)
	}
}

// Close stops accepting entries. Safe to call more than once.
func (r *AsyncRecorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		close(r.inbox)
	}
}

// WaitClosed blocks until queued entries are flushed.
func (r *AsyncRecorder) WaitClosed() { <-r.closeCh }
