package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paid struct {
	OrderID string `json:"order_id"`
	Amount  string `json:"amount"`
}

func TestNewAndUnwrap(t *testing.T) {
	env, err := New("OrderPaid", "pos-api", "o-1", paid{OrderID: "o-1", Amount: "25.00"})
	require.NoError(t, err)
	assert.Equal(t, 1, env.EventVersion)
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, "o-1", env.CorrelationID)

	p, err := UnwrapPayload[paid](env)
	require.NoError(t, err)
	assert.Equal(t, "25.00", p.Amount)
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	env, _ := New("OrderDeleted", "pos-api", "o-2", map[string]string{"order_id": "o-2"})
	require.NoError(t, r.Publish(context.Background(), "pos.order.deleted", []byte("o-2"), env))
	got := r.Events()
	require.Len(t, got, 1)
	assert.Equal(t, "pos.order.deleted", got[0].Topic)
	assert.Equal(t, "o-2", got[0].Key)
}

func TestStampCopiesTraceID(t *testing.T) {
	ctx := WithTraceID(context.Background(), "req-42")
	env, _ := New("OrderCreated", "pos-api", "o-3", struct{}{})
	assert.Equal(t, "req-42", Stamp(ctx, env).TraceID)
	assert.Empty(t, Stamp(context.Background(), env).TraceID)
}
