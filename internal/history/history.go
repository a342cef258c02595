package history

import (
	"context"
	"time"
)

type Action string

const (
	ActionUserLogin Action = "USER_LOGIN"

	ActionOrdered      Action = "ORDERED"
	ActionOrderPaid    Action = "ORDER_PAID"
	ActionOrderDeleted Action = "ORDER_DELETED"

	ActionSessionStarted Action = "SESSION_STARTED"
	ActionSessionEnded   Action = "SESSION_ENDED"
	ActionSessionPaid    Action = "SESSION_PAID"
	ActionSessionDeleted Action = "SESSION_DELETED"

	ActionReservation        Action = "RESERVATION"
	ActionReservationPaid    Action = "RESERVATION_PAID"
	ActionReservationDeleted Action = "RESERVATION_DELETED"
)

var actions = map[Action]bool{
	ActionUserLogin: true, ActionOrdered: true, ActionOrderPaid: true, ActionOrderDeleted: true,
	ActionSessionStarted: true, ActionSessionEnded: true, ActionSessionPaid: true, ActionSessionDeleted: true,
	ActionReservation: true, ActionReservationPaid: true, ActionReservationDeleted: true,
}

func (a Action) Valid() bool { return actions[a] }

type Entry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Action    Action    `json:"action"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Filter struct {
	UserID string
	Action Action
	Limit  int
}

// Sink durably appends entries. Appending an entry whose ID already exists
// is a no-op so redelivered entries are harmless.
type Sink interface {
	AppendHistory(ctx context.Context, e Entry) error
}

type Reader interface {
	ListHistory(ctx context.Context, f Filter) ([]Entry, error)
}

// Recorder is what business code talks to. Record never reports failure:
// auditing must not affect the operation it describes.
type Recorder interface {
	Record(ctx context.Context, userID string, action Action, details string)
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, string, Action, string) {}

// Nop discards every entry.
var Nop Recorder = nopRecorder{}
