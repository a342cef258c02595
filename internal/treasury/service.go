package treasury

import (
	"context"
	"log/slog"
	"time"

	"github.com/ariefcatur/go-venue-pos/internal/events"
)

// Service exposes the treasury outside of order payment: manual entries,
// reconciliation, closing and audit.
type Service struct {
	tx       TxRunner
	events   events.Publisher
	producer string
	log      *slog.Logger
}

func NewService(tx TxRunner, pub events.Publisher, producer string, log *slog.Logger) *Service {
	if pub == nil {
		pub = events.Nop
	}
	return &Service{tx: tx, events: pub, producer: producer, log: log}
}

func (s *Service) Append(ctx context.Context, e Entry) (Transaction, error) {
	var out Transaction
	err := s.tx.InTreasuryTx(ctx, func(ctx context.Context, r Repo) error {
		var err error
		out, err = NewLedger(r).Append(ctx, e)
		return err
	})
	if err != nil {
		return Transaction{}, err
	}
	s.log.Info("treasury transaction appended",
		"transaction_id", out.ID, "type", out.Type, "specific_type", out.SpecificType,
		"amount", out.Amount.StringFixed(2), "method", out.PaymentMethod, "balance_after", out.BalanceAfter.StringFixed(2))

	env, err := events.New(EventTransactionAppended, s.producer, out.ID, AppendedPayload(out))
	if err == nil {
		err = s.events.Publish(ctx, TopicTransactionAppended, []byte(out.ID), events.Stamp(ctx, env))
	}
	if err != nil {
		s.log.Warn("event publish failed", "error", err, "event_type", EventTransactionAppended, "key", out.ID)
	}
	return out, nil
}

func (s *Service) Reconcile(ctx context.Context, id string, date time.Time) (Transaction, error) {
	var out Transaction
	err := s.tx.InTreasuryTx(ctx, func(ctx context.Context, r Repo) error {
		var err error
		out, err = NewLedger(r).Reconcile(ctx, id, date)
		return err
	})
	return out, err
}

func (s *Service) Close(ctx context.Context, until, date time.Time) (int64, error) {
	var n int64
	err := s.tx.InTreasuryTx(ctx, func(ctx context.Context, r Repo) error {
		var err error
		n, err = NewLedger(r).Close(ctx, until, date)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("treasury closed", "until", until.Format(time.DateOnly), "reconciled", n)
	return n, nil
}

func (s *Service) Balance(ctx context.Context) (Balance, error) {
	var out Balance
	err := s.tx.InTreasuryTx(ctx, func(ctx context.Context, r Repo) error {
		var err error
		out, err = NewLedger(r).Balance(ctx)
		return err
	})
	return out, err
}

func (s *Service) Get(ctx context.Context, id string) (Transaction, error) {
	var out Transaction
	err := s.tx.InTreasuryTx(ctx, func(ctx context.Context, r Repo) error {
		var err error
		out, err = r.GetTransaction(ctx, id)
		return err
	})
	return out, err
}

func (s *Service) List(ctx context.Context, f Filter) ([]Transaction, error) {
	var out []Transaction
	err := s.tx.InTreasuryTx(ctx, func(ctx context.Context, r Repo) error {
		var err error
		out, err = r.ListTransactions(ctx, f)
		return err
	})
	return out, err
}

// Verify replays the whole ledger.
func (s *Service) Verify(ctx context.Context) (int, error) {
	txs, err := s.List(ctx, Filter{})
	if err != nil {
		return 0, err
	}
	return len(txs), Verify(txs)
}
