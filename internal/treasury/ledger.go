package treasury

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-venue-pos/internal/apperr"
)

// Ledger is the append-only treasury chain on top of a transaction-bound Repo.
type Ledger struct {
	repo Repo
	now  func() time.Time
}

func NewLedger(r Repo) *Ledger { return &Ledger{repo: r, now: time.Now} }

// Append reads the head of the chain under the global treasury lock and
// stores a new transaction whose before values equal the head's after
// values. Only the sub-balance of the payment method moves.
func (l *Ledger) Append(ctx context.Context, e Entry) (Transaction, error) {
	// validated at the stored precision: 0.001 would be stored as 0.00
	amount := e.Amount.Round(2)
	if !amount.IsPositive() {
		return Transaction{}, apperr.InvalidAmount("treasury amount must be positive, got %s", e.Amount.String())
	}
	if e.Type != TypeIncome && e.Type != TypeExpense {
		return Transaction{}, apperr.Validation("unknown transaction type %q", e.Type)
	}
	if !e.PaymentMethod.Valid() {
		return Transaction{}, apperr.Validation("unknown payment method %q", e.PaymentMethod)
	}
	if !e.SpecificType.Valid() {
		return Transaction{}, apperr.Validation("unknown specific type %q", e.SpecificType)
	}

	head, ok, err := l.repo.LockHead(ctx)
	if err != nil {
		return Transaction{}, fmt.Errorf("lock treasury head: %w", err)
	}
	prev := Balance{Total: decimal.Zero, Cash: decimal.Zero, Visa: decimal.Zero}
	if ok {
		prev = balanceOf(head)
	}

	now := l.now().UTC()
	t := Transaction{
		ID:            uuid.NewString(),
		Type:          e.Type,
		SpecificType:  e.SpecificType,
		Amount:        amount,
		PaymentMethod: e.PaymentMethod,
		Description:   e.Description,
		CashBefore:    prev.Cash,
		CashAfter:     prev.Cash,
		VisaBefore:    prev.Visa,
		VisaAfter:     prev.Visa,
		Date:          truncateDate(now),
		CreatedAt:     now,
	}
	signed := signedAmount(t.Type, amount)
	t.BalanceAfter = prev.Total.Add(signed)
	switch t.PaymentMethod {
	case MethodCash:
		t.CashAfter = prev.Cash.Add(signed)
	case MethodVisa:
		t.VisaAfter = prev.Visa.Add(signed)
	}

	if err := l.repo.InsertTransaction(ctx, &t); err != nil {
		return Transaction{}, fmt.Errorf("insert treasury transaction: %w", err)
	}
	return t, nil
}

// Reconcile stamps a reconciliation date on an existing transaction.
func (l *Ledger) Reconcile(ctx context.Context, id string, date time.Time) (Transaction, error) {
	if err := l.repo.SetReconciliationDate(ctx, id, truncateDate(date)); err != nil {
		return Transaction{}, err
	}
	return l.repo.GetTransaction(ctx, id)
}

// Close reconciles every open transaction dated on or before until.
func (l *Ledger) Close(ctx context.Context, until, date time.Time) (int64, error) {
	return l.repo.ReconcileUntil(ctx, truncateDate(until), truncateDate(date))
}

func (l *Ledger) Balance(ctx context.Context) (Balance, error) {
	head, ok, err := l.repo.Head(ctx)
	if err != nil {
		return Balance{}, err
	}
	if !ok {
		return Balance{Total: decimal.Zero, Cash: decimal.Zero, Visa: decimal.Zero}, nil
	}
	return balanceOf(head), nil
}

var ErrBrokenChain = errors.New("treasury chain broken")

// Verify replays txs (in chain order) from a zero balance and returns an
// error naming the first transaction that breaks the chain.
func Verify(txs []Transaction) error {
	prev := Balance{Total: decimal.Zero, Cash: decimal.Zero, Visa: decimal.Zero}
	for i, t := range txs {
		if !t.Amount.IsPositive() {
			return fmt.Errorf("%w: transaction %d (%s): non-positive amount %s", ErrBrokenChain, i, t.ID, t.Amount)
		}
		signed := signedAmount(t.Type, t.Amount)
		if !t.CashBefore.Equal(prev.Cash) || !t.VisaBefore.Equal(prev.Visa) {
			return fmt.Errorf("%w: transaction %d (%s): before values do not match previous after values", ErrBrokenChain, i, t.ID)
		}
		if want := prev.Total.Add(signed); !t.BalanceAfter.Equal(want) {
			return fmt.Errorf("%w: transaction %d (%s): balance after %s, want %s", ErrBrokenChain, i, t.ID, t.BalanceAfter, want)
		}
		wantCash, wantVisa := prev.Cash, prev.Visa
		if t.PaymentMethod == MethodCash {
			wantCash = wantCash.Add(signed)
		} else {
			wantVisa = wantVisa.Add(signed)
		}
		if !t.CashAfter.Equal(wantCash) || !t.VisaAfter.Equal(wantVisa) {
			return fmt.Errorf("%w: transaction %d (%s): machine sub-balances do not follow payment method %s", ErrBrokenChain, i, t.ID, t.PaymentMethod)
		}
		prev = balanceOf(t)
	}
	return nil
}

func balanceOf(t Transaction) Balance {
	return Balance{Total: t.BalanceAfter, Cash: t.CashAfter, Visa: t.VisaAfter}
}

func signedAmount(typ Type, amount decimal.Decimal) decimal.Decimal {
	if typ == TypeExpense {
		return amount.Neg()
	}
	return amount
}

func truncateDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
