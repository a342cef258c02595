package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-venue-pos/internal/apperr"
)

// Ledger applies the stock rules on top of a transaction-bound Repo.
type Ledger struct {
	repo Repo
}

func NewLedger(r Repo) *Ledger { return &Ledger{repo: r} }

// CheckAvailability never mutates state.
func (l *Ledger) CheckAvailability(ctx context.Context, itemID string, qty int) (Availability, error) {
	if qty <= 0 {
		return Availability{}, apperr.Validation("quantity must be positive, got %d", qty)
	}
	it, err := l.repo.GetItem(ctx, itemID)
	if err != nil {
		return Availability{}, err
	}
	return Availability{
		Available: it.StockQuantity >= qty,
		Stock:     it.StockQuantity,
		UnitPrice: it.UnitPrice,
	}, nil
}

// Consume decrements stock by qty. The row is locked first so concurrent
// consumers of the same item queue behind each other, and the decrement
// itself is conditional on the result staying non-negative.
func (l *Ledger) Consume(ctx context.Context, itemID string, qty int) error {
	if qty <= 0 {
		return apperr.Validation("quantity must be positive, got %d", qty)
	}
	it, err := l.repo.LockItem(ctx, itemID)
	if err != nil {
		return err
	}
	if it.StockQuantity < qty {
		return apperr.InsufficientStock("insufficient stock for inventory item %s: have %d, need %d", itemID, it.StockQuantity, qty)
	}
	_, ok, err := l.repo.AdjustStock(ctx, itemID, -qty)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.InsufficientStock("insufficient stock for inventory item %s", itemID)
	}
	return nil
}

// Restock adds qty units to an existing item.
func (l *Ledger) Restock(ctx context.Context, itemID string, qty int) (Item, error) {
	if qty <= 0 {
		return Item{}, apperr.Validation("restock quantity must be positive, got %d", qty)
	}
	if _, err := l.repo.LockItem(ctx, itemID); err != nil {
		return Item{}, err
	}
	if _, _, err := l.repo.AdjustStock(ctx, itemID, qty); err != nil {
		return Item{}, err
	}
	return l.repo.GetItem(ctx, itemID)
}

func (l *Ledger) SetPrice(ctx context.Context, itemID string, price decimal.Decimal) (Item, error) {
	price, err := unitPrice(price)
	if err != nil {
		return Item{}, err
	}
	if err := l.repo.UpdatePrice(ctx, itemID, price); err != nil {
		return Item{}, err
	}
	return l.repo.GetItem(ctx, itemID)
}

func (l *Ledger) Create(ctx context.Context, name string, stock int, price decimal.Decimal) (Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Item{}, apperr.Validation("item name is required")
	}
	if stock < 0 {
		return Item{}, apperr.Validation("stock quantity cannot be negative")
	}
	price, err := unitPrice(price)
	if err != nil {
		return Item{}, err
	}
	now := time.Now().UTC()
	it := Item{
		ID:            uuid.NewString(),
		Name:          name,
		StockQuantity: stock,
		UnitPrice:     price,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := l.repo.CreateItem(ctx, it); err != nil {
		return Item{}, err
	}
	return it, nil
}

// unitPrice rounds to cents and rejects anything that rounds to zero or below.
func unitPrice(p decimal.Decimal) (decimal.Decimal, error) {
	r := p.Round(2)
	if !r.IsPositive() {
		return decimal.Decimal{}, apperr.InvalidAmount("unit price must be positive, got %s", p.String())
	}
	return r, nil
}
