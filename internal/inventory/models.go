package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Item struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	StockQuantity int             `json:"stockQuantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Availability is the answer to a stock check. UnitPrice is the current
// selling price, used to freeze line prices at order time.
type Availability struct {
	Available bool            `json:"available"`
	Stock     int             `json:"stock"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Repo is the storage contract, always bound to one transaction.
// GetItem and LockItem return an apperr not-found error for unknown ids.
// LockItem additionally holds the row until the transaction ends.
// AdjustStock applies delta only if the result stays non-negative and
// reports ok=false otherwise.
type Repo interface {
	GetItem(ctx context.Context, id string) (Item, error)
	LockItem(ctx context.Context, id string) (Item, error)
	AdjustStock(ctx context.Context, id string, delta int) (stock int, ok bool, err error)
	CreateItem(ctx context.Context, it Item) error
	UpdatePrice(ctx context.Context, id string, price decimal.Decimal) error
	ListItems(ctx context.Context) ([]Item, error)
}

// TxRunner opens a transaction scoped to inventory work.
type TxRunner interface {
	InInventoryTx(ctx context.Context, fn func(ctx context.Context, r Repo) error) error
}
