package orders

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-venue-pos/internal/inventory"
	"github.com/ariefcatur/go-venue-pos/internal/treasury"
)

type Order struct {
	ID            string           `json:"id"`
	ClientID      string           `json:"clientId"`
	Items         []OrderItem      `json:"orderItems"`
	TotalPrice    decimal.Decimal  `json:"totalPrice"`
	PaymentStatus Status           `json:"paymentStatus"`
	PaymentMethod *treasury.Method `json:"paymentMethod,omitempty"`
	PaidAt        *time.Time       `json:"paidAt,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// LineTotal sums the current line prices.
func (o Order) LineTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.Price)
	}
	return sum
}

// OrderItem.Price is the line price, frozen when the line is added.
type OrderItem struct {
	ID              string          `json:"id"`
	OrderID         string          `json:"orderId"`
	InventoryItemID string          `json:"inventoryItemId"`
	Quantity        int             `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	PrepStatus      PrepStatus      `json:"prepStatus"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type ItemInput struct {
	InventoryItemID string `json:"inventoryItemId"`
	Quantity        int    `json:"quantity"`
}

type ListFilter struct {
	ClientID string
	Status   Status
	Page     int
	Size     int
}

type Page struct {
	Orders      []Order `json:"orders"`
	CurrentPage int     `json:"currentPage"`
	Size        int     `json:"size"`
	TotalCount  int     `json:"totalCount"`
	TotalPages  int     `json:"totalPages"`
}

// Repo is the order storage contract, bound to one transaction.
//
// GetOrder and LockOrder load the order with its items in insertion order;
// LockOrder also holds the order row until the transaction ends. Lookups
// of unknown ids return an apperr not-found error. DeleteOrder removes the
// items too.
type Repo interface {
	InsertOrder(ctx context.Context, o Order) error
	GetOrder(ctx context.Context, id string) (Order, error)
	LockOrder(ctx context.Context, id string) (Order, error)
	UpdateOrder(ctx context.Context, o Order) error
	DeleteOrder(ctx context.Context, id string) error
	InsertItem(ctx context.Context, it OrderItem) error
	GetItem(ctx context.Context, id string) (OrderItem, error)
	DeleteItem(ctx context.Context, id string) error
	ListOrders(ctx context.Context, f ListFilter) ([]Order, int, error)
	ListItemsByPrep(ctx context.Context, prep PrepStatus) ([]OrderItem, error)
	SetPrepStatus(ctx context.Context, orderID string, prep PrepStatus) (int64, error)
}

// ClientDirectory is the read-only view of clients the engine needs.
type ClientDirectory interface {
	ClientExists(ctx context.Context, id string) (bool, error)
}

// Tx exposes every repository bound to one database transaction.
type Tx interface {
	Orders() Repo
	Inventory() inventory.Repo
	Treasury() treasury.Repo
	Clients() ClientDirectory
}

// Store runs fn in a single transaction: it commits if fn returns nil and
// rolls back otherwise.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Client struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContactInfo string    `json:"contactInfo,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
