package orders

import (
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-venue-pos/internal/treasury"
)

const (
	EventOrderCreated     = "OrderCreated"
	EventOrderItemAdded   = "OrderItemAdded"
	EventOrderItemRemoved = "OrderItemRemoved"
	EventOrderPaid        = "OrderPaid"
	EventOrderDeleted     = "OrderDeleted"
	EventOrderReady       = "OrderReady"
)

type ItemPrice struct {
	OrderItemID     string          `json:"order_item_id"`
	InventoryItemID string          `json:"inventory_item_id"`
	Qty             int             `json:"qty"`
	LinePrice       decimal.Decimal `json:"line_price"`
}

type OrderCreatedPayload struct {
	OrderID    string          `json:"order_id"`
	ClientID   string          `json:"client_id"`
	UserID     string          `json:"user_id"`
	Items      []ItemPrice     `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

type OrderItemChangedPayload struct {
	OrderID    string          `json:"order_id"`
	Item       ItemPrice       `json:"item"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

type OrderPaidPayload struct {
	OrderID       string          `json:"order_id"`
	UserID        string          `json:"user_id"`
	PaymentMethod treasury.Method `json:"payment_method"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"treasury_transaction_id"`
}

type OrderDeletedPayload struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
}

type OrderReadyPayload struct {
	OrderID string `json:"order_id"`
	Items   int64  `json:"items"`
}

func itemPrices(items []OrderItem) []ItemPrice {
	out := make([]ItemPrice, 0, len(items))
	for _, it := range items {
		out = append(out, itemPrice(it))
	}
	return out
}

func itemPrice(it OrderItem) ItemPrice {
	return ItemPrice{OrderItemID: it.ID, InventoryItemID: it.InventoryItemID, Qty: it.Quantity, LinePrice: it.Price}
}
