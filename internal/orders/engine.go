package orders

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-venue-pos/internal/apperr"
	"github.com/ariefcatur/go-venue-pos/internal/events"
	"github.com/ariefcatur/go-venue-pos/internal/history"
	"github.com/ariefcatur/go-venue-pos/internal/inventory"
	"github.com/ariefcatur/go-venue-pos/internal/treasury"
)

// Engine turns pending orders into paid ones. Every operation runs in one
// store transaction; history and events are emitted only after commit.
type Engine struct {
	store    Store
	history  history.Recorder
	events   events.Publisher
	log      *slog.Logger
	producer string
	now      func() time.Time
}

type Option func(*Engine)

func WithEvents(p events.Publisher) Option { return func(e *Engine) { e.events = p } }

func WithProducer(name string) Option { return func(e *Engine) { e.producer = name } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func NewEngine(store Store, rec history.Recorder, log *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		history:  rec,
		events:   events.Nop,
		log:      log,
		producer: "pos-api",
		now:      time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	if e.history == nil {
		e.history = history.Nop
	}
	return e
}

// CreateOrder checks stock for every requested item and stores a PENDING
// order whose line prices are frozen at the current unit prices. Nothing is
// stored if any item is unknown or short.
func (e *Engine) CreateOrder(ctx context.Context, clientID string, items []ItemInput, userID string) (Order, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return Order{}, apperr.Validation("clientId is required")
	}
	if len(items) == 0 {
		return Order{}, apperr.Validation("order must contain at least one item")
	}
	for i, in := range items {
		if err := validateInput(in); err != nil {
			return Order{}, fmt.Errorf("item %d: %w", i+1, err)
		}
	}

	var order Order
	err := e.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		ok, err := tx.Clients().ClientExists(ctx, clientID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("client %s not found", clientID)
		}

		inv := inventory.NewLedger(tx.Inventory())
		need := aggregate(items)
		prices := make(map[string]decimal.Decimal, len(need))
		for _, id := range sortedKeys(need) {
			av, err := inv.CheckAvailability(ctx, id, need[id])
			if err != nil {
				return err
			}
			if !av.Available {
				return apperr.InsufficientStock("insufficient stock for inventory item %s: have %d, need %d", id, av.Stock, need[id])
			}
			prices[id] = av.UnitPrice
		}

		now := e.now().UTC()
		order = Order{
			ID:            uuid.NewString(),
			ClientID:      clientID,
			TotalPrice:    decimal.Zero,
			PaymentStatus: StatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		for _, in := range items {
			line := OrderItem{
				ID:              uuid.NewString(),
				OrderID:         order.ID,
				InventoryItemID: in.InventoryItemID,
				Quantity:        in.Quantity,
				Price:           lineTotal(prices[in.InventoryItemID], in.Quantity),
				PrepStatus:      PrepPreparing,
				CreatedAt:       now,
			}
			order.Items = append(order.Items, line)
			order.TotalPrice = order.TotalPrice.Add(line.Price)
		}
		return tx.Orders().InsertOrder(ctx, order)
	})
	if err != nil {
		return Order{}, err
	}

	e.history.Record(ctx, userID, history.ActionOrdered, fmt.Sprintf("order %s has been placed", order.ID))
	e.publish(ctx, TopicOrderCreated, EventOrderCreated, order.ID, OrderCreatedPayload{
		OrderID:    order.ID,
		ClientID:   order.ClientID,
		UserID:     userID,
		Items:      itemPrices(order.Items),
		TotalPrice: order.TotalPrice,
	})
	e.log.Info("order created", "order_id", order.ID, "client_id", clientID, "items", len(order.Items), "total", order.TotalPrice.StringFixed(2))
	return order, nil
}

// PayOrder consumes stock for every line, appends one income transaction to
// the treasury and marks the order PAID, all in one transaction.
func (e *Engine) PayOrder(ctx context.Context, orderID string, method treasury.Method, userID string) (Order, error) {
	if !method.Valid() {
		return Order{}, apperr.Validation("payment method must be cash or visa, got %q", method)
	}

	var (
		order Order
		txn   treasury.Transaction
	)
	err := e.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.Orders().LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if o.PaymentStatus == StatusPaid {
			return apperr.AlreadyPaid("order %s is already paid", o.ID)
		}
		if !CanTransition(o.PaymentStatus, StatusPaid) {
			return apperr.CannotModify("order %s is %s", o.ID, o.PaymentStatus)
		}
		if len(o.Items) == 0 {
			return apperr.Validation("order %s has no items", o.ID)
		}

		// ascending item id: concurrent payments lock rows in the same order
		inv := inventory.NewLedger(tx.Inventory())
		need := make(map[string]int, len(o.Items))
		for _, it := range o.Items {
			need[it.InventoryItemID] += it.Quantity
		}
		for _, id := range sortedKeys(need) {
			if err := inv.Consume(ctx, id, need[id]); err != nil {
				return err
			}
		}

		txn, err = treasury.NewLedger(tx.Treasury()).Append(ctx, treasury.Entry{
			Amount:        o.TotalPrice,
			Type:          treasury.TypeIncome,
			SpecificType:  treasury.SpecificOrder,
			PaymentMethod: method,
			Description:   fmt.Sprintf("order %s", o.ID),
		})
		if err != nil {
			return err
		}

		now := e.now().UTC()
		o.PaymentStatus = StatusPaid
		o.PaymentMethod = &method
		o.PaidAt = &now
		o.UpdatedAt = now
		if err := tx.Orders().UpdateOrder(ctx, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	e.history.Record(ctx, userID, history.ActionOrderPaid, fmt.Sprintf("order %s has been paid by %s", order.ID, method))
	e.publish(ctx, TopicOrderPaid, EventOrderPaid, order.ID, OrderPaidPayload{
		OrderID:       order.ID,
		UserID:        userID,
		PaymentMethod: method,
		Amount:        txn.Amount,
		TransactionID: txn.ID,
	})
	e.publish(ctx, treasury.TopicTransactionAppended, treasury.EventTransactionAppended, txn.ID, treasury.AppendedPayload(txn))
	e.log.Info("order paid", "order_id", order.ID, "method", method, "amount", order.TotalPrice.StringFixed(2),
		"transaction_id", txn.ID, "balance_after", txn.BalanceAfter.StringFixed(2))
	return order, nil
}

// DeleteOrder removes a PENDING order and its lines.
func (e *Engine) DeleteOrder(ctx context.Context, orderID, userID string) error {
	err := e.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.Orders().LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if !CanTransition(o.PaymentStatus, StatusDeleted) {
			return apperr.CannotDelete("cannot delete order %s: status is %s", o.ID, o.PaymentStatus)
		}
		return tx.Orders().DeleteOrder(ctx, o.ID)
	})
	if err != nil {
		return err
	}

	e.history.Record(ctx, userID, history.ActionOrderDeleted, fmt.Sprintf("order %s has been deleted", orderID))
	e.publish(ctx, TopicOrderDeleted, EventOrderDeleted, orderID, OrderDeletedPayload{OrderID: orderID, UserID: userID})
	e.log.Info("order deleted", "order_id", orderID)
	return nil
}

// AddOrderItem appends a line to a PENDING order. Availability is checked
// for the new quantity plus what the order already holds of the same item.
func (e *Engine) AddOrderItem(ctx context.Context, orderID string, in ItemInput) (Order, error) {
	if err := validateInput(in); err != nil {
		return Order{}, err
	}

	var (
		order Order
		line  OrderItem
	)
	err := e.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.Orders().LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if o.PaymentStatus != StatusPending {
			return apperr.CannotModify("cannot add items to order %s: status is %s", o.ID, o.PaymentStatus)
		}

		held := 0
		for _, it := range o.Items {
			if it.InventoryItemID == in.InventoryItemID {
				held += it.Quantity
			}
		}
		av, err := inventory.NewLedger(tx.Inventory()).CheckAvailability(ctx, in.InventoryItemID, held+in.Quantity)
		if err != nil {
			return err
		}
		if !av.Available {
			return apperr.InsufficientStock("insufficient stock for inventory item %s: have %d, need %d", in.InventoryItemID, av.Stock, held+in.Quantity)
		}

		now := e.now().UTC()
		line = OrderItem{
			ID:              uuid.NewString(),
			OrderID:         o.ID,
			InventoryItemID: in.InventoryItemID,
			Quantity:        in.Quantity,
			Price:           lineTotal(av.UnitPrice, in.Quantity),
			PrepStatus:      PrepPreparing,
			CreatedAt:       now,
		}
		if err := tx.Orders().InsertItem(ctx, line); err != nil {
			return err
		}
		o.Items = append(o.Items, line)
		o.TotalPrice = o.TotalPrice.Add(line.Price)
		o.UpdatedAt = now
		if err := tx.Orders().UpdateOrder(ctx, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	e.publish(ctx, TopicOrderItemAdded, EventOrderItemAdded, order.ID, OrderItemChangedPayload{
		OrderID: order.ID, Item: itemPrice(line), TotalPrice: order.TotalPrice,
	})
	e.log.Info("order item added", "order_id", order.ID, "order_item_id", line.ID, "total", order.TotalPrice.StringFixed(2))
	return order, nil
}

// RemoveOrderItem deletes a line from a PENDING order and subtracts the
// line's frozen price from the total.
func (e *Engine) RemoveOrderItem(ctx context.Context, orderItemID string) (Order, error) {
	var (
		order Order
		line  OrderItem
	)
	err := e.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		it, err := tx.Orders().GetItem(ctx, orderItemID)
		if err != nil {
			return err
		}
		o, err := tx.Orders().LockOrder(ctx, it.OrderID)
		if err != nil {
			return err
		}
		if o.PaymentStatus != StatusPending {
			return apperr.CannotModify("cannot remove items from order %s: status is %s", o.ID, o.PaymentStatus)
		}

		idx := -1
		for i := range o.Items {
			if o.Items[i].ID == orderItemID {
				idx = i
				break
			}
		}
		// removed concurrently while we waited for the order lock
		if idx < 0 {
			return apperr.NotFound("order item %s not found", orderItemID)
		}
		line = o.Items[idx]

		if err := tx.Orders().DeleteItem(ctx, line.ID); err != nil {
			return err
		}
		o.Items = append(o.Items[:idx:idx], o.Items[idx+1:]...)
		o.TotalPrice = o.TotalPrice.Sub(line.Price)
		o.UpdatedAt = e.now().UTC()
		if err := tx.Orders().UpdateOrder(ctx, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	e.publish(ctx, TopicOrderItemRemoved, EventOrderItemRemoved, order.ID, OrderItemChangedPayload{
		OrderID: order.ID, Item: itemPrice(line), TotalPrice: order.TotalPrice,
	})
	e.log.Info("order item removed", "order_id", order.ID, "order_item_id", line.ID, "total", order.TotalPrice.StringFixed(2))
	return order, nil
}

func (e *Engine) GetOrder(ctx context.Context, orderID string) (Order, error) {
	var o Order
	err := e.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		o, err = tx.Orders().GetOrder(ctx, orderID)
		return err
	})
	return o, err
}

func (e *Engine) ListOrders(ctx context.Context, f ListFilter) (Page, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Size <= 0 {
		f.Size = 10
	}
	if f.Status != "" && !f.Status.Listable() {
		return Page{}, apperr.Validation("payment status filter must be PENDING or PAID, got %q", f.Status)
	}
	var (
		list  []Order
		total int
	)
	err := e.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		list, total, err = tx.Orders().ListOrders(ctx, f)
		return err
	})
	if err != nil {
		return Page{}, err
	}
	if list == nil {
		list = []Order{}
	}
	return Page{
		Orders:      list,
		CurrentPage: f.Page,
		Size:        f.Size,
		TotalCount:  total,
		TotalPages:  (total + f.Size - 1) / f.Size,
	}, nil
}

// ListClientOrders returns every order of one client, newest first.
func (e *Engine) ListClientOrders(ctx context.Context, clientID string) ([]Order, error) {
	var list []Order
	err := e.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		ok, err := tx.Clients().ClientExists(ctx, clientID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("client %s not found", clientID)
		}
		list, _, err = tx.Orders().ListOrders(ctx, ListFilter{ClientID: clientID})
		return err
	})
	return list, err
}

func (e *Engine) ListPreparingItems(ctx context.Context) ([]OrderItem, error) {
	var items []OrderItem
	err := e.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		items, err = tx.Orders().ListItemsByPrep(ctx, PrepPreparing)
		return err
	})
	return items, err
}

// MarkOrderReady flags every line of the order as prepared.
func (e *Engine) MarkOrderReady(ctx context.Context, orderID string) (Order, error) {
	var (
		o Order
		n int64
	)
	err := e.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.Orders().LockOrder(ctx, orderID); err != nil {
			return err
		}
		var err error
		if n, err = tx.Orders().SetPrepStatus(ctx, orderID, PrepReady); err != nil {
			return err
		}
		o, err = tx.Orders().GetOrder(ctx, orderID)
		return err
	})
	if err != nil {
		return Order{}, err
	}
	e.publish(ctx, TopicOrderReady, EventOrderReady, orderID, OrderReadyPayload{OrderID: orderID, Items: n})
	return o, nil
}

func (e *Engine) publish(ctx context.Context, topic, eventType, key string, payload any) {
	env, err := events.New(eventType, e.producer, key, payload)
	if err == nil {
		err = e.events.Publish(ctx, topic, []byte(key), events.Stamp(ctx, env))
	}
	if err != nil {
		e.log.Warn("event publish failed", "error", err, "event_type", eventType, "key", key)
	}
}

func validateInput(in ItemInput) error {
	if strings.TrimSpace(in.InventoryItemID) == "" {
		return apperr.Validation("inventoryItemId is required")
	}
	if in.Quantity <= 0 {
		return apperr.Validation("quantity must be positive, got %d", in.Quantity)
	}
	return nil
}

func lineTotal(unit decimal.Decimal, qty int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(qty))).Round(2)
}

func aggregate(items []ItemInput) map[string]int {
	need := make(map[string]int, len(items))
	for _, in := range items {
		need[in.InventoryItemID] += in.Quantity
	}
	return need
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
