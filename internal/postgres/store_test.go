package postgres_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-venue-pos/internal/apperr"
	"github.com/ariefcatur/go-venue-pos/internal/history"
	"github.com/ariefcatur/go-venue-pos/internal/inventory"
	"github.com/ariefcatur/go-venue-pos/internal/logger"
	"github.com/ariefcatur/go-venue-pos/internal/orders"
	"github.com/ariefcatur/go-venue-pos/internal/postgres"
	"github.com/ariefcatur/go-venue-pos/internal/treasury"
)

// newStore migrates a throwaway schema on the server named by POSTGRES_DSN.
func newStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	ctx := context.Background()

	admin, err := postgres.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(admin.Close)

	schema := "pos_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	_, err = admin.Exec(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE") })

	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	cfg.MaxConns = 16
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	st := postgres.New(pool)
	require.NoError(t, st.Migrate(ctx, logger.Discard()))
	// a second run is a no-op
	require.NoError(t, st.Migrate(ctx, logger.Discard()))
	return st
}

type fixture struct {
	st     *postgres.Store
	engine *orders.Engine
	inv    *inventory.Service
	treas  *treasury.Service
	client string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := newStore(t)
	c, err := st.CreateClient(context.Background(), "table 1", "")
	require.NoError(t, err)
	return &fixture{
		st:     st,
		engine: orders.NewEngine(st, history.Nop, logger.Discard()),
		inv:    inventory.NewService(st, logger.Discard()),
		treas:  treasury.NewService(st, nil, "test", logger.Discard()),
		client: c.ID,
	}
}

func (f *fixture) item(t *testing.T, name string, stock int, price string) inventory.Item {
	t.Helper()
	it, err := f.inv.Create(context.Background(), name, stock, decimal.RequireFromString(price))
	require.NoError(t, err)
	return it
}

func (f *fixture) order(t *testing.T, items ...orders.ItemInput) orders.Order {
	t.Helper()
	o, err := f.engine.CreateOrder(context.Background(), f.client, items, "cashier-1")
	require.NoError(t, err)
	return o
}

func TestConcurrentPaymentsNeverOversell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	burger := f.item(t, "burger", 5, "10.00")

	// creation reserves nothing, so all ten orders fit the current stock
	const n = 10
	pending := make([]orders.Order, n)
	for i := range pending {
		pending[i] = f.order(t, orders.ItemInput{InventoryItemID: burger.ID, Quantity: 1})
	}

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range pending {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.engine.PayOrder(ctx, pending[i].ID, treasury.MethodCash, "cashier-1")
		}(i)
	}
	wg.Wait()

	paid := 0
	for _, err := range errs {
		if err == nil {
			paid++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
	}
	assert.Equal(t, 5, paid)

	it, err := f.inv.Get(ctx, burger.ID)
	require.NoError(t, err)
	assert.Zero(t, it.StockQuantity)

	count, err := f.treas.Verify(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	bal, err := f.treas.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, "50.00", bal.Cash.StringFixed(2))
}

func TestOpposingLockOrdersDoNotDeadlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.item(t, "fries", 100, "4.00")
	b := f.item(t, "soda", 100, "2.00")

	const n = 12
	pending := make([]orders.Order, n)
	for i := range pending {
		first, second := a, b
		if i%2 == 1 {
			first, second = b, a
		}
		pending[i] = f.order(t,
			orders.ItemInput{InventoryItemID: first.ID, Quantity: 1},
			orders.ItemInput{InventoryItemID: second.ID, Quantity: 1})
	}

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range pending {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.engine.PayOrder(ctx, pending[i].ID, treasury.MethodVisa, "cashier-1")
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	for _, id := range []string{a.ID, b.ID} {
		it, err := f.inv.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 100-n, it.StockQuantity)
	}
	count, err := f.treas.Verify(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, count)
}

func TestPayingTheSameOrderTwiceConcurrently(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	burger := f.item(t, "burger", 10, "10.00")
	o := f.order(t, orders.ItemInput{InventoryItemID: burger.ID, Quantity: 2})

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.engine.PayOrder(ctx, o.ID, treasury.MethodCash, "cashier-1")
		}(i)
	}
	wg.Wait()

	failed := errs[0]
	if failed == nil {
		failed = errs[1]
	} else {
		assert.NoError(t, errs[1])
	}
	assert.ErrorIs(t, failed, apperr.ErrAlreadyPaid)

	it, err := f.inv.Get(ctx, burger.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, it.StockQuantity)
	txs, err := f.treas.List(ctx, treasury.Filter{})
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestConcurrentAppendsKeepChain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			method := treasury.MethodCash
			if i%2 == 1 {
				method = treasury.MethodVisa
			}
			_, errs[i] = f.treas.Append(ctx, treasury.Entry{
				Amount:        decimal.NewFromInt(10),
				Type:          treasury.TypeIncome,
				SpecificType:  treasury.SpecificSales,
				PaymentMethod: method,
			})
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	count, err := f.treas.Verify(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, count)

	bal, err := f.treas.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, "200.00", bal.Total.StringFixed(2))
	assert.Equal(t, "100.00", bal.Cash.StringFixed(2))
	assert.Equal(t, "100.00", bal.Visa.StringFixed(2))
}

func TestTreasuryRowsAreImmutable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.treas.Append(ctx, treasury.Entry{
		Amount:        decimal.NewFromInt(25),
		Type:          treasury.TypeExpense,
		SpecificType:  treasury.SpecificRent,
		PaymentMethod: treasury.MethodCash,
	})
	require.NoError(t, err)

	_, err = f.st.DB.Exec(ctx, `UPDATE treasury_transactions SET amount = 1 WHERE id = $1`, tx.ID)
	assert.ErrorContains(t, err, "immutable")
	_, err = f.st.DB.Exec(ctx, `DELETE FROM treasury_transactions WHERE id = $1`, tx.ID)
	assert.ErrorContains(t, err, "cannot be deleted")

	rec, err := f.treas.Reconcile(ctx, tx.ID, tx.Date)
	require.NoError(t, err)
	require.NotNil(t, rec.ReconciliationDate)
	assert.True(t, rec.Amount.Equal(tx.Amount))

	_, err = f.treas.Reconcile(ctx, "ghost", tx.Date)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSubCentAmountsAreValidationErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.treas.Append(ctx, treasury.Entry{
		Amount:        decimal.RequireFromString("0.001"),
		Type:          treasury.TypeIncome,
		SpecificType:  treasury.SpecificSales,
		PaymentMethod: treasury.MethodCash,
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidAmount)

	_, err = f.inv.Create(ctx, "mint", 1, decimal.RequireFromString("0.004"))
	assert.ErrorIs(t, err, apperr.ErrInvalidAmount)
}

func TestListedOrdersCarryTheirItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.item(t, "fries", 10, "4.00")
	b := f.item(t, "soda", 10, "2.00")

	one := f.order(t, orders.ItemInput{InventoryItemID: a.ID, Quantity: 1})
	two := f.order(t,
		orders.ItemInput{InventoryItemID: b.ID, Quantity: 2},
		orders.ItemInput{InventoryItemID: a.ID, Quantity: 1})

	page, err := f.engine.ListOrders(ctx, orders.ListFilter{Status: orders.StatusPending})
	require.NoError(t, err)
	require.Equal(t, 2, page.TotalCount)

	byID := map[string]orders.Order{}
	for _, o := range page.Orders {
		byID[o.ID] = o
	}
	require.Len(t, byID[one.ID].Items, 1)
	require.Len(t, byID[two.ID].Items, 2)
	assert.Equal(t, b.ID, byID[two.ID].Items[0].InventoryItemID)
	assert.Equal(t, "4.00", byID[two.ID].Items[0].Price.StringFixed(2))
	assert.Equal(t, "8.00", byID[two.ID].TotalPrice.StringFixed(2))
}

func TestUnknownIdsAreNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.GetOrder(ctx, "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.inv.Get(ctx, "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.engine.RemoveOrderItem(ctx, "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	var ae *apperr.Error
	_, err = f.engine.CreateOrder(ctx, "ghost", []orders.ItemInput{{InventoryItemID: "x", Quantity: 1}}, "u")
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, apperr.CodeNotFound, ae.Code)
}

func TestHistoryAppendIsIdempotent(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	e := history.Entry{
		ID:        uuid.NewString(),
		UserID:    "cashier-1",
		Action:    history.ActionOrdered,
		Details:   "order o-1",
		CreatedAt: time.Now().UTC(),
	}

	require.NoError(t, st.AppendHistory(ctx, e))
	require.NoError(t, st.AppendHistory(ctx, e))

	list, err := st.ListHistory(ctx, history.Filter{UserID: "cashier-1"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
