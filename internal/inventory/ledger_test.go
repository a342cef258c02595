package inventory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-venue-pos/internal/apperr"
	"github.com/ariefcatur/go-venue-pos/internal/inventory"
	"github.com/ariefcatur/go-venue-pos/internal/logger"
	"github.com/ariefcatur/go-venue-pos/internal/sqlite/sqlitetest"
)

func TestCheckAvailability(t *testing.T) {
	st := sqlitetest.New(t)
	cola := sqlitetest.Item(t, st, "cola", 3, "2.50")
	svc := inventory.NewService(st, logger.Discard())
	ctx := context.Background()

	av, err := svc.Check(ctx, cola.ID, 3)
	require.NoError(t, err)
	assert.True(t, av.Available)
	assert.Equal(t, 3, av.Stock)
	assert.True(t, decimal.RequireFromString("2.50").Equal(av.UnitPrice))

	av, err = svc.Check(ctx, cola.ID, 4)
	require.NoError(t, err)
	assert.False(t, av.Available)

	_, err = svc.Check(ctx, "missing", 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.Check(ctx, cola.ID, 0)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	// checking never mutates
	it, err := svc.Get(ctx, cola.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, it.StockQuantity)
}

func TestConsume(t *testing.T) {
	st := sqlitetest.New(t)
	cola := sqlitetest.Item(t, st, "cola", 5, "2.50")
	ctx := context.Background()

	consume := func(qty int) error {
		return st.InInventoryTx(ctx, func(ctx context.Context, r inventory.Repo) error {
			return inventory.NewLedger(r).Consume(ctx, cola.ID, qty)
		})
	}

	require.NoError(t, consume(2))
	err := consume(4)
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
	require.NoError(t, consume(3))
	assert.ErrorIs(t, consume(1), apperr.ErrInsufficientStock)
	assert.ErrorIs(t, consume(-1), apperr.ErrValidation)

	it, err := inventory.NewService(st, logger.Discard()).Get(ctx, cola.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, it.StockQuantity)
}

func TestConsumeConcurrentNeverOversells(t *testing.T) {
	st := sqlitetest.New(t)
	cola := sqlitetest.Item(t, st, "cola", 10, "1.00")
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok, bad int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := st.InInventoryTx(ctx, func(ctx context.Context, r inventory.Repo) error {
				return inventory.NewLedger(r).Consume(ctx, cola.ID, 1)
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if apperr.CodeOf(err) == apperr.CodeInsufficientStock {
				bad++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	assert.Equal(t, 15, bad)
	it, err := inventory.NewService(st, logger.Discard()).Get(ctx, cola.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, it.StockQuantity)
}

func TestAdministration(t *testing.T) {
	st := sqlitetest.New(t)
	svc := inventory.NewService(st, logger.Discard())
	ctx := context.Background()

	it, err := svc.Create(ctx, "  espresso ", 4, decimal.RequireFromString("3.456"))
	require.NoError(t, err)
	assert.Equal(t, "espresso", it.Name)
	assert.Equal(t, "3.46", it.UnitPrice.StringFixed(2))

	it, err = svc.Restock(ctx, it.ID, 6)
	require.NoError(t, err)
	assert.Equal(t, 10, it.StockQuantity)

	it, err = svc.SetPrice(ctx, it.ID, decimal.RequireFromString("4"))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(4).Equal(it.UnitPrice))

	_, err = svc.Create(ctx, "", 1, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.Create(ctx, "water", 1, decimal.Zero)
	assert.ErrorIs(t, err, apperr.ErrInvalidAmount)
	_, err = svc.Restock(ctx, it.ID, 0)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.Restock(ctx, "missing", 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.SetPrice(ctx, "missing", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, it.ID, list[0].ID)
}

func TestPricesThatRoundToZeroAreRejected(t *testing.T) {
	st := sqlitetest.New(t)
	cola := sqlitetest.Item(t, st, "cola", 3, "2.50")
	svc := inventory.NewService(st, logger.Discard())
	ctx := context.Background()

	_, err := svc.Create(ctx, "mint", 1, decimal.RequireFromString("0.004"))
	assert.ErrorIs(t, err, apperr.ErrInvalidAmount)
	_, err = svc.SetPrice(ctx, cola.ID, decimal.RequireFromString("0.004"))
	assert.ErrorIs(t, err, apperr.ErrInvalidAmount)

	it, err := svc.Get(ctx, cola.ID)
	require.NoError(t, err)
	assert.Equal(t, "2.50", it.UnitPrice.StringFixed(2))
	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
