// Package sqlitetest opens throwaway migrated stores for tests.
package sqlitetest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-venue-pos/internal/inventory"
	"github.com/ariefcatur/go-venue-pos/internal/logger"
	"github.com/ariefcatur/go-venue-pos/internal/sqlite"
)

func New(t testing.TB) *sqlite.Store {
	t.Helper()
	ctx := context.Background()
	st, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "pos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(ctx, logger.Discard()))
	return st
}

// Item seeds an inventory item and returns it.
func Item(t testing.TB, st *sqlite.Store, name string, stock int, price string) inventory.Item {
	t.Helper()
	now := time.Now().UTC()
	it := inventory.Item{
		ID:            uuid.NewString(),
		Name:          name,
		StockQuantity: stock,
		UnitPrice:     decimal.RequireFromString(price),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := st.InInventoryTx(context.Background(), func(ctx context.Context, r inventory.Repo) error {
		return r.CreateItem(ctx, it)
	})
	require.NoError(t, err)
	return it
}

// Client seeds a client and returns its id.
func Client(t testing.TB, st *sqlite.Store, name string) string {
	t.Helper()
	c, err := st.CreateClient(context.Background(), name, "")
	require.NoError(t, err)
	return c.ID
}
