package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-venue-pos/internal/inventory"
)

type inventoryRepo struct{ q querier }

const inventoryCols = `id, name, stock_quantity, unit_price, created_at, updated_at`

func (r inventoryRepo) GetItem(ctx context.Context, id string) (inventory.Item, error) {
	return r.getItem(ctx, id, "")
}

func (r inventoryRepo) LockItem(ctx context.Context, id string) (inventory.Item, error) {
	return r.getItem(ctx, id, " FOR UPDATE")
}

func (r inventoryRepo) getItem(ctx context.Context, id, lock string) (inventory.Item, error) {
	it, err := scanInventoryItem(r.q.QueryRow(ctx, `SELECT `+inventoryCols+` FROM inventory_items WHERE id = $1`+lock, id))
	if err != nil {
		return inventory.Item{}, notFound(err, "inventory item %s not found", id)
	}
	return it, nil
}

func (r inventoryRepo) AdjustStock(ctx context.Context, id string, delta int) (int, bool, error) {
	var stock int
	err := r.q.QueryRow(ctx, `
		UPDATE inventory_items
		SET stock_quantity = stock_quantity + $2, updated_at = now()
		WHERE id = $1 AND stock_quantity + $2 >= 0
		RETURNING stock_quantity`, id, delta).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to adjust stock of %s: %w", id, err)
	}
	return stock, true, nil
}

func (r inventoryRepo) CreateItem(ctx context.Context, it inventory.Item) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO inventory_items (id, name, stock_quantity, unit_price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		it.ID, it.Name, it.StockQuantity, it.UnitPrice, it.CreatedAt, it.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert inventory item: %w", err)
	}
	return nil
}

func (r inventoryRepo) UpdatePrice(ctx context.Context, id string, price decimal.Decimal) error {
	tag, err := r.q.Exec(ctx, `UPDATE inventory_items SET unit_price = $2, updated_at = now() WHERE id = $1`, id, price)
	if err != nil {
		return fmt.Errorf("failed to update price: %w", err)
	}
	return mustAffect(tag, "inventory item %s not found", id)
}

func (r inventoryRepo) ListItems(ctx context.Context) ([]inventory.Item, error) {
	rows, err := r.q.Query(ctx, `SELECT `+inventoryCols+` FROM inventory_items ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (inventory.Item, error) { return scanInventoryItem(row) })
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []inventory.Item{}
	}
	return out, nil
}

func scanInventoryItem(row pgx.Row) (inventory.Item, error) {
	var it inventory.Item
	err := row.Scan(&it.ID, &it.Name, &it.StockQuantity, &it.UnitPrice, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}
