package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-venue-pos/internal/inventory"
)

type inventoryRepo struct{ q querier }

const inventoryCols = `id, name, stock_quantity, unit_price, created_at, updated_at`

func (r inventoryRepo) GetItem(ctx context.Context, id string) (inventory.Item, error) {
	it, err := scanInventoryItem(r.q.QueryRowContext(ctx, `SELECT `+inventoryCols+` FROM inventory_items WHERE id = ?`, id))
	if err != nil {
		return inventory.Item{}, notFound(err, "inventory item %s not found", id)
	}
	return it, nil
}

func (r inventoryRepo) LockItem(ctx context.Context, id string) (inventory.Item, error) {
	return r.GetItem(ctx, id)
}

func (r inventoryRepo) AdjustStock(ctx context.Context, id string, delta int) (int, bool, error) {
	var stock int
	err := r.q.QueryRowContext(ctx, `
		UPDATE inventory_items
		SET stock_quantity = stock_quantity + ?, updated_at = ?
		WHERE id = ? AND stock_quantity + ? >= 0
		RETURNING stock_quantity`,
		delta, fmtTS(time.Now()), id, delta).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to adjust stock of %s: %w", id, err)
	}
	return stock, true, nil
}

func (r inventoryRepo) CreateItem(ctx context.Context, it inventory.Item) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO inventory_items (id, name, stock_quantity, unit_price, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		it.ID, it.Name, it.StockQuantity, it.UnitPrice, fmtTS(it.CreatedAt), fmtTS(it.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert inventory item: %w", err)
	}
	return nil
}

func (r inventoryRepo) UpdatePrice(ctx context.Context, id string, price decimal.Decimal) error {
	res, err := r.q.ExecContext(ctx, `UPDATE inventory_items SET unit_price = ?, updated_at = ? WHERE id = ?`,
		price, fmtTS(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to update price: %w", err)
	}
	return mustAffect(res, "inventory item %s not found", id)
}

func (r inventoryRepo) ListItems(ctx context.Context) ([]inventory.Item, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+inventoryCols+` FROM inventory_items ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []inventory.Item{}
	for rows.Next() {
		it, err := scanInventoryItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func scanInventoryItem(sc scanner) (inventory.Item, error) {
	var (
		it               inventory.Item
		created, updated string
	)
	if err := sc.Scan(&it.ID, &it.Name, &it.StockQuantity, &it.UnitPrice, &created, &updated); err != nil {
		return inventory.Item{}, err
	}
	var err error
	if it.CreatedAt, err = parseTS(created); err != nil {
		return inventory.Item{}, err
	}
	if it.UpdatedAt, err = parseTS(updated); err != nil {
		return inventory.Item{}, err
	}
	return it, nil
}
