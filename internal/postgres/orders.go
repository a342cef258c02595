package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-venue-pos/internal/apperr"
	"github.com/ariefcatur/go-venue-pos/internal/orders"
	"github.com/ariefcatur/go-venue-pos/internal/treasury"
)

type orderRepo struct{ q querier }

const orderCols = `id, client_id, total_price, payment_status, payment_method, paid_at, created_at, updated_at`

const itemCols = `id, order_id, inventory_item_id, quantity, price, prep_status, created_at`

func (r orderRepo) InsertOrder(ctx context.Context, o orders.Order) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO orders (id, client_id, total_price, payment_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		o.ID, o.ClientID, o.TotalPrice, string(o.PaymentStatus), o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	for _, it := range o.Items {
		if err := r.InsertItem(ctx, it); err != nil {
			return err
		}
	}
	return nil
}

func (r orderRepo) GetOrder(ctx context.Context, id string) (orders.Order, error) {
	return r.getOrder(ctx, id, "")
}

func (r orderRepo) LockOrder(ctx context.Context, id string) (orders.Order, error) {
	return r.getOrder(ctx, id, " FOR UPDATE")
}

func (r orderRepo) getOrder(ctx context.Context, id, lock string) (orders.Order, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id = $1`+lock, id))
	if err != nil {
		return orders.Order{}, notFound(err, "order %s not found", id)
	}
	items, err := r.loadItems(ctx, []string{o.ID})
	if err != nil {
		return orders.Order{}, err
	}
	o.Items = items[o.ID]
	return o, nil
}

func (r orderRepo) UpdateOrder(ctx context.Context, o orders.Order) error {
	var method *string
	if o.PaymentMethod != nil {
		m := string(*o.PaymentMethod)
		method = &m
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE orders
		SET total_price = $2, payment_status = $3, payment_method = $4, paid_at = $5, updated_at = $6
		WHERE id = $1`,
		o.ID, o.TotalPrice, string(o.PaymentStatus), method, o.PaidAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return mustAffect(tag, "order %s not found", o.ID)
}

func (r orderRepo) DeleteOrder(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return mustAffect(tag, "order %s not found", id)
}

func (r orderRepo) InsertItem(ctx context.Context, it orders.OrderItem) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO order_items (id, order_id, inventory_item_id, quantity, price, prep_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		it.ID, it.OrderID, it.InventoryItemID, it.Quantity, it.Price, string(it.PrepStatus), it.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order item %s: %w", it.InventoryItemID, err)
	}
	return nil
}

func (r orderRepo) GetItem(ctx context.Context, id string) (orders.OrderItem, error) {
	it, err := scanItem(r.q.QueryRow(ctx, `SELECT `+itemCols+` FROM order_items WHERE id = $1`, id))
	if err != nil {
		return orders.OrderItem{}, notFound(err, "order item %s not found", id)
	}
	return it, nil
}

func (r orderRepo) DeleteItem(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM order_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order item: %w", err)
	}
	return mustAffect(tag, "order item %s not found", id)
}

func (r orderRepo) ListOrders(ctx context.Context, f orders.ListFilter) ([]orders.Order, int, error) {
	var (
		where []string
		args  []any
	)
	if f.ClientID != "" {
		args = append(args, f.ClientID)
		where = append(where, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("payment_status = $%d", len(args)))
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := `SELECT ` + orderCols + ` FROM orders` + cond + ` ORDER BY created_at DESC, id`
	if f.Size > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		args = append(args, f.Size, (page-1)*f.Size)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (orders.Order, error) { return scanOrder(row) })
	if err != nil {
		return nil, 0, err
	}

	ids := make([]string, len(out))
	for i := range out {
		ids[i] = out[i].ID
	}
	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, total, nil
}

func (r orderRepo) ListItemsByPrep(ctx context.Context, prep orders.PrepStatus) ([]orders.OrderItem, error) {
	rows, err := r.q.Query(ctx, `SELECT `+itemCols+` FROM order_items WHERE prep_status = $1 ORDER BY seq`, string(prep))
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (orders.OrderItem, error) { return scanItem(row) })
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []orders.OrderItem{}
	}
	return out, nil
}

func (r orderRepo) SetPrepStatus(ctx context.Context, orderID string, prep orders.PrepStatus) (int64, error) {
	tag, err := r.q.Exec(ctx, `UPDATE order_items SET prep_status = $2 WHERE order_id = $1`, orderID, string(prep))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r orderRepo) loadItems(ctx context.Context, orderIDs []string) (map[string][]orders.OrderItem, error) {
	out := make(map[string][]orders.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	rows, err := r.q.Query(ctx, `SELECT `+itemCols+` FROM order_items WHERE order_id = ANY($1) ORDER BY seq`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (orders.Order, error) {
	var (
		o      orders.Order
		status string
		method *string
	)
	err := row.Scan(&o.ID, &o.ClientID, &o.TotalPrice, &status, &method, &o.PaidAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return orders.Order{}, err
	}
	o.PaymentStatus = orders.Status(status)
	if method != nil {
		m := treasury.Method(*method)
		o.PaymentMethod = &m
	}
	return o, nil
}

func scanItem(row pgx.Row) (orders.OrderItem, error) {
	var (
		it   orders.OrderItem
		prep string
	)
	err := row.Scan(&it.ID, &it.OrderID, &it.InventoryItemID, &it.Quantity, &it.Price, &prep, &it.CreatedAt)
	if err != nil {
		return orders.OrderItem{}, err
	}
	it.PrepStatus = orders.PrepStatus(prep)
	return it, nil
}

type clientDir struct{ q querier }

func (c clientDir) ClientExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := c.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM clients WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (s *Store) CreateClient(ctx context.Context, name, contactInfo string) (orders.Client, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return orders.Client{}, apperr.Validation("client name is required")
	}
	c := orders.Client{ID: uuid.NewString(), Name: name, ContactInfo: contactInfo, CreatedAt: time.Now().UTC()}
	_, err := s.DB.Exec(ctx, `INSERT INTO clients (id, name, contact_info, created_at) VALUES ($1, $2, $3, $4)`,
		c.ID, c.Name, c.ContactInfo, c.CreatedAt)
	if err != nil {
		return orders.Client{}, fmt.Errorf("failed to insert client: %w", err)
	}
	return c, nil
}

func (s *Store) GetClient(ctx context.Context, id string) (orders.Client, error) {
	var c orders.Client
	err := s.DB.QueryRow(ctx, `SELECT id, name, contact_info, created_at FROM clients WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.ContactInfo, &c.CreatedAt)
	if err != nil {
		return orders.Client{}, notFound(err, "client %s not found", id)
	}
	return c, nil
}
