package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-venue-pos/internal/apperr"
	"github.com/ariefcatur/go-venue-pos/internal/orders"
	"github.com/ariefcatur/go-venue-pos/internal/treasury"
)

type orderRepo struct{ q querier }

const orderCols = `id, client_id, total_price, payment_status, payment_method, paid_at, created_at, updated_at`

const itemCols = `id, order_id, inventory_item_id, quantity, price, prep_status, created_at`

func (r orderRepo) InsertOrder(ctx context.Context, o orders.Order) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO orders (id, client_id, total_price, payment_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		o.ID, o.ClientID, o.TotalPrice, string(o.PaymentStatus), fmtTS(o.CreatedAt), fmtTS(o.UpdatedAt))
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
	o, err := scanOrder(r.q.QueryRowContext(ctx, `SELECT `+orderCols+` FROM orders WHERE id = ?`, id))
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

// LockOrder is GetOrder: the IMMEDIATE transaction already excludes other
// writers.
func (r orderRepo) LockOrder(ctx context.Context, id string) (orders.Order, error) {
	return r.GetOrder(ctx, id)
}

func (r orderRepo) UpdateOrder(ctx context.Context, o orders.Order) error {
	var method, paidAt any
	if o.PaymentMethod != nil {
		method = string(*o.PaymentMethod)
	}
	if o.PaidAt != nil {
		paidAt = fmtTS(*o.PaidAt)
	}
	res, err := r.q.ExecContext(ctx, `
		UPDATE orders
		SET total_price = ?, payment_status = ?, payment_method = ?, paid_at = ?, updated_at = ?
		WHERE id = ?`,
		o.TotalPrice, string(o.PaymentStatus), method, paidAt, fmtTS(o.UpdatedAt), o.ID)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return mustAffect(res, "order %s not found", o.ID)
}

func (r orderRepo) DeleteOrder(ctx context.Context, id string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete order items: %w", err)
	}
	res, err := r.q.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return mustAffect(res, "order %s not found", id)
}

func (r orderRepo) InsertItem(ctx context.Context, it orders.OrderItem) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO order_items (id, order_id, inventory_item_id, quantity, price, prep_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.OrderID, it.InventoryItemID, it.Quantity, it.Price, string(it.PrepStatus), fmtTS(it.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert order item %s: %w", it.InventoryItemID, err)
	}
	return nil
}

func (r orderRepo) GetItem(ctx context.Context, id string) (orders.OrderItem, error) {
	it, err := scanItem(r.q.QueryRowContext(ctx, `SELECT `+itemCols+` FROM order_items WHERE id = ?`, id))
	if err != nil {
		return orders.OrderItem{}, notFound(err, "order item %s not found", id)
	}
	return it, nil
}

func (r orderRepo) DeleteItem(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM order_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order item: %w", err)
	}
	return mustAffect(res, "order item %s not found", id)
}

func (r orderRepo) ListOrders(ctx context.Context, f orders.ListFilter) ([]orders.Order, int, error) {
	var (
		where []string
		args  []any
	)
	if f.ClientID != "" {
		where = append(where, "client_id = ?")
		args = append(args, f.ClientID)
	}
	if f.Status != "" {
		where = append(where, "payment_status = ?")
		args = append(args, string(f.Status))
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := `SELECT ` + orderCols + ` FROM orders` + cond + ` ORDER BY created_at DESC, id`
	if f.Size > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Size, (page-1)*f.Size)
	}
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	var out []orders.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, 0, err
		}
		out = append(out, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
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
	rows, err := r.q.QueryContext(ctx, `SELECT `+itemCols+` FROM order_items WHERE prep_status = ? ORDER BY seq`, string(prep))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []orders.OrderItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r orderRepo) SetPrepStatus(ctx context.Context, orderID string, prep orders.PrepStatus) (int64, error) {
	res, err := r.q.ExecContext(ctx, `UPDATE order_items SET prep_status = ? WHERE order_id = ?`, string(prep), orderID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r orderRepo) loadItems(ctx context.Context, orderIDs []string) (map[string][]orders.OrderItem, error) {
	out := make(map[string][]orders.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	args := make([]any, len(orderIDs))
	for i, id := range orderIDs {
		args[i] = id
	}
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+itemCols+` FROM order_items WHERE order_id IN (`+placeholders(len(args))+`) ORDER BY seq`, args...)
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

func scanOrder(sc scanner) (orders.Order, error) {
	var (
		o                orders.Order
		status           string
		method, paidAt   sql.NullString
		created, updated string
	)
	if err := sc.Scan(&o.ID, &o.ClientID, &o.TotalPrice, &status, &method, &paidAt, &created, &updated); err != nil {
		return orders.Order{}, err
	}
	o.PaymentStatus = orders.Status(status)
	if method.Valid {
		m := treasury.Method(method.String)
		o.PaymentMethod = &m
	}
	var err error
	if paidAt.Valid {
		t, err := parseTS(paidAt.String)
		if err != nil {
			return orders.Order{}, err
		}
		o.PaidAt = &t
	}
	if o.CreatedAt, err = parseTS(created); err != nil {
		return orders.Order{}, err
	}
	if o.UpdatedAt, err = parseTS(updated); err != nil {
		return orders.Order{}, err
	}
	return o, nil
}

func scanItem(sc scanner) (orders.OrderItem, error) {
	var (
		it      orders.OrderItem
		prep    string
		created string
	)
	if err := sc.Scan(&it.ID, &it.OrderID, &it.InventoryItemID, &it.Quantity, &it.Price, &prep, &created); err != nil {
		return orders.OrderItem{}, err
	}
	it.PrepStatus = orders.PrepStatus(prep)
	t, err := parseTS(created)
	if err != nil {
		return orders.OrderItem{}, err
	}
	it.CreatedAt = t
	return it, nil
}

func mustAffect(res sql.Result, format string, args ...any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound(format, args...)
	}
	return nil
}

type clientDir struct{ q querier }

func (c clientDir) ClientExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := c.q.QueryRowContext(ctx, `SELECT 1 FROM clients WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) CreateClient(ctx context.Context, name, contactInfo string) (orders.Client, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return orders.Client{}, apperr.Validation("client name is required")
	}
	c := orders.Client{ID: uuid.NewString(), Name: name, ContactInfo: contactInfo, CreatedAt: time.Now().UTC()}
	_, err := s.DB.ExecContext(ctx, `INSERT INTO clients (id, name, contact_info, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.Name, c.ContactInfo, fmtTS(c.CreatedAt))
	if err != nil {
		return orders.Client{}, fmt.Errorf("failed to insert client: %w", err)
	}
	return c, nil
}

func (s *Store) GetClient(ctx context.Context, id string) (orders.Client, error) {
	var (
		c       orders.Client
		created string
	)
	err := s.DB.QueryRowContext(ctx, `SELECT id, name, contact_info, created_at FROM clients WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.ContactInfo, &created)
	if err != nil {
		return orders.Client{}, notFound(err, "client %s not found", id)
	}
	if c.CreatedAt, err = parseTS(created); err != nil {
		return orders.Client{}, err
	}
	return c, nil
}
