package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-venue-pos/internal/apperr"
	"github.com/ariefcatur/go-venue-pos/internal/treasury"
)

type treasuryRepo struct{ q querier }

const treasuryCols = `id, seq, transaction_type, specific_type, amount, payment_method, description,
	balance_after, cash_before, cash_after, visa_before, visa_after, date, reconciliation_date, created_at`

// LockHead is Head: the IMMEDIATE transaction is already the only writer.
func (r treasuryRepo) LockHead(ctx context.Context) (treasury.Transaction, bool, error) {
	return r.Head(ctx)
}

func (r treasuryRepo) Head(ctx context.Context) (treasury.Transaction, bool, error) {
	t, err := scanTransaction(r.q.QueryRowContext(ctx,
		`SELECT `+treasuryCols+` FROM treasury_transactions ORDER BY seq DESC LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return treasury.Transaction{}, false, nil
	}
	if err != nil {
		return treasury.Transaction{}, false, err
	}
	return t, true, nil
}

func (r treasuryRepo) InsertTransaction(ctx context.Context, t *treasury.Transaction) error {
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO treasury_transactions (id, transaction_type, specific_type, amount, payment_method, description,
			balance_after, cash_before, cash_after, visa_before, visa_after, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING seq`,
		t.ID, string(t.Type), string(t.SpecificType), t.Amount, string(t.PaymentMethod), t.Description,
		t.BalanceAfter, t.CashBefore, t.CashAfter, t.VisaBefore, t.VisaAfter, fmtDate(t.Date), fmtTS(t.CreatedAt)).
		Scan(&t.Seq)
	if err != nil {
		return fmt.Errorf("failed to insert treasury transaction: %w", err)
	}
	return nil
}

func (r treasuryRepo) GetTransaction(ctx context.Context, id string) (treasury.Transaction, error) {
	t, err := scanTransaction(r.q.QueryRowContext(ctx, `SELECT `+treasuryCols+` FROM treasury_transactions WHERE id = ?`, id))
	if err != nil {
		return treasury.Transaction{}, notFound(err, "treasury transaction %s not found", id)
	}
	return t, nil
}

func (r treasuryRepo) SetReconciliationDate(ctx context.Context, id string, date time.Time) error {
	res, err := r.q.ExecContext(ctx, `UPDATE treasury_transactions SET reconciliation_date = ? WHERE id = ?`, fmtDate(date), id)
	if err != nil {
		return fmt.Errorf("failed to reconcile transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("treasury transaction %s not found", id)
	}
	return nil
}

func (r treasuryRepo) ReconcileUntil(ctx context.Context, until, date time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE treasury_transactions SET reconciliation_date = ?
		WHERE reconciliation_date IS NULL AND date <= ?`, fmtDate(date), fmtDate(until))
	if err != nil {
		return 0, fmt.Errorf("failed to close treasury: %w", err)
	}
	return res.RowsAffected()
}

func (r treasuryRepo) ListTransactions(ctx context.Context, f treasury.Filter) ([]treasury.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if f.From != nil {
		where = append(where, "date >= ?")
		args = append(args, fmtDate(*f.From))
	}
	if f.To != nil {
		where = append(where, "date <= ?")
		args = append(args, fmtDate(*f.To))
	}
	if f.UnreconciledOnly {
		where = append(where, "reconciliation_date IS NULL")
	}
	query := `SELECT ` + treasuryCols + ` FROM treasury_transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []treasury.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTransaction(sc scanner) (treasury.Transaction, error) {
	var (
		t                     treasury.Transaction
		typ, specific, method string
		date, created         string
		reconciled            sql.NullString
	)
	err := sc.Scan(&t.ID, &t.Seq, &typ, &specific, &t.Amount, &method, &t.Description,
		&t.BalanceAfter, &t.CashBefore, &t.CashAfter, &t.VisaBefore, &t.VisaAfter, &date, &reconciled, &created)
	if err != nil {
		return treasury.Transaction{}, err
	}
	t.Type = treasury.Type(typ)
	t.SpecificType = treasury.SpecificType(specific)
	t.PaymentMethod = treasury.Method(method)
	if t.Date, err = parseDate(date); err != nil {
		return treasury.Transaction{}, err
	}
	if reconciled.Valid {
		d, err := parseDate(reconciled.String)
		if err != nil {
			return treasury.Transaction{}, err
		}
		t.ReconciliationDate = &d
	}
	if t.CreatedAt, err = parseTS(created); err != nil {
		return treasury.Transaction{}, err
	}
	return t, nil
}
