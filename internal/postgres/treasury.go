package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-venue-pos/internal/treasury"
)

// treasuryLock keys the advisory lock that serializes appenders.
const treasuryLock = 7305002

type treasuryRepo struct{ q querier }

const treasuryCols = `id, seq, transaction_type, specific_type, amount, payment_method, description,
	balance_after, cash_before, cash_after, visa_before, visa_after, date, reconciliation_date, created_at`

func (r treasuryRepo) LockHead(ctx context.Context) (treasury.Transaction, bool, error) {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, treasuryLock); err != nil {
		return treasury.Transaction{}, false, fmt.Errorf("failed to lock treasury: %w", err)
	}
	return r.Head(ctx)
}

func (r treasuryRepo) Head(ctx context.Context) (treasury.Transaction, bool, error) {
	t, err := scanTransaction(r.q.QueryRow(ctx,
		`SELECT `+treasuryCols+` FROM treasury_transactions ORDER BY seq DESC LIMIT 1`))
	if errors.Is(err, pgx.ErrNoRows) {
		return treasury.Transaction{}, false, nil
	}
	if err != nil {
		return treasury.Transaction{}, false, err
	}
	return t, true, nil
}

func (r treasuryRepo) InsertTransaction(ctx context.Context, t *treasury.Transaction) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO treasury_transactions (id, transaction_type, specific_type, amount, payment_method, description,
			balance_after, cash_before, cash_after, visa_before, visa_after, date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING seq`,
		t.ID, string(t.Type), string(t.SpecificType), t.Amount, string(t.PaymentMethod), t.Description,
		t.BalanceAfter, t.CashBefore, t.CashAfter, t.VisaBefore, t.VisaAfter, t.Date, t.CreatedAt).
		Scan(&t.Seq)
	if err != nil {
		return fmt.Errorf("failed to insert treasury transaction: %w", err)
	}
	return nil
}

func (r treasuryRepo) GetTransaction(ctx context.Context, id string) (treasury.Transaction, error) {
	t, err := scanTransaction(r.q.QueryRow(ctx, `SELECT `+treasuryCols+` FROM treasury_transactions WHERE id = $1`, id))
	if err != nil {
		return treasury.Transaction{}, notFound(err, "treasury transaction %s not found", id)
	}
	return t, nil
}

func (r treasuryRepo) SetReconciliationDate(ctx context.Context, id string, date time.Time) error {
	tag, err := r.q.Exec(ctx, `UPDATE treasury_transactions SET reconciliation_date = $2 WHERE id = $1`, id, date)
	if err != nil {
		return fmt.Errorf("failed to reconcile transaction: %w", err)
	}
	return mustAffect(tag, "treasury transaction %s not found", id)
}

func (r treasuryRepo) ReconcileUntil(ctx context.Context, until, date time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE treasury_transactions SET reconciliation_date = $2
		WHERE reconciliation_date IS NULL AND date <= $1`, until, date)
	if err != nil {
		return 0, fmt.Errorf("failed to close treasury: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r treasuryRepo) ListTransactions(ctx context.Context, f treasury.Filter) ([]treasury.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if f.From != nil {
		args = append(args, *f.From)
		where = append(where, fmt.Sprintf("date >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where = append(where, fmt.Sprintf("date <= $%d", len(args)))
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
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (treasury.Transaction, error) { return scanTransaction(row) })
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []treasury.Transaction{}
	}
	return out, nil
}

func scanTransaction(row pgx.Row) (treasury.Transaction, error) {
	var (
		t                     treasury.Transaction
		typ, specific, method string
	)
	err := row.Scan(&t.ID, &t.Seq, &typ, &specific, &t.Amount, &method, &t.Description,
		&t.BalanceAfter, &t.CashBefore, &t.CashAfter, &t.VisaBefore, &t.VisaAfter, &t.Date, &t.ReconciliationDate, &t.CreatedAt)
	if err != nil {
		return treasury.Transaction{}, err
	}
	t.Type = treasury.Type(typ)
	t.SpecificType = treasury.SpecificType(specific)
	t.PaymentMethod = treasury.Method(method)
	return t, nil
}
