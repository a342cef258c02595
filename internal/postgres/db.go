// Package postgres is the server store. Concurrency comes from row locks:
// orders and inventory rows are taken FOR UPDATE and the treasury chain is
// guarded by a transaction-scoped advisory lock.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-venue-pos/internal/apperr"
	"github.com/ariefcatur/go-venue-pos/internal/inventory"
	"github.com/ariefcatur/go-venue-pos/internal/orders"
	"github.com/ariefcatur/go-venue-pos/internal/treasury"
)

func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 8
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

type Store struct{ DB *pgxpool.Pool }

func New(db *pgxpool.Pool) *Store { return &Store{DB: db} }

func (s *Store) Close() { s.DB.Close() }

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &txn{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) InInventoryTx(ctx context.Context, fn func(ctx context.Context, r inventory.Repo) error) error {
	return s.WithinTx(ctx, func(ctx context.Context, tx orders.Tx) error { return fn(ctx, tx.Inventory()) })
}

func (s *Store) InTreasuryTx(ctx context.Context, fn func(ctx context.Context, r treasury.Repo) error) error {
	return s.WithinTx(ctx, func(ctx context.Context, tx orders.Tx) error { return fn(ctx, tx.Treasury()) })
}

// querier is satisfied by pgx.Tx and *pgxpool.Pool.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txn struct{ q pgx.Tx }

func (t *txn) Orders() orders.Repo              { return orderRepo{q: t.q} }
func (t *txn) Inventory() inventory.Repo        { return inventoryRepo{q: t.q} }
func (t *txn) Treasury() treasury.Repo          { return treasuryRepo{q: t.q} }
func (t *txn) Clients() orders.ClientDirectory { return clientDir{q: t.q} }

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(format, args...)
	}
	return err
}

func mustAffect(tag pgconn.CommandTag, format string, args ...any) error {
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(format, args...)
	}
	return nil
}
