// Package sqlite is the embedded store: one database file, one writer at a
// time. Every transaction starts IMMEDIATE so it holds the write lock from
// its first statement, which serializes stock, order and treasury updates.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/ariefcatur/go-venue-pos/internal/apperr"
	"github.com/ariefcatur/go-venue-pos/internal/inventory"
	"github.com/ariefcatur/go-venue-pos/internal/orders"
	"github.com/ariefcatur/go-venue-pos/internal/treasury"
)

type Store struct {
	DB *sql.DB
}

// Open opens (creating if needed) the database file at path.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// a single connection keeps writers strictly sequential
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() error { return s.DB.Close() }

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	sqlTx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(ctx, &txn{q: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
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

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

type txn struct{ q *sql.Tx }

func (t *txn) Orders() orders.Repo              { return orderRepo{q: t.q} }
func (t *txn) Inventory() inventory.Repo        { return inventoryRepo{q: t.q} }
func (t *txn) Treasury() treasury.Repo          { return treasuryRepo{q: t.q} }
func (t *txn) Clients() orders.ClientDirectory { return clientDir{q: t.q} }

// fixed width so text timestamps sort chronologically
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

func fmtTS(t time.Time) string { return t.UTC().Format(tsLayout) }

func parseTS(s string) (time.Time, error) {
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func fmtDate(t time.Time) string { return t.UTC().Format(time.DateOnly) }

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(format, args...)
	}
	return err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
