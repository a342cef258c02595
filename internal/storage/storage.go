// Package storage picks the backend named by the configuration.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ariefcatur/go-venue-pos/internal/config"
	"github.com/ariefcatur/go-venue-pos/internal/history"
	"github.com/ariefcatur/go-venue-pos/internal/inventory"
	"github.com/ariefcatur/go-venue-pos/internal/orders"
	"github.com/ariefcatur/go-venue-pos/internal/postgres"
	"github.com/ariefcatur/go-venue-pos/internal/sqlite"
	"github.com/ariefcatur/go-venue-pos/internal/treasury"
)

// Backend is everything the commands need from a store.
type Backend interface {
	orders.Store
	inventory.TxRunner
	treasury.TxRunner
	history.Sink
	history.Reader
	CreateClient(ctx context.Context, name, contactInfo string) (orders.Client, error)
	Migrate(ctx context.Context, log *slog.Logger) error
}

func Open(ctx context.Context, cfg config.Config) (Backend, func(), error) {
	switch cfg.StoreDriver {
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return postgres.New(db), db.Close, nil
	case "sqlite":
		st, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		return st, func() { _ = st.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
