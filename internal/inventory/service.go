package inventory

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
)

// Service runs inventory administration, each call in its own transaction.
type Service struct {
	tx  TxRunner
	log *slog.Logger
}

func NewService(tx TxRunner, log *slog.Logger) *Service {
	return &Service{tx: tx, log: log}
}

func (s *Service) Create(ctx context.Context, name string, stock int, price decimal.Decimal) (Item, error) {
	var out Item
	err := s.tx.InInventoryTx(ctx, func(ctx context.Context, r Repo) error {
		var err error
		out, err = NewLedger(r).Create(ctx, name, stock, price)
		return err
	})
	if err != nil {
		return Item{}, err
	}
	s.log.Info("inventory item created", "item_id", out.ID, "stock", out.StockQuantity, "unit_price", out.UnitPrice.StringFixed(2))
	return out, nil
}

func (s *Service) Restock(ctx context.Context, itemID string, qty int) (Item, error) {
	var out Item
	err := s.tx.InInventoryTx(ctx, func(ctx context.Context, r Repo) error {
		var err error
		out, err = NewLedger(r).Restock(ctx, itemID, qty)
		return err
	})
	if err != nil {
		return Item{}, err
	}
	s.log.Info("inventory restocked", "item_id", itemID, "added", qty, "stock", out.StockQuantity)
	return out, nil
}

func (s *Service) SetPrice(ctx context.Context, itemID string, price decimal.Decimal) (Item, error) {
	var out Item
	err := s.tx.InInventoryTx(ctx, func(ctx context.Context, r Repo) error {
		var err error
		out, err = NewLedger(r).SetPrice(ctx, itemID, price)
		return err
	})
	return out, err
}

func (s *Service) Check(ctx context.Context, itemID string, qty int) (Availability, error) {
	var out Availability
	err := s.tx.InInventoryTx(ctx, func(ctx context.Context, r Repo) error {
		var err error
		out, err = NewLedger(r).CheckAvailability(ctx, itemID, qty)
		return err
	})
	return out, err
}

func (s *Service) Get(ctx context.Context, itemID string) (Item, error) {
	var out Item
	err := s.tx.InInventoryTx(ctx, func(ctx context.Context, r Repo) error {
		var err error
		out, err = r.GetItem(ctx, itemID)
		return err
	})
	return out, err
}

func (s *Service) List(ctx context.Context) ([]Item, error) {
	var out []Item
	err := s.tx.InInventoryTx(ctx, func(ctx context.Context, r Repo) error {
		var err error
		out, err = r.ListItems(ctx)
		return err
	})
	return out, err
}
