package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-venue-pos/internal/history"
)

func (s *Store) AppendHistory(ctx context.Context, e history.Entry) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO history (id, user_id, action, details, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		e.ID, e.UserID, string(e.Action), e.Details, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// ListHistory returns the newest entries first.
func (s *Store) ListHistory(ctx context.Context, f history.Filter) ([]history.Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != "" {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.Action != "" {
		args = append(args, string(f.Action))
		where = append(where, fmt.Sprintf("action = $%d", len(args)))
	}
	query := `SELECT id, user_id, action, details, created_at FROM history`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (history.Entry, error) {
		var (
			e      history.Entry
			action string
		)
		err := row.Scan(&e.ID, &e.UserID, &action, &e.Details, &e.CreatedAt)
		e.Action = history.Action(action)
		return e, err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []history.Entry{}
	}
	return out, nil
}
