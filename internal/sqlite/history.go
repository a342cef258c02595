package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-venue-pos/internal/history"
)

func (s *Store) AppendHistory(ctx context.Context, e history.Entry) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO history (id, user_id, action, details, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		e.ID, e.UserID, string(e.Action), e.Details, fmtTS(e.CreatedAt))
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
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Action != "" {
		where = append(where, "action = ?")
		args = append(args, string(f.Action))
	}
	query := `SELECT id, user_id, action, details, created_at FROM history`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []history.Entry{}
	for rows.Next() {
		var (
			e             history.Entry
			action, stamp string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &action, &e.Details, &stamp); err != nil {
			return nil, err
		}
		e.Action = history.Action(action)
		if e.CreatedAt, err = parseTS(stamp); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
