package audit

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store handles map_audit persistence.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Append inserts e and fills in its ID and CreatedAt.
func (s *Store) Append(ctx context.Context, e *Entry) error {
	return s.db.QueryRow(ctx, `
		INSERT INTO map_audit (view_id, actor_uid, action, pin_id, lat, lng)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, e.ViewID, e.ActorUID, string(e.Action), e.PinID, e.Lat, e.Lng).Scan(&e.ID, &e.CreatedAt)
}

// ListByView returns the newest entries of a view first.
func (s *Store) ListByView(ctx context.Context, viewID string, limit int) ([]Entry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, view_id, actor_uid, action, pin_id, lat, lng, created_at
		FROM map_audit
		WHERE view_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, viewID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var action string
		if err := rows.Scan(&e.ID, &e.ViewID, &e.ActorUID, &action, &e.PinID, &e.Lat, &e.Lng, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Action = Action(action)
		out = append(out, e)
	}
	return out, rows.Err()
}
