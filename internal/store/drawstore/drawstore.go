// Package drawstore persists drawing events as JSONB rows, one per stroke.
// Same best-effort contract as roomstore: a nil database handle turns every
// call into a logged no-op.
package drawstore

import (
	"context"
	"database/sql"
	"encoding/json"

	"go.uber.org/zap"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store { return &Store{db: db} }

// Save appends one draw event for the room. The event is stored exactly as it
// will be replayed, server-assigned color and userName included.
func (s *Store) Save(ctx context.Context, roomID string, event json.RawMessage, userName string) bool {
	if s.db == nil {
		return false
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drawing_data (room_id, draw_data, user_name)
		VALUES ($1, $2, $3)`, roomID, []byte(event), userName)
	if err != nil {
		zap.L().Warn("drawstore.save", zap.String("room_id", roomID), zap.Error(err))
		return false
	}
	return true
}

// LoadAll returns the room's events in original append order.
func (s *Store) LoadAll(ctx context.Context, roomID string) []json.RawMessage {
	if s.db == nil {
		return nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT draw_data FROM drawing_data
		 WHERE room_id = $1
		 ORDER BY created_at ASC`, roomID)
	if err != nil {
		zap.L().Warn("drawstore.load_all", zap.String("room_id", roomID), zap.Error(err))
		return nil
	}
	defer rows.Close()

	var out []json.RawMessage
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			zap.L().Warn("drawstore.load_scan", zap.Error(err))
			return out
		}
		out = append(out, json.RawMessage(raw))
	}
	return out
}

func (s *Store) Clear(ctx context.Context, roomID string) bool {
	if s.db == nil {
		return false
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM drawing_data WHERE room_id = $1`, roomID); err != nil {
		zap.L().Warn("drawstore.clear", zap.String("room_id", roomID), zap.Error(err))
		return false
	}
	return true
}

func (s *Store) Count(ctx context.Context, roomID string) int {
	if s.db == nil {
		return 0
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM drawing_data WHERE room_id = $1`, roomID).Scan(&n)
	if err != nil {
		zap.L().Warn("drawstore.count", zap.String("room_id", roomID), zap.Error(err))
		return 0
	}
	return n
}
