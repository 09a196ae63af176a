// Package roomstore persists room metadata and user activity rows.
//
// All methods are best-effort: when the database is unreachable (nil handle)
// they return zero values instead of errors, so the live session path never
// depends on durability.
package roomstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Activity kinds recorded in user_activities.
const (
	ActivityJoined        = "joined"
	ActivityLeft          = "left"
	ActivityClearedCanvas = "cleared_canvas"
)

type RoomRecord struct {
	RoomID      string    `json:"room_id"`
	MaxUsers    int       `json:"max_users"`
	CreatorName string    `json:"creator_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ActivityRecord struct {
	UserName  string    `json:"user_name"`
	Activity  string    `json:"activity"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Create(ctx context.Context, roomID string, maxUsers int, creatorName string) bool {
	if s.db == nil {
		return false
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms (room_id, max_users, creator_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (room_id) DO NOTHING`,
		roomID, maxUsers, creatorName)
	if err != nil {
		zap.L().Warn("roomstore.create", zap.String("room_id", roomID), zap.Error(err))
		return false
	}
	return true
}

func (s *Store) Get(ctx context.Context, roomID string) (*RoomRecord, bool) {
	if s.db == nil {
		return nil, false
	}
	var rec RoomRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT room_id, max_users, creator_name, created_at, updated_at
		  FROM rooms WHERE room_id = $1`, roomID).
		Scan(&rec.RoomID, &rec.MaxUsers, &rec.CreatorName, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			zap.L().Warn("roomstore.get", zap.String("room_id", roomID), zap.Error(err))
		}
		return nil, false
	}
	return &rec, true
}

func (s *Store) Exists(ctx context.Context, roomID string) bool {
	if s.db == nil {
		return false
	}
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM rooms WHERE room_id = $1)`, roomID).Scan(&exists)
	if err != nil {
		zap.L().Warn("roomstore.exists", zap.String("room_id", roomID), zap.Error(err))
		return false
	}
	return exists
}

func (s *Store) Delete(ctx context.Context, roomID string) bool {
	if s.db == nil {
		return false
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE room_id = $1`, roomID); err != nil {
		zap.L().Warn("roomstore.delete", zap.String("room_id", roomID), zap.Error(err))
		return false
	}
	return true
}

func (s *Store) List(ctx context.Context) []RoomRecord {
	if s.db == nil {
		return nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT room_id, max_users, creator_name, created_at, updated_at
		  FROM rooms ORDER BY created_at DESC`)
	if err != nil {
		zap.L().Warn("roomstore.list", zap.Error(err))
		return nil
	}
	defer rows.Close()

	var out []RoomRecord
	for rows.Next() {
		var rec RoomRecord
		if err := rows.Scan(&rec.RoomID, &rec.MaxUsers, &rec.CreatorName, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			zap.L().Warn("roomstore.list_scan", zap.Error(err))
			return out
		}
		out = append(out, rec)
	}
	return out
}

func (s *Store) LogActivity(ctx context.Context, roomID, userName, activity string) bool {
	if s.db == nil {
		return false
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_activities (room_id, user_name, activity)
		VALUES ($1, $2, $3)`, roomID, userName, activity)
	if err != nil {
		zap.L().Warn("roomstore.log_activity",
			zap.String("room_id", roomID), zap.String("activity", activity), zap.Error(err))
		return false
	}
	return true
}

func (s *Store) Activities(ctx context.Context, roomID string, limit int) []ActivityRecord {
	if s.db == nil {
		return nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_name, activity, created_at
		  FROM user_activities
		 WHERE room_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, roomID, limit)
	if err != nil {
		zap.L().Warn("roomstore.activities", zap.String("room_id", roomID), zap.Error(err))
		return nil
	}
	defer rows.Close()

	var out []ActivityRecord
	for rows.Next() {
		var rec ActivityRecord
		if err := rows.Scan(&rec.UserName, &rec.Activity, &rec.CreatedAt); err != nil {
			zap.L().Warn("roomstore.activities_scan", zap.Error(err))
			return out
		}
		out = append(out, rec)
	}
	return out
}
