package db_client

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func Open(host, port, user, pass, database string) (*sql.DB, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		user, pass, host, port, database,
	)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetConnMaxIdleTime(time.Minute)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InitSchema creates the tables the stores expect. Idempotent.
func InitSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			id SERIAL PRIMARY KEY,
			room_id VARCHAR(255) UNIQUE NOT NULL,
			max_users INTEGER DEFAULT 5,
			creator_name VARCHAR(255) DEFAULT 'Anonymous',
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS drawing_data (
			id SERIAL PRIMARY KEY,
			room_id VARCHAR(255) NOT NULL,
			draw_data JSONB NOT NULL,
			user_name VARCHAR(255) DEFAULT 'Anonymous',
			created_at TIMESTAMP DEFAULT NOW(),
			FOREIGN KEY (room_id) REFERENCES rooms(room_id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS user_activities (
			id SERIAL PRIMARY KEY,
			room_id VARCHAR(255) NOT NULL,
			user_name VARCHAR(255) NOT NULL,
			activity VARCHAR(50) NOT NULL,
			created_at TIMESTAMP DEFAULT NOW(),
			FOREIGN KEY (room_id) REFERENCES rooms(room_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_drawing_data_room_id ON drawing_data(room_id)`,
		`CREATE INDEX IF NOT EXISTS idx_user_activities_room_id ON user_activities(room_id)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
