// Package postgres talks to a plain PostgreSQL database that holds the
// dashboard tables directly, without a REST layer in front of it.
package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect opens and pings a PostgreSQL connection pool.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// schema mirrors the columns the dashboard reads and writes.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS profiles (
	id TEXT PRIMARY KEY,
	full_name TEXT,
	username TEXT,
	updated_at TEXT
);
CREATE TABLE IF NOT EXISTS workouts (
	id TEXT PRIMARY KEY,
	user_id TEXT,
	title TEXT,
	focus TEXT,
	started_at TEXT,
	date TEXT,
	duration_minutes INTEGER,
	created_at TEXT
);
CREATE TABLE IF NOT EXISTS workout_exercises (
	id TEXT PRIMARY KEY,
	workout_id TEXT,
	name TEXT,
	sets INTEGER,
	reps INTEGER,
	weight DOUBLE PRECISION,
	created_at TEXT
);
CREATE INDEX IF NOT EXISTS workout_exercises_workout_id_idx ON workout_exercises (workout_id);`

// Migrate creates the tables when they do not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}
