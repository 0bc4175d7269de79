package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// DB is the Postgres run log.
type DB struct {
	*sql.DB
}

func New(databaseURL string) (*DB, error) {
	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DB{DB: conn}, nil
}

const schema = `
	CREATE TABLE IF NOT EXISTS guide_runs (
		id                UUID PRIMARY KEY,
		job_id            UUID,
		place_name        TEXT NOT NULL,
		language          TEXT NOT NULL,
		mode              TEXT NOT NULL,
		voice_selector    TEXT NOT NULL,
		profile_known     BOOLEAN NOT NULL,
		voice_id          TEXT NOT NULL,
		status            TEXT NOT NULL,
		error_kind        TEXT,
		error_message     TEXT,
		prompt_chars      INTEGER NOT NULL DEFAULT 0,
		script_chars      INTEGER NOT NULL DEFAULT 0,
		audio_bytes       INTEGER NOT NULL DEFAULT 0,
		audio_duration_ms INTEGER NOT NULL DEFAULT 0,
		elapsed_ms        INTEGER NOT NULL DEFAULT 0,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS guide_runs_created_at_idx ON guide_runs (created_at DESC);
	CREATE INDEX IF NOT EXISTS guide_runs_status_idx ON guide_runs (status);
`

// Migrate creates the run log table when missing.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate guide_runs: %w", err)
	}
	return nil
}
