package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migrations are applied in order on startup. Each statement is idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS quizzes (
		quiz_id     TEXT PRIMARY KEY,
		topic       TEXT NOT NULL,
		guild_id    TEXT NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS quiz_results (
		quiz_id      TEXT NOT NULL REFERENCES quizzes (quiz_id) ON DELETE CASCADE,
		user_id      TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		correct      INT  NOT NULL DEFAULT 0,
		wrong        INT  NOT NULL DEFAULT 0,
		points       INT  NOT NULL DEFAULT 0,
		difficulty   TEXT NOT NULL DEFAULT '',
		category     TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (quiz_id, user_id)
	)`,

	`CREATE INDEX IF NOT EXISTS quiz_results_user_idx ON quiz_results (user_id)`,

	`CREATE TABLE IF NOT EXISTS guild_members (
		guild_id   TEXT NOT NULL,
		user_id    TEXT NOT NULL,
		first_seen TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (guild_id, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS recovery_snapshots (
		guild_id         TEXT NOT NULL,
		channel_id       TEXT NOT NULL,
		topic            TEXT NOT NULL DEFAULT '',
		host_id          TEXT NOT NULL DEFAULT '',
		started_at       TIMESTAMPTZ NOT NULL,
		last_activity_at TIMESTAMPTZ NOT NULL,
		current_index    INT  NOT NULL DEFAULT 0,
		total_questions  INT  NOT NULL DEFAULT 0,
		saved_at         TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (guild_id, channel_id)
	)`,
}

// Migrate ensures all tables and indexes required by the store exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
