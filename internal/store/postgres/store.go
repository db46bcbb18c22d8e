// Package postgres implements the quiz store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizzardhq/quizzard/internal/store"
)

// Compile-time interface assertion.
var _ store.Store = (*Store)(nil)

// Store is the PostgreSQL-backed quiz store. It holds a single
// [pgxpool.Pool]; all operations are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store, establishes a connection pool to the PostgreSQL
// database at dsn, and runs [Migrate] to ensure all required tables exist.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases all connections held by the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping probes database connectivity. Used by the readiness endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// RecordQuizBatch implements [store.Store]. All rows are written in one
// transaction; replayed batches upsert on (quiz_id, user_id) so the engine
// may safely resend a batch it is unsure was recorded.
func (s *Store) RecordQuizBatch(ctx context.Context, quizID, topic, guildID string, results []store.QuizResult) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("quiz batch: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const quizQ = `
		INSERT INTO quizzes (quiz_id, topic, guild_id, recorded_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (quiz_id) DO UPDATE SET recorded_at = now()`
	if _, err := tx.Exec(ctx, quizQ, quizID, topic, guildID); err != nil {
		return fmt.Errorf("quiz batch: upsert quiz: %w", err)
	}

	const resultQ = `
		INSERT INTO quiz_results
		    (quiz_id, user_id, display_name, correct, wrong, points, difficulty, category)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (quiz_id, user_id) DO UPDATE SET
		    display_name = EXCLUDED.display_name,
		    correct      = EXCLUDED.correct,
		    wrong        = EXCLUDED.wrong,
		    points       = EXCLUDED.points,
		    difficulty   = EXCLUDED.difficulty,
		    category     = EXCLUDED.category`
	for _, r := range results {
		if _, err := tx.Exec(ctx, resultQ,
			quizID, r.UserID, r.DisplayName, r.Correct, r.Wrong, r.Points, r.Difficulty, r.Category,
		); err != nil {
			return fmt.Errorf("quiz batch: upsert result for %s: %w", r.UserID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("quiz batch: commit: %w", err)
	}
	return nil
}

// AddGuildMember implements [store.Store]. Idempotent.
func (s *Store) AddGuildMember(ctx context.Context, guildID, userID string) error {
	const q = `
		INSERT INTO guild_members (guild_id, user_id, first_seen)
		VALUES ($1, $2, now())
		ON CONFLICT (guild_id, user_id) DO NOTHING`
	if _, err := s.pool.Exec(ctx, q, guildID, userID); err != nil {
		return fmt.Errorf("add guild member: %w", err)
	}
	return nil
}

// ListRecoverySnapshots implements [store.Store].
func (s *Store) ListRecoverySnapshots(ctx context.Context) ([]store.Snapshot, error) {
	const q = `
		SELECT guild_id, channel_id, topic, host_id,
		       started_at, last_activity_at, current_index, total_questions, saved_at
		FROM   recovery_snapshots`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list recovery snapshots: %w", err)
	}

	snaps, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Snapshot, error) {
		var snap store.Snapshot
		err := row.Scan(
			&snap.GuildID,
			&snap.ChannelID,
			&snap.Topic,
			&snap.HostID,
			&snap.StartedAt,
			&snap.LastActivityAt,
			&snap.CurrentIndex,
			&snap.TotalQuestions,
			&snap.SavedAt,
		)
		return snap, err
	})
	if err != nil {
		return nil, fmt.Errorf("list recovery snapshots: scan: %w", err)
	}
	return snaps, nil
}

// PutRecoverySnapshot implements [store.Store].
func (s *Store) PutRecoverySnapshot(ctx context.Context, snap store.Snapshot) error {
	const q = `
		INSERT INTO recovery_snapshots
		    (guild_id, channel_id, topic, host_id, started_at, last_activity_at,
		     current_index, total_questions, saved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (guild_id, channel_id) DO UPDATE SET
		    topic            = EXCLUDED.topic,
		    host_id          = EXCLUDED.host_id,
		    started_at       = EXCLUDED.started_at,
		    last_activity_at = EXCLUDED.last_activity_at,
		    current_index    = EXCLUDED.current_index,
		    total_questions  = EXCLUDED.total_questions,
		    saved_at         = EXCLUDED.saved_at`
	_, err := s.pool.Exec(ctx, q,
		snap.GuildID, snap.ChannelID, snap.Topic, snap.HostID,
		snap.StartedAt, snap.LastActivityAt, snap.CurrentIndex, snap.TotalQuestions, snap.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("put recovery snapshot: %w", err)
	}
	return nil
}

// DeleteRecoverySnapshot implements [store.Store].
func (s *Store) DeleteRecoverySnapshot(ctx context.Context, guildID, channelID string) error {
	const q = `DELETE FROM recovery_snapshots WHERE guild_id = $1 AND channel_id = $2`
	if _, err := s.pool.Exec(ctx, q, guildID, channelID); err != nil {
		return fmt.Errorf("delete recovery snapshot: %w", err)
	}
	return nil
}
