// Package store defines the persistence surface the quiz engine depends on:
// transactional result batches, guild membership, and recovery snapshots.
//
// The engine never sees SQL; implementations live in subpackages (postgres)
// or in this package (the in-memory store used by tests and by deployments
// without a database).
package store

import (
	"context"
	"time"
)

// QuizResult is one participant's terminal outcome for a quiz.
type QuizResult struct {
	UserID      string
	DisplayName string
	Correct     int
	Wrong       int
	Points      int
	Difficulty  string
	Category    string
}

// Snapshot is the minimal durable record of an in-flight session, sufficient
// to tell a channel its quiz was interrupted after a restart.
type Snapshot struct {
	GuildID        string
	ChannelID      string
	Topic          string
	HostID         string
	StartedAt      time.Time
	LastActivityAt time.Time
	CurrentIndex   int
	TotalQuestions int
	SavedAt        time.Time
}

// Store is the full persistence surface consumed by the engine.
//
// RecordQuizBatch must be transactional and idempotent per (quizID, userID):
// replaying the same batch leaves the same persisted state. AddGuildMember is
// best-effort and idempotent. Implementations must be safe for concurrent use.
type Store interface {
	// RecordQuizBatch persists all participant results of one quiz in a
	// single transaction, upserting on (quizID, userID).
	RecordQuizBatch(ctx context.Context, quizID, topic, guildID string, results []QuizResult) error

	// AddGuildMember registers a user as seen in a guild. Idempotent.
	AddGuildMember(ctx context.Context, guildID, userID string) error

	// ListRecoverySnapshots returns all stored snapshots.
	ListRecoverySnapshots(ctx context.Context) ([]Snapshot, error)

	// PutRecoverySnapshot stores or replaces the snapshot keyed by
	// (GuildID, ChannelID).
	PutRecoverySnapshot(ctx context.Context, snap Snapshot) error

	// DeleteRecoverySnapshot removes the snapshot for the key, if any.
	DeleteRecoverySnapshot(ctx context.Context, guildID, channelID string) error
}
