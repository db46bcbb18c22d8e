package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory [Store]. It backs tests and deployments
// without a database; nothing survives a process restart.
// Safe for concurrent use.
type MemoryStore struct {
	mu        sync.Mutex
	batches   map[string]recordedBatch      // quiz_id → batch
	results   map[string]map[string]QuizResult // quiz_id → user_id → result
	members   map[string]map[string]bool    // guild_id → user_id set
	snapshots map[string]Snapshot           // guild_id/channel_id → snapshot
}

type recordedBatch struct {
	topic   string
	guildID string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		batches:   make(map[string]recordedBatch),
		results:   make(map[string]map[string]QuizResult),
		members:   make(map[string]map[string]bool),
		snapshots: make(map[string]Snapshot),
	}
}

func snapshotKey(guildID, channelID string) string {
	return guildID + "/" + channelID
}

// RecordQuizBatch implements [Store]. Replayed batches upsert per user, so
// recording the same quiz twice leaves identical state.
func (m *MemoryStore) RecordQuizBatch(_ context.Context, quizID, topic, guildID string, results []QuizResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.batches[quizID] = recordedBatch{topic: topic, guildID: guildID}
	byUser, ok := m.results[quizID]
	if !ok {
		byUser = make(map[string]QuizResult, len(results))
		m.results[quizID] = byUser
	}
	for _, r := range results {
		byUser[r.UserID] = r
	}
	return nil
}

// AddGuildMember implements [Store].
func (m *MemoryStore) AddGuildMember(_ context.Context, guildID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.members[guildID]
	if !ok {
		set = make(map[string]bool)
		m.members[guildID] = set
	}
	set[userID] = true
	return nil
}

// ListRecoverySnapshots implements [Store].
func (m *MemoryStore) ListRecoverySnapshots(_ context.Context) ([]Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snaps := make([]Snapshot, 0, len(m.snapshots))
	for _, s := range m.snapshots {
		snaps = append(snaps, s)
	}
	return snaps, nil
}

// PutRecoverySnapshot implements [Store].
func (m *MemoryStore) PutRecoverySnapshot(_ context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshots[snapshotKey(snap.GuildID, snap.ChannelID)] = snap
	return nil
}

// DeleteRecoverySnapshot implements [Store].
func (m *MemoryStore) DeleteRecoverySnapshot(_ context.Context, guildID, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.snapshots, snapshotKey(guildID, channelID))
	return nil
}

// Results returns the recorded results for a quiz, keyed by user ID.
// Test helper.
func (m *MemoryStore) Results(quizID string) map[string]QuizResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]QuizResult, len(m.results[quizID]))
	for k, v := range m.results[quizID] {
		out[k] = v
	}
	return out
}

// HasMember reports whether userID was registered in guildID. Test helper.
func (m *MemoryStore) HasMember(guildID, userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.members[guildID][userID]
}

// Compile-time interface assertion.
var _ Store = (*MemoryStore)(nil)
