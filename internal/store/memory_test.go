package store

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_RecordQuizBatchUpserts(t *testing.T) {
	t.Parallel()

	m := NewMemoryStore()
	ctx := context.Background()

	batch := []QuizResult{
		{UserID: "u1", DisplayName: "Ada", Correct: 2, Points: 35, Difficulty: "medium", Category: "Science"},
		{UserID: "u2", DisplayName: "Bob", Wrong: 2},
	}
	if err := m.RecordQuizBatch(ctx, "quiz1", "space", "g1", batch); err != nil {
		t.Fatalf("RecordQuizBatch: %v", err)
	}

	results := m.Results("quiz1")
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if r := results["u1"]; r.Points != 35 || r.Category != "Science" {
		t.Errorf("u1 = %+v", r)
	}

	// Replaying the batch leaves identical state; a changed row wins per
	// (quiz, user).
	batch[0].Points = 40
	if err := m.RecordQuizBatch(ctx, "quiz1", "space", "g1", batch); err != nil {
		t.Fatalf("replay: %v", err)
	}
	results = m.Results("quiz1")
	if len(results) != 2 || results["u1"].Points != 40 {
		t.Errorf("after replay: %+v", results)
	}

	// Quizzes are isolated from each other.
	if err := m.RecordQuizBatch(ctx, "quiz2", "history", "g1", batch[:1]); err != nil {
		t.Fatalf("RecordQuizBatch: %v", err)
	}
	if len(m.Results("quiz1")) != 2 || len(m.Results("quiz2")) != 1 {
		t.Error("batches leaked across quiz IDs")
	}
}

func TestMemoryStore_AddGuildMemberIdempotent(t *testing.T) {
	t.Parallel()

	m := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := m.AddGuildMember(ctx, "g1", "u1"); err != nil {
			t.Fatalf("AddGuildMember: %v", err)
		}
	}
	if !m.HasMember("g1", "u1") {
		t.Error("member not registered")
	}
	if m.HasMember("g1", "u2") || m.HasMember("g2", "u1") {
		t.Error("membership leaked across users or guilds")
	}
}

func TestMemoryStore_SnapshotLifecycle(t *testing.T) {
	t.Parallel()

	m := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	if snaps, err := m.ListRecoverySnapshots(ctx); err != nil || len(snaps) != 0 {
		t.Fatalf("fresh store: (%v, %v)", snaps, err)
	}

	first := Snapshot{GuildID: "g1", ChannelID: "c1", Topic: "space", CurrentIndex: 1, SavedAt: now}
	if err := m.PutRecoverySnapshot(ctx, first); err != nil {
		t.Fatalf("Put: %v", err)
	}
	other := Snapshot{GuildID: "g1", ChannelID: "c2", Topic: "history", SavedAt: now}
	if err := m.PutRecoverySnapshot(ctx, other); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Same (guild, channel) replaces, not appends.
	first.CurrentIndex = 3
	if err := m.PutRecoverySnapshot(ctx, first); err != nil {
		t.Fatalf("Put: %v", err)
	}
	snaps, err := m.ListRecoverySnapshots(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("snapshots = %d, want 2", len(snaps))
	}
	for _, s := range snaps {
		if s.ChannelID == "c1" && s.CurrentIndex != 3 {
			t.Errorf("c1 snapshot = %+v, want the replacement", s)
		}
	}

	if err := m.DeleteRecoverySnapshot(ctx, "g1", "c1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	// Deleting a missing key is a no-op.
	if err := m.DeleteRecoverySnapshot(ctx, "g1", "c1"); err != nil {
		t.Fatalf("repeated Delete: %v", err)
	}
	snaps, _ = m.ListRecoverySnapshots(ctx)
	if len(snaps) != 1 || snaps[0].ChannelID != "c2" {
		t.Errorf("snapshots after delete = %+v", snaps)
	}
}
