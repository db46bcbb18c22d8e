package engine

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

func newIdleRunner(guildID, channelID string, now time.Time) *Runner {
	s := NewSession(QuizRequest{
		Topic:     "t",
		GuildID:   guildID,
		ChannelID: channelID,
		HostID:    "host",
		TimeoutS:  30,
		Mode:      ModeStandard,
		Privacy:   PrivacyPublic,
	}, testQuestions(1), now)
	return newRunner(s, runnerDeps{
		clock:  NewFakeClock(now),
		log:    slog.Default(),
		onDone: func(*Runner) {},
	})
}

func TestRegistry_OneSessionPerChannel(t *testing.T) {
	t.Parallel()

	reg := NewSessionRegistry()
	now := time.Now()
	r1 := newIdleRunner("g1", "c1", now)

	if err := reg.Add(r1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := reg.Add(newIdleRunner("g1", "c1", now)); !errors.Is(err, ErrAlreadyActive) {
		t.Errorf("second Add = %v, want ErrAlreadyActive", err)
	}

	// A different channel in the same guild is a separate slot.
	if err := reg.Add(newIdleRunner("g1", "c2", now)); err != nil {
		t.Errorf("Add(other channel) = %v", err)
	}
	if reg.Len() != 2 {
		t.Errorf("Len = %d, want 2", reg.Len())
	}

	got, ok := reg.Get("g1", "c1")
	if !ok || got != r1 {
		t.Error("Get returned the wrong runner")
	}
}

func TestRegistry_RemoveOnlyEvictsHolder(t *testing.T) {
	t.Parallel()

	reg := NewSessionRegistry()
	now := time.Now()
	old := newIdleRunner("g1", "c1", now)

	if err := reg.Add(old); err != nil {
		t.Fatalf("Add: %v", err)
	}
	reg.Remove(old)

	successor := newIdleRunner("g1", "c1", now)
	if err := reg.Add(successor); err != nil {
		t.Fatalf("Add successor: %v", err)
	}

	// A finished runner's late Remove must not evict its successor.
	reg.Remove(old)
	if _, ok := reg.Get("g1", "c1"); !ok {
		t.Error("stale Remove evicted the successor")
	}

	// Remove is idempotent.
	reg.Remove(successor)
	reg.Remove(successor)
	if reg.Len() != 0 {
		t.Errorf("Len = %d, want 0", reg.Len())
	}
}

func TestSweep_SignalsIdleAndOverlongSessions(t *testing.T) {
	t.Parallel()

	reg := NewSessionRegistry()
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	idle := newIdleRunner("g1", "idle", start)
	fresh := newIdleRunner("g1", "fresh", start)
	overlong := newIdleRunner("g1", "overlong", start)

	for _, r := range []*Runner{idle, fresh, overlong} {
		if err := reg.Add(r); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	now := start.Add(45 * time.Minute)
	// fresh and overlong saw recent activity; idle did not.
	fresh.lastActivity.Store(now.Add(-time.Minute).UnixNano())
	overlong.lastActivity.Store(now.Add(-time.Minute).UnixNano())
	overlong.session.StartedAt = start.Add(-time.Hour)

	n := reg.Sweep(now, 30*time.Minute, time.Hour)
	if n != 2 {
		t.Errorf("Sweep = %d, want 2", n)
	}

	expectExpire := func(r *Runner, reason string) {
		t.Helper()
		select {
		case cmd := <-r.inbox:
			e, ok := cmd.(expireCmd)
			if !ok {
				t.Fatalf("inbox got %T, want expireCmd", cmd)
			}
			if e.reason != reason {
				t.Errorf("reason = %q, want %q", e.reason, reason)
			}
		default:
			t.Fatal("no expire command dispatched")
		}
	}
	expectExpire(idle, "inactivity")
	expectExpire(overlong, "time limit reached")

	select {
	case cmd := <-fresh.inbox:
		t.Errorf("fresh session received %T", cmd)
	default:
	}
}
