package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quizzardhq/quizzard/internal/store"
)

// Journal persists recovery snapshots: just enough state to tell a channel
// its quiz was interrupted after a process restart. Play is never resumed;
// questions are not journaled.
type Journal struct {
	store store.Store
	clock Clock
	ttl   time.Duration
	log   *slog.Logger
}

// NewJournal creates a Journal. Snapshots older than ttl are discarded
// silently on startup.
func NewJournal(st store.Store, clock Clock, ttl time.Duration, log *slog.Logger) *Journal {
	return &Journal{store: st, clock: clock, ttl: ttl, log: log}
}

// Save writes the session's snapshot, replacing any previous one for the
// same (guild, channel). Called at session creation and at every question
// boundary, always from the owning task.
func (j *Journal) Save(ctx context.Context, s *Session) error {
	snap := store.Snapshot{
		GuildID:        s.GuildID,
		ChannelID:      s.ChannelID,
		Topic:          s.Topic,
		HostID:         s.HostID,
		StartedAt:      s.StartedAt,
		LastActivityAt: s.LastActivityAt,
		CurrentIndex:   s.CurrentIndex,
		TotalQuestions: len(s.Questions),
		SavedAt:        j.clock.Now(),
	}
	if err := j.store.PutRecoverySnapshot(ctx, snap); err != nil {
		return fmt.Errorf("journal: save %s/%s: %w", s.GuildID, s.ChannelID, err)
	}
	return nil
}

// Clear removes the session's snapshot. Failures are logged only: a stale
// snapshot costs one spurious notice after a restart, nothing more.
func (j *Journal) Clear(ctx context.Context, guildID, channelID string) {
	if err := j.store.DeleteRecoverySnapshot(ctx, guildID, channelID); err != nil {
		j.log.Warn("recovery snapshot delete failed",
			"guild_id", guildID, "channel_id", channelID, "error", err)
	}
}

// AnnounceInterrupted posts one notice per fresh snapshot left over from a
// previous process and deletes every snapshot it saw. Returns how many
// notices were posted.
func (j *Journal) AnnounceInterrupted(ctx context.Context, p Presenter) (int, error) {
	snaps, err := j.store.ListRecoverySnapshots(ctx)
	if err != nil {
		return 0, fmt.Errorf("journal: list snapshots: %w", err)
	}

	now := j.clock.Now()
	notified := 0
	for _, snap := range snaps {
		if now.Sub(snap.SavedAt) <= j.ttl {
			text := fmt.Sprintf(
				"The quiz on **%s** (question %d/%d) was interrupted by a restart and cannot be resumed. Start a new one with `/quiz start`.",
				snap.Topic, snap.CurrentIndex+1, snap.TotalQuestions,
			)
			if err := p.Notice(ctx, snap.GuildID, snap.ChannelID, text); err != nil {
				j.log.Warn("interruption notice failed",
					"guild_id", snap.GuildID, "channel_id", snap.ChannelID, "error", err)
			} else {
				notified++
			}
		}
		j.Clear(ctx, snap.GuildID, snap.ChannelID)
	}
	return notified, nil
}
