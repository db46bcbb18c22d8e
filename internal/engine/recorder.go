package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/quizzardhq/quizzard/internal/observe"
	"github.com/quizzardhq/quizzard/internal/store"
)

// Recorder turns a finished session into one transactional result batch.
// The store upserts on (quiz_id, user_id), so a replayed batch is harmless.
type Recorder struct {
	store   store.Store
	metrics *observe.Metrics
	log     *slog.Logger
}

// NewRecorder creates a Recorder writing through st.
func NewRecorder(st store.Store, metrics *observe.Metrics, log *slog.Logger) *Recorder {
	return &Recorder{store: st, metrics: metrics, log: log}
}

// Record persists the session's participant outcomes. Called exactly once
// per session on the terminal path; a second call is a no-op so the
// results_recorded flag flips at most once.
func (rec *Recorder) Record(ctx context.Context, s *Session) error {
	if s.ResultsRecorded {
		return nil
	}
	s.ResultsRecorded = true

	if len(s.Participants) == 0 {
		return nil
	}

	results := make([]store.QuizResult, 0, len(s.Participants))
	for _, p := range s.Participants {
		results = append(results, store.QuizResult{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Correct:     p.CorrectCount,
			Wrong:       p.WrongCount,
			Points:      p.Score,
			Difficulty:  string(s.Difficulty),
			Category:    s.Category,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].UserID < results[j].UserID })

	err := rec.store.RecordQuizBatch(ctx, s.QuizID, s.Topic, s.GuildID, results)
	rec.metrics.RecorderBatch(ctx, err == nil)
	if err != nil {
		return fmt.Errorf("recorder: batch %s: %w", s.QuizID, err)
	}
	rec.log.Info("results recorded", "quiz_id", s.QuizID, "participants", len(results))
	return nil
}
