package engine

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/quizzardhq/quizzard/internal/question"
)

var sessionStart = time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

func testQuestions(n int) []question.Question {
	qs := make([]question.Question, n)
	for i := range qs {
		qs[i] = question.Question{
			ID:         i,
			Text:       fmt.Sprintf("Question %d?", i+1),
			Type:       question.TypeShortAnswer,
			Answer:     "a",
			Difficulty: question.DifficultyEasy,
		}
	}
	return qs
}

func newTestSession(mode Mode, n int) *Session {
	s := NewSession(QuizRequest{
		Topic:     "space",
		GuildID:   "g1",
		ChannelID: "c1",
		HostID:    "host",
		TimeoutS:  30,
		Mode:      mode,
		Privacy:   PrivacyPublic,
	}, testQuestions(n), sessionStart)
	s.State = StateActive
	return s
}

func TestNewSession_QuizIDStable(t *testing.T) {
	t.Parallel()

	s := newTestSession(ModeStandard, 1)
	want := fmt.Sprintf("trivia_c1_%d", sessionStart.Unix())
	if s.QuizID != want {
		t.Errorf("QuizID = %q, want %q", s.QuizID, want)
	}
}

func TestRecordRawAnswer_DedupePerQuestion(t *testing.T) {
	t.Parallel()

	s := newTestSession(ModeStandard, 2)
	s.BeginQuestion(sessionStart)

	if !s.RecordRawAnswer("u1", "Ada", "a", 1.0, true) {
		t.Fatal("first answer rejected")
	}
	if s.RecordRawAnswer("u1", "Ada", "b", 2.0, false) {
		t.Error("second answer from the same user counted")
	}
	if !s.RecordRawAnswer("u2", "Bob", "a", 2.0, true) {
		t.Error("answer from another user rejected")
	}

	// The dedupe set resets at the question boundary.
	if _, err := s.ResolveCurrentQuestion(NewScorer(nil), false); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	s.Advance(sessionStart.Add(time.Minute))
	s.BeginQuestion(sessionStart.Add(time.Minute))
	if !s.RecordRawAnswer("u1", "Ada", "a", 0.5, true) {
		t.Error("answer rejected on the next question")
	}
}

func TestRecordRawAnswer_OnlyWhileOpen(t *testing.T) {
	t.Parallel()

	s := newTestSession(ModeStandard, 1)
	// Active but not waiting: no question on screen yet.
	if s.RecordRawAnswer("u1", "Ada", "a", 0, true) {
		t.Error("answer counted before BeginQuestion")
	}

	s.BeginQuestion(sessionStart)
	if !s.RecordRawAnswer("u1", "Ada", "a", 0, true) {
		t.Fatal("answer rejected while waiting")
	}

	s.Finish(sessionStart.Add(time.Minute))
	if s.RecordRawAnswer("u2", "Bob", "a", 0, true) {
		t.Error("answer counted after finish")
	}
}

func TestResolveCurrentQuestion_Standard(t *testing.T) {
	t.Parallel()

	s := newTestSession(ModeStandard, 1)
	s.BeginQuestion(sessionStart)
	s.RecordRawAnswer("u1", "Ada", "a", 6.0, true)
	s.RecordRawAnswer("u2", "Bob", "wrong", 3.0, false)
	s.RecordRawAnswer("u3", "Cyd", "a", 2.0, true)

	res, err := s.ResolveCurrentQuestion(NewScorer(nil), true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if !res.TimedOut {
		t.Error("TimedOut not carried through")
	}
	// Correct responders ordered by response time, fastest first.
	if len(res.CorrectResponders) != 2 || res.CorrectResponders[0] != "u3" || res.CorrectResponders[1] != "u1" {
		t.Errorf("CorrectResponders = %v, want [u3 u1]", res.CorrectResponders)
	}
	// Easy base 10, 30s window: 2s → 10, 6s → 9.
	if res.Awards["u3"] != 10 || res.Awards["u1"] != 9 {
		t.Errorf("Awards = %v, want u3:10 u1:9", res.Awards)
	}
	if _, awarded := res.Awards["u2"]; awarded {
		t.Error("wrong answer received an award entry")
	}

	if p := s.Participants["u2"]; p.WrongCount != 1 || p.CorrectCount != 0 || p.Score != 0 {
		t.Errorf("u2 tallies = %+v", p)
	}
	if p := s.Participants["u3"]; p.CorrectCount != 1 || p.Score != 10 {
		t.Errorf("u3 tallies = %+v", p)
	}
	if s.State != StateReviewing {
		t.Errorf("State = %v, want Reviewing", s.State)
	}
}

func TestResolveCurrentQuestion_FirstCorrectWins(t *testing.T) {
	t.Parallel()

	s := newTestSession(ModeFirstCorrectWins, 1)
	s.BeginQuestion(sessionStart)

	// Recording order differs from response-time order: the dispatch queue
	// may deliver a slower submission first.
	s.RecordRawAnswer("u1", "Ada", "a", 4.0, true)
	s.RecordRawAnswer("u2", "Bob", "a", 1.5, true)

	res, err := s.ResolveCurrentQuestion(NewScorer(nil), false)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// Only the genuinely earliest correct responder scores.
	if res.Awards["u2"] == 0 {
		t.Error("earliest correct responder scored 0")
	}
	if res.Awards["u1"] != 0 {
		t.Errorf("later correct responder scored %d, want 0", res.Awards["u1"])
	}
	// Both still count the question as answered correctly.
	if s.Participants["u1"].CorrectCount != 1 {
		t.Error("later correct responder lost the correct count")
	}
}

func TestResolveCurrentQuestion_OutOfRange(t *testing.T) {
	t.Parallel()

	s := newTestSession(ModeStandard, 1)
	s.CurrentIndex = 5
	if _, err := s.ResolveCurrentQuestion(NewScorer(nil), false); !errors.Is(err, ErrInvariant) {
		t.Errorf("err = %v, want ErrInvariant", err)
	}
}

func TestAdvance_FinishesAfterLastQuestion(t *testing.T) {
	t.Parallel()

	s := newTestSession(ModeStandard, 2)
	s.BeginQuestion(sessionStart)
	s.Advance(sessionStart.Add(time.Minute))
	if s.State != StateActive || s.CurrentIndex != 1 {
		t.Fatalf("after first advance: state=%v index=%d", s.State, s.CurrentIndex)
	}

	s.BeginQuestion(sessionStart.Add(time.Minute))
	end := sessionStart.Add(2 * time.Minute)
	s.Advance(end)
	if s.State != StateFinished {
		t.Errorf("State = %v, want Finished", s.State)
	}
	if s.EndedAt != end {
		t.Errorf("EndedAt = %v, want %v", s.EndedAt, end)
	}
}

func TestFinish_FromAnyStateIdempotent(t *testing.T) {
	t.Parallel()

	s := newTestSession(ModeStandard, 3)
	s.BeginQuestion(sessionStart)

	end := sessionStart.Add(time.Minute)
	s.Finish(end)
	if s.State != StateFinished || s.CurrentIndex != 3 {
		t.Fatalf("after finish: state=%v index=%d", s.State, s.CurrentIndex)
	}

	// A second finish must not move EndedAt.
	s.Finish(end.Add(time.Hour))
	if s.EndedAt != end {
		t.Errorf("EndedAt moved to %v on repeated finish", s.EndedAt)
	}
}

func TestLeaderboard_OrderingAndRanks(t *testing.T) {
	t.Parallel()

	s := newTestSession(ModeStandard, 1)
	s.Participants = map[string]*Participant{
		"u1": {UserID: "u1", DisplayName: "Ada", Score: 20, CorrectCount: 1},
		"u2": {UserID: "u2", DisplayName: "Bob", Score: 30, CorrectCount: 2},
		"u3": {UserID: "u3", DisplayName: "Cyd", Score: 20, CorrectCount: 2},
		"u4": {UserID: "u4", DisplayName: "Dee", Score: 0, CorrectCount: 0, WrongCount: 3},
	}

	board := s.Leaderboard(0)
	wantOrder := []string{"u2", "u3", "u1", "u4"}
	if len(board) != 4 {
		t.Fatalf("len = %d, want 4", len(board))
	}
	for i, want := range wantOrder {
		if board[i].UserID != want {
			t.Errorf("board[%d] = %s, want %s", i, board[i].UserID, want)
		}
		if board[i].Rank != i+1 {
			t.Errorf("board[%d].Rank = %d, want %d", i, board[i].Rank, i+1)
		}
	}

	if top := s.Leaderboard(2); len(top) != 2 || top[1].UserID != "u3" {
		t.Errorf("Leaderboard(2) = %v", top)
	}
}

func TestProgressInfo(t *testing.T) {
	t.Parallel()

	s := newTestSession(ModeStandard, 3)

	// Before any question has been shown, the position reads 0.
	p := s.ProgressInfo()
	if p.Index != 0 || p.Total != 3 {
		t.Errorf("initial progress = %d/%d, want 0/3", p.Index, p.Total)
	}

	s.BeginQuestion(sessionStart)
	p = s.ProgressInfo()
	if p.Index != 1 || p.Total != 3 {
		t.Errorf("first-question progress = %d/%d, want 1/3", p.Index, p.Total)
	}

	s.Finish(sessionStart.Add(time.Minute))
	p = s.ProgressInfo()
	if p.Index != 3 || p.State != StateFinished {
		t.Errorf("terminal progress = %d (%v), want 3 (finished)", p.Index, p.State)
	}
}
