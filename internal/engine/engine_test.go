package engine

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/quizzardhq/quizzard/internal/question"
	"github.com/quizzardhq/quizzard/internal/resilience"
	"github.com/quizzardhq/quizzard/internal/store"
	"github.com/quizzardhq/quizzard/pkg/provider/llm/mock"
)

// questionsJSON renders n short-answer questions as a model response.
func questionsJSON(n int) string {
	out := "["
	for i := 0; i < n; i++ {
		if i > 0 {
			out += ","
		}
		out += `{"text": "Q?", "type": "short_answer", "answer": "a", "difficulty": "easy"}`
	}
	return out + "]"
}

type engineHarness struct {
	engine    *Engine
	clock     *FakeClock
	store     *store.MemoryStore
	presenter *fakePresenter
}

func newEngineHarness(t *testing.T, responses ...string) *engineHarness {
	t.Helper()

	clock := NewFakeClock(time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC))
	st := store.NewMemoryStore()
	p := &fakePresenter{}

	chain := resilience.NewChain(resilience.CircuitBreakerConfig{},
		resilience.Named{Name: "mock", Provider: &mock.Provider{Responses: responses}},
	)

	eng := New(Options{}, Deps{
		Clock:     clock,
		Source:    question.NewSource(chain, false),
		Presenter: p,
		Store:     st,
		Log:       slog.Default(),
	})
	return &engineHarness{engine: eng, clock: clock, store: st, presenter: p}
}

func (h *engineHarness) drainTo(t *testing.T, done func() bool) {
	t.Helper()
	stop := make(chan struct{})
	defer close(stop)
	go autoAdvance(h.clock, stop)

	deadline := time.Now().Add(5 * time.Second)
	for !done() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestStartQuiz_SecondStartSameChannelRejected(t *testing.T) {
	t.Parallel()

	h := newEngineHarness(t, questionsJSON(2))
	ctx := context.Background()

	req := QuizRequest{
		Topic: "space", Count: 2, TimeoutS: 30,
		HostID: "host", GuildID: "g1", ChannelID: "c1",
	}
	progress, err := h.engine.StartQuiz(ctx, req)
	if err != nil {
		t.Fatalf("StartQuiz: %v", err)
	}
	if progress.Total != 2 || progress.Topic != "space" {
		t.Errorf("progress = %+v", progress)
	}

	if _, err := h.engine.StartQuiz(ctx, req); !errors.Is(err, ErrAlreadyActive) {
		t.Errorf("second start = %v, want ErrAlreadyActive", err)
	}

	// Another channel starts fine.
	req2 := req
	req2.ChannelID = "c2"
	if _, err := h.engine.StartQuiz(ctx, req2); err != nil {
		t.Errorf("start in another channel = %v", err)
	}

	h.drainTo(t, func() bool { return h.engine.Registry().Len() == 0 })
}

func TestStartQuiz_ClampsCountAndTimeout(t *testing.T) {
	t.Parallel()

	h := newEngineHarness(t, questionsJSON(5))
	ctx := context.Background()

	// 50 questions and a 900s timeout are clamped to the group max and the
	// timeout ceiling.
	progress, err := h.engine.StartQuiz(ctx, QuizRequest{
		Topic: "space", Count: 50, TimeoutS: 900,
		HostID: "host", GuildID: "g1", ChannelID: "c1",
	})
	if err != nil {
		t.Fatalf("StartQuiz: %v", err)
	}
	if progress.Total != 5 {
		t.Errorf("Total = %d, want the group cap 5", progress.Total)
	}

	r, ok := h.engine.Registry().Get("g1", "c1")
	if !ok {
		t.Fatal("no runner registered")
	}
	if r.session.QuestionTimeout != 120*time.Second {
		t.Errorf("timeout = %v, want the 120s ceiling", r.session.QuestionTimeout)
	}

	h.drainTo(t, func() bool { return h.engine.Registry().Len() == 0 })
}

func TestStartQuiz_PrivatePreRegistersHost(t *testing.T) {
	t.Parallel()

	h := newEngineHarness(t, questionsJSON(1))
	ctx := context.Background()

	_, err := h.engine.StartQuiz(ctx, QuizRequest{
		Topic: "space", Count: 1, TimeoutS: 30, Privacy: PrivacyPrivate,
		HostID: "alice", HostDisplayName: "Alice", GuildID: "g1", ChannelID: "c1",
	})
	if err != nil {
		t.Fatalf("StartQuiz: %v", err)
	}

	board, err := h.engine.Leaderboard(ctx, "g1", "c1", 10)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(board) != 1 || board[0].UserID != "alice" {
		t.Errorf("board = %+v, want the host pre-registered", board)
	}

	h.drainTo(t, func() bool { return h.engine.Registry().Len() == 0 })
}

func TestStartQuiz_GenerationFailureLeavesNoSession(t *testing.T) {
	t.Parallel()

	h := newEngineHarness(t, "not json at all")
	ctx := context.Background()

	_, err := h.engine.StartQuiz(ctx, QuizRequest{
		Topic: "space", Count: 2, TimeoutS: 30,
		HostID: "host", GuildID: "g1", ChannelID: "c1",
	})
	if !errors.Is(err, question.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
	if h.engine.Registry().Len() != 0 {
		t.Error("failed start left a session behind")
	}
}

func TestEngine_QueriesWithoutSession(t *testing.T) {
	t.Parallel()

	h := newEngineHarness(t)
	ctx := context.Background()

	if _, err := h.engine.Status(ctx, "g1", "c1"); !errors.Is(err, ErrNoSession) {
		t.Errorf("Status = %v, want ErrNoSession", err)
	}
	if _, err := h.engine.Leaderboard(ctx, "g1", "c1", 10); !errors.Is(err, ErrNoSession) {
		t.Errorf("Leaderboard = %v, want ErrNoSession", err)
	}
	if err := h.engine.Stop(ctx, "g1", "c1", "host"); !errors.Is(err, ErrNoSession) {
		t.Errorf("Stop = %v, want ErrNoSession", err)
	}
}

func TestEngineRun_AnnouncesInterruptedSessions(t *testing.T) {
	t.Parallel()

	h := newEngineHarness(t)
	snap := store.Snapshot{
		GuildID: "g1", ChannelID: "c1", Topic: "space",
		CurrentIndex: 0, TotalQuestions: 3,
		SavedAt: h.clock.Now().Add(-time.Minute),
	}
	if err := h.store.PutRecoverySnapshot(context.Background(), snap); err != nil {
		t.Fatalf("Put: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- h.engine.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for len(h.presenter.noticeLog()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no interruption notice posted")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-runDone; err != nil {
		t.Errorf("Run = %v", err)
	}

	if snaps, _ := h.store.ListRecoverySnapshots(context.Background()); len(snaps) != 0 {
		t.Error("announced snapshot not deleted")
	}
}
