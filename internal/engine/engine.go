// Package engine implements the quiz session engine: per-channel game
// sessions with timed questions, answer ingestion, scoring, durable result
// recording, and restart recovery.
//
// Concurrency model: sessions run in parallel across (guild, channel) keys,
// but each session has a single logical writer, its owning task ([Runner]).
// Everything else dispatches typed commands into that task over a bounded
// channel.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/quizzardhq/quizzard/internal/answer"
	"github.com/quizzardhq/quizzard/internal/observe"
	"github.com/quizzardhq/quizzard/internal/question"
	"github.com/quizzardhq/quizzard/internal/store"
)

// sweepInterval is how often the registry is scanned for idle or overlong
// sessions.
const sweepInterval = 5 * time.Minute

// Options are the engine-level tunables, typically populated from the quiz
// section of the config file.
type Options struct {
	SoloMaxQuestions   int
	GroupMaxQuestions  int
	TimeoutMinS        int
	TimeoutMaxS        int
	InterQuestionPause time.Duration
	InactivityCap      time.Duration
	HardCap            time.Duration
	RecoveryTTL        time.Duration
	AnswerInboxCap     int
}

// Normalize fills zero values with the documented defaults.
func (o *Options) Normalize() {
	if o.SoloMaxQuestions <= 0 {
		o.SoloMaxQuestions = 20
	}
	if o.GroupMaxQuestions <= 0 {
		o.GroupMaxQuestions = 5
	}
	if o.TimeoutMinS <= 0 {
		o.TimeoutMinS = 5
	}
	if o.TimeoutMaxS <= 0 {
		o.TimeoutMaxS = 120
	}
	if o.InterQuestionPause <= 0 {
		o.InterQuestionPause = 5 * time.Second
	}
	if o.InactivityCap <= 0 {
		o.InactivityCap = 30 * time.Minute
	}
	if o.HardCap <= 0 {
		o.HardCap = time.Hour
	}
	if o.RecoveryTTL <= 0 {
		o.RecoveryTTL = 30 * time.Minute
	}
	if o.AnswerInboxCap <= 0 {
		o.AnswerInboxCap = 64
	}
}

// Engine is the top-level façade: it starts sessions, routes queries to
// them, sweeps for expiry, and announces interrupted sessions on startup.
type Engine struct {
	opts      Options
	clock     Clock
	registry  *SessionRegistry
	source    *question.Source
	presenter Presenter
	store     store.Store
	recorder  *Recorder
	journal   *Journal
	scorer    *Scorer
	parser    answer.Parser
	metrics   *observe.Metrics
	log       *slog.Logger

	mu     sync.Mutex
	runCtx context.Context
	wg     sync.WaitGroup
}

// Deps are the collaborators an Engine is built from.
type Deps struct {
	Clock     Clock
	Source    *question.Source
	Presenter Presenter
	Store     store.Store
	Scorer    *Scorer
	Parser    answer.Parser
	Metrics   *observe.Metrics
	Log       *slog.Logger
}

// New creates an Engine. Missing optional deps fall back to the real clock,
// the default scorer, and the default logger.
func New(opts Options, deps Deps) *Engine {
	opts.Normalize()
	if deps.Clock == nil {
		deps.Clock = NewClock()
	}
	if deps.Scorer == nil {
		deps.Scorer = NewScorer(nil)
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}

	e := &Engine{
		opts:      opts,
		clock:     deps.Clock,
		registry:  NewSessionRegistry(),
		source:    deps.Source,
		presenter: deps.Presenter,
		store:     deps.Store,
		scorer:    deps.Scorer,
		parser:    deps.Parser,
		metrics:   deps.Metrics,
		log:       deps.Log,
	}
	e.recorder = NewRecorder(deps.Store, deps.Metrics, deps.Log)
	e.journal = NewJournal(deps.Store, deps.Clock, opts.RecoveryTTL, deps.Log)
	return e
}

// Registry exposes the session registry for the ingress path and health
// reporting.
func (e *Engine) Registry() *SessionRegistry { return e.registry }

// StartQuiz generates questions, creates the session, and launches its
// owning task. Returns [ErrAlreadyActive] when the channel already has one,
// or the question source's error when generation failed; in both cases no
// session state is left behind.
func (e *Engine) StartQuiz(ctx context.Context, req QuizRequest) (Progress, error) {
	req = e.clampRequest(req)

	if _, active := e.registry.Get(req.GuildID, req.ChannelID); active {
		return Progress{}, ErrAlreadyActive
	}

	genStart := e.clock.Now()
	questions, providerName, err := e.source.Fetch(ctx, question.Request{
		Topic:        req.Topic,
		Count:        req.Count,
		Type:         req.Type,
		Difficulty:   req.Difficulty,
		Category:     req.CategoryHint,
		ProviderHint: req.ProviderHint,
	})
	e.metrics.Generation(ctx, providerName, e.clock.Now().Sub(genStart), err == nil)
	if err != nil {
		return Progress{}, fmt.Errorf("engine: start quiz: %w", err)
	}

	s := NewSession(req, questions, e.clock.Now())
	s.InterQuestionPause = e.opts.InterQuestionPause
	s.ProviderInfo["provider"] = providerName
	if req.Privacy == PrivacyPrivate {
		s.RegisterParticipant(req.HostID, req.HostDisplayName)
	}

	r := newRunner(s, runnerDeps{
		clock:     e.clock,
		presenter: e.presenter,
		recorder:  e.recorder,
		journal:   e.journal,
		scorer:    e.scorer,
		parser:    e.parser,
		store:     e.store,
		metrics:   e.metrics,
		log:       e.log,
		inboxCap:  e.opts.AnswerInboxCap,
		onDone:    func(r *Runner) { e.registry.Remove(r) },
	})
	if err := e.registry.Add(r); err != nil {
		return Progress{}, err
	}

	progress := s.ProgressInfo()
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		r.Run(e.sessionContext())
	}()

	e.log.Info("quiz started",
		"guild_id", req.GuildID,
		"channel_id", req.ChannelID,
		"topic", req.Topic,
		"questions", len(questions),
		"provider", providerName,
		"mode", req.Mode,
		"privacy", req.Privacy,
	)
	return progress, nil
}

// Stop ends the channel's session early on behalf of requestedBy. The
// command layer has already verified the requester may stop the quiz.
func (e *Engine) Stop(ctx context.Context, guildID, channelID, requestedBy string) error {
	r, ok := e.registry.Get(guildID, channelID)
	if !ok {
		return ErrNoSession
	}
	return r.Stop(ctx, requestedBy)
}

// Status reports the channel's session position.
func (e *Engine) Status(ctx context.Context, guildID, channelID string) (Progress, error) {
	r, ok := e.registry.Get(guildID, channelID)
	if !ok {
		return Progress{}, ErrNoSession
	}
	return r.Progress(ctx)
}

// Leaderboard returns the channel session's current standings.
func (e *Engine) Leaderboard(ctx context.Context, guildID, channelID string, limit int) ([]Standing, error) {
	r, ok := e.registry.Get(guildID, channelID)
	if !ok {
		return nil, ErrNoSession
	}
	return r.Leaderboard(ctx, limit)
}

// Run announces sessions interrupted before the last restart, then sweeps
// the registry until ctx is cancelled, finally waiting for all owning tasks
// to exit.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	e.runCtx = ctx
	e.mu.Unlock()

	if n, err := e.journal.AnnounceInterrupted(ctx, e.presenter); err != nil {
		e.log.Warn("interrupted session announcement failed", "error", err)
	} else if n > 0 {
		e.log.Info("interrupted sessions announced", "count", n)
	}

	for {
		select {
		case <-ctx.Done():
			e.wg.Wait()
			return nil
		case <-e.clock.After(sweepInterval):
			if n := e.registry.Sweep(e.clock.Now(), e.opts.InactivityCap, e.opts.HardCap); n > 0 {
				e.log.Info("expired sessions signalled", "count", n)
			}
		}
	}
}

func (e *Engine) sessionContext() context.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.runCtx != nil {
		return e.runCtx
	}
	return context.Background()
}

// clampRequest applies the documented bounds defensively; the command layer
// is expected to have clamped already.
func (e *Engine) clampRequest(req QuizRequest) QuizRequest {
	if req.Mode == "" {
		req.Mode = ModeStandard
	}
	if req.Privacy == "" {
		req.Privacy = PrivacyPublic
	}
	if req.Difficulty == "" {
		req.Difficulty = question.DifficultyMedium
	}
	if req.Type == "" {
		req.Type = question.TypeMultipleChoice
	}

	maxQuestions := e.opts.GroupMaxQuestions
	if req.Privacy == PrivacyPrivate {
		maxQuestions = e.opts.SoloMaxQuestions
	}
	req.Count = clamp(req.Count, 1, maxQuestions)
	req.TimeoutS = clamp(req.TimeoutS, e.opts.TimeoutMinS, e.opts.TimeoutMaxS)
	return req
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
