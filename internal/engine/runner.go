package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/quizzardhq/quizzard/internal/answer"
	"github.com/quizzardhq/quizzard/internal/observe"
	"github.com/quizzardhq/quizzard/internal/question"
	"github.com/quizzardhq/quizzard/internal/store"
)

// abortInternal is the end reason for a session torn down by an invariant
// breach, as opposed to inactivity or time-cap expiry.
const abortInternal = "internal error"

// command is the envelope type for everything dispatched into the owning
// task: answers, host stop, expiry, and read-only queries. Collapsing
// dispatch onto one channel gives the loop a single select point and keeps
// Session mutation on one goroutine.
type command interface{ isCommand() }

type answerCmd struct {
	epoch       int
	userID      string
	displayName string
	raw         string
	at          float64 // seconds, captured at submission
	correct     bool
	ack         func(correct bool)
}

type stopCmd struct {
	requestedBy string
	reply       chan error
}

type expireCmd struct {
	reason string
}

type progressCmd struct {
	reply chan Progress
}

type boardCmd struct {
	limit int
	reply chan []Standing
}

func (answerCmd) isCommand()   {}
func (stopCmd) isCommand()     {}
func (expireCmd) isCommand()   {}
func (progressCmd) isCommand() {}
func (boardCmd) isCommand()    {}

// questionSnapshot is the lock-free view of the current question that the
// ingress path reads. Published by the owning task at question start,
// cleared once the question is fully resolved.
type questionSnapshot struct {
	epoch  int
	q      question.Question
	start  time.Time
	handle MessageHandle
}

// Runner drives one session's owning task. Everything that mutates the
// Session runs inside [Runner.Run]; other goroutines interact only through
// Submit, Stop, Expire and the query methods.
type Runner struct {
	session   *Session
	clock     Clock
	presenter Presenter
	recorder  *Recorder
	journal   *Journal
	scorer    *Scorer
	parser    answer.Parser
	store     store.Store
	metrics   *observe.Metrics
	log       *slog.Logger

	inbox  chan command
	closed chan struct{}
	onDone func(*Runner)

	epoch        int
	snap         atomic.Pointer[questionSnapshot]
	lastActivity atomic.Int64 // unix nanos
}

type runnerDeps struct {
	clock     Clock
	presenter Presenter
	recorder  *Recorder
	journal   *Journal
	scorer    *Scorer
	parser    answer.Parser
	store     store.Store
	metrics   *observe.Metrics
	log       *slog.Logger
	inboxCap  int
	onDone    func(*Runner)
}

func newRunner(s *Session, deps runnerDeps) *Runner {
	if deps.inboxCap <= 0 {
		deps.inboxCap = 64
	}
	r := &Runner{
		session:   s,
		clock:     deps.clock,
		presenter: deps.presenter,
		recorder:  deps.recorder,
		journal:   deps.journal,
		scorer:    deps.scorer,
		parser:    deps.parser,
		store:     deps.store,
		metrics:   deps.metrics,
		log: deps.log.With(
			"guild_id", s.GuildID,
			"channel_id", s.ChannelID,
			"quiz_id", s.QuizID,
		),
		inbox:  make(chan command, deps.inboxCap),
		closed: make(chan struct{}),
		onDone: deps.onDone,
	}
	r.lastActivity.Store(s.LastActivityAt.UnixNano())
	return r
}

// GuildID returns the session's guild. Immutable, safe from any goroutine.
func (r *Runner) GuildID() string { return r.session.GuildID }

// ChannelID returns the session's channel. Immutable.
func (r *Runner) ChannelID() string { return r.session.ChannelID }

// HostID returns the session's host user. Immutable.
func (r *Runner) HostID() string { return r.session.HostID }

// Privacy returns the session's delivery mode. Immutable.
func (r *Runner) Privacy() Privacy { return r.session.Privacy }

// StartedAt returns when the session started. Immutable.
func (r *Runner) StartedAt() time.Time { return r.session.StartedAt }

// LastActivity returns the session's most recent activity timestamp.
func (r *Runner) LastActivity() time.Time {
	return time.Unix(0, r.lastActivity.Load())
}

// Done closes when the owning task has exited.
func (r *Runner) Done() <-chan struct{} { return r.closed }

func (r *Runner) touch() {
	r.lastActivity.Store(r.clock.Now().UnixNano())
}

// CurrentQuestion returns the question currently accepting answers and its
// presenter handle. ok is false between questions.
func (r *Runner) CurrentQuestion() (question.Question, MessageHandle, bool) {
	snap := r.snap.Load()
	if snap == nil {
		return question.Question{}, nil, false
	}
	return snap.q, snap.handle, true
}

// Submit runs the ingress acceptance gate and, if the raw text is
// syntactically valid for the current question, dispatches it to the owning
// task. Response time is captured here, at submission, so fairness does not
// depend on dispatch latency. Returns false when there is no open question,
// the text fails the gate, or the inbox is full.
func (r *Runner) Submit(userID, displayName, raw string, ack func(correct bool)) bool {
	snap := r.snap.Load()
	if snap == nil {
		return false
	}
	v := r.parser.Judge(raw, snap.q)
	if !v.Accepted {
		return false
	}
	at := r.clock.Now().Sub(snap.start).Seconds()

	cmd := answerCmd{
		epoch:       snap.epoch,
		userID:      userID,
		displayName: displayName,
		raw:         raw,
		at:          at,
		correct:     v.Correct,
		ack:         ack,
	}
	select {
	case r.inbox <- cmd:
		return true
	case <-r.closed:
		return false
	default:
		r.log.Warn("answer dropped, inbox full", "user_id", userID)
		return false
	}
}

// Stop asks the owning task to finish the session early and waits for the
// transition to be acknowledged.
func (r *Runner) Stop(ctx context.Context, requestedBy string) error {
	reply := make(chan error, 1)
	select {
	case r.inbox <- stopCmd{requestedBy: requestedBy, reply: reply}:
	case <-r.closed:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-r.closed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Expire asks the owning task to abort the session (inactivity or hard
// cap). Best-effort: if the inbox is momentarily full the next sweep
// retries.
func (r *Runner) Expire(reason string) {
	select {
	case r.inbox <- expireCmd{reason: reason}:
	case <-r.closed:
	default:
	}
}

// Progress reports the session's position via the owning task.
func (r *Runner) Progress(ctx context.Context) (Progress, error) {
	reply := make(chan Progress, 1)
	select {
	case r.inbox <- progressCmd{reply: reply}:
	case <-r.closed:
		return Progress{}, ErrSessionClosed
	case <-ctx.Done():
		return Progress{}, ctx.Err()
	}
	select {
	case p := <-reply:
		return p, nil
	case <-r.closed:
		return Progress{}, ErrSessionClosed
	case <-ctx.Done():
		return Progress{}, ctx.Err()
	}
}

// Leaderboard returns current standings via the owning task.
func (r *Runner) Leaderboard(ctx context.Context, limit int) ([]Standing, error) {
	reply := make(chan []Standing, 1)
	select {
	case r.inbox <- boardCmd{limit: limit, reply: reply}:
	case <-r.closed:
		return nil, ErrSessionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case rows := <-reply:
		return rows, nil
	case <-r.closed:
		return nil, ErrSessionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run drives the session from Setup to Finished. It is the only goroutine
// that mutates the Session. ctx cancellation means process shutdown: the
// loop exits without recording and leaves the recovery snapshot in place so
// the channel is notified after restart.
func (r *Runner) Run(ctx context.Context) {
	defer close(r.closed)
	defer r.onDone(r)

	s := r.session
	now := r.clock.Now()
	s.State = StateActive
	s.StartedAt = now
	r.metrics.SessionStarted(ctx)

	if err := r.journal.Save(ctx, s); err != nil {
		r.log.Warn("recovery snapshot write failed", "error", err)
	}
	if err := r.presenter.ShowIntro(ctx, s); err != nil {
		r.log.Warn("intro render failed", "error", err)
	}

	var (
		stopped bool
		aborted string // expiry reason; empty means a played-out session
	)

questions:
	for s.State == StateActive {
		q, err := s.CurrentQuestion()
		if err != nil {
			r.log.Error("aborting session", "error", err)
			aborted = abortInternal
			break questions
		}

		handle, err := r.presenter.ShowQuestion(ctx, s, q)
		if err != nil {
			// Transient: answers can still arrive as text.
			r.log.Warn("question render failed", "error", err, "question", q.ID)
			handle = nil
		}
		s.BeginQuestion(r.clock.Now())
		r.touch()
		r.epoch++
		r.snap.Store(&questionSnapshot{epoch: r.epoch, q: q, start: s.QuestionStart(), handle: handle})
		r.metrics.QuestionAsked(ctx)

		timer := startQuestionTimer(ctx, r.clock, r.presenter, r.log, handle, s.QuestionStart(), s.QuestionTimeout)

		timedOut := false
	waiting:
		for {
			select {
			case <-ctx.Done():
				timer.Cancel()
				_ = timer.Wait()
				r.metrics.SessionEnded(ctx, "shutdown")
				return
			case <-timer.Expired():
				timedOut = true
				break waiting
			case cmd := <-r.inbox:
				switch c := cmd.(type) {
				case answerCmd:
					if r.applyAnswer(ctx, c) && c.correct && s.Mode == ModeFirstCorrectWins {
						break waiting
					}
				case stopCmd:
					c.reply <- nil
					stopped = true
					break waiting
				case expireCmd:
					aborted = c.reason
					break waiting
				case progressCmd:
					c.reply <- s.ProgressInfo()
				case boardCmd:
					c.reply <- s.Leaderboard(c.limit)
				}
			}
		}

		// The timer tasks observe cancellation within one slice; the grace
		// wait lets an in-flight countdown edit land before the reveal.
		timer.Cancel()
		if err := timer.Wait(); err != nil && ctx.Err() != nil {
			r.metrics.SessionEnded(ctx, "shutdown")
			return
		}
		_ = r.clock.Sleep(ctx, revealGrace)
		r.drainLateAnswers(ctx, &stopped, &aborted)
		r.snap.Store(nil)

		if stopped || aborted != "" {
			break questions
		}

		res, err := s.ResolveCurrentQuestion(r.scorer, timedOut)
		if err != nil {
			r.log.Error("aborting session", "error", err)
			aborted = abortInternal
			break questions
		}
		if err := r.presenter.Reveal(ctx, handle, s, res); err != nil {
			r.log.Warn("reveal render failed", "error", err, "question", q.ID)
		}

		s.Advance(r.clock.Now())
		if s.State == StateFinished {
			break questions
		}

		if err := r.journal.Save(ctx, s); err != nil {
			r.log.Warn("recovery snapshot write failed", "error", err)
		}
		if !r.pause(ctx, s.InterQuestionPause, &stopped, &aborted) {
			r.metrics.SessionEnded(ctx, "shutdown")
			return
		}
		if stopped || aborted != "" {
			break questions
		}
	}

	r.finish(ctx, stopped, aborted)
}

// applyAnswer records one dispatched answer on the session. Returns whether
// the answer counted (current question, first answer from this user).
func (r *Runner) applyAnswer(ctx context.Context, c answerCmd) bool {
	if c.epoch != r.epoch {
		return false
	}
	s := r.session
	_, known := s.Participants[c.userID]
	if !s.RecordRawAnswer(c.userID, c.displayName, c.raw, c.at, c.correct) {
		return false
	}
	r.touch()
	r.metrics.AnswerAccepted(ctx, c.correct)

	if c.ack != nil {
		// Acknowledgement reactions are best-effort and must not block
		// the owning task.
		go c.ack(c.correct)
	}
	if !known {
		go func() {
			gctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := r.store.AddGuildMember(gctx, s.GuildID, c.userID); err != nil {
				r.log.Debug("guild member upsert failed", "user_id", c.userID, "error", err)
			}
		}()
	}
	return true
}

// drainLateAnswers applies answers that were already in the inbox when the
// question closed. A late correct answer still counts toward correct_count;
// in FirstCorrectWins it scores zero unless it was genuinely the earliest
// by submission time.
func (r *Runner) drainLateAnswers(ctx context.Context, stopped *bool, aborted *string) {
	for {
		select {
		case cmd := <-r.inbox:
			switch c := cmd.(type) {
			case answerCmd:
				r.applyAnswer(ctx, c)
			case stopCmd:
				c.reply <- nil
				*stopped = true
			case expireCmd:
				*aborted = c.reason
			case progressCmd:
				c.reply <- r.session.ProgressInfo()
			case boardCmd:
				c.reply <- r.session.Leaderboard(c.limit)
			}
		default:
			return
		}
	}
}

// pause waits out the inter-question gap while still servicing commands.
// Returns false on shutdown.
func (r *Runner) pause(ctx context.Context, d time.Duration, stopped *bool, aborted *string) bool {
	if d <= 0 {
		return true
	}
	s := r.session
	done := r.clock.After(d)
	for {
		select {
		case <-ctx.Done():
			return false
		case <-done:
			return true
		case cmd := <-r.inbox:
			switch c := cmd.(type) {
			case answerCmd:
				// Stale: the question is already resolved.
			case stopCmd:
				c.reply <- nil
				*stopped = true
				return true
			case expireCmd:
				*aborted = c.reason
				return true
			case progressCmd:
				c.reply <- s.ProgressInfo()
			case boardCmd:
				c.reply <- s.Leaderboard(c.limit)
			}
		}
	}
}

// finish runs the terminal path: record once, announce, clear the journal.
// Persistence here uses a detached context so shutdown racing the last
// question cannot lose a completed quiz.
func (r *Runner) finish(ctx context.Context, stopped bool, aborted string) {
	s := r.session
	now := r.clock.Now()
	s.Finish(now)

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()

	reason := "completed"
	switch {
	case aborted != "":
		reason = aborted
	case stopped:
		reason = "stopped"
	}

	if aborted != "" {
		// Expired sessions keep no participant results; an internal abort
		// still records the tallies resolved before the failure.
		if aborted == abortInternal {
			if err := r.recorder.Record(dctx, s); err != nil {
				r.log.Error("result batch write failed", "error", err)
			}
		}
		text := "The quiz was ended: " + aborted + "."
		if err := r.presenter.Notice(dctx, s.GuildID, s.ChannelID, text); err != nil {
			r.log.Warn("abort notice failed", "error", err)
		}
	} else {
		if err := r.recorder.Record(dctx, s); err != nil {
			r.log.Error("result batch write failed", "error", err)
			text := "Results could not be saved, scores below are final for this session only."
			if nerr := r.presenter.Notice(dctx, s.GuildID, s.ChannelID, text); nerr != nil {
				r.log.Warn("recorder failure notice failed", "error", nerr)
			}
		}
		if err := r.presenter.ShowFinal(dctx, s, s.Leaderboard(0), stopped); err != nil {
			r.log.Warn("final render failed", "error", err)
		}
	}

	r.journal.Clear(dctx, s.GuildID, s.ChannelID)
	r.metrics.SessionEnded(ctx, reason)
	r.log.Info("session finished",
		"reason", reason,
		"questions", len(s.Questions),
		"participants", len(s.Participants),
	)
}
