package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/quizzardhq/quizzard/internal/question"
)

// Session is the per-(guild, channel) quiz state machine. It holds only pure
// state: all mutation happens on the session's owning task, so no field is
// guarded by a lock. Anything other goroutines need to observe is exported
// through the [Runner]'s atomic snapshots instead.
type Session struct {
	GuildID   string
	ChannelID string
	HostID    string
	Topic     string
	QuizID    string

	Questions    []question.Question
	CurrentIndex int
	State        State

	Participants map[string]*Participant

	// Per-question substate, cleared at every question boundary.
	currentAnswers map[string]string // user_id → raw text
	currentSubs    []submission      // submission order
	questionStart  time.Time

	CreatedAt      time.Time
	StartedAt      time.Time
	LastActivityAt time.Time
	EndedAt        time.Time

	QuestionTimeout    time.Duration
	InterQuestionPause time.Duration
	Mode               Mode
	Privacy            Privacy
	Difficulty         question.Difficulty
	Category           string

	// ProviderInfo carries opaque reporting data, e.g. which provider
	// generated the questions.
	ProviderInfo map[string]string

	ResultsRecorded bool
}

// submission is one accepted raw answer for the current question.
type submission struct {
	userID  string
	raw     string
	at      float64 // seconds since question start, captured at submission
	correct bool
}

// NewSession constructs a Session in Setup with its questions attached.
// quizID is derived from the channel and start time so it is stable across
// the session's whole life.
func NewSession(req QuizRequest, questions []question.Question, now time.Time) *Session {
	return &Session{
		GuildID:   req.GuildID,
		ChannelID: req.ChannelID,
		HostID:    req.HostID,
		Topic:     req.Topic,
		QuizID:    fmt.Sprintf("trivia_%s_%d", req.ChannelID, now.Unix()),

		Questions: questions,
		State:     StateSetup,

		Participants:   make(map[string]*Participant),
		currentAnswers: make(map[string]string),

		CreatedAt:      now,
		StartedAt:      now,
		LastActivityAt: now,

		QuestionTimeout: time.Duration(req.TimeoutS) * time.Second,
		Mode:            req.Mode,
		Privacy:         req.Privacy,
		Difficulty:      req.Difficulty,
		Category:        req.CategoryHint,
		ProviderInfo:    make(map[string]string),
	}
}

// CurrentQuestion returns the question at CurrentIndex.
func (s *Session) CurrentQuestion() (question.Question, error) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Questions) {
		return question.Question{}, fmt.Errorf("%w: question index %d of %d", ErrInvariant, s.CurrentIndex, len(s.Questions))
	}
	return s.Questions[s.CurrentIndex], nil
}

// RegisterParticipant creates (or refreshes the display name of) a
// participant. Called lazily on first answer, or up front for the host in
// private mode.
func (s *Session) RegisterParticipant(userID, displayName string) *Participant {
	if p, ok := s.Participants[userID]; ok {
		if displayName != "" {
			p.DisplayName = displayName
		}
		return p
	}
	p := &Participant{UserID: userID, DisplayName: displayName}
	s.Participants[userID] = p
	return p
}

// RecordRawAnswer records one accepted answer for the current question.
// Returns false when the user already answered this question; response time
// is the submission-time capture, not processing time.
func (s *Session) RecordRawAnswer(userID, displayName, raw string, at float64, correct bool) bool {
	if s.State != StateWaitingForAnswer && s.State != StateReviewing {
		return false
	}
	if _, dup := s.currentAnswers[userID]; dup {
		return false
	}
	s.RegisterParticipant(userID, displayName)
	s.currentAnswers[userID] = raw
	s.currentSubs = append(s.currentSubs, submission{userID: userID, raw: raw, at: at, correct: correct})
	return true
}

// BeginQuestion transitions Active → WaitingForAnswer and stamps the
// question start time used for response-time capture.
func (s *Session) BeginQuestion(now time.Time) {
	s.State = StateWaitingForAnswer
	s.questionStart = now
	s.LastActivityAt = now
}

// QuestionStart returns the start time of the current question.
func (s *Session) QuestionStart() time.Time { return s.questionStart }

// ResolveCurrentQuestion applies scoring for the current question, updates
// every submitting participant's tallies, and transitions to Reviewing. The
// per-question substate stays intact until [Session.Advance] so the reveal
// can render from it.
func (s *Session) ResolveCurrentQuestion(scorer *Scorer, timedOut bool) (Resolution, error) {
	q, err := s.CurrentQuestion()
	if err != nil {
		return Resolution{}, err
	}

	res := Resolution{
		Question: q,
		Awards:   make(map[string]int),
		TimedOut: timedOut,
	}

	// Earliest correct submitter by response time, for FirstCorrectWins.
	firstCorrect := ""
	firstAt := 0.0
	for _, sub := range s.currentSubs {
		if !sub.correct {
			continue
		}
		if firstCorrect == "" || sub.at < firstAt {
			firstCorrect = sub.userID
			firstAt = sub.at
		}
	}

	correct := make([]submission, 0, len(s.currentSubs))
	for _, sub := range s.currentSubs {
		p := s.Participants[sub.userID]
		if p == nil {
			return Resolution{}, fmt.Errorf("%w: submission from unregistered user %s", ErrInvariant, sub.userID)
		}
		p.ResponseTimes = append(p.ResponseTimes, sub.at)
		if !sub.correct {
			p.WrongCount++
			continue
		}
		p.CorrectCount++
		correct = append(correct, sub)

		pts := scorer.Points(ScoreInput{
			Correct:        true,
			ResponseTime:   sub.at,
			Timeout:        s.QuestionTimeout.Seconds(),
			Difficulty:     q.Difficulty,
			Mode:           s.Mode,
			IsFirstCorrect: sub.userID == firstCorrect,
		})
		p.Score += pts
		res.Awards[sub.userID] = pts
	}

	sort.SliceStable(correct, func(i, j int) bool { return correct[i].at < correct[j].at })
	for _, sub := range correct {
		res.CorrectResponders = append(res.CorrectResponders, sub.userID)
	}

	s.State = StateReviewing
	return res, nil
}

// Advance clears the per-question substate and moves to the next question,
// transitioning to Active, or to Finished when no questions remain.
func (s *Session) Advance(now time.Time) {
	s.currentAnswers = make(map[string]string)
	s.currentSubs = nil
	s.CurrentIndex++
	s.LastActivityAt = now

	if s.CurrentIndex >= len(s.Questions) {
		s.CurrentIndex = len(s.Questions)
		s.finish(now)
		return
	}
	s.State = StateActive
}

// Finish transitions the session to Finished from any state.
func (s *Session) Finish(now time.Time) {
	if s.State == StateFinished {
		return
	}
	// Terminal sessions index one past the last question.
	s.CurrentIndex = len(s.Questions)
	s.finish(now)
}

func (s *Session) finish(now time.Time) {
	s.State = StateFinished
	s.EndedAt = now
}

// Leaderboard returns standings sorted by score, then correct count, then
// display name. limit ≤ 0 returns everything.
func (s *Session) Leaderboard(limit int) []Standing {
	rows := make([]Standing, 0, len(s.Participants))
	for _, p := range s.Participants {
		rows = append(rows, Standing{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Score:       p.Score,
			Correct:     p.CorrectCount,
			Wrong:       p.WrongCount,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Correct != b.Correct {
			return a.Correct > b.Correct
		}
		return a.DisplayName < b.DisplayName
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

// ProgressInfo reports the session's position for status queries.
func (s *Session) ProgressInfo() Progress {
	index := s.CurrentIndex + 1
	switch {
	case s.State == StateFinished || s.CurrentIndex >= len(s.Questions):
		index = len(s.Questions)
	case s.questionStart.IsZero():
		// No question has been shown yet.
		index = 0
	}
	return Progress{
		Topic:     s.Topic,
		HostID:    s.HostID,
		Index:     index,
		Total:     len(s.Questions),
		State:     s.State,
		Mode:      s.Mode,
		Privacy:   s.Privacy,
		StartedAt: s.StartedAt,
	}
}
