package engine

import (
	"time"

	"github.com/quizzardhq/quizzard/internal/question"
)

// State is a session's position in its lifecycle.
type State int

const (
	// StateSetup is the initial state while questions are being generated.
	StateSetup State = iota
	// StateActive means the session is between questions.
	StateActive
	// StateWaitingForAnswer means a question is on screen and its timer runs.
	StateWaitingForAnswer
	// StateReviewing means the current question is resolved and the reveal
	// is being shown.
	StateReviewing
	// StateFinished is terminal.
	StateFinished
)

// String implements [fmt.Stringer].
func (s State) String() string {
	switch s {
	case StateSetup:
		return "setup"
	case StateActive:
		return "active"
	case StateWaitingForAnswer:
		return "waiting_for_answer"
	case StateReviewing:
		return "reviewing"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Mode selects the scoring regime for a session.
type Mode string

const (
	// ModeStandard awards points to every correct responder.
	ModeStandard Mode = "standard"
	// ModeFirstCorrectWins awards points only to the earliest correct
	// responder per question and ends the question immediately.
	ModeFirstCorrectWins Mode = "first_correct_wins"
)

// Privacy selects where questions and reveals are delivered.
type Privacy string

const (
	// PrivacyPublic renders everything in the channel.
	PrivacyPublic Privacy = "public"
	// PrivacyPrivate DMs questions and reveals to registered participants;
	// the channel receives only progress notices.
	PrivacyPrivate Privacy = "private"
)

// QuizRequest is a validated, clamped start request handed over by the
// command layer. The engine clamps again defensively but performs no
// permission checks.
type QuizRequest struct {
	Topic      string
	Count      int
	Difficulty question.Difficulty
	Type       question.Type
	TimeoutS   int
	Mode       Mode
	Privacy    Privacy

	ProviderHint string
	CategoryHint string

	HostID          string
	HostDisplayName string
	GuildID         string
	ChannelID       string
}

// Participant is one user's accumulated state within a session.
type Participant struct {
	UserID        string
	DisplayName   string
	Score         int
	CorrectCount  int
	WrongCount    int
	ResponseTimes []float64 // seconds, in question order of attempts
}

// Standing is one leaderboard row.
type Standing struct {
	Rank        int
	UserID      string
	DisplayName string
	Score       int
	Correct     int
	Wrong       int
}

// Progress describes a session's position for status queries and renders.
type Progress struct {
	Topic     string
	HostID    string
	Index     int // 1-based current question number; 0 before the first
	Total     int
	State     State
	Mode      Mode
	Privacy   Privacy
	StartedAt time.Time
}

// Resolution is the outcome of one question: who was correct, ordered by
// response time, and the points awarded per user.
type Resolution struct {
	Question          question.Question
	CorrectResponders []string       // user IDs, fastest first
	Awards            map[string]int // user ID → points awarded this question
	TimedOut          bool           // deadline expired with no early finish
}
