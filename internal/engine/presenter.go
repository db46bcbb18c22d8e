package engine

import (
	"context"

	"github.com/quizzardhq/quizzard/internal/question"
)

// MessageHandle is an opaque reference to a rendered question view,
// sufficient for the presenter to edit it in place later. In public mode it
// is one channel message; in private mode it fans out to one DM per
// registered participant.
type MessageHandle any

// Presenter renders session views to the chat platform. All calls happen on
// the session's owning task, never concurrently for one session. Transient
// render failures are the presenter's to absorb where it can; returned
// errors are logged by the engine and never abort a session.
type Presenter interface {
	// ShowIntro announces the quiz before the first question.
	ShowIntro(ctx context.Context, s *Session) error

	// ShowQuestion renders question q and returns a handle for in-place
	// edits. The same handle later carries the countdown and the reveal.
	ShowQuestion(ctx context.Context, s *Session, q question.Question) (MessageHandle, error)

	// UpdateTimer refreshes the countdown on a shown question.
	UpdateTimer(ctx context.Context, h MessageHandle, remainingS, totalS int) error

	// Reveal edits the question view into the answer reveal. The reveal for
	// question k lands on the same message that showed question k.
	Reveal(ctx context.Context, h MessageHandle, s *Session, res Resolution) error

	// ShowFinal renders the terminal leaderboard and stats.
	ShowFinal(ctx context.Context, s *Session, board []Standing, stopped bool) error

	// Notice posts a plain channel notice outside any session render flow.
	Notice(ctx context.Context, guildID, channelID, text string) error
}
