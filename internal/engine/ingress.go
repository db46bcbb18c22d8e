package engine

import (
	"log/slog"

	"github.com/quizzardhq/quizzard/internal/question"
)

// InboundAnswer is one candidate answer from the chat platform, already
// stripped of platform types. Ack, when set, is invoked best-effort once
// the answer is counted, with the correctness verdict.
type InboundAnswer struct {
	GuildID     string
	ChannelID   string
	UserID      string
	DisplayName string
	Content     string
	Bot         bool
	Ack         func(correct bool)
}

// AnswerIngress routes chat messages and reactions into the owning task of
// whichever session is waiting for answers in that channel. It is global,
// stateless, and safe for concurrent use.
type AnswerIngress struct {
	registry *SessionRegistry
	log      *slog.Logger
}

// NewAnswerIngress creates an ingress over the registry.
func NewAnswerIngress(registry *SessionRegistry, log *slog.Logger) *AnswerIngress {
	return &AnswerIngress{registry: registry, log: log}
}

// HandleAnswer applies the acceptance filter and submits the answer to the
// channel's session. Returns whether the answer was dispatched; rejected
// answers are dropped silently so invalid chatter causes no error spam.
// Private sessions take answers over DM only, never from the channel.
func (in *AnswerIngress) HandleAnswer(msg InboundAnswer) bool {
	if msg.Bot || msg.Content == "" {
		return false
	}
	r, ok := in.registry.Get(msg.GuildID, msg.ChannelID)
	if !ok || r.Privacy() == PrivacyPrivate {
		return false
	}
	return r.Submit(msg.UserID, msg.DisplayName, msg.Content, msg.Ack)
}

// HandleDirectAnswer routes a DM answer to the private session hosted by
// its author. Private sessions deliver questions by DM, so the reply
// carries no guild or quiz channel to route on.
func (in *AnswerIngress) HandleDirectAnswer(msg InboundAnswer) bool {
	if msg.Bot || msg.Content == "" {
		return false
	}
	for _, r := range in.registry.Snapshot() {
		if r.Privacy() != PrivacyPrivate || r.HostID() != msg.UserID {
			continue
		}
		return r.Submit(msg.UserID, msg.DisplayName, msg.Content, msg.Ack)
	}
	return false
}

// CurrentQuestion exposes the open question and its presenter handle for a
// channel, so the platform layer can match reaction events against the
// question message. ok is false when nothing is accepting answers.
func (in *AnswerIngress) CurrentQuestion(guildID, channelID string) (question.Question, MessageHandle, bool) {
	r, ok := in.registry.Get(guildID, channelID)
	if !ok {
		return question.Question{}, nil, false
	}
	return r.CurrentQuestion()
}
