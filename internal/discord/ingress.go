package discord

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/quizzardhq/quizzard/internal/engine"
	"github.com/quizzardhq/quizzard/internal/question"
)

// Acknowledgement reactions attached to counted answers.
const (
	reactCorrect = "✅"
	reactWrong   = "❌"
)

// reactionLetters maps regional-indicator reactions on a question message to
// multiple-choice answers.
var reactionLetters = map[string]string{
	"🇦": "A",
	"🇧": "B",
	"🇨": "C",
	"🇩": "D",
}

// Ingress bridges Discord gateway events into the engine's answer ingress:
// plain messages in channels with an open question, DM replies for private
// sessions, and letter reactions on the question message.
type Ingress struct {
	ingress *engine.AnswerIngress
	log     *slog.Logger
}

// NewIngress creates the bridge and registers its gateway handlers on s.
func NewIngress(s *discordgo.Session, ingress *engine.AnswerIngress, log *slog.Logger) *Ingress {
	if log == nil {
		log = slog.Default()
	}
	in := &Ingress{ingress: ingress, log: log}
	s.AddHandler(in.onMessageCreate)
	s.AddHandler(in.onReactionAdd)
	return in
}

// onMessageCreate feeds candidate answers into the engine. Non-answers fall
// through silently; the engine's gate decides what counts.
func (in *Ingress) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	ack := func(correct bool) {
		emoji := reactWrong
		if correct {
			emoji = reactCorrect
		}
		if err := s.MessageReactionAdd(m.ChannelID, m.ID, emoji); err != nil {
			in.log.Debug("answer ack reaction failed", "message_id", m.ID, "err", err)
		}
	}

	msg := engine.InboundAnswer{
		GuildID:     m.GuildID,
		ChannelID:   m.ChannelID,
		UserID:      m.Author.ID,
		DisplayName: displayName(m.Member, m.Author),
		Content:     m.Content,
		Bot:         m.Author.Bot,
		Ack:         ack,
	}

	if m.GuildID == "" {
		// DM: a private-session participant answering the DMed question.
		in.ingress.HandleDirectAnswer(msg)
		return
	}
	in.ingress.HandleAnswer(msg)
}

// onReactionAdd accepts letter reactions on the open question's message as
// multiple-choice answers.
func (in *Ingress) onReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	letter, ok := reactionLetters[r.Emoji.Name]
	if !ok {
		return
	}
	if r.Member != nil && r.Member.User != nil && r.Member.User.Bot {
		return
	}

	q, handle, open := in.ingress.CurrentQuestion(r.GuildID, r.ChannelID)
	if !open || q.Type != question.TypeMultipleChoice {
		return
	}
	h, ok := handle.(*questionHandle)
	if !ok || !h.ContainsMessage(r.MessageID) {
		return
	}

	name := ""
	if r.Member != nil {
		name = displayName(r.Member, r.Member.User)
	}

	in.ingress.HandleAnswer(engine.InboundAnswer{
		GuildID:     r.GuildID,
		ChannelID:   r.ChannelID,
		UserID:      r.UserID,
		DisplayName: name,
		Content:     letter,
		// No ack: reacting to a reaction reads as noise.
	})
}

// displayName prefers the guild nickname, then the global display name,
// then the username.
func displayName(member *discordgo.Member, user *discordgo.User) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}
	if user == nil {
		return ""
	}
	if user.GlobalName != "" {
		return user.GlobalName
	}
	return user.Username
}
