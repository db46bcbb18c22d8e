package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/quizzardhq/quizzard/internal/engine"
	"github.com/quizzardhq/quizzard/internal/question"
)

// embedColorBlue is the embed sidebar color for an open question.
const embedColorBlue = 0x3498DB

// embedColorGreen is the embed sidebar color for reveals and final results.
const embedColorGreen = 0x2ECC71

// embedColorRed is the embed sidebar color for timed-out questions.
const embedColorRed = 0xE74C3C

// optionLetters prefixes multiple-choice options in rendered embeds.
var optionLetters = []string{"A", "B", "C", "D", "E", "F"}

// Messenger is the slice of *discordgo.Session the presenter needs, so
// tests can substitute a recording double.
type Messenger interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// Compile-time check: the real discordgo session satisfies Messenger.
var _ Messenger = (*discordgo.Session)(nil)

// messageRef locates one rendered copy of a question view.
type messageRef struct {
	channelID string
	messageID string
}

// questionHandle is the engine.MessageHandle produced by ShowQuestion: the
// set of messages (one in public mode, one DM per participant in private
// mode) that later countdown and reveal edits target.
type questionHandle struct {
	refs    []messageRef
	q       question.Question
	number  int
	total   int
	topic   string
	timeout int // seconds
}

// Refs returns the located messages. Used by the reaction ingress to match
// reaction events against the open question.
func (h *questionHandle) Refs() []messageRef { return h.refs }

// ContainsMessage reports whether id is one of the handle's messages.
func (h *questionHandle) ContainsMessage(id string) bool {
	for _, ref := range h.refs {
		if ref.messageID == id {
			return true
		}
	}
	return false
}

// Presenter renders quiz views as Discord embeds. Question messages are
// edited in place for countdown updates and the answer reveal; in private
// mode all question traffic goes to participant DMs and the channel only
// sees progress notices.
type Presenter struct {
	m   Messenger
	log *slog.Logger
}

// Compile-time interface assertion.
var _ engine.Presenter = (*Presenter)(nil)

// NewPresenter creates a Presenter sending through m.
func NewPresenter(m Messenger, log *slog.Logger) *Presenter {
	if log == nil {
		log = slog.Default()
	}
	return &Presenter{m: m, log: log}
}

// ShowIntro implements [engine.Presenter].
func (p *Presenter) ShowIntro(_ context.Context, s *engine.Session) error {
	if s.Privacy == engine.PrivacyPrivate {
		text := fmt.Sprintf("Quiz on **%s** starting, %d questions will be sent by DM.", s.Topic, len(s.Questions))
		_, err := p.m.ChannelMessageSend(s.ChannelID, text)
		return err
	}

	embed := &discordgo.MessageEmbed{
		Title: "Quiz: " + s.Topic,
		Description: fmt.Sprintf("%d questions, %ds each. Type your answer in this channel!",
			len(s.Questions), int(s.QuestionTimeout.Seconds())),
		Color: embedColorBlue,
	}
	if s.Mode == engine.ModeFirstCorrectWins {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "First correct answer wins each question."}
	}
	_, err := p.m.ChannelMessageSendEmbed(s.ChannelID, embed)
	return err
}

// ShowQuestion implements [engine.Presenter]. The returned handle carries
// every message the question was rendered to.
func (p *Presenter) ShowQuestion(_ context.Context, s *engine.Session, q question.Question) (engine.MessageHandle, error) {
	h := &questionHandle{
		q:       q,
		number:  s.CurrentIndex + 1,
		total:   len(s.Questions),
		topic:   s.Topic,
		timeout: int(s.QuestionTimeout.Seconds()),
	}
	embed := p.questionEmbed(h, h.timeout)

	if s.Privacy == engine.PrivacyPrivate {
		for userID := range s.Participants {
			dm, err := p.m.UserChannelCreate(userID)
			if err != nil {
				p.log.Warn("dm channel create failed", "user_id", userID, "err", err)
				continue
			}
			msg, err := p.m.ChannelMessageSendEmbed(dm.ID, embed)
			if err != nil {
				p.log.Warn("dm question send failed", "user_id", userID, "err", err)
				continue
			}
			h.refs = append(h.refs, messageRef{channelID: dm.ID, messageID: msg.ID})
		}
		notice := fmt.Sprintf("Question %d/%d sent to participants.", h.number, h.total)
		if _, err := p.m.ChannelMessageSend(s.ChannelID, notice); err != nil {
			p.log.Warn("progress notice failed", "channel_id", s.ChannelID, "err", err)
		}
		if len(h.refs) == 0 {
			return nil, fmt.Errorf("discord presenter: question %d: no DM delivered", h.number)
		}
		return h, nil
	}

	msg, err := p.m.ChannelMessageSendEmbed(s.ChannelID, embed)
	if err != nil {
		return nil, fmt.Errorf("discord presenter: question %d: %w", h.number, err)
	}
	h.refs = append(h.refs, messageRef{channelID: s.ChannelID, messageID: msg.ID})
	return h, nil
}

// UpdateTimer implements [engine.Presenter]. Edits are best-effort per
// message; one failing DM must not stall the countdown for the rest.
func (p *Presenter) UpdateTimer(_ context.Context, handle engine.MessageHandle, remainingS, _ int) error {
	h, ok := handle.(*questionHandle)
	if !ok || h == nil {
		return nil
	}
	embed := p.questionEmbed(h, remainingS)

	var firstErr error
	for _, ref := range h.refs {
		if _, err := p.m.ChannelMessageEditEmbed(ref.channelID, ref.messageID, embed); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("discord presenter: countdown edit: %w", err)
		}
	}
	return firstErr
}

// Reveal implements [engine.Presenter]. The reveal replaces the question
// embed on the same message; when an edit fails (message deleted) it falls
// back to sending a fresh message to that destination.
func (p *Presenter) Reveal(_ context.Context, handle engine.MessageHandle, s *engine.Session, res engine.Resolution) error {
	h, ok := handle.(*questionHandle)
	if !ok || h == nil {
		// The question never rendered; post the reveal as a new message.
		h = &questionHandle{
			q:      res.Question,
			number: s.CurrentIndex + 1,
			total:  len(s.Questions),
			topic:  s.Topic,
			refs:   []messageRef{{channelID: s.ChannelID}},
		}
	}
	embed := p.revealEmbed(s, h, res)

	var firstErr error
	for _, ref := range h.refs {
		if ref.messageID != "" {
			if _, err := p.m.ChannelMessageEditEmbed(ref.channelID, ref.messageID, embed); err == nil {
				continue
			} else {
				p.log.Warn("reveal edit failed, sending new message",
					"channel_id", ref.channelID, "message_id", ref.messageID, "err", err)
			}
		}
		if _, err := p.m.ChannelMessageSendEmbed(ref.channelID, embed); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("discord presenter: reveal: %w", err)
		}
	}
	return firstErr
}

// ShowFinal implements [engine.Presenter].
func (p *Presenter) ShowFinal(_ context.Context, s *engine.Session, board []engine.Standing, stopped bool) error {
	title := "Quiz finished: " + s.Topic
	if stopped {
		title = "Quiz stopped: " + s.Topic
	}

	var b strings.Builder
	if len(board) == 0 {
		b.WriteString("Nobody answered. Better luck next time!")
	}
	medals := []string{"🥇", "🥈", "🥉"}
	for i, row := range board {
		prefix := fmt.Sprintf("%d.", row.Rank)
		if i < len(medals) {
			prefix = medals[i]
		}
		fmt.Fprintf(&b, "%s **%s** — %d pts (%d correct, %d wrong)\n",
			prefix, row.DisplayName, row.Score, row.Correct, row.Wrong)
	}

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: b.String(),
		Color:       embedColorGreen,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%d questions · %s", len(s.Questions), formatDuration(s.EndedAt.Sub(s.StartedAt))),
		},
	}
	if _, err := p.m.ChannelMessageSendEmbed(s.ChannelID, embed); err != nil {
		return fmt.Errorf("discord presenter: final: %w", err)
	}
	return nil
}

// Notice implements [engine.Presenter].
func (p *Presenter) Notice(_ context.Context, _ string, channelID, text string) error {
	if _, err := p.m.ChannelMessageSend(channelID, text); err != nil {
		return fmt.Errorf("discord presenter: notice: %w", err)
	}
	return nil
}

// questionEmbed renders the open-question view with the current countdown.
func (p *Presenter) questionEmbed(h *questionHandle, remainingS int) *discordgo.MessageEmbed {
	var b strings.Builder
	b.WriteString(h.q.Text)
	b.WriteString("\n")

	switch h.q.Type {
	case question.TypeMultipleChoice:
		for i, opt := range h.q.Options {
			letter := "?"
			if i < len(optionLetters) {
				letter = optionLetters[i]
			}
			fmt.Fprintf(&b, "\n**%s.** %s", letter, question.StripOptionPrefix(opt))
		}
	case question.TypeTrueFalse:
		b.WriteString("\nTrue / False")
	case question.TypeShortAnswer:
		b.WriteString("\nType your answer.")
	}

	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Question %d/%d", h.number, h.total),
		Description: b.String(),
		Color:       embedColorBlue,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("⏱ %ds remaining", remainingS),
		},
	}
}

// revealEmbed renders the answered view: the correct answer, optional
// explanation, who got it, and the running top three.
func (p *Presenter) revealEmbed(s *engine.Session, h *questionHandle, res engine.Resolution) *discordgo.MessageEmbed {
	q := res.Question

	var b strings.Builder
	b.WriteString(q.Text)
	fmt.Fprintf(&b, "\n\n**Answer:** %s", revealAnswerText(q))
	if q.Degraded {
		b.WriteString(" *(best guess)*")
	}
	if q.Explanation != "" {
		fmt.Fprintf(&b, "\n%s", q.Explanation)
	}

	color := embedColorGreen
	if len(res.CorrectResponders) == 0 {
		color = embedColorRed
		if res.TimedOut {
			b.WriteString("\n\nTime's up, nobody got it.")
		} else {
			b.WriteString("\n\nNobody got it.")
		}
	} else {
		names := make([]string, 0, len(res.CorrectResponders))
		for _, userID := range res.CorrectResponders {
			name := userID
			if part, ok := s.Participants[userID]; ok && part.DisplayName != "" {
				name = part.DisplayName
			}
			if pts := res.Awards[userID]; pts > 0 {
				names = append(names, fmt.Sprintf("%s (+%d)", name, pts))
			} else {
				names = append(names, name)
			}
		}
		fmt.Fprintf(&b, "\n\n✅ %s", strings.Join(names, ", "))
	}

	if top := s.Leaderboard(3); len(top) > 1 {
		b.WriteString("\n")
		for _, row := range top {
			fmt.Fprintf(&b, "\n%d. %s — %d pts", row.Rank, row.DisplayName, row.Score)
		}
	}

	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Question %d/%d", h.number, h.total),
		Description: b.String(),
		Color:       color,
	}
}

// revealAnswerText resolves the canonical answer to display text: the
// matching option for multiple choice, True/False capitalised, the answer
// string otherwise.
func revealAnswerText(q question.Question) string {
	switch q.Type {
	case question.TypeMultipleChoice:
		for i, opt := range q.Options {
			if question.Normalize(opt) == question.Normalize(q.Answer) {
				letter := "?"
				if i < len(optionLetters) {
					letter = optionLetters[i]
				}
				return fmt.Sprintf("%s. %s", letter, question.StripOptionPrefix(opt))
			}
		}
		return q.Answer
	case question.TypeTrueFalse:
		if question.Normalize(q.Answer) == "true" {
			return "True"
		}
		return "False"
	default:
		return q.Answer
	}
}

// formatDuration formats a duration as "Xh Ym Zs".
func formatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
