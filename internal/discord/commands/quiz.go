// Package commands implements Discord slash command handlers for Quizzard.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/quizzardhq/quizzard/internal/discord"
	"github.com/quizzardhq/quizzard/internal/engine"
	"github.com/quizzardhq/quizzard/internal/question"
)

// startTimeout bounds question generation from a slash command. Generation
// runs against external LLM APIs and can take a while under retry.
const startTimeout = 90 * time.Second

// QuizCommands holds the dependencies for /quiz slash commands.
type QuizCommands struct {
	engine *engine.Engine
	log    *slog.Logger
}

// NewQuizCommands creates a QuizCommands and registers its handlers with
// the bot's router.
func NewQuizCommands(bot *discord.Bot, eng *engine.Engine, log *slog.Logger) *QuizCommands {
	if log == nil {
		log = slog.Default()
	}
	qc := &QuizCommands{engine: eng, log: log}
	qc.Register(bot.Router())
	return qc
}

// Register registers the /quiz command group with the router.
func (qc *QuizCommands) Register(router *discord.CommandRouter) {
	def := qc.Definition()
	router.RegisterCommand("quiz", def, func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		discord.RespondEphemeral(s, i, "Please use a subcommand: `/quiz start`, `/quiz stop`, `/quiz status` or `/quiz leaderboard`.")
	})
	router.RegisterHandler("quiz/start", qc.handleStart)
	router.RegisterHandler("quiz/stop", qc.handleStop)
	router.RegisterHandler("quiz/status", qc.handleStatus)
	router.RegisterHandler("quiz/leaderboard", qc.handleLeaderboard)
}

// Definition returns the ApplicationCommand definition for Discord.
func (qc *QuizCommands) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "quiz",
		Description: "Run AI-generated quizzes",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "start",
				Description: "Start a quiz in this channel",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "topic",
						Description: "What the questions should be about",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "count",
						Description: "Number of questions (default 5)",
					},
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "difficulty",
						Description: "Question difficulty (default medium)",
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "easy", Value: string(question.DifficultyEasy)},
							{Name: "medium", Value: string(question.DifficultyMedium)},
							{Name: "hard", Value: string(question.DifficultyHard)},
						},
					},
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "type",
						Description: "Question type (default multiple choice)",
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "multiple choice", Value: string(question.TypeMultipleChoice)},
							{Name: "true/false", Value: string(question.TypeTrueFalse)},
							{Name: "short answer", Value: string(question.TypeShortAnswer)},
						},
					},
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "timeout",
						Description: "Seconds per question, 5-120 (default 30)",
					},
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "mode",
						Description: "Scoring mode (default standard)",
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "standard", Value: string(engine.ModeStandard)},
							{Name: "first correct wins", Value: string(engine.ModeFirstCorrectWins)},
						},
					},
					{
						Type:        discordgo.ApplicationCommandOptionBoolean,
						Name:        "private",
						Description: "Solo mode: questions arrive by DM",
					},
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "provider",
						Description: "Preferred question provider",
					},
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "category",
						Description: "Category label stored with results",
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "stop",
				Description: "Stop the running quiz",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "status",
				Description: "Show the running quiz's progress",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "leaderboard",
				Description: "Show the running quiz's standings",
			},
		},
	}
}

// handleStart handles /quiz start. The response is deferred: question
// generation can take tens of seconds.
func (qc *QuizCommands) handleStart(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := subcommandOptions(i)

	req := engine.QuizRequest{
		Topic:           strings.TrimSpace(stringOption(opts, "topic")),
		Count:           intOption(opts, "count", 5),
		Difficulty:      question.Difficulty(stringOption(opts, "difficulty")),
		Type:            question.Type(stringOption(opts, "type")),
		TimeoutS:        intOption(opts, "timeout", 30),
		Mode:            engine.Mode(stringOption(opts, "mode")),
		ProviderHint:    stringOption(opts, "provider"),
		CategoryHint:    stringOption(opts, "category"),
		HostID:          interactionUserID(i),
		HostDisplayName: interactionDisplayName(i),
		GuildID:         i.GuildID,
		ChannelID:       i.ChannelID,
	}
	if boolOption(opts, "private") {
		req.Privacy = engine.PrivacyPrivate
	}
	if req.Topic == "" {
		discord.RespondEphemeral(s, i, "Please provide a topic.")
		return
	}

	discord.DeferReply(s, i)

	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()

	progress, err := qc.engine.StartQuiz(ctx, req)
	if err != nil {
		discord.FollowUp(s, i, startErrorText(err))
		return
	}
	discord.FollowUp(s, i, fmt.Sprintf("Quiz on **%s** started with %d questions. Good luck!",
		progress.Topic, progress.Total))
}

// handleStop handles /quiz stop. Only the host or a member with Manage
// Server may stop a quiz.
func (qc *QuizCommands) handleStop(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	progress, err := qc.engine.Status(ctx, i.GuildID, i.ChannelID)
	if err != nil {
		discord.RespondEphemeral(s, i, "There is no quiz running in this channel.")
		return
	}
	if !canStop(i, progress.HostID) {
		discord.RespondEphemeral(s, i, "Only the quiz host (or a server manager) can stop it.")
		return
	}

	if err := qc.engine.Stop(ctx, i.GuildID, i.ChannelID, interactionUserID(i)); err != nil {
		discord.RespondError(s, i, err)
		return
	}
	discord.RespondEphemeral(s, i, "Quiz stopped.")
}

// handleStatus handles /quiz status.
func (qc *QuizCommands) handleStatus(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	progress, err := qc.engine.Status(ctx, i.GuildID, i.ChannelID)
	if err != nil {
		discord.RespondEphemeral(s, i, "There is no quiz running in this channel.")
		return
	}
	discord.RespondEphemeral(s, i, fmt.Sprintf(
		"Quiz on **%s**: question %d/%d, running for %s.",
		progress.Topic, progress.Index, progress.Total,
		time.Since(progress.StartedAt).Truncate(time.Second),
	))
}

// handleLeaderboard handles /quiz leaderboard.
func (qc *QuizCommands) handleLeaderboard(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	board, err := qc.engine.Leaderboard(ctx, i.GuildID, i.ChannelID, 10)
	if err != nil {
		discord.RespondEphemeral(s, i, "There is no quiz running in this channel.")
		return
	}
	if len(board) == 0 {
		discord.RespondEphemeral(s, i, "Nobody has scored yet.")
		return
	}

	var b strings.Builder
	for _, row := range board {
		fmt.Fprintf(&b, "%d. **%s** — %d pts (%d correct)\n",
			row.Rank, row.DisplayName, row.Score, row.Correct)
	}
	discord.RespondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "Current standings",
		Description: b.String(),
	})
}

// startErrorText maps engine errors to user-facing messages.
func startErrorText(err error) string {
	switch {
	case errors.Is(err, engine.ErrAlreadyActive):
		return "A quiz is already running in this channel. Stop it first with `/quiz stop`."
	case errors.Is(err, question.ErrUnavailable):
		return "No question provider is reachable right now. Try again in a minute."
	case errors.Is(err, question.ErrInvalid):
		return "The provider returned unusable questions. Try a different topic or provider."
	default:
		return "Could not start the quiz: " + err.Error()
	}
}

// canStop reports whether the interaction author may stop the quiz hosted
// by hostID.
func canStop(i *discordgo.InteractionCreate, hostID string) bool {
	if interactionUserID(i) == hostID {
		return true
	}
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionManageServer != 0
}

// subcommandOptions returns the options of the invoked subcommand.
func subcommandOptions(i *discordgo.InteractionCreate) []*discordgo.ApplicationCommandInteractionDataOption {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return nil
	}
	return data.Options[0].Options
}

func stringOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, o := range opts {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionString {
			return o.StringValue()
		}
	}
	return ""
}

func intOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name string, def int) int {
	for _, o := range opts {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionInteger {
			return int(o.IntValue())
		}
	}
	return def
}

func boolOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) bool {
	for _, o := range opts {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionBoolean {
			return o.BoolValue()
		}
	}
	return false
}

// interactionUserID returns the invoking user's ID for both guild and DM
// interactions.
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// interactionDisplayName returns the invoking user's display name.
func interactionDisplayName(i *discordgo.InteractionCreate) string {
	if i.Member != nil {
		if i.Member.Nick != "" {
			return i.Member.Nick
		}
		if i.Member.User != nil {
			if i.Member.User.GlobalName != "" {
				return i.Member.User.GlobalName
			}
			return i.Member.User.Username
		}
	}
	if i.User != nil {
		if i.User.GlobalName != "" {
			return i.User.GlobalName
		}
		return i.User.Username
	}
	return ""
}
