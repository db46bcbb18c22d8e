package discord

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/quizzardhq/quizzard/internal/discord/mock"
)

func testInteraction() *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{ID: "i1"}}
}

func TestRespondEphemeral(t *testing.T) {
	t.Parallel()

	m := &mock.InteractionResponder{}
	RespondEphemeral(m, testInteraction(), "hello")

	resp := m.LastResponse()
	if resp == nil || resp.Type != discordgo.InteractionResponseChannelMessageWithSource {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Data.Content != "hello" {
		t.Errorf("content = %q", resp.Data.Content)
	}
	if resp.Data.Flags&discordgo.MessageFlagsEphemeral == 0 {
		t.Error("response not ephemeral")
	}
}

func TestRespondEmbedAndError(t *testing.T) {
	t.Parallel()

	m := &mock.InteractionResponder{}
	RespondEmbed(m, testInteraction(), &discordgo.MessageEmbed{Title: "standings"})

	resp := m.LastResponse()
	if len(resp.Data.Embeds) != 1 || resp.Data.Embeds[0].Title != "standings" {
		t.Errorf("embeds = %+v", resp.Data.Embeds)
	}

	RespondError(m, testInteraction(), errors.New("boom"))
	if got := m.LastResponse().Data.Content; got != "Error: boom" {
		t.Errorf("content = %q", got)
	}
}

func TestDeferReplyAndFollowUp(t *testing.T) {
	t.Parallel()

	m := &mock.InteractionResponder{}
	i := testInteraction()
	DeferReply(m, i)

	resp := m.LastResponse()
	if resp.Type != discordgo.InteractionResponseDeferredChannelMessageWithSource {
		t.Errorf("type = %v, want deferred", resp.Type)
	}

	FollowUp(m, i, "Quiz started.")
	fu := m.LastFollowUp()
	if fu == nil || fu.Content != "Quiz started." {
		t.Fatalf("follow-up = %+v", fu)
	}
	if fu.Flags&discordgo.MessageFlagsEphemeral == 0 {
		t.Error("follow-up not ephemeral")
	}

	FollowUpEmbed(m, i, &discordgo.MessageEmbed{Title: "board"})
	if fu := m.LastFollowUp(); len(fu.Embeds) != 1 || fu.Embeds[0].Title != "board" {
		t.Errorf("embed follow-up = %+v", fu)
	}
}

func TestRespond_SendFailureIsLoggedNotFatal(t *testing.T) {
	t.Parallel()

	// The helpers swallow transport errors; a dropped response must not take
	// the handler down.
	m := &mock.InteractionResponder{Err: errors.New("interaction expired")}
	RespondEphemeral(m, testInteraction(), "hello")
	FollowUp(m, testInteraction(), "hello")
	if len(m.Responses) != 1 || len(m.FollowUps) != 1 {
		t.Errorf("calls = %d responses, %d follow-ups", len(m.Responses), len(m.FollowUps))
	}
}
