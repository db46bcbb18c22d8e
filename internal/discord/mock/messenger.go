package mock

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// SentMessage records one message send or edit observed by the Messenger.
type SentMessage struct {
	ChannelID string
	MessageID string // set on edits
	Content   string
	Embed     *discordgo.MessageEmbed
	Edited    bool
}

// Messenger is a recording double for the presenter's Discord surface.
// Safe for concurrent use: countdown edits arrive from timer goroutines.
type Messenger struct {
	mu sync.Mutex

	// Messages records every send and edit in order.
	Messages []SentMessage

	// SendErr, EditErr and DMErr are returned by the corresponding calls
	// when non-nil, allowing failure injection.
	SendErr error
	EditErr error
	DMErr   error

	nextID int
}

// ChannelMessageSend records a plain message send.
func (m *Messenger) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return nil, m.SendErr
	}
	m.nextID++
	id := fmt.Sprintf("msg-%d", m.nextID)
	m.Messages = append(m.Messages, SentMessage{ChannelID: channelID, MessageID: id, Content: content})
	return &discordgo.Message{ID: id, ChannelID: channelID}, nil
}

// ChannelMessageSendEmbed records an embed send.
func (m *Messenger) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return nil, m.SendErr
	}
	m.nextID++
	id := fmt.Sprintf("msg-%d", m.nextID)
	m.Messages = append(m.Messages, SentMessage{ChannelID: channelID, MessageID: id, Embed: embed})
	return &discordgo.Message{ID: id, ChannelID: channelID}, nil
}

// ChannelMessageEditEmbed records an embed edit.
func (m *Messenger) ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EditErr != nil {
		return nil, m.EditErr
	}
	m.Messages = append(m.Messages, SentMessage{ChannelID: channelID, MessageID: messageID, Embed: embed, Edited: true})
	return &discordgo.Message{ID: messageID, ChannelID: channelID}, nil
}

// UserChannelCreate returns a deterministic DM channel per user.
func (m *Messenger) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DMErr != nil {
		return nil, m.DMErr
	}
	return &discordgo.Channel{ID: "dm-" + recipientID, Type: discordgo.ChannelTypeDM}, nil
}

// Sent returns a copy of the recorded messages.
func (m *Messenger) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.Messages))
	copy(out, m.Messages)
	return out
}

// Reset clears recorded messages and injected errors.
func (m *Messenger) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = nil
	m.SendErr, m.EditErr, m.DMErr = nil, nil, nil
}
