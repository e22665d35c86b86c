package discord

import (
	"github.com/bwmarrin/discordgo"
)

// Publisher performs the create-or-edit write for the session board.
type Publisher struct {
	session *discordgo.Session
}

func NewPublisher(session *discordgo.Session) *Publisher {
	return &Publisher{session: session}
}

// Publish edits the existing board message when messageID is set, otherwise
// creates a new one. The returned id is the message to edit on the next
// tick; on edit failure the original id is returned unchanged so the caller
// can retry against it.
func (p *Publisher) Publish(channelID string, embeds []*discordgo.MessageEmbed, messageID string) (string, error) {
	if messageID != "" {
		_, err := p.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
			Channel: channelID,
			ID:      messageID,
			Embeds:  &embeds,
		})
		return messageID, err
	}

	message, err := p.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: embeds,
	})
	if err != nil {
		return "", err
	}
	return message.ID, nil
}
