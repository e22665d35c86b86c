package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"plexboard/config"
	"plexboard/plex"
)

// Bot owns the Discord gateway connection and the slash command surface.
type Bot struct {
	ctx     context.Context
	session *discordgo.Session
	config  *config.Manager
	sources []*plex.Client
}

func NewBot(ctx context.Context, token string, cfg *config.Manager, sources []*plex.Client) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating Discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	bot := &Bot{
		ctx:     ctx,
		session: session,
		config:  cfg,
		sources: sources,
	}
	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onInteraction)
	return bot, nil
}

func (b *Bot) Session() *discordgo.Session {
	return b.session
}

func (b *Bot) Open() error {
	return b.session.Open()
}

func (b *Bot) Close() error {
	return b.session.Close()
}

var commands = []*discordgo.ApplicationCommand{
	{
		Name:        "plex-channel",
		Description: "Set the channel for the Plex session board",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionChannel,
				Name:        "channel",
				Description: "The channel to display sessions in",
				Required:    true,
			},
		},
	},
	{
		Name:        "plex-refresh",
		Description: "Manually refresh the session board",
	},
	{
		Name:        "plex-clear",
		Description: "Remove the session board message",
	},
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	slog.Info("Discord bot connected",
		slog.String("user", r.User.Username),
		slog.Int("guilds", len(r.Guilds)))

	for _, guild := range r.Guilds {
		if _, err := s.ApplicationCommandBulkOverwrite(r.User.ID, guild.ID, commands); err != nil {
			slog.Error("Failed to register commands for guild",
				slog.String("guild_id", guild.ID),
				slog.String("error", err.Error()))
		}
	}

	slog.Info("Slash commands registered", slog.Int("guilds", len(r.Guilds)))
	b.triggerAll()
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	slog.Debug("Received command", slog.String("command", data.Name))

	var content string
	switch data.Name {
	case "plex-channel":
		content = b.handleSetChannel(data)
	case "plex-refresh":
		content = b.handleRefresh()
	case "plex-clear":
		content = b.handleClear()
	default:
		content = "Unknown command"
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		slog.Error("Failed to respond to command",
			slog.String("command", data.Name),
			slog.String("error", err.Error()))
	}
}

func (b *Bot) handleSetChannel(data discordgo.ApplicationCommandInteractionData) string {
	var channelID string
	for _, option := range data.Options {
		if option.Name == "channel" {
			channelID, _ = option.Value.(string)
		}
	}
	if channelID == "" {
		return "Please specify a valid channel"
	}

	// A board in a new channel is always a fresh message, so the stored
	// message id is cleared alongside.
	if err := b.config.SetBoardChannel(channelID); err != nil {
		slog.Error("Failed to save board channel", slog.String("error", err.Error()))
		return "Failed to save the channel, check the logs"
	}
	b.triggerAll()
	return fmt.Sprintf("Session board will now be displayed in <#%s>", channelID)
}

func (b *Bot) handleRefresh() string {
	b.triggerAll()
	return "Session board refreshed"
}

// handleClear deletes the board message best effort. Persisted state is
// cleared either way so a stale pointer never survives an explicit clear.
func (b *Bot) handleClear() string {
	state := b.config.Get()
	if state.BoardChannelID == "" || state.BoardMessageID == "" {
		return "No session board message to clear"
	}

	deleteErr := b.session.ChannelMessageDelete(state.BoardChannelID, state.BoardMessageID)
	if err := b.config.ClearBoard(); err != nil {
		slog.Error("Failed to clear board state", slog.String("error", err.Error()))
	}
	if deleteErr != nil {
		slog.Error("Failed to delete session board message", slog.String("error", deleteErr.Error()))
		return "Failed to delete message, but cleared config"
	}
	return "Session board cleared"
}

func (b *Bot) triggerAll() {
	for _, source := range b.sources {
		go source.UpdateSessions(b.ctx)
	}
}
