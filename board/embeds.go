package board

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"plexboard/plex"
	"plexboard/shared"
)

const (
	colourPlaying = 0xe5a00d
	colourPaused  = 0x666666
	colourIdle    = 0x282a2d
)

// BuildSessionEmbeds renders the board: one embed per session, or a single
// placeholder embed when nothing is playing anywhere.
func BuildSessionEmbeds(sessions []plex.Session, serverNames []string) []*discordgo.MessageEmbed {
	if len(sessions) == 0 {
		footer := fmt.Sprintf("%d servers", len(serverNames))
		if len(serverNames) == 1 {
			footer = serverNames[0]
		}
		return []*discordgo.MessageEmbed{{
			Title:       "📺 Plex Activity",
			Description: "No active sessions",
			Color:       colourIdle,
			Footer:      &discordgo.MessageEmbedFooter{Text: footer},
		}}
	}

	embeds := make([]*discordgo.MessageEmbed, 0, len(sessions))
	for _, session := range sessions {
		embeds = append(embeds, buildSessionEmbed(session))
	}
	return embeds
}

func buildSessionEmbed(session plex.Session) *discordgo.MessageEmbed {
	userName := "Unknown User"
	if session.User != nil {
		userName = session.User.Title
	}

	playerState := "unknown"
	if session.Player != nil {
		playerState = session.Player.State
	}

	var description string
	switch session.Type {
	case shared.CATEGORY_EPISODE:
		show := session.GrandparentTitle
		if show == "" {
			show = "Unknown Show"
		}
		description = fmt.Sprintf("**%s**\n S%d·E%d - %s\n%s",
			show,
			intOrZero(session.ParentIndex),
			intOrZero(session.Index),
			session.Title,
			session.ProgressBar())
	case shared.CATEGORY_MOVIE:
		var year string
		if session.Year != nil {
			year = fmt.Sprintf(" (%d)", *session.Year)
		}
		description = fmt.Sprintf("**%s**%s\n%s", session.Title, year, session.ProgressBar())
	case shared.CATEGORY_TRACK:
		artist := session.GrandparentTitle
		if artist == "" {
			artist = "Unknown Artist"
		}
		album := session.ParentTitle
		if album == "" {
			album = "Unknown Album"
		}
		description = fmt.Sprintf("**%s** - %s\n%s\n%s", artist, session.Title, album, session.ProgressBar())
	default:
		description = fmt.Sprintf("**%s**\n%s", session.Title, session.ProgressBar())
	}

	colour := colourIdle
	switch playerState {
	case shared.PLAYER_STATE_PLAYING:
		colour = colourPlaying
	case shared.PLAYER_STATE_PAUSED:
		colour = colourPaused
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s %s", userName, playerState),
		Description: description,
		Color:       colour,
		Footer:      &discordgo.MessageEmbedFooter{Text: session.ServerName},
	}

	if session.ArtURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: session.ArtURL}
	}

	return embed
}

func intOrZero(value *int) int {
	if value == nil {
		return 0
	}
	return *value
}
