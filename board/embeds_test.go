package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plexboard/plex"
)

func intPtr(v int) *int {
	return &v
}

func int64Ptr(v int64) *int64 {
	return &v
}

func TestBuildSessionEmbeds_Episode(t *testing.T) {
	sessions := []plex.Session{{
		Title:            "Pilot",
		Type:             "episode",
		GrandparentTitle: "Foo",
		ParentIndex:      intPtr(1),
		Index:            intPtr(2),
		ViewOffset:       int64Ptr(300),
		Duration:         int64Ptr(1200),
		User:             &plex.User{Title: "alice"},
		Player:           &plex.Player{State: "playing"},
		ServerName:       "Den",
	}}

	embeds := BuildSessionEmbeds(sessions, []string{"Den"})
	require.Len(t, embeds, 1)

	embed := embeds[0]
	assert.Equal(t, "alice playing", embed.Title)
	assert.Equal(t, "**Foo**\n S1·E2 - Pilot\n[##--------] 25%", embed.Description)
	assert.Equal(t, colourPlaying, embed.Color)
	assert.Equal(t, "Den", embed.Footer.Text)
}

func TestBuildSessionEmbeds_MovieWithYearAndArtwork(t *testing.T) {
	sessions := []plex.Session{{
		Title:      "Heat",
		Type:       "movie",
		Year:       intPtr(1995),
		ViewOffset: int64Ptr(600),
		Duration:   int64Ptr(1200),
		Player:     &plex.Player{State: "paused"},
		ArtURL:     "https://image.tmdb.org/t/p/w500/heat.jpg",
		ServerName: "Den",
	}}

	embeds := BuildSessionEmbeds(sessions, []string{"Den"})
	require.Len(t, embeds, 1)

	embed := embeds[0]
	assert.Equal(t, "Unknown User paused", embed.Title)
	assert.Equal(t, "**Heat** (1995)\n[#####-----] 50%", embed.Description)
	assert.Equal(t, colourPaused, embed.Color)
	require.NotNil(t, embed.Thumbnail)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/heat.jpg", embed.Thumbnail.URL)
}

func TestBuildSessionEmbeds_Track(t *testing.T) {
	sessions := []plex.Session{{
		Title:            "Take Five",
		Type:             "track",
		GrandparentTitle: "Dave Brubeck",
		ParentTitle:      "Time Out",
		User:             &plex.User{Title: "bob"},
		Player:           &plex.Player{State: "playing"},
		ServerName:       "Den",
	}}

	embeds := BuildSessionEmbeds(sessions, []string{"Den"})
	require.Len(t, embeds, 1)
	assert.Equal(t, "**Dave Brubeck** - Take Five\nTime Out\n[----------] --%", embeds[0].Description)
}

func TestBuildSessionEmbeds_UnknownKind(t *testing.T) {
	sessions := []plex.Session{{
		Title: "Some Clip",
		Type:  "clip",
	}}

	embeds := BuildSessionEmbeds(sessions, []string{"Den"})
	require.Len(t, embeds, 1)
	assert.Equal(t, "**Some Clip**\n[----------] --%", embeds[0].Description)
	assert.Equal(t, "Unknown User unknown", embeds[0].Title)
	assert.Equal(t, colourIdle, embeds[0].Color)
}

func TestBuildSessionEmbeds_EmptySingleServer(t *testing.T) {
	embeds := BuildSessionEmbeds(nil, []string{"Den"})
	require.Len(t, embeds, 1)
	assert.Equal(t, "📺 Plex Activity", embeds[0].Title)
	assert.Equal(t, "No active sessions", embeds[0].Description)
	assert.Equal(t, "Den", embeds[0].Footer.Text)
}

func TestBuildSessionEmbeds_EmptyMultipleServers(t *testing.T) {
	embeds := BuildSessionEmbeds(nil, []string{"Den", "Attic"})
	require.Len(t, embeds, 1)
	assert.Equal(t, "2 servers", embeds[0].Footer.Text)
}
