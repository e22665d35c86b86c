package plex

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plexboard/tmdb"
)

func newTestClient() *Client {
	client := NewClient(ServerConfig{ServerID: "srv-1", Token: "token"},
		tmdb.NewClient(&http.Client{}, "tmdb-token"), "test-client")
	// The 10s default timeout is irrelevant against gock.
	client.client = &http.Client{}
	client.auth = NewAuth(&http.Client{}, "test-client")
	return client
}

func TestFindWorkingURL_ReusesHealthyCachedURL(t *testing.T) {
	defer gock.Off()

	gock.New("http://cached.example.com").
		Get("/").
		Reply(200)

	client := newTestClient()
	client.activeURL = "http://cached.example.com"

	url, ok := client.FindWorkingURL(context.Background())
	require.True(t, ok)
	assert.Equal(t, "http://cached.example.com", url)
	assert.True(t, gock.IsDone(), "no discovery call should have been made")
}

func TestFindWorkingURL_StaleCachedURLTriggersRediscovery(t *testing.T) {
	defer gock.Off()

	gock.New("http://stale.example.com").
		Get("/").
		ReplyError(errors.New("connection refused"))

	gock.New("https://plex.tv").
		Get("/api/v2/resources").
		Reply(200).
		JSON([]map[string]any{
			{
				"name":             "Den",
				"clientIdentifier": "srv-1",
				"provides":         "server",
				"connections": []map[string]any{
					{"uri": "https://remote.example.com", "local": false},
				},
			},
		})

	gock.New("https://remote.example.com").
		Get("/").
		Reply(200)

	client := newTestClient()
	client.activeURL = "http://stale.example.com"

	url, ok := client.FindWorkingURL(context.Background())
	require.True(t, ok)
	assert.Equal(t, "https://remote.example.com", url)
	assert.Equal(t, "https://remote.example.com", client.activeBaseURL())
}

func TestFindWorkingURL_NoCandidateReachable(t *testing.T) {
	defer gock.Off()

	gock.New("https://plex.tv").
		Get("/api/v2/resources").
		Reply(200).
		JSON([]map[string]any{
			{
				"name":             "Den",
				"clientIdentifier": "srv-1",
				"provides":         "server",
				"connections": []map[string]any{
					{"uri": "https://remote.example.com", "local": false},
				},
			},
		})

	gock.New("https://remote.example.com").
		Get("/").
		ReplyError(errors.New("connection refused"))

	client := newTestClient()

	_, ok := client.FindWorkingURL(context.Background())
	assert.False(t, ok)
	assert.Empty(t, client.activeBaseURL())
}

func TestUpdateSessions_ReplacesSnapshotAndEmits(t *testing.T) {
	defer gock.Off()

	gock.New("http://plex.example.com").
		Get("/status/sessions").
		Reply(200).
		JSON(map[string]any{
			"MediaContainer": map[string]any{
				"Metadata": []map[string]any{
					{
						"title":      "Heat",
						"type":       "movie",
						"year":       1995,
						"duration":   10200000,
						"viewOffset": 2550000,
						"Guid":       []map[string]any{{"id": "tmdb://949"}},
						"User":       map[string]any{"title": "alice"},
						"Player":     map[string]any{"state": "playing"},
					},
				},
			},
		})

	gock.New("https://api.themoviedb.org").
		Get("/3/movie/949/images").
		Reply(200).
		JSON(map[string]any{
			"posters": []map[string]any{{"file_path": "/heat.jpg"}},
		})

	client := newTestClient()
	client.activeURL = "http://plex.example.com"
	client.serverName = "Den"

	client.UpdateSessions(context.Background())

	sessions := client.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "Heat", sessions[0].Title)
	assert.Equal(t, "Den", sessions[0].ServerName)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/heat.jpg", sessions[0].ArtURL)

	select {
	case <-client.Updates():
	default:
		t.Fatal("expected a change signal after poll-and-publish")
	}
}

func TestUpdateSessions_FetchFailureKeepsPreviousSnapshot(t *testing.T) {
	defer gock.Off()

	gock.New("http://plex.example.com").
		Get("/status/sessions").
		Reply(500)

	client := newTestClient()
	client.activeURL = "http://plex.example.com"
	client.sessions = []Session{{Title: "Old"}}

	client.UpdateSessions(context.Background())

	sessions := client.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "Old", sessions[0].Title)

	select {
	case <-client.Updates():
		t.Fatal("no signal should be emitted on a failed cycle")
	default:
	}
}

func TestEmit_NeverBlocks(t *testing.T) {
	client := newTestClient()
	for i := 0; i < 50; i++ {
		client.emit()
	}
	assert.Equal(t, updateBuffer, len(client.updates))
}

func TestTMDBID_FromSessionGuids(t *testing.T) {
	client := newTestClient()
	session := &Session{
		Type:  "movie",
		Guids: []Guid{{ID: "imdb://tt0113277"}, {ID: "tmdb://949"}},
	}
	assert.Equal(t, "949", client.tmdbID(context.Background(), session))
}

func TestTMDBID_EpisodeFallsBackToShowMetadata(t *testing.T) {
	defer gock.Off()

	gock.New("http://plex.example.com").
		Get("/library/metadata/42").
		Reply(200).
		JSON(map[string]any{
			"MediaContainer": map[string]any{
				"Metadata": []map[string]any{
					{"Guid": []map[string]any{{"id": "tmdb://1396"}}},
				},
			},
		})

	client := newTestClient()
	client.activeURL = "http://plex.example.com"

	session := &Session{
		Type:           "episode",
		GrandparentKey: "/library/metadata/42",
	}
	assert.Equal(t, "1396", client.tmdbID(context.Background(), session))
}

func TestTMDBID_NoSourceAvailable(t *testing.T) {
	client := newTestClient()
	session := &Session{Type: "track", Guids: []Guid{{ID: "mbid://xyz"}}}
	assert.Empty(t, client.tmdbID(context.Background(), session))
}
