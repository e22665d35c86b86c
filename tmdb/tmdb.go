package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	apiBase   = "https://api.themoviedb.org/3"
	imageBase = "https://image.tmdb.org/t/p/w500"

	cacheTTL = time.Hour
)

type imagesResponse struct {
	Posters   []imageRef `json:"posters"`
	Backdrops []imageRef `json:"backdrops"`
}

type imageRef struct {
	FilePath string `json:"file_path"`
}

// Client looks up artwork on TMDB, caching results (including explicit
// misses) for an hour.
type Client struct {
	client *http.Client
	token  string
	cache  *Cache
}

func NewClient(client *http.Client, token string) *Client {
	return &Client{
		client: client,
		token:  token,
		cache:  NewCache(cacheTTL),
	}
}

// ArtworkURL returns a poster (or failing that, backdrop) URL for a TMDB
// item, or an empty string when nothing is available. mediaPath is the TMDB
// path segment, "movie" or "tv".
func (c *Client) ArtworkURL(ctx context.Context, mediaPath, tmdbID string) string {
	key := mediaPath + ":" + tmdbID
	if url, cached := c.cache.Get(key); cached {
		return url
	}

	url := c.fetchArtwork(ctx, mediaPath, tmdbID)
	c.cache.Set(key, url)
	return url
}

func (c *Client) fetchArtwork(ctx context.Context, mediaPath, tmdbID string) string {
	endpoint := fmt.Sprintf("%s/%s/%s/images", apiBase, mediaPath, tmdbID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.client.Do(req)
	if err != nil {
		slog.Debug("Failed to contact TMDB",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		return ""
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		slog.Debug("TMDB lookup failed",
			slog.String("endpoint", endpoint),
			slog.String("status", res.Status))
		return ""
	}

	var images imagesResponse
	if err := json.NewDecoder(res.Body).Decode(&images); err != nil {
		slog.Debug("Failed to parse TMDB response", slog.String("error", err.Error()))
		return ""
	}

	if len(images.Posters) > 0 {
		return imageBase + images.Posters[0].FilePath
	}
	if len(images.Backdrops) > 0 {
		return imageBase + images.Backdrops[0].FilePath
	}
	return ""
}
