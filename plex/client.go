package plex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/r3labs/sse/v2"
	backoff "gopkg.in/cenkalti/backoff.v1"

	"plexboard/shared"
	"plexboard/tmdb"
	"plexboard/utils"
)

const (
	sessionsEndpoint = "/status/sessions"
	eventsEndpoint   = "/:/eventsource/notifications?filters=playing"

	resolveBackoff = 10 * time.Second
	streamBackoff  = 5 * time.Second
	idleTimeout    = 90 * time.Second

	updateBuffer = 16
)

var (
	errStreamEnded = errors.New("event stream ended")
	errStreamIdle  = errors.New("no events received before idle timeout")
	errNoEndpoint  = errors.New("no active server URL")
)

// ServerConfig identifies one Plex server and the token that unlocks it.
type ServerConfig struct {
	ServerID string
	Token    string
}

// Client owns the connection to a single Plex server. It resolves a working
// URL, listens to the server's event stream and keeps the latest session
// snapshot, emitting a change signal after every refresh.
type Client struct {
	cfg      ServerConfig
	auth     *Auth
	client   *http.Client
	streamer *http.Client
	artwork  *tmdb.Client
	clientID string

	mu         sync.RWMutex
	activeURL  string
	sessions   []Session
	serverName string

	updates chan struct{}
}

func NewClient(cfg ServerConfig, artwork *tmdb.Client, clientID string) *Client {
	httpClient := utils.NewHTTPClient()
	return &Client{
		cfg:        cfg,
		auth:       NewAuth(httpClient, clientID),
		client:     httpClient,
		streamer:   utils.NewStreamingClient(),
		artwork:    artwork,
		clientID:   clientID,
		serverName: "Plex",
		updates:    make(chan struct{}, updateBuffer),
	}
}

// Updates is the change signal channel. Signals carry no payload; consumers
// are expected to re-read Sessions on every wake-up.
func (c *Client) Updates() <-chan struct{} {
	return c.updates
}

func (c *Client) Sessions() []Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Session(nil), c.sessions...)
}

func (c *Client) ServerName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverName
}

func (c *Client) activeBaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activeURL
}

func (c *Client) clearActiveURL() {
	c.mu.Lock()
	c.activeURL = ""
	c.mu.Unlock()
}

// probe issues a lightweight authenticated request. Any HTTP response counts
// as alive; only transport failures mark the URL dead.
func (c *Client) probe(ctx context.Context, baseURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/", nil)
	if err != nil {
		return false
	}
	req.Header.Set("X-Plex-Token", c.cfg.Token)
	req.Header.Set("X-Plex-Client-Identifier", c.clientID)

	res, err := c.client.Do(req)
	if err != nil {
		slog.Warn("Connection probe failed",
			slog.String("url", baseURL),
			slog.String("error", err.Error()))
		return false
	}
	res.Body.Close()
	return true
}

// FindWorkingURL resolves a reachable base URL for this server. A cached URL
// that still answers a probe is reused without rediscovery.
func (c *Client) FindWorkingURL(ctx context.Context) (string, bool) {
	if cached := c.activeBaseURL(); cached != "" {
		if c.probe(ctx, cached) {
			return cached, true
		}
		slog.Debug("Cached URL no longer reachable", slog.String("url", cached))
	}

	urls := c.auth.ServerURLs(ctx, c.cfg.Token, c.cfg.ServerID)
	if len(urls) == 0 {
		slog.Error("No URLs registered for server", slog.String("server_id", c.cfg.ServerID))
		return "", false
	}

	for _, candidate := range urls {
		slog.Info("Trying Plex server", slog.String("url", candidate))
		if c.probe(ctx, candidate) {
			slog.Info("Connected to Plex server", slog.String("url", candidate))
			c.mu.Lock()
			c.activeURL = candidate
			c.mu.Unlock()
			return candidate, true
		}
	}

	slog.Error("No reachable URL found for server", slog.String("server_id", c.cfg.ServerID))
	return "", false
}

// FetchServerIdentity resolves the server's display name. Failure keeps the
// default name, it is not fatal.
func (c *Client) FetchServerIdentity(ctx context.Context) {
	baseURL, ok := c.FindWorkingURL(ctx)
	if !ok {
		return
	}

	var identity identityResponse
	if err := c.get(ctx, baseURL+"/", &identity); err != nil {
		slog.Warn("Failed to fetch server identity", slog.String("error", err.Error()))
		return
	}
	if identity.MediaContainer.FriendlyName == "" {
		return
	}

	c.mu.Lock()
	c.serverName = identity.MediaContainer.FriendlyName
	c.mu.Unlock()
	slog.Info("Connected to Plex server", slog.String("server", identity.MediaContainer.FriendlyName))
}

func (c *Client) fetchSessions(ctx context.Context) ([]Session, error) {
	baseURL := c.activeBaseURL()
	if baseURL == "" {
		return nil, errNoEndpoint
	}

	var response sessionsResponse
	if err := c.get(ctx, baseURL+sessionsEndpoint, &response); err != nil {
		return nil, err
	}
	return response.MediaContainer.Metadata, nil
}

// UpdateSessions runs one poll-and-publish cycle: fetch the current session
// list, stamp and enrich it, replace the snapshot and emit a change signal.
// Fetch failures skip the cycle, leaving the previous snapshot in place.
func (c *Client) UpdateSessions(ctx context.Context) {
	sessions, err := c.fetchSessions(ctx)
	if err != nil {
		slog.Error("Failed to fetch sessions",
			slog.String("server", c.ServerName()),
			slog.String("error", err.Error()))
		return
	}

	serverName := c.ServerName()
	for i := range sessions {
		sessions[i].ServerName = serverName
		c.enrichArtwork(ctx, &sessions[i])
	}

	c.mu.Lock()
	c.sessions = sessions
	c.mu.Unlock()

	c.emit()
}

// emit never blocks. If the consumer's buffer is full the signal is dropped;
// the next poll re-reads full state anyway.
func (c *Client) emit() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

// enrichArtwork attaches a TMDB artwork URL when one can be derived. Every
// failure path degrades to "no artwork".
func (c *Client) enrichArtwork(ctx context.Context, session *Session) {
	tmdbID := c.tmdbID(ctx, session)
	if tmdbID == "" {
		slog.Debug("No TMDB ID found", slog.String("title", session.Title))
		return
	}

	var mediaPath string
	switch session.Type {
	case shared.CATEGORY_MOVIE:
		mediaPath = "movie"
	case shared.CATEGORY_EPISODE:
		mediaPath = "tv"
	default:
		return
	}

	session.ArtURL = c.artwork.ArtworkURL(ctx, mediaPath, tmdbID)
}

func (c *Client) tmdbID(ctx context.Context, session *Session) string {
	for _, guid := range session.Guids {
		if id, ok := strings.CutPrefix(guid.ID, "tmdb://"); ok {
			return id
		}
	}

	// Episode sessions usually carry the id on the show, not the episode.
	if session.Type == shared.CATEGORY_EPISODE && session.GrandparentKey != "" {
		return c.tmdbIDFromMetadata(ctx, session.GrandparentKey)
	}
	if session.Type == shared.CATEGORY_MOVIE && session.Key != "" {
		return c.tmdbIDFromMetadata(ctx, session.Key)
	}
	return ""
}

func (c *Client) tmdbIDFromMetadata(ctx context.Context, key string) string {
	baseURL := c.activeBaseURL()
	if baseURL == "" {
		return ""
	}

	var response metadataResponse
	if err := c.get(ctx, baseURL+key, &response); err != nil {
		slog.Debug("Failed to fetch item metadata",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return ""
	}
	if len(response.MediaContainer.Metadata) == 0 {
		return ""
	}

	for _, guid := range response.MediaContainer.Metadata[0].Guids {
		if id, ok := strings.CutPrefix(guid.ID, "tmdb://"); ok {
			return id
		}
	}
	return ""
}

// Listen runs the reconnect loop until ctx is cancelled. The event stream is
// a wake-up signal only: every received event triggers a full poll, and any
// stream failure invalidates the cached URL before retrying.
func (c *Client) Listen(ctx context.Context) {
	slog.Info("Starting session source", slog.String("server_id", c.cfg.ServerID))

	// Populate the board before the first stream connection succeeds.
	c.UpdateSessions(ctx)

	for {
		if ctx.Err() != nil {
			return
		}

		baseURL, ok := c.FindWorkingURL(ctx)
		if !ok {
			slog.Warn("No working Plex URL, retrying",
				slog.String("server_id", c.cfg.ServerID),
				slog.Duration("backoff", resolveBackoff))
			if !sleep(ctx, resolveBackoff) {
				return
			}
			continue
		}

		err := c.stream(ctx, baseURL)
		if ctx.Err() != nil {
			slog.Info("Session source shutting down", slog.String("server", c.ServerName()))
			return
		}

		slog.Warn("Event stream closed, reconnecting",
			slog.String("server", c.ServerName()),
			slog.String("error", err.Error()),
			slog.Duration("backoff", streamBackoff))
		c.clearActiveURL()
		if !sleep(ctx, streamBackoff) {
			return
		}
	}
}

// stream holds one event stream subscription open until it fails, goes idle
// or ctx is cancelled.
func (c *Client) stream(ctx context.Context, baseURL string) error {
	streamURL := baseURL + eventsEndpoint
	slog.Debug("Connecting event stream", slog.String("url", streamURL))

	client := sse.NewClient(streamURL)
	client.Connection = c.streamer
	client.Headers = map[string]string{
		"Accept":                   "text/event-stream",
		"X-Plex-Token":             c.cfg.Token,
		"X-Plex-Client-Identifier": c.clientID,
	}
	// Reconnects go through FindWorkingURL, not the SSE client.
	client.ReconnectStrategy = &backoff.StopBackOff{}
	client.OnConnect(func(*sse.Client) {
		slog.Info("Connected to Plex event stream", slog.String("server", c.ServerName()))
	})

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan *sse.Event)
	done := make(chan error, 1)
	go func() {
		done <- client.SubscribeRawWithContext(streamCtx, func(msg *sse.Event) {
			select {
			case events <- msg:
			case <-streamCtx.Done():
			}
		})
	}()

	idle := time.NewTimer(idleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			cancel()
			<-done
			return ctx.Err()
		case <-idle.C:
			cancel()
			<-done
			return errStreamIdle
		case err := <-done:
			if err == nil {
				err = errStreamEnded
			}
			return err
		case <-events:
			// Event payloads are untrusted; the poll owns the truth.
			c.UpdateSessions(ctx)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(idleTimeout)
		}
	}
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Token", c.cfg.Token)
	req.Header.Set("X-Plex-Client-Identifier", c.clientID)

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		return fmt.Errorf("plex returned %s for %s", res.Status, req.URL.Path)
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// sleep waits for d unless ctx is cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
