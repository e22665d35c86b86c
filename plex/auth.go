package plex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

const (
	plexTVAPI   = "https://plex.tv/api/v2"
	productName = "Plexboard"
)

type Pin struct {
	ID        int64  `json:"id"`
	Code      string `json:"code"`
	AuthToken string `json:"authToken"`
}

type Resource struct {
	Name             string       `json:"name"`
	ClientIdentifier string       `json:"clientIdentifier"`
	Connections      []Connection `json:"connections"`
	AccessToken      string       `json:"accessToken"`
	Provides         string       `json:"provides"`
}

type Connection struct {
	URI   string `json:"uri"`
	Local bool   `json:"local"`
}

// Auth talks to the plex.tv identity service for device pairing and
// resource discovery.
type Auth struct {
	client   *http.Client
	clientID string
}

func NewAuth(client *http.Client, clientID string) *Auth {
	return &Auth{client: client, clientID: clientID}
}

// RequestPin starts the device pairing flow.
func (a *Auth) RequestPin(ctx context.Context) (Pin, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, plexTVAPI+"/pins?strong=true", nil)
	if err != nil {
		return Pin{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Client-Identifier", a.clientID)
	req.Header.Set("X-Plex-Product", productName)

	var pin Pin
	if err := a.do(req, &pin); err != nil {
		return Pin{}, err
	}
	slog.Debug("Received auth pin", slog.Int64("pin_id", pin.ID))
	return pin, nil
}

// CheckPin polls a pairing pin. An empty token means the user has not
// authenticated yet.
func (a *Auth) CheckPin(ctx context.Context, pinID int64) (string, error) {
	pinURL := fmt.Sprintf("%s/pins/%d", plexTVAPI, pinID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pinURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Client-Identifier", a.clientID)

	var pin Pin
	if err := a.do(req, &pin); err != nil {
		return "", err
	}
	return pin.AuthToken, nil
}

// AuthURL builds the link the user opens in a browser to claim a pin.
func (a *Auth) AuthURL(code string) string {
	return fmt.Sprintf(
		"https://app.plex.tv/auth#?clientID=%s&code=%s&context%%5Bdevice%%5D%%5Bproduct%%5D=%s",
		url.QueryEscape(a.clientID),
		url.QueryEscape(code),
		url.QueryEscape(productName),
	)
}

// Servers lists the Plex servers registered to an account.
func (a *Auth) Servers(ctx context.Context, token string) ([]Resource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		plexTVAPI+"/resources?includeHttps=1&includeRelay=1", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Token", token)
	req.Header.Set("X-Plex-Client-Identifier", a.clientID)

	var resources []Resource
	if err := a.do(req, &resources); err != nil {
		return nil, err
	}

	var servers []Resource
	for _, resource := range resources {
		if resource.Provides == "server" {
			servers = append(servers, resource)
		}
	}
	slog.Debug("Fetched Plex resources", slog.Int("servers", len(servers)))
	return servers, nil
}

// ServerURLs returns every candidate URL for a server, remote connections
// first since local addresses are rarely reachable from where the bot runs.
// Discovery failures degrade to an empty list, never an error.
func (a *Auth) ServerURLs(ctx context.Context, token, serverID string) []string {
	servers, err := a.Servers(ctx, token)
	if err != nil {
		slog.Debug("Failed to fetch server resources", slog.String("error", err.Error()))
		return nil
	}

	for _, server := range servers {
		if server.ClientIdentifier != serverID {
			continue
		}
		var urls []string
		for _, conn := range server.Connections {
			if !conn.Local {
				urls = append(urls, strings.TrimSuffix(conn.URI, "/"))
			}
		}
		for _, conn := range server.Connections {
			if conn.Local {
				urls = append(urls, strings.TrimSuffix(conn.URI, "/"))
			}
		}
		return urls
	}

	slog.Debug("Server not found in resources", slog.String("server_id", serverID))
	return nil
}

func (a *Auth) do(req *http.Request, out any) error {
	res, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		io.Copy(io.Discard, res.Body)
		return fmt.Errorf("plex.tv returned %s for %s", res.Status, req.URL.Path)
	}

	return json.NewDecoder(res.Body).Decode(out)
}
