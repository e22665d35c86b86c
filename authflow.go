package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gregdel/pushover"

	"plexboard/config"
	"plexboard/plex"
	"plexboard/utils"
)

const (
	authPollInterval = 2 * time.Second
	authTimeout      = 5 * time.Minute
)

// runAuthFlow walks the operator through first-run device pairing: open a
// link, wait for the pin to be claimed, then pick which servers to monitor.
func runAuthFlow(ctx context.Context, settings config.Settings, clientID string) ([]config.Server, error) {
	auth := plex.NewAuth(utils.NewHTTPClient(), clientID)

	pin, err := auth.RequestPin(ctx)
	if err != nil {
		return nil, fmt.Errorf("requesting auth pin: %w", err)
	}
	authURL := auth.AuthURL(pin.Code)

	fmt.Println()
	fmt.Println("════════════════════════════════════════════════════════════")
	fmt.Println("  Plex Authentication Required")
	fmt.Println("════════════════════════════════════════════════════════════")
	fmt.Println()
	fmt.Println("  Open this link in your browser to sign in:")
	fmt.Println()
	fmt.Printf("  %s\n", authURL)
	fmt.Println()
	fmt.Println("  Waiting for authentication...")
	fmt.Println()

	notifyAuthURL(settings, authURL)

	token, err := waitForPin(ctx, auth, pin.ID)
	if err != nil {
		return nil, err
	}
	fmt.Println("  ✓ Authentication successful!")
	fmt.Println()

	servers, err := auth.Servers(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("listing servers: %w", err)
	}
	if len(servers) == 0 {
		return nil, errors.New("no Plex servers found on this account")
	}

	selected := promptServerSelection(servers)
	if len(selected) == 0 {
		return nil, errors.New("no servers selected")
	}

	var configured []config.Server
	fmt.Printf("  ✓ Selected %d server(s):\n", len(selected))
	for _, server := range selected {
		fmt.Printf("    • %s\n", server.Name)
		serverToken := server.AccessToken
		if serverToken == "" {
			serverToken = token
		}
		configured = append(configured, config.Server{
			ServerID: server.ClientIdentifier,
			Token:    serverToken,
		})
	}
	fmt.Println("════════════════════════════════════════════════════════════")
	fmt.Println()

	return configured, nil
}

func waitForPin(ctx context.Context, auth *plex.Auth, pinID int64) (string, error) {
	deadline := time.Now().Add(authTimeout)
	ticker := time.NewTicker(authPollInterval)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		token, err := auth.CheckPin(ctx, pinID)
		if err != nil {
			slog.Debug("Pin check failed", slog.String("error", err.Error()))
			continue
		}
		if token != "" {
			return token, nil
		}
	}

	return "", errors.New("authentication timed out")
}

// promptServerSelection asks which of the account's servers to monitor.
// Empty input selects all of them.
func promptServerSelection(servers []plex.Resource) []plex.Resource {
	fmt.Println("  Servers on this account:")
	for i, server := range servers {
		fmt.Printf("    %d. %s\n", i+1, server.Name)
	}
	fmt.Println()
	fmt.Print("  Select servers to monitor (comma separated, Enter for all): ")

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return servers
	}
	input := strings.TrimSpace(scanner.Text())
	if input == "" {
		return servers
	}

	var selected []plex.Resource
	for _, field := range strings.Split(input, ",") {
		index, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil || index < 1 || index > len(servers) {
			fmt.Printf("  Ignoring invalid selection: %s\n", field)
			continue
		}
		selected = append(selected, servers[index-1])
	}
	return selected
}

// notifyAuthURL pushes the sign-in link when Pushover is configured, for
// deployments where nobody is watching the console.
func notifyAuthURL(settings config.Settings, authURL string) {
	if settings.Pushover.Token == "" || settings.Pushover.Recipient == "" {
		return
	}

	app := pushover.New(settings.Pushover.Token)
	recipient := pushover.NewRecipient(settings.Pushover.Recipient)
	message := &pushover.Message{
		Message:   "Plexboard needs you to sign in to Plex before it can start",
		Title:     "Plex sign-in required",
		URL:       authURL,
		URLTitle:  "Sign in to Plex",
		Timestamp: time.Now().Unix(),
	}
	if _, err := app.SendMessage(message, recipient); err != nil {
		slog.Warn("Failed to send Pushover notification", slog.String("error", err.Error()))
	}
}
