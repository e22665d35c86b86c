package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"plexboard/board"
	"plexboard/config"
	"plexboard/discord"
	"plexboard/events"
	"plexboard/plex"
	"plexboard/routes"
	"plexboard/tmdb"
	"plexboard/utils"
)

func main() {
	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: settings.GetLogLevel(),
	})))

	if settings.Discord.Token == "" {
		slog.Error("DISCORD_TOKEN must be set")
		os.Exit(1)
	}
	if settings.TMDB.Token == "" {
		slog.Error("TMDB_TOKEN must be set")
		os.Exit(1)
	}

	manager := config.NewManager(settings.Plexboard.ConfigPath)
	clientID, err := manager.EnsureClientID()
	if err != nil {
		slog.Error("Failed to persist client identifier", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	servers := manager.Servers()
	if len(servers) == 0 {
		servers, err = runAuthFlow(ctx, settings, clientID)
		if err != nil {
			slog.Error("Authentication failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := manager.SetServers(servers); err != nil {
			slog.Error("Failed to save servers", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	artwork := tmdb.NewClient(utils.NewHTTPClient(), settings.TMDB.Token)

	var sources []*plex.Client
	for _, server := range servers {
		client := plex.NewClient(plex.ServerConfig{
			ServerID: server.ServerID,
			Token:    server.Token,
		}, artwork, clientID)
		client.FetchServerIdentity(ctx)
		sources = append(sources, client)
	}
	slog.Info("Monitoring Plex servers", slog.Int("count", len(sources)))

	bot, err := discord.NewBot(ctx, settings.Discord.Token, manager, sources)
	if err != nil {
		slog.Error("Failed to create Discord bot", slog.String("error", err.Error()))
		os.Exit(1)
	}

	boardSources := make([]board.Source, 0, len(sources))
	for _, source := range sources {
		boardSources = append(boardSources, source)
	}
	aggregator := board.New(boardSources, manager, discord.NewPublisher(bot.Session()))

	events.Init()

	var statusServer *http.Server
	if settings.Plexboard.StatusAddr != "" {
		mux := http.NewServeMux()
		statusServer = &http.Server{
			Addr:    settings.Plexboard.StatusAddr,
			Handler: routes.Register(mux, aggregator),
		}
		go func() {
			slog.Info("Status API listening", slog.String("addr", statusServer.Addr))
			if err := statusServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("Status API failed", slog.String("error", err.Error()))
			}
		}()
	}

	var wg sync.WaitGroup
	for _, source := range sources {
		wg.Add(1)
		go func(client *plex.Client) {
			defer wg.Done()
			client.Listen(ctx)
		}(source)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		aggregator.Run(ctx)
	}()

	if err := bot.Open(); err != nil {
		slog.Error("Failed to connect to Discord", slog.String("error", err.Error()))
		cancel()
		wg.Wait()
		os.Exit(1)
	}

	slog.Info("Plexboard is running. Press Ctrl+C to exit.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	slog.Info("Received shutdown signal, stopping")
	cancel()
	wg.Wait()

	if statusServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		statusServer.Shutdown(shutdownCtx)
		shutdownCancel()
	}
	events.Server.Close()
	if err := bot.Close(); err != nil {
		slog.Error("Failed to close Discord session", slog.String("error", err.Error()))
	}

	slog.Info("Shutdown complete")
}
