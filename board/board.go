package board

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/r3labs/sse/v2"

	"plexboard/config"
	"plexboard/events"
	"plexboard/plex"
)

const aggregateBuffer = 16

// Source is one monitored server, as seen by the aggregator.
type Source interface {
	Updates() <-chan struct{}
	Sessions() []plex.Session
	ServerName() string
}

// Publisher writes the rendered board to the destination channel. When
// messageID is set the existing message is edited in place, otherwise a new
// message is created and its id returned.
type Publisher interface {
	Publish(channelID string, embeds []*discordgo.MessageEmbed, messageID string) (string, error)
}

// Aggregator fans change signals from every source into one coalesced
// stream. Signals are lossy on purpose: each tick re-reads the full snapshot
// from every source, so a dropped signal is caught up by the next one.
type Aggregator struct {
	sources   []Source
	config    *config.Manager
	publisher Publisher
	updates   chan struct{}
}

func New(sources []Source, cfg *config.Manager, publisher Publisher) *Aggregator {
	return &Aggregator{
		sources:   sources,
		config:    cfg,
		publisher: publisher,
		updates:   make(chan struct{}, aggregateBuffer),
	}
}

// Sessions returns the combined snapshot across all sources, in source
// registration order.
func (a *Aggregator) Sessions() []plex.Session {
	var all []plex.Session
	for _, source := range a.sources {
		all = append(all, source.Sessions()...)
	}
	return all
}

func (a *Aggregator) ServerNames() []string {
	names := make([]string, 0, len(a.sources))
	for _, source := range a.sources {
		names = append(names, source.ServerName())
	}
	return names
}

// Run forwards source signals into the shared channel and services ticks
// until ctx is cancelled. Forwarding never blocks a source: an emit into a
// full channel is dropped.
func (a *Aggregator) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, source := range a.sources {
		wg.Add(1)
		go func(updates <-chan struct{}) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-updates:
					select {
					case a.updates <- struct{}{}:
					default:
					}
				}
			}
		}(source.Updates())
	}

	slog.Debug("Update aggregator ready", slog.Int("sources", len(a.sources)))

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			slog.Info("Update aggregator shutting down")
			return
		case <-a.updates:
			a.Tick()
		}
	}
}

// Tick renders and publishes the board once. With no destination channel
// configured it is a no-op, not an error.
func (a *Aggregator) Tick() {
	sessions := a.Sessions()
	serverNames := a.ServerNames()
	a.broadcast(sessions)

	state := a.config.Get()
	if state.BoardChannelID == "" {
		slog.Debug("No board channel configured, skipping update")
		return
	}

	embeds := BuildSessionEmbeds(sessions, serverNames)
	slog.Debug("Publishing session board",
		slog.Int("sessions", len(sessions)),
		slog.Int("servers", len(serverNames)))

	messageID, err := a.publisher.Publish(state.BoardChannelID, embeds, state.BoardMessageID)
	if err != nil {
		// On edit failure the stale message id is deliberately kept so the
		// next tick retries against the same message.
		slog.Error("Failed to publish session board", slog.String("error", err.Error()))
		return
	}

	if state.BoardMessageID == "" {
		if err := a.config.SetBoardMessage(messageID); err != nil {
			slog.Error("Failed to persist board message id", slog.String("error", err.Error()))
			return
		}
		slog.Info("Created session board message", slog.String("message_id", messageID))
	}
}

// broadcast pings local status stream consumers with the fresh snapshot.
func (a *Aggregator) broadcast(sessions []plex.Session) {
	if events.Server == nil {
		return
	}
	state, err := json.Marshal(sessions)
	if err != nil {
		return
	}
	events.Server.Publish("board", &sse.Event{Data: state})
}
