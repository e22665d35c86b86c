package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
)

// Server is one monitored Plex server and the token that grants access to it.
type Server struct {
	ServerID string `json:"serverId"`
	Token    string `json:"token"`
}

// State is the persisted bot state. BoardMessageID is only meaningful while
// BoardChannelID is set: pointing the board at a new channel always starts
// from a fresh message.
type State struct {
	Servers        []Server `json:"servers"`
	ClientID       string   `json:"clientId,omitempty"`
	BoardChannelID string   `json:"boardChannelId,omitempty"`
	BoardMessageID string   `json:"boardMessageId,omitempty"`
}

// Manager owns the state file. Every mutation is written to disk before the
// lock is released so readers always observe a disk-backed value.
type Manager struct {
	mu    sync.RWMutex
	path  string
	state State
}

func NewManager(path string) *Manager {
	m := &Manager{path: path}

	content, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Failed to read state file, starting fresh",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
		return m
	}

	if err := json.Unmarshal(content, &m.state); err != nil {
		slog.Warn("Failed to parse state file, starting fresh",
			slog.String("path", path),
			slog.String("error", err.Error()))
		m.state = State{}
	}

	return m
}

func (m *Manager) Get() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) Servers() []Server {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Server(nil), m.state.Servers...)
}

func (m *Manager) SetServers(servers []Server) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Servers = servers
	return m.save()
}

func (m *Manager) SetBoardChannel(channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.BoardChannelID = channelID
	m.state.BoardMessageID = ""
	return m.save()
}

func (m *Manager) SetBoardMessage(messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.BoardMessageID = messageID
	return m.save()
}

func (m *Manager) ClearBoard() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.BoardChannelID = ""
	m.state.BoardMessageID = ""
	return m.save()
}

// EnsureClientID returns the persisted Plex client identifier, generating
// one on first run. Plex expects the same identifier across restarts.
func (m *Manager) EnsureClientID() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.ClientID != "" {
		return m.state.ClientID, nil
	}
	m.state.ClientID = uuid.NewString()
	if err := m.save(); err != nil {
		return "", err
	}
	return m.state.ClientID, nil
}

// save must be called with m.mu held for writing.
func (m *Manager) save() error {
	content, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, content, 0600)
}
