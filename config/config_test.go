package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempStatePath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "config.json")
}

func TestManager_MissingFileStartsEmpty(t *testing.T) {
	manager := NewManager(tempStatePath(t))
	state := manager.Get()
	assert.Empty(t, state.Servers)
	assert.Empty(t, state.BoardChannelID)
	assert.Empty(t, state.BoardMessageID)
}

func TestManager_CorruptFileStartsEmpty(t *testing.T) {
	path := tempStatePath(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	manager := NewManager(path)
	assert.Empty(t, manager.Get().Servers)
}

func TestManager_MutationsPersistAcrossReload(t *testing.T) {
	path := tempStatePath(t)

	manager := NewManager(path)
	require.NoError(t, manager.SetServers([]Server{{ServerID: "srv-1", Token: "tok"}}))
	require.NoError(t, manager.SetBoardChannel("chan-1"))
	require.NoError(t, manager.SetBoardMessage("msg-1"))

	reloaded := NewManager(path)
	state := reloaded.Get()
	assert.Equal(t, []Server{{ServerID: "srv-1", Token: "tok"}}, state.Servers)
	assert.Equal(t, "chan-1", state.BoardChannelID)
	assert.Equal(t, "msg-1", state.BoardMessageID)
}

func TestManager_NewChannelClearsMessageID(t *testing.T) {
	manager := NewManager(tempStatePath(t))

	require.NoError(t, manager.SetBoardChannel("chan-1"))
	require.NoError(t, manager.SetBoardMessage("msg-1"))
	require.NoError(t, manager.SetBoardChannel("chan-2"))

	state := manager.Get()
	assert.Equal(t, "chan-2", state.BoardChannelID)
	assert.Empty(t, state.BoardMessageID, "a board in a new channel must never edit the old message")
}

func TestManager_ClearBoard(t *testing.T) {
	manager := NewManager(tempStatePath(t))

	require.NoError(t, manager.SetBoardChannel("chan-1"))
	require.NoError(t, manager.SetBoardMessage("msg-1"))
	require.NoError(t, manager.ClearBoard())

	state := manager.Get()
	assert.Empty(t, state.BoardChannelID)
	assert.Empty(t, state.BoardMessageID)
}

func TestManager_EnsureClientIDIsStable(t *testing.T) {
	path := tempStatePath(t)

	manager := NewManager(path)
	first, err := manager.EnsureClientID()
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := manager.EnsureClientID()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	reloaded := NewManager(path)
	third, err := reloaded.EnsureClientID()
	require.NoError(t, err)
	assert.Equal(t, first, third)
}
