package di

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnuru1/InboxWrangler/internal/core"
)

func TestCreateConfigFromFlagsStatelessByDefault(t *testing.T) {
	cfg := createConfigFromFlags(&CLIFlags{Provider: "rules"})
	assert.Equal(t, "memory", cfg.GetString("store.type"))
}

func TestCreateConfigFromFlagsStorePathSelectsSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	cfg := createConfigFromFlags(&CLIFlags{Provider: "rules", StorePath: path})
	assert.Equal(t, "sqlite", cfg.GetString("store.type"))
	assert.Equal(t, path, cfg.GetString("store.sqlite_path"))
}

func TestBuildCLIContainerProvidesStateStore(t *testing.T) {
	container, err := BuildCLIContainer(&CLIFlags{Provider: "rules"})
	require.NoError(t, err)

	err = container.Invoke(func(st core.StateStore, service *core.OrganizerService) {
		require.NotNil(t, st)
		snap, err := service.LoadSnapshot(context.Background())
		require.NoError(t, err)
		assert.Empty(t, snap.SenderScores)
	})
	require.NoError(t, err)
}
