package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnuru1/InboxWrangler/internal/config"
)

func applyOverrides(t *testing.T, command string, args []string) *config.Config {
	t.Helper()
	overrides, err := parseCommandFlags(command, args)
	require.NoError(t, err)
	cfg := config.NewFromViper(config.NewEmptyViper())
	for _, override := range overrides {
		override(cfg)
	}
	return cfg
}

func TestParseCommandFlagsOrganizeApply(t *testing.T) {
	cfg := applyOverrides(t, "organize", []string{"--apply", "--limit", "50"})
	assert.False(t, cfg.GetBool("organizer.dry_run"))
	assert.Equal(t, 50, cfg.GetInt("organizer.max_messages"))
}

func TestParseCommandFlagsDefaultsUntouched(t *testing.T) {
	cfg := applyOverrides(t, "organize", nil)
	assert.True(t, cfg.GetBool("organizer.dry_run"))
	assert.Equal(t, 200, cfg.GetInt("organizer.max_messages"))
}

func TestParseCommandFlagsReportOutput(t *testing.T) {
	cfg := applyOverrides(t, "report", []string{"--output", "/tmp/reports", "--limit", "25"})
	assert.Equal(t, "/tmp/reports", cfg.GetString("organizer.report_dir"))
	assert.Equal(t, 25, cfg.GetInt("organizer.max_messages"))
}

func TestParseCommandFlagsWatchSchedule(t *testing.T) {
	cfg := applyOverrides(t, "watch", []string{"--schedule", "0 * * * *", "--apply"})
	assert.Equal(t, "0 * * * *", cfg.GetString("organizer.schedule"))
	assert.False(t, cfg.GetBool("organizer.dry_run"))
}

func TestParseCommandFlagsAnalyzeLimit(t *testing.T) {
	cfg := applyOverrides(t, "analyze", []string{"--limit", "1000"})
	assert.Equal(t, 1000, cfg.GetInt("scoring.analysis.max_emails"))
}

func TestParseCommandFlagsRejectsUnknownFlag(t *testing.T) {
	_, err := parseCommandFlags("organize", []string{"--frobnicate"})
	require.Error(t, err)
}
