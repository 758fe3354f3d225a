package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoringDefaultsValidate(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())
	sc, err := cfg.Scoring()
	require.NoError(t, err)
	assert.InDelta(t, 0.4, sc.Weights.Sender, 1e-9)
	assert.InDelta(t, 0.5, sc.State.Baseline, 1e-9)
	assert.InDelta(t, 0.15, sc.Recipient.ToMeBonus, 1e-9)
}

func TestScoringOverlayReachesEveryModel(t *testing.T) {
	v := NewEmptyViper()
	v.Set("scoring.sender.reply_time_weight", 0.6)
	v.Set("scoring.sender.reply_rate_weight", 0.2)
	v.Set("scoring.state.unread_penalty", 0.3)
	v.Set("scoring.state.due_soon_days", 4)
	v.Set("scoring.recipient.cc_me_penalty", 0.1)
	v.Set("scoring.decision.high_priority_threshold", 0.85)

	sc, err := NewFromViper(v).Scoring()
	require.NoError(t, err)

	assert.InDelta(t, 0.6, sc.Sender.ReplyTimeWeight, 1e-9)
	assert.InDelta(t, 0.2, sc.Sender.ReplyRateWeight, 1e-9)
	assert.InDelta(t, 0.3, sc.State.UnreadPenalty, 1e-9)
	assert.Equal(t, 4, sc.State.DueSoonDays)
	assert.InDelta(t, 0.1, sc.Recipient.CCMePenalty, 1e-9)
	assert.InDelta(t, 0.85, sc.Decision.HighPriorityThreshold, 1e-9)

	// Untouched knobs keep their compiled defaults.
	assert.InDelta(t, 0.15, sc.State.FlaggedBonus, 1e-9)
	assert.InDelta(t, 0.3, sc.Sender.ReadKeptFactor, 1e-9)
}

func TestScoringRejectsOutOfRangeOverlay(t *testing.T) {
	v := NewEmptyViper()
	v.Set("scoring.state.unread_penalty", 1.5)

	_, err := NewFromViper(v).Scoring()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scoring.state.unread_penalty")
}
