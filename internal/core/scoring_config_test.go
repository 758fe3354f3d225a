package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultScoringConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultScoringConfig().Validate())
}

func TestValidateNamesTheOffendingKey(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ScoringConfig)
		wantKey string
	}{
		{
			name:    "negative weight",
			mutate:  func(c *ScoringConfig) { c.Weights.Sender = -0.1 },
			wantKey: "scoring.weights.sender",
		},
		{
			name: "all weights zero",
			mutate: func(c *ScoringConfig) {
				c.Weights = Weights{}
			},
			wantKey: "scoring.weights",
		},
		{
			name:    "neutral score out of range",
			mutate:  func(c *ScoringConfig) { c.Sender.NeutralScore = 1.5 },
			wantKey: "scoring.sender.neutral_score",
		},
		{
			name:    "zero pattern threshold",
			mutate:  func(c *ScoringConfig) { c.Sender.MinEmailsForPattern = 0 },
			wantKey: "scoring.sender.min_emails_for_pattern",
		},
		{
			name:    "inverted business hours",
			mutate:  func(c *ScoringConfig) { c.State.BusinessEndHour = 6 },
			wantKey: "scoring.state.business_end_hour",
		},
		{
			name: "medium threshold above high",
			mutate: func(c *ScoringConfig) {
				c.Decision.MediumPriorityThreshold = 0.9
			},
			wantKey: "decision.thresholds",
		},
		{
			name:    "zero analysis window",
			mutate:  func(c *ScoringConfig) { c.Analysis.WindowDays = 0 },
			wantKey: "analysis.window_days",
		},
		{
			name:    "similarity threshold above one",
			mutate:  func(c *ScoringConfig) { c.Normalizer.SimilarityThreshold = 1.2 },
			wantKey: "normalizer.similarity_threshold",
		},
		{
			name: "category priority out of range",
			mutate: func(c *ScoringConfig) {
				c.CategoryPriorities[CategorySpam] = -1
			},
			wantKey: "scoring.category_priorities.spam",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultScoringConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantKey)
		})
	}
}

func TestWeightsSum(t *testing.T) {
	w := Weights{Sender: 0.4, Topic: 0.25, Temporal: 0.15, State: 0.1, Recipient: 0.1}
	assert.InDelta(t, 1.0, w.Sum(), 1e-9)
	assert.Zero(t, Weights{}.Sum())
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-3))
	assert.Equal(t, 1.0, clamp01(7))
	assert.Equal(t, 0.42, clamp01(0.42))
}
