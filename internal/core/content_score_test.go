package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTopicScore(t *testing.T) {
	priorities := DefaultScoringConfig().CategoryPriorities

	tests := []struct {
		name string
		cls  *Classification
		want float64
	}{
		{"personal", &Classification{Category: CategoryPersonal}, 0.8},
		{"professional", &Classification{Category: CategoryProfessional}, 0.7},
		{"spam", &Classification{Category: CategorySpam}, 0.1},
		{"unknown category", &Classification{Category: "mystery"}, 0.5},
		{"nil classification", nil, 0.5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, TopicScore(tc.cls, priorities), 1e-9)
		})
	}
}

func TestRecencyScoreLadder(t *testing.T) {
	tests := []struct {
		name string
		age  time.Duration
		want float64
	}{
		{"hours old", 12 * time.Hour, 0.95},
		{"two days", 2 * 24 * time.Hour, 0.85},
		{"five days", 5 * 24 * time.Hour, 0.75},
		{"ten days", 10 * 24 * time.Hour, 0.65},
		{"three weeks", 21 * 24 * time.Hour, 0.5},
		{"hundred days", 100 * 24 * time.Hour, 0.5 - 100.0/365.0},
		{"over a year", 400 * 24 * time.Hour, 0.1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := MessageRecord{
				Received:   stateBase.Add(-tc.age),
				ObservedAt: stateBase,
			}
			assert.InDelta(t, tc.want, recencyScore(rec), 1e-9)
		})
	}
}

func TestRecencyScoreThreadBonus(t *testing.T) {
	rec := MessageRecord{
		Received:   stateBase.Add(-5 * 24 * time.Hour),
		ObservedAt: stateBase,
		InReplyTo:  "<prev@corp.com>",
	}
	assert.InDelta(t, 0.8, recencyScore(rec), 1e-9)
}

func TestTemporalScoreBlendsRecencyAndUrgency(t *testing.T) {
	rec := MessageRecord{
		Received:   stateBase.Add(-12 * time.Hour),
		ObservedAt: stateBase,
	}

	urgent := &Classification{Urgency: UrgencyUrgent}
	low := &Classification{Urgency: UrgencyLow}

	gotUrgent := TemporalScore(rec, urgent)
	gotLow := TemporalScore(rec, low)

	assert.InDelta(t, 0.4*0.95+0.6*0.95, gotUrgent, 1e-9)
	assert.InDelta(t, 0.4*0.95+0.6*0.3, gotLow, 1e-9)
	assert.Greater(t, gotUrgent, gotLow)
}

func TestTemporalScoreDefaultsToMediumUrgency(t *testing.T) {
	rec := MessageRecord{
		Received:   stateBase.Add(-12 * time.Hour),
		ObservedAt: stateBase,
	}
	assert.InDelta(t, 0.4*0.95+0.6*0.6, TemporalScore(rec, nil), 1e-9)
}

func TestTemporalScoreActionItemsBoostUrgency(t *testing.T) {
	rec := MessageRecord{
		Received:   stateBase.Add(-12 * time.Hour),
		ObservedAt: stateBase,
	}
	cls := &Classification{
		Urgency:     UrgencyMedium,
		ActionItems: []string{"Send the report by Friday"},
	}
	assert.InDelta(t, 0.4*0.95+0.6*0.7, TemporalScore(rec, cls), 1e-9)
}

func TestTemporalScoreDoesNotUseWallClock(t *testing.T) {
	rec := MessageRecord{
		Received:   time.Date(2020, 1, 1, 9, 0, 0, 0, time.UTC),
		ObservedAt: time.Date(2020, 1, 2, 9, 0, 0, 0, time.UTC),
	}
	first := TemporalScore(rec, nil)
	second := TemporalScore(rec, nil)
	assert.Equal(t, first, second)
	assert.InDelta(t, 0.4*0.95+0.6*0.6, first, 1e-9,
		"a 2020 message observed in 2020 is one day old, not years old")
}

func TestComposeNormalizesByWeightSum(t *testing.T) {
	b := ScoreBreakdown{Sender: 0.6, Topic: 0.6, Temporal: 0.6, State: 0.6, Recipient: 0.6}

	unit := Weights{Sender: 0.4, Topic: 0.25, Temporal: 0.15, State: 0.1, Recipient: 0.1}
	doubled := Weights{Sender: 0.8, Topic: 0.5, Temporal: 0.3, State: 0.2, Recipient: 0.2}

	assert.InDelta(t, 0.6, Compose(b, unit), 1e-9)
	assert.InDelta(t, Compose(b, unit), Compose(b, doubled), 1e-9,
		"scaling all weights must not change the composite")
}

func TestComposeWeightedMix(t *testing.T) {
	b := ScoreBreakdown{Sender: 1.0, Topic: 0.0, Temporal: 0.0, State: 0.0, Recipient: 0.0}
	w := Weights{Sender: 0.4, Topic: 0.25, Temporal: 0.15, State: 0.1, Recipient: 0.1}
	assert.InDelta(t, 0.4, Compose(b, w), 1e-9)
}

func TestComposeZeroWeights(t *testing.T) {
	b := ScoreBreakdown{Sender: 1.0}
	assert.Zero(t, Compose(b, Weights{}))
}

func TestComposeStaysInUnitInterval(t *testing.T) {
	b := ScoreBreakdown{Sender: 1, Topic: 1, Temporal: 1, State: 1, Recipient: 1}
	w := Weights{Sender: 5, Topic: 5, Temporal: 5, State: 5, Recipient: 5}
	got := Compose(b, w)
	assert.GreaterOrEqual(t, got, 0.0)
	assert.LessOrEqual(t, got, 1.0)
}
