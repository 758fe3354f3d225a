package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnuru1/InboxWrangler/internal/whitelist"
)

func newTestSenderScorer(pinned *whitelist.Checker) *SenderScorer {
	return NewSenderScorer(DefaultScoringConfig().Sender, pinned)
}

func TestSenderScoreNoHistoryIsExactlyNeutral(t *testing.T) {
	scorer := newTestSenderScorer(nil)
	rec := scorer.Score(&BehaviorProfile{Key: "new@corp.com"}, nil)

	assert.Equal(t, 0.5, rec.Score)
	assert.True(t, rec.Neutral)
	assert.Zero(t, rec.SampleSize)
}

func TestSenderScoreResponsiveSenderScoresHigh(t *testing.T) {
	// Ten of ten inbound answered within five minutes with substantial
	// replies, and most mail read and kept.
	p := &BehaviorProfile{
		Key:          "alice@corp.com",
		SentTo:       10,
		ReceivedFrom: 10,
		ReplyCount:   10,
		ReadKept:     9,
		NeverOpened:  1,
	}
	for i := 0; i < 10; i++ {
		p.Latencies = append(p.Latencies, 5*time.Minute)
		p.ReplyLengths = append(p.ReplyLengths, 400)
	}

	rec := newTestSenderScorer(nil).Score(p, nil)
	assert.Greater(t, rec.Score, 0.7)
	assert.False(t, rec.Neutral)
	assert.Equal(t, 20, rec.SampleSize)
}

func TestSenderScoreSmallSampleFallsBackToNeutralPattern(t *testing.T) {
	p := &BehaviorProfile{
		Key:          "rare@corp.com",
		ReceivedFrom: 2,
		ReplyCount:   2,
		Latencies:    []time.Duration{time.Minute, time.Minute},
		ReplyLengths: []int{500, 500},
	}

	rec := newTestSenderScorer(nil).Score(p, nil)
	assert.Equal(t, 0.5, rec.ReplyPattern,
		"two interactions must not extrapolate a perfect reply pattern")
	assert.True(t, rec.Neutral)
}

func TestSenderScoreAutomatedCeiling(t *testing.T) {
	// Behaviorally this profile would score near the top; the automated
	// flag caps it anyway.
	p := &BehaviorProfile{
		Key:          "notifications@ci.example",
		ReceivedFrom: 50,
		ReplyCount:   50,
		ReadKept:     50,
		Latencies:    []time.Duration{time.Minute, time.Minute},
		ReplyLengths: []int{300, 300},
	}
	id := &Identity{Key: p.Key, Address: p.Key, Automated: true}

	scorer := newTestSenderScorer(nil)
	rec := scorer.Score(p, id)
	assert.Equal(t, 0.3, rec.Score)

	// The same profile without the flag scores far above the ceiling.
	unflagged := scorer.Score(p, &Identity{Key: p.Key, Address: p.Key})
	assert.Greater(t, unflagged.Score, 0.3)
}

func TestSenderScorePinnedFloor(t *testing.T) {
	pinned := whitelist.NewChecker([]string{"boss@corp.com"}, nil)
	p := &BehaviorProfile{
		Key:          "boss@corp.com",
		ReceivedFrom: 20,
		NeverOpened:  20,
	}

	rec := newTestSenderScorer(pinned).Score(p, nil)
	assert.Equal(t, 0.9, rec.Score,
		"pinned senders keep their floor regardless of observed behavior")
}

func TestSenderScoreMoreRepliesNeverLowersScore(t *testing.T) {
	scorer := newTestSenderScorer(nil)
	base := func(replies int) *BehaviorProfile {
		p := &BehaviorProfile{
			Key:          "m@corp.com",
			ReceivedFrom: 10,
			ReplyCount:   replies,
		}
		for i := 0; i < replies; i++ {
			p.Latencies = append(p.Latencies, time.Hour)
			p.ReplyLengths = append(p.ReplyLengths, 200)
		}
		return p
	}

	prev := scorer.Score(base(0), nil).Score
	for replies := 1; replies <= 10; replies++ {
		cur := scorer.Score(base(replies), nil).Score
		assert.GreaterOrEqual(t, cur, prev, "replies=%d", replies)
		prev = cur
	}
}

func TestScoreAllCoversEveryProfile(t *testing.T) {
	profiles := map[string]*BehaviorProfile{
		"a@corp.com": {Key: "a@corp.com", ReceivedFrom: 6},
		"b@corp.com": {Key: "b@corp.com"},
	}
	identities := map[string]*Identity{
		"a@corp.com": {Key: "a@corp.com", Address: "a@corp.com"},
	}

	scores := newTestSenderScorer(nil).ScoreAll(profiles, identities)
	require.Len(t, scores, 2)
	assert.Contains(t, scores, "a@corp.com")
	assert.Contains(t, scores, "b@corp.com")
}
