package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassificationNormalizeCoercesInvalidValues(t *testing.T) {
	cls := &Classification{
		Category: "Work Stuff",
		Urgency:  "EXTREMELY URGENT",
	}
	cls.Normalize()

	assert.Equal(t, CategoryGeneral, cls.Category)
	assert.Equal(t, UrgencyMedium, cls.Urgency)
	assert.Equal(t, "neutral", cls.Sentiment)
}

func TestClassificationNormalizeCanonicalizesCase(t *testing.T) {
	cls := &Classification{
		Category:  " Professional ",
		Urgency:   "High",
		Sentiment: "positive",
	}
	cls.Normalize()

	assert.Equal(t, CategoryProfessional, cls.Category)
	assert.Equal(t, UrgencyHigh, cls.Urgency)
	assert.Equal(t, "positive", cls.Sentiment)
}

func TestClassificationNormalizeCapsLists(t *testing.T) {
	cls := &Classification{
		Category: "personal",
		Urgency:  "low",
		Topics:   []string{"a", " b ", "", "c", "d", "e", "f", "g"},
		ActionItems: []string{
			"Reply to Bob", "  ", "Send the report", "Book the room",
			"Review the doc", "Call back", "One too many",
		},
		SuggestedFolder: "  Travel  ",
	}
	cls.Normalize()

	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, cls.Topics)
	assert.Len(t, cls.ActionItems, 5)
	assert.NotContains(t, cls.ActionItems, "One too many")
	assert.Equal(t, "Travel", cls.SuggestedFolder)
}

func TestClassificationNormalizeEmptyListsBecomeNil(t *testing.T) {
	cls := &Classification{Category: "general", Urgency: "low", Topics: []string{" ", ""}}
	cls.Normalize()
	assert.Nil(t, cls.Topics)
}

func TestUnavailableClassification(t *testing.T) {
	cls := UnavailableClassification()
	assert.Equal(t, CategoryGeneral, cls.Category)
	assert.Equal(t, UrgencyMedium, cls.Urgency)
	assert.Equal(t, "unavailable", cls.Source)
	assert.False(t, cls.Available)
	assert.False(t, cls.HasActionItems())
}

func TestHasActionItemsNilSafe(t *testing.T) {
	var cls *Classification
	assert.False(t, cls.HasActionItems())
}

func TestIdentityAddAliasDeduplicates(t *testing.T) {
	id := &Identity{Key: "jdoe@corp.com"}
	id.AddAlias("John Doe")
	id.AddAlias("JOHN DOE")
	id.AddAlias("  ")
	id.AddAlias("Doe, John")

	assert.Equal(t, []string{"John Doe", "Doe, John"}, id.Aliases)
}

func TestIdentityAddVariantLowercasesAndDeduplicates(t *testing.T) {
	id := &Identity{Key: "jdoe@corp.com"}
	id.AddVariant("JDoe@Corp.com")
	id.AddVariant("jdoe@corp.com")
	id.AddVariant("")

	assert.Equal(t, []string{"jdoe@corp.com"}, id.Variants)
}

func TestIdentityDomain(t *testing.T) {
	assert.Equal(t, "corp.com", (&Identity{Address: "jdoe@corp.com"}).Domain())
	assert.Equal(t, "", (&Identity{}).Domain())
}

func TestBehaviorProfileAverages(t *testing.T) {
	p := &BehaviorProfile{
		Latencies:    []time.Duration{10 * time.Minute, 30 * time.Minute},
		ReplyLengths: []int{100, 300},
	}

	avg, ok := p.AvgLatency()
	require.True(t, ok)
	assert.Equal(t, 20*time.Minute, avg)
	assert.InDelta(t, 200.0, p.AvgReplyLength(), 1e-9)
}

func TestBehaviorProfileEmptyAverages(t *testing.T) {
	p := &BehaviorProfile{}
	_, ok := p.AvgLatency()
	assert.False(t, ok)
	assert.Zero(t, p.AvgReplyLength())
	assert.Zero(t, p.ReadKeptRatio())
}

func TestBehaviorProfileReadKeptRatio(t *testing.T) {
	p := &BehaviorProfile{ReadKept: 9, NeverOpened: 1}
	assert.InDelta(t, 0.9, p.ReadKeptRatio(), 1e-9)
}

func TestMessageRecordHelpers(t *testing.T) {
	base := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	rec := MessageRecord{
		Received:   base.Add(-48 * time.Hour),
		ObservedAt: base,
	}
	assert.Equal(t, 48*time.Hour, rec.Age())
	assert.False(t, rec.InThread())
	assert.False(t, rec.HasDueDate())

	rec.InReplyTo = "<abc@corp.com>"
	assert.True(t, rec.InThread())

	rec.DueDate = base.Add(24 * time.Hour)
	assert.True(t, rec.HasDueDate())
}

func TestSnapshotSenderScoreFor(t *testing.T) {
	snap := &AnalysisSnapshot{
		SenderScores: map[string]*SenderScoreRecord{
			"alice@corp.com": {Key: "alice@corp.com", Score: 0.9},
			"bob@corp.com":   {Key: "bob@corp.com", Score: 0.5},
			"spamy@ads.net":  {Key: "spamy@ads.net", Score: 0.1},
		},
	}

	score, known := snap.SenderScoreFor("alice@corp.com", 0.5)
	assert.True(t, known)
	assert.InDelta(t, 0.9, score, 1e-9)

	// Unknown sender at a known domain falls back to the domain average.
	score, known = snap.SenderScoreFor("carol@corp.com", 0.5)
	assert.False(t, known)
	assert.InDelta(t, 0.7, score, 1e-9)

	// Unknown domain falls back to the neutral default.
	score, known = snap.SenderScoreFor("nobody@nowhere.org", 0.5)
	assert.False(t, known)
	assert.InDelta(t, 0.5, score, 1e-9)
}

func TestSnapshotSenderScoreForNilSnapshot(t *testing.T) {
	var snap *AnalysisSnapshot
	score, known := snap.SenderScoreFor("alice@corp.com", 0.5)
	assert.False(t, known)
	assert.InDelta(t, 0.5, score, 1e-9)
}
