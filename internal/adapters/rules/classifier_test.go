package rules

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gnuru1/InboxWrangler/internal/core"
)

func newTestClassifier() *Classifier {
	return NewClassifier(zap.NewNop())
}

func TestClassifyShape(t *testing.T) {
	cls, err := newTestClassifier().Classify(context.Background(),
		"Project meeting tomorrow", "Can you send the agenda before the meeting? Regards, Alice", "alice@corp.com")
	require.NoError(t, err)

	assert.Equal(t, "rules", cls.Source)
	assert.True(t, cls.Available)
	assert.Equal(t, "neutral", cls.Sentiment)
	assert.Equal(t, "rules", newTestClassifier().Name())
}

func TestUrgencyThresholds(t *testing.T) {
	tests := []struct {
		name string
		text string
		want core.Urgency
	}{
		{"two high signals", "urgent: the build is critical", core.UrgencyHigh},
		{"high plus medium signal", "due today, please respond", core.UrgencyHigh},
		{"single high signal is medium", "this is due tomorrow", core.UrgencyMedium},
		{"single medium signal", "deadline is next month", core.UrgencyMedium},
		{"no signal", "lunch on thursday was nice", core.UrgencyLow},
		{"keyword inside a word does not match", "detergent and nowhere", core.UrgencyLow},
	}
	c := newTestClassifier()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.urgency(tc.text))
		})
	}
}

func TestCategorizeSubjectOutweighsBody(t *testing.T) {
	// One subject hit (3) beats two body hits (2).
	c := newTestClassifier()
	got := c.categorize("invoice 42", "invoice 42 hey friend")
	assert.Equal(t, core.CategoryTransactional, got)
}

func TestCategorizeUnsubscribeBoost(t *testing.T) {
	c := newTestClassifier()
	got := c.categorize("weekly digest", "weekly digest click unsubscribe to stop receiving")
	assert.Equal(t, core.CategoryNewsletter, got)
}

func TestCategorizeSpamWinsAtThreshold(t *testing.T) {
	// Professional scores higher, but three spam hits decide the category.
	c := newTestClassifier()
	subject := "meeting about the project report"
	text := subject + " regards, viagra pharmacy, click here or unsubscribe at example.com"
	assert.Equal(t, core.CategorySpam, c.categorize(subject, text))
}

func TestCategorizeTieOrder(t *testing.T) {
	// Equal single-hit scores resolve in the fixed priority order.
	c := newTestClassifier()
	assert.Equal(t, core.CategoryTransactional, c.categorize("", "the payment for the project"))
}

func TestCategorizeNoSignalIsGeneral(t *testing.T) {
	c := newTestClassifier()
	assert.Equal(t, core.CategoryGeneral, c.categorize("", "nothing remarkable here"))
}

func TestActionItemsDedupAndCapitalize(t *testing.T) {
	c := newTestClassifier()
	body := "Please send the report today. Later she wrote: please send the report today."
	items := c.actionItems(body)
	require.Len(t, items, 1)
	assert.Equal(t, "Please send the report today.", items[0])
}

func TestActionItemsDropShortMatches(t *testing.T) {
	c := newTestClassifier()
	assert.Empty(t, c.actionItems("Must go."))
}

func TestActionItemsCap(t *testing.T) {
	c := newTestClassifier()
	body := ""
	for i := 0; i < 8; i++ {
		body += fmt.Sprintf("Please review document number %d. ", i)
	}
	items := c.actionItems(body)
	assert.Len(t, items, maxActionItems)
}

func TestTopicsFilterStopWordsAndRank(t *testing.T) {
	c := newTestClassifier()
	text := "the budget and the budget for the meeting about the meeting review"
	topics := c.topics(text)
	// Frequency first, then alphabetical for ties.
	assert.Equal(t, []string{"budget", "meeting", "review"}, topics)
}

func TestTopicsStripURLsAndAddresses(t *testing.T) {
	c := newTestClassifier()
	topics := c.topics("see https://example.com/reports and mail bob@corp.com about reports reports")
	assert.Contains(t, topics, "reports")
	assert.NotContains(t, topics, "https")
	assert.NotContains(t, topics, "bob")
}
