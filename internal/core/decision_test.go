package core

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var decisionBase = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func decisionRecord() MessageRecord {
	return MessageRecord{
		Received:   decisionBase.Add(-24 * time.Hour),
		ObservedAt: decisionBase,
		Read:       true,
	}
}

func newTestEngine() *DecisionEngine {
	return NewDecisionEngine(DefaultScoringConfig())
}

func TestDecideRulePrecedence(t *testing.T) {
	tests := []struct {
		name       string
		final      float64
		cls        *Classification
		mutate     func(*MessageRecord)
		wantRule   string
		wantFolder string
		wantFlag   bool
		wantTask   bool
	}{
		{
			name:  "flagged due today beats a top score and a junk category",
			final: 0.95,
			cls:   &Classification{Category: CategoryNewsletter, Urgency: UrgencyLow, Available: true},
			mutate: func(m *MessageRecord) {
				m.Flagged = true
				m.DueDate = decisionBase.Add(-time.Hour)
			},
			wantRule:   "flagged-due-today",
			wantFolder: FolderDueToday,
			wantFlag:   true,
			wantTask:   true,
		},
		{
			name:       "high priority at the inclusive threshold",
			final:      0.8,
			wantRule:   "high-priority",
			wantFolder: FolderHighPriority,
			wantFlag:   true,
			wantTask:   true,
		},
		{
			name:       "just under the high threshold is medium",
			final:      0.7999,
			wantRule:   "medium-priority",
			wantFolder: FolderMediumPriority,
			wantFlag:   true,
		},
		{
			name:       "medium priority at the inclusive threshold",
			final:      0.5,
			wantRule:   "medium-priority",
			wantFolder: FolderMediumPriority,
			wantFlag:   true,
		},
		{
			name:       "high importance below the thresholds",
			final:      0.4,
			mutate:     func(m *MessageRecord) { m.Importance = ImportanceHigh },
			wantRule:   "high-importance",
			wantFolder: FolderImportant,
			wantFlag:   true,
		},
		{
			name:  "action items route to action required",
			final: 0.4,
			cls: &Classification{
				Category:    CategoryProfessional,
				Urgency:     UrgencyMedium,
				ActionItems: []string{"Send the figures by Friday"},
				Available:   true,
			},
			wantRule:   "action-required",
			wantFolder: FolderActionRequired,
			wantTask:   true,
		},
		{
			name:       "category routing for professional mail",
			final:      0.4,
			cls:        &Classification{Category: CategoryProfessional, Urgency: UrgencyMedium, Available: true},
			wantRule:   "category",
			wantFolder: "Professional",
		},
		{
			name:       "low scoring newsletter is archived",
			final:      0.2,
			cls:        &Classification{Category: CategoryNewsletter, Urgency: UrgencyLow, Available: true},
			wantRule:   "archive-category",
			wantFolder: "Archive/Newsletter",
		},
		{
			name:       "newsletter above the archive threshold stays filed",
			final:      0.4,
			cls:        &Classification{Category: CategoryNewsletter, Urgency: UrgencyLow, Available: true},
			wantRule:   "category",
			wantFolder: "Newsletter",
		},
		{
			name:       "general mail is left alone",
			final:      0.4,
			cls:        &Classification{Category: CategoryGeneral, Urgency: UrgencyMedium, Available: true},
			wantRule:   "no-action",
			wantFolder: "",
		},
		{
			name:       "nil classification is left alone",
			final:      0.4,
			wantRule:   "no-action",
			wantFolder: "",
		},
	}

	engine := newTestEngine()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := decisionRecord()
			if tc.mutate != nil {
				tc.mutate(&rec)
			}
			d := engine.Decide(ScoreBreakdown{Final: tc.final}, tc.cls, rec)

			assert.Equal(t, tc.wantRule, d.Rule)
			assert.Equal(t, tc.wantFolder, d.Folder)
			assert.Equal(t, tc.wantFlag, d.Flag)
			assert.Equal(t, tc.wantTask, d.CreateTask)
			assert.NotEmpty(t, d.Reasoning)
		})
	}
}

func TestDecideFlaggedDueLaterDoesNotShortCircuit(t *testing.T) {
	rec := decisionRecord()
	rec.Flagged = true
	rec.DueDate = decisionBase.Add(10 * 24 * time.Hour)

	d := newTestEngine().Decide(ScoreBreakdown{Final: 0.9}, nil, rec)
	assert.Equal(t, "high-priority", d.Rule)
}

func TestDecideSuggestedSubfolder(t *testing.T) {
	engine := newTestEngine()
	rec := decisionRecord()

	cls := &Classification{
		Category:        CategoryPersonal,
		Urgency:         UrgencyLow,
		SuggestedFolder: "Family Trip: Summer?",
		Available:       true,
	}
	d := engine.Decide(ScoreBreakdown{Final: 0.4}, cls, rec)
	assert.Equal(t, "Personal/Family Trip_ Summer_", d.Folder)

	// Generic suggestions are dropped rather than creating noise folders.
	cls.SuggestedFolder = "Misc"
	d = engine.Decide(ScoreBreakdown{Final: 0.4}, cls, rec)
	assert.Equal(t, "Personal", d.Folder)

	// Transactional mail never gets a suggested subfolder.
	cls.Category = CategoryTransactional
	cls.SuggestedFolder = "Receipts"
	d = engine.Decide(ScoreBreakdown{Final: 0.4}, cls, rec)
	assert.Equal(t, "Transactional", d.Folder)
}

func TestDecideReasoningTrace(t *testing.T) {
	engine := newTestEngine()
	rec := decisionRecord()

	b := ScoreBreakdown{
		Sender: 0.9, Topic: 0.7, Temporal: 0.8, State: 0.8, Recipient: 0.2,
		Final: 0.82,
	}
	d := engine.Decide(b, nil, rec)

	require.NotEmpty(t, d.Reasoning)
	assert.Contains(t, d.Reasoning[0], "final=0.820")
	assert.Contains(t, d.Reasoning[0], "sender=0.900")

	joined := strings.Join(d.Reasoning, "\n")
	assert.Contains(t, joined, "high-priority threshold")
}

func TestDecideReasoningNotesAmbiguousSender(t *testing.T) {
	d := newTestEngine().Decide(ScoreBreakdown{Final: 0.4, SenderAmbiguous: true}, nil, decisionRecord())
	joined := strings.Join(d.Reasoning, "\n")
	assert.Contains(t, joined, "manual review")
}

func TestDecideReasoningNotesUnavailableClassification(t *testing.T) {
	d := newTestEngine().Decide(ScoreBreakdown{Final: 0.4}, UnavailableClassification(), decisionRecord())
	joined := strings.Join(d.Reasoning, "\n")
	assert.Contains(t, joined, "classification unavailable")
}

func TestCategoryFolderCapitalizes(t *testing.T) {
	assert.Equal(t, "Newsletter", categoryFolder(CategoryNewsletter))
	assert.Equal(t, "Spam", categoryFolder(CategorySpam))
	assert.Equal(t, "", categoryFolder(Category("")))
}
