package core

import (
	"fmt"
	"strings"

	"github.com/gnuru1/InboxWrangler/internal/utils"
)

// Folder targets produced by the decision rules.
const (
	FolderDueToday       = "Due Today"
	FolderHighPriority   = "High Priority"
	FolderMediumPriority = "Medium Priority"
	FolderImportant      = "Important"
	FolderActionRequired = "Action Required"
	FolderArchive        = "Archive"
)

var lowPriorityCategories = map[Category]bool{
	CategoryNewsletter:  true,
	CategoryPromotional: true,
	CategorySpam:        true,
}

// DecisionEngine maps a scored message to an organization action. The rule
// order is the contract: rules are evaluated top-down and the first match
// wins, so reordering them changes observable behavior.
type DecisionEngine struct {
	decision DecisionModel
	state    StateModel
}

// NewDecisionEngine creates a decision engine from the scoring config.
func NewDecisionEngine(cfg ScoringConfig) *DecisionEngine {
	return &DecisionEngine{
		decision: cfg.Decision,
		state:    cfg.State,
	}
}

// Decide maps one scored message to its Decision. Pure: no clock, no state,
// no mutation of the inputs. Every decision carries the fired rule and a
// reasoning trace for audit.
func (e *DecisionEngine) Decide(b ScoreBreakdown, cls *Classification, rec MessageRecord) Decision {
	trace := make([]string, 0, 4)
	trace = append(trace, fmt.Sprintf(
		"final=%.3f (sender=%.3f topic=%.3f temporal=%.3f state=%.3f recipient=%.3f)",
		b.Final, b.Sender, b.Topic, b.Temporal, b.State, b.Recipient))
	if b.SenderAmbiguous {
		trace = append(trace, "sender identity could not be fully resolved; needs manual review")
	}
	if cls != nil && !cls.Available {
		trace = append(trace, "content classification unavailable; defaults applied")
	}

	due := DueStatusOf(rec, e.state.DueSoonDays)

	var d Decision
	switch {
	case rec.Flagged && due == DueTodayOrOverdue:
		d = Decision{Folder: FolderDueToday, Flag: true, CreateTask: true, Rule: "flagged-due-today"}
		trace = append(trace, "flagged with a due date of today or earlier")

	case b.Final >= e.decision.HighPriorityThreshold:
		d = Decision{Folder: FolderHighPriority, Flag: true, CreateTask: true, Rule: "high-priority"}
		trace = append(trace, fmt.Sprintf("final score %.3f meets high-priority threshold %.2f",
			b.Final, e.decision.HighPriorityThreshold))

	case b.Final >= e.decision.MediumPriorityThreshold:
		d = Decision{Folder: FolderMediumPriority, Flag: true, Rule: "medium-priority"}
		trace = append(trace, fmt.Sprintf("final score %.3f meets medium-priority threshold %.2f",
			b.Final, e.decision.MediumPriorityThreshold))

	case rec.Importance == ImportanceHigh:
		d = Decision{Folder: FolderImportant, Flag: true, Rule: "high-importance"}
		trace = append(trace, "sender marked the message high importance")

	case cls.HasActionItems():
		d = Decision{Folder: FolderActionRequired, CreateTask: true, Rule: "action-required"}
		trace = append(trace, fmt.Sprintf("action item detected: %q", cls.ActionItems[0]))

	default:
		d = e.routeByCategory(b, cls, &trace)
	}

	d.Reasoning = trace
	return d
}

// routeByCategory is the final rule: file by classified category, archiving
// low-priority categories whose score falls under the archive threshold.
func (e *DecisionEngine) routeByCategory(b ScoreBreakdown, cls *Classification, trace *[]string) Decision {
	cat := CategoryGeneral
	if cls != nil && cls.Category != "" {
		cat = cls.Category
	}
	if cat == CategoryGeneral {
		*trace = append(*trace, "no routing rule matched; message stays in the inbox")
		return Decision{Rule: "no-action"}
	}

	if lowPriorityCategories[cat] && b.Final < e.decision.ArchiveThreshold {
		*trace = append(*trace, fmt.Sprintf("low-priority %s scoring %.3f under archive threshold %.2f",
			cat, b.Final, e.decision.ArchiveThreshold))
		return Decision{Folder: FolderArchive + "/" + categoryFolder(cat), Rule: "archive-category"}
	}

	folder := categoryFolder(cat)
	if cat == CategoryPersonal || cat == CategoryProfessional {
		if sub := utils.SanitizeFolderName(cls.SuggestedFolder); sub != "" {
			folder += "/" + sub
		}
	}
	*trace = append(*trace, fmt.Sprintf("routed by category %s", cat))
	return Decision{Folder: folder, Rule: "category"}
}

func categoryFolder(cat Category) string {
	s := string(cat)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
