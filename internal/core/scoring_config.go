package core

import (
	"fmt"
	"time"
)

// Weights are the composite fusion weights for the five score components.
// They need not sum to 1; the composite scorer normalizes by their sum.
type Weights struct {
	Sender    float64
	Topic     float64
	Temporal  float64
	State     float64
	Recipient float64
}

// Sum returns the total configured weight.
func (w Weights) Sum() float64 {
	return w.Sender + w.Topic + w.Temporal + w.State + w.Recipient
}

// SenderModel holds the sender-scorer knobs.
type SenderModel struct {
	ReplyTimeWeight   float64 // share of the reply pattern from latency
	ReplyRateWeight   float64 // share from reply rate
	ReplyLengthWeight float64 // share from reply length

	ReplyPatternFactor float64
	InitiationFactor   float64
	ReadKeptFactor     float64

	ReplyLengthSaturation float64 // chars at which the length sub-score saturates
	InitiationSaturation  float64 // initiations at which that sub-score saturates

	MinEmailsForPattern int     // below this, the reply pattern is neutral
	NeutralScore        float64 // documented neutral default
	AutomatedCeiling    float64 // automated senders never score above this
	PinnedFloor         float64 // pinned senders never score below this
}

// StateModel holds the message-state bonuses and penalties.
type StateModel struct {
	Baseline           float64
	UnreadPenalty      float64
	IgnorePenalty      float64 // per observed-unread cycle beyond the first
	IgnorePenaltyCap   float64
	ReadKeptBonus      float64
	FlaggedBonus       float64
	DueTodayBonus      float64
	DueSoonBonus       float64
	DueSoonDays        int
	HighImportanceBonus float64
	OffHoursBonus      float64
	BusinessStartHour  int
	BusinessEndHour    int
}

// RecipientModel holds the recipient-scorer knobs. The baseline is zero; the
// component is a small nudge either way.
type RecipientModel struct {
	ToMeBonus              float64
	DirectToMeBonus        float64
	DirectMaxRecipients    int
	ManyRecipientsPenalty  float64
	ManyRecipientsThreshold int
	CCMePenalty            float64
}

// DecisionModel holds the decision-engine thresholds.
type DecisionModel struct {
	HighPriorityThreshold   float64 // inclusive
	MediumPriorityThreshold float64
	ArchiveThreshold        float64 // low-priority categories below this are archived
	TaskReminderDays        int
}

// AnalysisModel bounds the analysis pass.
type AnalysisModel struct {
	MaxEmails    int
	WindowDays   int           // recency window for latency statistics
	ReplyWindow  time.Duration // max gap between inbound and reply
	IgnoredChecks int          // unread observations before a message counts as ignored
}

// NormalizerModel configures contact normalization. The strategy name is
// resolved by the factory; the core only needs the acceptance threshold.
type NormalizerModel struct {
	Strategy            string
	SimilarityThreshold float64
}

// ScoringConfig is the full deterministic-scoring configuration consumed by
// the engine. It is plain data so the core stays independent of any
// configuration library.
type ScoringConfig struct {
	Weights    Weights
	Sender     SenderModel
	State      StateModel
	Recipient  RecipientModel
	Decision   DecisionModel
	Analysis   AnalysisModel
	Normalizer NormalizerModel

	// CategoryPriorities maps classifier categories to topic scores.
	CategoryPriorities map[Category]float64
}

// DefaultScoringConfig returns the stock configuration.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Weights: Weights{
			Sender:    0.4,
			Topic:     0.25,
			Temporal:  0.15,
			State:     0.1,
			Recipient: 0.1,
		},
		Sender: SenderModel{
			ReplyTimeWeight:       0.4,
			ReplyRateWeight:       0.4,
			ReplyLengthWeight:     0.2,
			ReplyPatternFactor:    1.0,
			InitiationFactor:      0.5,
			ReadKeptFactor:        0.3,
			ReplyLengthSaturation: 500,
			InitiationSaturation:  10,
			MinEmailsForPattern:   5,
			NeutralScore:          0.5,
			AutomatedCeiling:      0.3,
			PinnedFloor:           0.9,
		},
		State: StateModel{
			Baseline:            0.5,
			UnreadPenalty:       0.2,
			IgnorePenalty:       0.15,
			IgnorePenaltyCap:    0.4,
			ReadKeptBonus:       0.3,
			FlaggedBonus:        0.15,
			DueTodayBonus:       0.25,
			DueSoonBonus:        0.15,
			DueSoonDays:         2,
			HighImportanceBonus: 0.2,
			OffHoursBonus:       0.05,
			BusinessStartHour:   8,
			BusinessEndHour:     18,
		},
		Recipient: RecipientModel{
			ToMeBonus:               0.15,
			DirectToMeBonus:         0.1,
			DirectMaxRecipients:     3,
			ManyRecipientsPenalty:   0.1,
			ManyRecipientsThreshold: 10,
			CCMePenalty:             0.05,
		},
		Decision: DecisionModel{
			HighPriorityThreshold:   0.8,
			MediumPriorityThreshold: 0.5,
			ArchiveThreshold:        0.3,
			TaskReminderDays:        2,
		},
		Analysis: AnalysisModel{
			MaxEmails:     5000,
			WindowDays:    90,
			ReplyWindow:   7 * 24 * time.Hour,
			IgnoredChecks: 3,
		},
		Normalizer: NormalizerModel{
			Strategy:            "token-set",
			SimilarityThreshold: 0.72,
		},
		CategoryPriorities: map[Category]float64{
			CategoryPersonal:      0.8,
			CategoryProfessional:  0.7,
			CategoryTransactional: 0.6,
			CategoryGeneral:       0.5,
			CategoryNewsletter:    0.3,
			CategoryPromotional:   0.2,
			CategorySpam:          0.1,
		},
	}
}

// Validate rejects out-of-range values before any run starts. The returned
// error names the offending configuration key.
func (c ScoringConfig) Validate() error {
	checks := []struct {
		key string
		ok  bool
		msg string
	}{
		{"scoring.weights.sender", c.Weights.Sender >= 0, "must be >= 0"},
		{"scoring.weights.topic", c.Weights.Topic >= 0, "must be >= 0"},
		{"scoring.weights.temporal", c.Weights.Temporal >= 0, "must be >= 0"},
		{"scoring.weights.message_state", c.Weights.State >= 0, "must be >= 0"},
		{"scoring.weights.recipient", c.Weights.Recipient >= 0, "must be >= 0"},
		{"scoring.weights", c.Weights.Sum() > 0, "must sum to a positive value"},

		{"scoring.sender.reply_time_weight", c.Sender.ReplyTimeWeight >= 0, "must be >= 0"},
		{"scoring.sender.reply_rate_weight", c.Sender.ReplyRateWeight >= 0, "must be >= 0"},
		{"scoring.sender.reply_length_weight", c.Sender.ReplyLengthWeight >= 0, "must be >= 0"},
		{"scoring.sender.reply_length_saturation", c.Sender.ReplyLengthSaturation > 0, "must be > 0"},
		{"scoring.sender.initiation_saturation", c.Sender.InitiationSaturation > 0, "must be > 0"},
		{"scoring.sender.min_emails_for_pattern", c.Sender.MinEmailsForPattern >= 1, "must be >= 1"},
		{"scoring.sender.neutral_score", c.Sender.NeutralScore >= 0 && c.Sender.NeutralScore <= 1, "must be in [0,1]"},
		{"scoring.sender.automated_ceiling", inUnit(c.Sender.AutomatedCeiling), "must be in [0,1]"},
		{"scoring.sender.pinned_floor", inUnit(c.Sender.PinnedFloor), "must be in [0,1]"},

		{"scoring.state.unread_penalty", inUnit(c.State.UnreadPenalty), "must be in [0,1]"},
		{"scoring.state.ignore_penalty", inUnit(c.State.IgnorePenalty), "must be in [0,1]"},
		{"scoring.state.ignore_penalty_cap", inUnit(c.State.IgnorePenaltyCap), "must be in [0,1]"},
		{"scoring.state.read_kept_bonus", inUnit(c.State.ReadKeptBonus), "must be in [0,1]"},
		{"scoring.state.flagged_bonus", inUnit(c.State.FlaggedBonus), "must be in [0,1]"},
		{"scoring.state.due_today_bonus", inUnit(c.State.DueTodayBonus), "must be in [0,1]"},
		{"scoring.state.due_soon_bonus", inUnit(c.State.DueSoonBonus), "must be in [0,1]"},
		{"scoring.state.high_importance_bonus", inUnit(c.State.HighImportanceBonus), "must be in [0,1]"},
		{"scoring.state.off_hours_bonus", inUnit(c.State.OffHoursBonus), "must be in [0,1]"},
		{"scoring.state.business_start_hour", c.State.BusinessStartHour >= 0 && c.State.BusinessStartHour < 24, "must be in [0,24)"},
		{"scoring.state.business_end_hour", c.State.BusinessEndHour > c.State.BusinessStartHour && c.State.BusinessEndHour <= 24, "must be after business_start_hour and <= 24"},

		{"scoring.recipient.to_me_bonus", inUnit(c.Recipient.ToMeBonus), "must be in [0,1]"},
		{"scoring.recipient.direct_to_me_bonus", inUnit(c.Recipient.DirectToMeBonus), "must be in [0,1]"},
		{"scoring.recipient.many_recipients_penalty", inUnit(c.Recipient.ManyRecipientsPenalty), "must be in [0,1]"},
		{"scoring.recipient.cc_me_penalty", inUnit(c.Recipient.CCMePenalty), "must be in [0,1]"},

		{"decision.high_priority_threshold", inUnit(c.Decision.HighPriorityThreshold), "must be in [0,1]"},
		{"decision.medium_priority_threshold", inUnit(c.Decision.MediumPriorityThreshold), "must be in [0,1]"},
		{"decision.thresholds", c.Decision.HighPriorityThreshold >= c.Decision.MediumPriorityThreshold, "high_priority_threshold must be >= medium_priority_threshold"},
		{"decision.archive_threshold", inUnit(c.Decision.ArchiveThreshold), "must be in [0,1]"},

		{"analysis.max_emails", c.Analysis.MaxEmails > 0, "must be > 0"},
		{"analysis.window_days", c.Analysis.WindowDays > 0, "must be > 0"},
		{"analysis.reply_window", c.Analysis.ReplyWindow > 0, "must be > 0"},
		{"analysis.ignored_checks", c.Analysis.IgnoredChecks >= 1, "must be >= 1"},

		{"normalizer.similarity_threshold", c.Normalizer.SimilarityThreshold > 0 && c.Normalizer.SimilarityThreshold <= 1, "must be in (0,1]"},
	}

	for _, ch := range checks {
		if !ch.ok {
			return fmt.Errorf("%s: %s", ch.key, ch.msg)
		}
	}
	for cat, prio := range c.CategoryPriorities {
		if !inUnit(prio) {
			return fmt.Errorf("scoring.category_priorities.%s: must be in [0,1]", cat)
		}
	}
	return nil
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
