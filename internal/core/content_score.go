package core

import "math"

// urgencyScores maps the classifier's urgency signal to a temporal weight.
var urgencyScores = map[Urgency]float64{
	UrgencyUrgent: 0.95,
	UrgencyHigh:   0.9,
	UrgencyMedium: 0.6,
	UrgencyLow:    0.3,
}

// TopicScore maps the classified category to its configured priority.
// Unknown or missing classifications score neutral.
func TopicScore(cls *Classification, priorities map[Category]float64) float64 {
	if cls == nil {
		return 0.5
	}
	if p, ok := priorities[cls.Category]; ok {
		return p
	}
	return 0.5
}

// TemporalScore blends message recency with the classifier's urgency signal.
// Age is measured against the record's observation time, never the wall
// clock, so re-scoring an unchanged snapshot is stable.
func TemporalScore(rec MessageRecord, cls *Classification) float64 {
	recency := recencyScore(rec)

	urgency := urgencyScores[UrgencyMedium]
	if cls != nil {
		if v, ok := urgencyScores[cls.Urgency]; ok {
			urgency = v
		}
		if cls.HasActionItems() {
			urgency = math.Min(1, urgency+0.1)
		}
	}
	return clamp01(0.4*recency + 0.6*urgency)
}

func recencyScore(rec MessageRecord) float64 {
	ageDays := rec.Age().Hours() / 24
	var s float64
	switch {
	case ageDays <= 1:
		s = 0.95
	case ageDays <= 3:
		s = 0.85
	case ageDays <= 7:
		s = 0.75
	case ageDays <= 14:
		s = 0.65
	case ageDays <= 30:
		s = 0.5
	default:
		s = math.Max(0.1, 0.5-ageDays/365)
	}
	if rec.InThread() {
		s += 0.05
	}
	return clamp01(s)
}

// Compose fuses the five component scores into the final priority score.
// The weighted sum is normalized by the sum of the configured weights, so
// the output stays in [0,1] even when the weights do not sum to 1.
func Compose(b ScoreBreakdown, w Weights) float64 {
	total := w.Sum()
	if total <= 0 {
		return 0
	}
	sum := w.Sender*b.Sender +
		w.Topic*b.Topic +
		w.Temporal*b.Temporal +
		w.State*b.State +
		w.Recipient*b.Recipient
	return clamp01(sum / total)
}
