package core

import (
	"github.com/gnuru1/InboxWrangler/internal/whitelist"
)

// SenderScorer turns behavior profiles into per-identity importance
// estimates. Scoring is deterministic: the same profile and config always
// produce the same record, with no wall-clock input.
type SenderScorer struct {
	cfg    SenderModel
	pinned *whitelist.Checker
}

// NewSenderScorer creates a sender scorer. pinned may be nil.
func NewSenderScorer(cfg SenderModel, pinned *whitelist.Checker) *SenderScorer {
	return &SenderScorer{cfg: cfg, pinned: pinned}
}

// Score derives the sender score record for one profile. A profile with no
// interactions at all returns the neutral default — not zero, not an error.
// The identity is consulted for the automated-sender ceiling and may be nil.
func (s *SenderScorer) Score(p *BehaviorProfile, id *Identity) *SenderScoreRecord {
	rec := &SenderScoreRecord{
		Key:        p.Key,
		SampleSize: p.TotalInteractions(),
	}

	if rec.SampleSize == 0 {
		rec.Score = s.cfg.NeutralScore
		rec.ReplyPattern = s.cfg.NeutralScore
		rec.Neutral = true
	} else {
		rec.ReplyPattern, rec.Neutral = s.replyPattern(p)
		rec.Initiation = clamp01(float64(p.Initiations) / s.cfg.InitiationSaturation)
		rec.ReadKept = p.ReadKeptRatio()
		rec.Score = clamp01(s.cfg.ReplyPatternFactor*rec.ReplyPattern +
			s.cfg.InitiationFactor*rec.Initiation +
			s.cfg.ReadKeptFactor*rec.ReadKept)
	}

	if id != nil && id.Automated && rec.Score > s.cfg.AutomatedCeiling {
		rec.Score = s.cfg.AutomatedCeiling
	}
	if s.pinned.Contains(p.Key) && rec.Score < s.cfg.PinnedFloor {
		rec.Score = s.cfg.PinnedFloor
	}
	return rec
}

// ScoreAll scores every profile against its identity.
func (s *SenderScorer) ScoreAll(profiles map[string]*BehaviorProfile, identities map[string]*Identity) map[string]*SenderScoreRecord {
	out := make(map[string]*SenderScoreRecord, len(profiles))
	for key, p := range profiles {
		out[key] = s.Score(p, identities[key])
	}
	return out
}

// replyPattern blends latency, rate and length sub-scores. Below the sample
// threshold on both directions it returns the neutral constant instead of
// extrapolating from near-zero counts.
func (s *SenderScorer) replyPattern(p *BehaviorProfile) (float64, bool) {
	if p.ReceivedFrom < s.cfg.MinEmailsForPattern && p.SentTo < s.cfg.MinEmailsForPattern {
		return s.cfg.NeutralScore, true
	}

	timeScore := 0.0
	if avg, ok := p.AvgLatency(); ok {
		// Saturates toward 1 as latency approaches zero; a one-day average
		// reply time scores 0.5.
		timeScore = 1 / (1 + avg.Hours()/24)
	}

	rateScore := 0.0
	if p.ReceivedFrom > 0 {
		rateScore = clamp01(float64(p.ReplyCount) / float64(p.ReceivedFrom))
	}

	lenScore := clamp01(p.AvgReplyLength() / s.cfg.ReplyLengthSaturation)

	return clamp01(s.cfg.ReplyTimeWeight*timeScore +
		s.cfg.ReplyRateWeight*rateScore +
		s.cfg.ReplyLengthWeight*lenScore), false
}
