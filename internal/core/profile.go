package core

import (
	"sort"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// replySample is one matched reply with its recency-sensitive statistics.
type replySample struct {
	sentAt  time.Time
	latency time.Duration
	length  int
}

// ProfileBuilder turns normalized sent/inbox history into per-identity
// behavior profiles. It is the analysis-phase writer; profiles are read-only
// once built.
type ProfileBuilder struct {
	normalizer *Normalizer
	cfg        ScoringConfig
	logger     *zap.Logger
}

// NewProfileBuilder creates a profile builder over a finalized normalizer.
func NewProfileBuilder(normalizer *Normalizer, cfg ScoringConfig, logger *zap.Logger) *ProfileBuilder {
	return &ProfileBuilder{
		normalizer: normalizer,
		cfg:        cfg,
		logger:     logger,
	}
}

// Build produces one BehaviorProfile per identity. Every finalized identity
// gets a profile — zero samples yield an all-zero profile, never a missing
// one — so downstream scoring can tell "no data" from "unknown sender".
func (b *ProfileBuilder) Build(sent, inbox []MessageRecord, tracking map[string]*EmailTrackingEntry) map[string]*BehaviorProfile {
	profiles := make(map[string]*BehaviorProfile)
	ensure := func(key string) *BehaviorProfile {
		if p, ok := profiles[key]; ok {
			return p
		}
		p := &BehaviorProfile{Key: key}
		profiles[key] = p
		return p
	}

	sent = sortedByReceived(sent)
	inbox = sortedByReceived(inbox)
	refTime := latestObservation(sent, inbox)
	windowStart := refTime.AddDate(0, 0, -b.cfg.Analysis.WindowDays)

	// Inbound arrival times per identity, ascending, for reply matching.
	inboundAt := make(map[string][]time.Time)
	for _, msg := range inbox {
		key, _ := b.normalizer.Resolve(msg.SenderName, msg.SenderAddr)
		if key == "" {
			continue
		}
		inboundAt[key] = append(inboundAt[key], msg.Received)
	}

	replies := make(map[string][]replySample)
	for _, msg := range sent {
		length := utf8.RuneCountInString(msg.Body)
		for _, rcpt := range msg.To {
			key, _ := b.normalizer.Resolve(rcpt.Name, rcpt.Address)
			if key == "" {
				continue
			}
			p := ensure(key)
			p.SentTo++
			if msg.Received.After(p.LastSeen) {
				p.LastSeen = msg.Received
			}

			prior, ok := latestPrior(inboundAt[key], msg.Received, b.cfg.Analysis.ReplyWindow)
			if !ok {
				p.Initiations++
				continue
			}
			p.ReplyCount++
			replies[key] = append(replies[key], replySample{
				sentAt:  msg.Received,
				latency: msg.Received.Sub(prior),
				length:  length,
			})
		}
	}

	for _, msg := range inbox {
		key, _ := b.normalizer.Resolve(msg.SenderName, msg.SenderAddr)
		if key == "" {
			continue
		}
		p := ensure(key)
		p.ReceivedFrom++
		if msg.Received.After(p.LastSeen) {
			p.LastSeen = msg.Received
		}

		timesUnread := msg.TimesSeenUnread
		if entry, ok := tracking[msg.ID]; ok && entry.TimesSeenUnread > timesUnread {
			timesUnread = entry.TimesSeenUnread
		}
		switch {
		case msg.Deleted && msg.Read:
			p.ReadDeleted++
		case msg.Deleted:
			p.NeverOpened++
		case msg.Read:
			p.ReadKept++
		case timesUnread >= b.cfg.Analysis.IgnoredChecks:
			p.Ignored++
		default:
			p.NeverOpened++
		}
	}

	// Latency and length sequences are recency-sensitive: keep the window
	// unless that leaves too few samples to be meaningful.
	for key, samples := range replies {
		p := profiles[key]
		recent := make([]replySample, 0, len(samples))
		for _, s := range samples {
			if !s.sentAt.Before(windowStart) {
				recent = append(recent, s)
			}
		}
		if len(recent) < b.cfg.Sender.MinEmailsForPattern {
			recent = samples
		}
		for _, s := range recent {
			if s.latency < 0 {
				continue
			}
			p.Latencies = append(p.Latencies, s.latency)
			p.ReplyLengths = append(p.ReplyLengths, s.length)
		}
	}

	// Identities seen only through ambiguous observations still get a
	// zero-valued profile.
	for key := range b.normalizer.Identities() {
		ensure(key)
	}

	if b.logger != nil {
		b.logger.Debug("Built behavior profiles",
			zap.Int("profiles", len(profiles)),
			zap.Int("sent_messages", len(sent)),
			zap.Int("inbox_messages", len(inbox)),
			zap.Time("window_start", windowStart))
	}
	return profiles
}

// latestPrior returns the most recent arrival at or before t within the
// reply window.
func latestPrior(arrivals []time.Time, t time.Time, window time.Duration) (time.Time, bool) {
	if len(arrivals) == 0 {
		return time.Time{}, false
	}
	// First index strictly after t; the candidate sits just before it.
	i := sort.Search(len(arrivals), func(i int) bool {
		return arrivals[i].After(t)
	})
	if i == 0 {
		return time.Time{}, false
	}
	prior := arrivals[i-1]
	if t.Sub(prior) > window {
		return time.Time{}, false
	}
	return prior, true
}

func sortedByReceived(records []MessageRecord) []MessageRecord {
	out := make([]MessageRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Received.Equal(out[j].Received) {
			return out[i].Received.Before(out[j].Received)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func latestObservation(sent, inbox []MessageRecord) time.Time {
	var ref time.Time
	for _, msg := range sent {
		if msg.ObservedAt.After(ref) {
			ref = msg.ObservedAt
		}
		if msg.Received.After(ref) {
			ref = msg.Received
		}
	}
	for _, msg := range inbox {
		if msg.ObservedAt.After(ref) {
			ref = msg.ObservedAt
		}
		if msg.Received.After(ref) {
			ref = msg.Received
		}
	}
	return ref
}
