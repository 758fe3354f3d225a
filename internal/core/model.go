package core

import (
	"strings"
	"time"
)

// Category is the coarse content bucket assigned by a classifier.
type Category string

const (
	CategoryPersonal      Category = "personal"
	CategoryProfessional  Category = "professional"
	CategoryTransactional Category = "transactional"
	CategoryNewsletter    Category = "newsletter"
	CategoryPromotional   Category = "promotional"
	CategorySpam          Category = "spam"
	CategoryGeneral       Category = "general"
)

// Urgency is the classifier's urgency signal for a message.
type Urgency string

const (
	UrgencyUrgent Urgency = "urgent"
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

// Importance mirrors the mail store's importance marker.
type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceNormal Importance = "normal"
	ImportanceHigh   Importance = "high"
)

// Identity is the canonical representation of one correspondent across
// display-name and address variants. Identities are created on first
// observation and only ever merged, never deleted.
type Identity struct {
	Key       string   // lower-cased primary address, or folded display name when none resolved
	Address   string   // primary SMTP address, empty while unresolved
	Aliases   []string // observed display names
	Variants  []string // observed address variants, including directory proxy forms
	Automated bool     // sender matches an automated pattern (noreply, notification, ...)
	Ambiguous bool     // created without a resolvable address
}

// AddAlias records a display-name variant if it is new.
func (id *Identity) AddAlias(alias string) {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return
	}
	for _, a := range id.Aliases {
		if strings.EqualFold(a, alias) {
			return
		}
	}
	id.Aliases = append(id.Aliases, alias)
}

// AddVariant records an address variant if it is new.
func (id *Identity) AddVariant(variant string) {
	variant = strings.ToLower(strings.TrimSpace(variant))
	if variant == "" {
		return
	}
	for _, v := range id.Variants {
		if v == variant {
			return
		}
	}
	id.Variants = append(id.Variants, variant)
}

// Domain returns the address domain, or "" when no address is known.
func (id *Identity) Domain() string {
	if i := strings.LastIndex(id.Address, "@"); i >= 0 {
		return id.Address[i+1:]
	}
	return ""
}

// BehaviorProfile aggregates the interaction history for one identity.
// Counts only grow within an analysis run; a correspondent with no history
// yields an all-zero profile rather than a missing one.
type BehaviorProfile struct {
	Key          string
	SentTo       int // messages the user sent to this identity
	ReceivedFrom int // messages received from this identity
	ReplyCount   int
	Initiations  int // sent with no prior inbound inside the reply window

	Latencies    []time.Duration // reply latencies, oldest first, never negative
	ReplyLengths []int           // body lengths of the user's replies

	ReadKept    int
	ReadDeleted int
	NeverOpened int
	Ignored     int // unread across enough observation cycles to count as ignored

	LastSeen time.Time
}

// TotalInteractions is the combined sent+received sample size.
func (p *BehaviorProfile) TotalInteractions() int {
	return p.SentTo + p.ReceivedFrom
}

// AvgLatency returns the mean reply latency, or zero with ok=false when the
// profile holds no reply samples.
func (p *BehaviorProfile) AvgLatency() (time.Duration, bool) {
	if len(p.Latencies) == 0 {
		return 0, false
	}
	var total time.Duration
	for _, l := range p.Latencies {
		total += l
	}
	return total / time.Duration(len(p.Latencies)), true
}

// AvgReplyLength returns the mean reply body length in characters.
func (p *BehaviorProfile) AvgReplyLength() float64 {
	if len(p.ReplyLengths) == 0 {
		return 0
	}
	total := 0
	for _, n := range p.ReplyLengths {
		total += n
	}
	return float64(total) / float64(len(p.ReplyLengths))
}

// ReadKeptRatio is the share of tracked inbox messages the user read and kept.
func (p *BehaviorProfile) ReadKeptRatio() float64 {
	tracked := p.ReadKept + p.ReadDeleted + p.NeverOpened + p.Ignored
	if tracked == 0 {
		return 0
	}
	return float64(p.ReadKept) / float64(tracked)
}

// SenderScoreRecord is the per-identity importance estimate derived from a
// BehaviorProfile. Sub-scores below the sample threshold are replaced by the
// neutral default instead of being extrapolated.
type SenderScoreRecord struct {
	Key          string
	Score        float64
	ReplyPattern float64
	Initiation   float64
	ReadKept     float64
	SampleSize   int
	Neutral      bool // reply pattern fell back to the neutral constant
}

// Recipient is one To/CC entry with its resolved identity key.
type Recipient struct {
	Name    string
	Address string
	Key     string
}

// MessageRecord is an immutable snapshot of one message under evaluation.
// ObservedAt is the reference clock for all age and due-date math so that
// scoring the same snapshot twice yields the same result.
type MessageRecord struct {
	ID       string // stable message id (Message-ID header when available)
	StoreRef string // connector-internal handle for move/flag operations

	Subject    string
	Body       string
	SenderName string
	SenderAddr string
	SenderKey  string // resolved identity key, filled in during evaluation

	To []Recipient
	CC []Recipient

	Received   time.Time
	ObservedAt time.Time

	Read       bool
	Flagged    bool
	Importance Importance
	DueDate    time.Time // zero when no due date is set
	Deleted    bool
	FolderPath string

	InReplyTo  string
	References []string

	TimesSeenUnread int

	Classification *Classification
}

// Age is the message age at observation time.
func (m *MessageRecord) Age() time.Duration {
	return m.ObservedAt.Sub(m.Received)
}

// InThread reports whether the message is part of a conversation.
func (m *MessageRecord) InThread() bool {
	return m.InReplyTo != "" || len(m.References) > 0
}

// HasDueDate reports whether a due date is set.
func (m *MessageRecord) HasDueDate() bool {
	return !m.DueDate.IsZero()
}

// EmailTrackingEntry records how often a message was observed unread across
// runs. TimesSeenUnread only ever grows; a read observation updates the read
// state without touching the counter.
type EmailTrackingEntry struct {
	MessageID       string
	LastSeenRead    bool
	TimesSeenUnread int
	FirstSeen       time.Time
	LastSeen        time.Time
}

// Classification is the fixed-shape content classifier result. Provider
// output that does not conform is converted to the unavailable value rather
// than scraped field by field.
type Classification struct {
	Category        Category
	Topics          []string
	ActionItems     []string
	Urgency         Urgency
	Sentiment       string
	Entities        []string
	SuggestedFolder string
	Source          string // classifier that produced the result
	Available       bool   // false when every classifier path failed
}

// HasActionItems reports whether the classifier extracted any action items.
func (c *Classification) HasActionItems() bool {
	return c != nil && len(c.ActionItems) > 0
}

var validCategories = map[Category]struct{}{
	CategoryPersonal:      {},
	CategoryProfessional:  {},
	CategoryTransactional: {},
	CategoryNewsletter:    {},
	CategoryPromotional:   {},
	CategorySpam:          {},
	CategoryGeneral:       {},
}

var validUrgencies = map[Urgency]struct{}{
	UrgencyUrgent: {},
	UrgencyHigh:   {},
	UrgencyMedium: {},
	UrgencyLow:    {},
}

const (
	maxClassificationTopics      = 5
	maxClassificationActionItems = 5
)

// Normalize coerces model output into the fixed classification shape:
// unknown categories and urgencies fall back to their defaults, the
// sentiment defaults to neutral, and both lists are trimmed and capped.
func (c *Classification) Normalize() {
	c.Category = Category(strings.ToLower(strings.TrimSpace(string(c.Category))))
	if _, ok := validCategories[c.Category]; !ok {
		c.Category = CategoryGeneral
	}
	c.Urgency = Urgency(strings.ToLower(strings.TrimSpace(string(c.Urgency))))
	if _, ok := validUrgencies[c.Urgency]; !ok {
		c.Urgency = UrgencyMedium
	}
	if strings.TrimSpace(c.Sentiment) == "" {
		c.Sentiment = "neutral"
	}
	c.Topics = trimStrings(c.Topics, maxClassificationTopics)
	c.ActionItems = trimStrings(c.ActionItems, maxClassificationActionItems)
	c.Entities = trimStrings(c.Entities, maxClassificationTopics)
	c.SuggestedFolder = strings.TrimSpace(c.SuggestedFolder)
}

func trimStrings(in []string, limit int) []string {
	out := in[:0]
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) >= limit {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// UnavailableClassification is the documented fallback used when no
// classifier produced a usable result.
func UnavailableClassification() *Classification {
	return &Classification{
		Category:  CategoryGeneral,
		Urgency:   UrgencyMedium,
		Sentiment: "neutral",
		Source:    "unavailable",
		Available: false,
	}
}

// CacheEntry is one cached classification keyed by content hash.
type CacheEntry struct {
	Key            string
	Classification *Classification
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// Decision is the organization action for one message, together with the
// rule that fired and a human-readable reasoning trace.
type Decision struct {
	Folder     string
	Flag       bool
	CreateTask bool
	Rule       string
	Reasoning  []string
}

// ScoreBreakdown carries the per-component scores behind one final score.
type ScoreBreakdown struct {
	Sender    float64
	Topic     float64
	Temporal  float64
	State     float64
	Recipient float64
	Final     float64

	SenderNeutral   bool // sender score came from the neutral or domain fallback
	SenderAmbiguous bool // sender identity was created without a resolvable address
}

// Evaluation bundles everything the organizer needs to act on one message.
type Evaluation struct {
	Record       MessageRecord
	Breakdown    ScoreBreakdown
	Decision     Decision
	ProcessingID string
	EvaluatedAt  time.Time
}

// AnalysisSnapshot is the read-only output of one Analyze run. It is shared
// by concurrent evaluators and must not be mutated after creation.
type AnalysisSnapshot struct {
	RunID        string
	GeneratedAt  time.Time
	Identities   map[string]*Identity
	Profiles     map[string]*BehaviorProfile
	SenderScores map[string]*SenderScoreRecord
	Tracking     map[string]*EmailTrackingEntry
}

// UnreadCountFor returns the persisted times-seen-unread counter for a
// message, falling back to the record's own counter when the snapshot has
// none or is behind it.
func (s *AnalysisSnapshot) UnreadCountFor(messageID string, recorded int) int {
	if s == nil || messageID == "" {
		return recorded
	}
	if entry, ok := s.Tracking[messageID]; ok && entry != nil && entry.TimesSeenUnread > recorded {
		return entry.TimesSeenUnread
	}
	return recorded
}

// SenderScoreFor resolves a sender score from the snapshot. Unknown senders
// fall back to the average score of known senders at the same domain, and
// finally to the neutral default.
func (s *AnalysisSnapshot) SenderScoreFor(key string, neutral float64) (score float64, known bool) {
	if s == nil {
		return neutral, false
	}
	if rec, ok := s.SenderScores[key]; ok {
		return rec.Score, true
	}
	if i := strings.LastIndex(key, "@"); i >= 0 {
		domain := key[i:]
		var sum float64
		var n int
		for k, rec := range s.SenderScores {
			if strings.HasSuffix(k, domain) {
				sum += rec.Score
				n++
			}
		}
		if n > 0 {
			return sum / float64(n), false
		}
	}
	return neutral, false
}
