package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gnuru1/InboxWrangler/internal/whitelist"
)

// OrganizerService is the behavioral scoring and decision engine. Analyze is
// the only state-mutating operation; scoring and deciding run against a
// read-only snapshot and may be called concurrently.
type OrganizerService struct {
	classifier Classifier
	fallback   Classifier
	cache      CacheRepository
	store      StateStore

	normalizer   *Normalizer
	senderScorer *SenderScorer
	engine       *DecisionEngine

	user   UserAddresses
	cfg    ScoringConfig
	logger *zap.Logger

	cacheEnabled    bool
	cacheTTL        time.Duration
	classifyTimeout time.Duration
}

// NewOrganizerService creates the engine. fallback should be the rule-based
// classifier; it may be the same instance as classifier when no remote
// provider is configured. cache may be nil.
func NewOrganizerService(
	classifier Classifier,
	fallback Classifier,
	cache CacheRepository,
	store StateStore,
	sim Similarity,
	pinned *whitelist.Checker,
	cfg ScoringConfig,
	userAddresses []string,
	cacheEnabled bool,
	cacheTTL time.Duration,
	classifyTimeout time.Duration,
	logger *zap.Logger,
) *OrganizerService {
	return &OrganizerService{
		classifier:      classifier,
		fallback:        fallback,
		cache:           cache,
		store:           store,
		normalizer:      NewNormalizer(sim, cfg.Normalizer.SimilarityThreshold),
		senderScorer:    NewSenderScorer(cfg.Sender, pinned),
		engine:          NewDecisionEngine(cfg),
		user:            NewUserAddresses(userAddresses...),
		cfg:             cfg,
		logger:          logger,
		cacheEnabled:    cacheEnabled,
		cacheTTL:        cacheTTL,
		classifyTimeout: classifyTimeout,
	}
}

// Analyze runs the analysis phase over sent and inbox history: update the
// tracking store, normalize correspondents, build behavior profiles, score
// senders, and persist everything. Returns the snapshot used by subsequent
// scoring runs.
func (s *OrganizerService) Analyze(ctx context.Context, sent, inbox []MessageRecord) (*AnalysisSnapshot, error) {
	sent = boundRecords(sent, s.cfg.Analysis.MaxEmails)
	inbox = boundRecords(inbox, s.cfg.Analysis.MaxEmails)

	inbox, tracking, err := s.updateTracking(ctx, inbox)
	if err != nil {
		return nil, err
	}

	for _, msg := range inbox {
		s.normalizer.Observe(msg.SenderName, msg.SenderAddr)
	}
	for _, msg := range sent {
		for _, r := range msg.To {
			s.normalizer.Observe(r.Name, r.Address)
		}
		for _, r := range msg.CC {
			s.normalizer.Observe(r.Name, r.Address)
		}
	}
	identities := s.normalizer.Finalize()

	builder := NewProfileBuilder(s.normalizer, s.cfg, s.logger)
	profiles := builder.Build(sent, inbox, tracking)
	scores := s.senderScorer.ScoreAll(profiles, identities)

	snap := &AnalysisSnapshot{
		RunID:        uuid.New().String(),
		GeneratedAt:  time.Now().UTC(),
		Identities:   identities,
		Profiles:     profiles,
		SenderScores: scores,
		Tracking:     tracking,
	}

	if err := s.store.PutIdentities(ctx, identities); err != nil {
		return nil, fmt.Errorf("persisting identities: %w", err)
	}
	if err := s.store.PutProfiles(ctx, profiles); err != nil {
		return nil, fmt.Errorf("persisting profiles: %w", err)
	}
	if err := s.store.PutSenderScores(ctx, scores); err != nil {
		return nil, fmt.Errorf("persisting sender scores: %w", err)
	}

	s.logger.Info("Analysis complete",
		zap.String("run_id", snap.RunID),
		zap.Int("identities", len(identities)),
		zap.Int("profiles", len(profiles)),
		zap.Int("sent_messages", len(sent)),
		zap.Int("inbox_messages", len(inbox)))
	return snap, nil
}

// LoadSnapshot rebuilds the most recently persisted snapshot. An empty
// store yields an empty snapshot, not an error; scoring then relies on the
// neutral defaults.
func (s *OrganizerService) LoadSnapshot(ctx context.Context) (*AnalysisSnapshot, error) {
	identities, err := s.store.GetIdentities(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading identities: %w", err)
	}
	profiles, err := s.store.GetProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading profiles: %w", err)
	}
	scores, err := s.store.GetSenderScores(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading sender scores: %w", err)
	}
	tracking, err := s.store.AllTracking(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading tracking entries: %w", err)
	}
	for _, id := range identities {
		s.normalizer.Observe("", id.Address)
		for _, alias := range id.Aliases {
			s.normalizer.Observe(alias, id.Address)
		}
	}
	s.normalizer.Finalize()
	return &AnalysisSnapshot{
		Identities:   identities,
		Profiles:     profiles,
		SenderScores: scores,
		Tracking:     tracking,
	}, nil
}

// ScoreMessage computes the final score and component breakdown for one
// record against a read-only snapshot. Deterministic: identical record,
// snapshot and config always produce the identical result.
func (s *OrganizerService) ScoreMessage(rec MessageRecord, snap *AnalysisSnapshot) (float64, ScoreBreakdown) {
	// Mail stores do not carry the cross-run unread counter; the snapshot's
	// tracking entries do.
	rec.TimesSeenUnread = snap.UnreadCountFor(rec.ID, rec.TimesSeenUnread)

	key := rec.SenderKey
	if key == "" {
		key, _ = s.normalizer.Resolve(rec.SenderName, rec.SenderAddr)
	}

	senderScore, known := 0.0, false
	if snap != nil {
		senderScore, known = snap.SenderScoreFor(key, s.cfg.Sender.NeutralScore)
	} else {
		senderScore = s.cfg.Sender.NeutralScore
	}

	b := ScoreBreakdown{
		Sender:        senderScore,
		Topic:         TopicScore(rec.Classification, s.cfg.CategoryPriorities),
		Temporal:      TemporalScore(rec, rec.Classification),
		State:         MessageStateScore(rec, s.cfg.State),
		Recipient:     RecipientScore(rec, s.user, s.cfg.Recipient),
		SenderNeutral: !known,
	}
	b.SenderAmbiguous = s.senderAmbiguous(key, snap)
	b.Final = Compose(b, s.cfg.Weights)
	return b.Final, b
}

// Decide applies the decision rules to an already-scored message.
func (s *OrganizerService) Decide(b ScoreBreakdown, cls *Classification, rec MessageRecord) Decision {
	return s.engine.Decide(b, cls, rec)
}

// EvaluateMessage classifies, scores and decides one message. The caller's
// record is never mutated; the enriched copy is returned in the Evaluation.
// Classification failures degrade to the rule-based path and never abort
// the evaluation.
func (s *OrganizerService) EvaluateMessage(ctx context.Context, rec MessageRecord, snap *AnalysisSnapshot) (*Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec.TimesSeenUnread = snap.UnreadCountFor(rec.ID, rec.TimesSeenUnread)
	if rec.SenderKey == "" {
		rec.SenderKey, _ = s.normalizer.Resolve(rec.SenderName, rec.SenderAddr)
	}
	if rec.Classification == nil {
		rec.Classification = s.classify(ctx, rec)
	}

	_, b := s.ScoreMessage(rec, snap)
	d := s.engine.Decide(b, rec.Classification, rec)

	return &Evaluation{
		Record:       rec,
		Breakdown:    b,
		Decision:     d,
		ProcessingID: uuid.New().String(),
		EvaluatedAt:  time.Now().UTC(),
	}, nil
}

// classify resolves a classification for one message: cache first, then the
// primary classifier under its timeout, then the rule-based fallback, and as
// a last resort the documented unavailable value.
func (s *OrganizerService) classify(ctx context.Context, rec MessageRecord) *Classification {
	key := contentHash(rec.Subject, rec.Body, rec.SenderAddr)

	if s.cacheEnabled && s.cache != nil {
		if entry, err := s.cache.Get(ctx, key); err == nil && entry.Classification != nil {
			s.logger.Debug("Classification cache hit", zap.String("key", key))
			cached := *entry.Classification
			cached.Source = "cache"
			return &cached
		}
	}

	cls := s.classifyWithFallback(ctx, rec)

	if s.cacheEnabled && s.cache != nil && cls.Available {
		now := time.Now()
		entry := &CacheEntry{
			Key:            key,
			Classification: cls,
			CreatedAt:      now,
			ExpiresAt:      now.Add(s.cacheTTL),
		}
		if err := s.cache.Set(ctx, entry); err != nil {
			s.logger.Warn("Failed to update classification cache", zap.Error(err))
		}
	}
	return cls
}

func (s *OrganizerService) classifyWithFallback(ctx context.Context, rec MessageRecord) *Classification {
	cctx, cancel := context.WithTimeout(ctx, s.classifyTimeout)
	defer cancel()

	cls, err := s.classifier.Classify(cctx, rec.Subject, rec.Body, rec.SenderAddr)
	if err == nil && cls != nil {
		return cls
	}
	s.logger.Warn("Primary classifier failed; using rule-based fallback",
		zap.String("classifier", s.classifier.Name()),
		zap.Error(err))

	if s.fallback != nil && s.fallback != s.classifier {
		cls, err = s.fallback.Classify(ctx, rec.Subject, rec.Body, rec.SenderAddr)
		if err == nil && cls != nil {
			return cls
		}
		s.logger.Error("Fallback classifier failed", zap.Error(err))
	}
	return UnavailableClassification()
}

// updateTracking folds the current inbox observations into the tracking
// store. The unread counter only ever grows; observing a message read
// records the state without decrementing anything.
func (s *OrganizerService) updateTracking(ctx context.Context, inbox []MessageRecord) ([]MessageRecord, map[string]*EmailTrackingEntry, error) {
	out := make([]MessageRecord, len(inbox))
	copy(out, inbox)
	tracking := make(map[string]*EmailTrackingEntry, len(inbox))

	for i := range out {
		msg := &out[i]
		if msg.ID == "" {
			continue
		}
		entry, err := s.store.GetTracking(ctx, msg.ID)
		if err != nil || entry == nil {
			entry = &EmailTrackingEntry{
				MessageID: msg.ID,
				FirstSeen: msg.ObservedAt,
			}
		}
		if msg.Read {
			entry.LastSeenRead = true
		} else {
			entry.LastSeenRead = false
			entry.TimesSeenUnread++
		}
		entry.LastSeen = msg.ObservedAt
		if err := s.store.PutTracking(ctx, entry); err != nil {
			return nil, nil, fmt.Errorf("persisting tracking for %s: %w", msg.ID, err)
		}
		tracking[msg.ID] = entry
		msg.TimesSeenUnread = entry.TimesSeenUnread
	}
	return out, tracking, nil
}

func (s *OrganizerService) senderAmbiguous(key string, snap *AnalysisSnapshot) bool {
	if snap != nil {
		if id, ok := snap.Identities[key]; ok {
			return id.Ambiguous
		}
	}
	// A key that is not an address means the sender resolved only by name.
	return key != "" && !strings.Contains(key, "@")
}

// ScoringConfig exposes the engine's configuration to collaborators that
// need thresholds for presentation (reports, CLIs).
func (s *OrganizerService) ScoringConfig() ScoringConfig {
	return s.cfg
}

func boundRecords(records []MessageRecord, limit int) []MessageRecord {
	if limit > 0 && len(records) > limit {
		return records[:limit]
	}
	return records
}

func contentHash(subject, body, sender string) string {
	h := sha256.Sum256([]byte(subject + "|" + body + "|" + sender))
	return hex.EncodeToString(h[:])
}
