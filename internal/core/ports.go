package core

import (
	"context"
	"time"
)

// Classifier defines the interface for content classification backends.
type Classifier interface {
	// Classify extracts category, topics, urgency and action items from one
	// message. Implementations must honor ctx deadlines; a failure should be
	// returned as an error so the caller can fall back, never as a panic.
	Classify(ctx context.Context, subject, body, sender string) (*Classification, error)

	// Name identifies the backend in logs and classification sources.
	Name() string
}

// CacheRepository defines the interface for caching classification results.
type CacheRepository interface {
	// Get retrieves a cached entry by content hash
	Get(ctx context.Context, key string) (*CacheEntry, error)

	// Set stores a cache entry
	Set(ctx context.Context, entry *CacheEntry) error

	// Delete removes a cache entry
	Delete(ctx context.Context, key string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// StateStore persists learned analysis state between runs. The engine treats
// it as an abstract key-value layer and is agnostic to the on-disk format.
type StateStore interface {
	PutIdentities(ctx context.Context, ids map[string]*Identity) error
	GetIdentities(ctx context.Context) (map[string]*Identity, error)

	PutProfiles(ctx context.Context, profiles map[string]*BehaviorProfile) error
	GetProfiles(ctx context.Context) (map[string]*BehaviorProfile, error)

	PutSenderScores(ctx context.Context, scores map[string]*SenderScoreRecord) error
	GetSenderScores(ctx context.Context) (map[string]*SenderScoreRecord, error)

	// GetTracking returns an error when no entry exists; callers treat any
	// error as "not yet tracked".
	GetTracking(ctx context.Context, messageID string) (*EmailTrackingEntry, error)
	PutTracking(ctx context.Context, entry *EmailTrackingEntry) error
	AllTracking(ctx context.Context) (map[string]*EmailTrackingEntry, error)
}

// MailStore supplies message snapshots and executes decisions. The scoring
// core never calls the mutation methods; only the organizer runner does.
type MailStore interface {
	// ListInbox returns up to limit inbox snapshots, newest first.
	ListInbox(ctx context.Context, limit int) ([]MessageRecord, error)

	// ListSent returns up to limit sent-item snapshots, newest first.
	ListSent(ctx context.Context, limit int) ([]MessageRecord, error)

	// Move files the referenced message under folder, creating it if needed.
	Move(ctx context.Context, storeRef, folder string) error

	// Flag marks the referenced message for follow-up.
	Flag(ctx context.Context, storeRef string) error

	// CreateTask creates a follow-up task for the message with a due time.
	CreateTask(ctx context.Context, rec MessageRecord, due time.Time) error
}

// Similarity scores how alike two strings are, in [0,1]. The normalizer's
// merge rules do not depend on which algorithm backs it.
type Similarity interface {
	Score(a, b string) float64
	Name() string
}
