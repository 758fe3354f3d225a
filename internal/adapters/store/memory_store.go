package store

import (
	"context"
	"errors"
	"sync"

	"github.com/gnuru1/InboxWrangler/internal/core"
)

// ErrNotFound is returned when a state entry is not found
var ErrNotFound = errors.New("state entry not found")

// MemoryStore is an in-memory implementation of the StateStore interface,
// used by tests and one-shot runs that do not need persistence.
type MemoryStore struct {
	mu           sync.RWMutex
	identities   map[string]*core.Identity
	profiles     map[string]*core.BehaviorProfile
	senderScores map[string]*core.SenderScoreRecord
	tracking     map[string]*core.EmailTrackingEntry
}

// NewMemoryStore creates a new in-memory state store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		identities:   make(map[string]*core.Identity),
		profiles:     make(map[string]*core.BehaviorProfile),
		senderScores: make(map[string]*core.SenderScoreRecord),
		tracking:     make(map[string]*core.EmailTrackingEntry),
	}
}

// PutIdentities replaces the stored identity map
func (s *MemoryStore) PutIdentities(_ context.Context, ids map[string]*core.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities = cloneMap(ids)
	return nil
}

// GetIdentities returns the stored identity map
func (s *MemoryStore) GetIdentities(_ context.Context) (map[string]*core.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMap(s.identities), nil
}

// PutProfiles replaces the stored behavior profiles
func (s *MemoryStore) PutProfiles(_ context.Context, profiles map[string]*core.BehaviorProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = cloneMap(profiles)
	return nil
}

// GetProfiles returns the stored behavior profiles
func (s *MemoryStore) GetProfiles(_ context.Context) (map[string]*core.BehaviorProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMap(s.profiles), nil
}

// PutSenderScores replaces the stored sender scores
func (s *MemoryStore) PutSenderScores(_ context.Context, scores map[string]*core.SenderScoreRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.senderScores = cloneMap(scores)
	return nil
}

// GetSenderScores returns the stored sender scores
func (s *MemoryStore) GetSenderScores(_ context.Context) (map[string]*core.SenderScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMap(s.senderScores), nil
}

// GetTracking returns the tracking entry for one message
func (s *MemoryStore) GetTracking(_ context.Context, messageID string) (*core.EmailTrackingEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.tracking[messageID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *entry
	return &cp, nil
}

// PutTracking stores the tracking entry for one message
func (s *MemoryStore) PutTracking(_ context.Context, entry *core.EmailTrackingEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	s.tracking[entry.MessageID] = &cp
	return nil
}

// AllTracking returns every tracking entry
func (s *MemoryStore) AllTracking(_ context.Context) (map[string]*core.EmailTrackingEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMap(s.tracking), nil
}

func cloneMap[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
