package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gnuru1/InboxWrangler/internal/adapters/rules"
	"github.com/gnuru1/InboxWrangler/internal/adapters/store"
	"github.com/gnuru1/InboxWrangler/internal/core"
	"github.com/gnuru1/InboxWrangler/internal/similarity"
	"github.com/gnuru1/InboxWrangler/internal/whitelist"
)

var serviceBase = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

// failingClassifier always errors, standing in for an unreachable provider.
type failingClassifier struct{}

func (failingClassifier) Classify(context.Context, string, string, string) (*core.Classification, error) {
	return nil, errors.New("provider unreachable")
}
func (failingClassifier) Name() string { return "failing" }

// blockingClassifier never answers before its context expires.
type blockingClassifier struct{}

func (blockingClassifier) Classify(ctx context.Context, _, _, _ string) (*core.Classification, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (blockingClassifier) Name() string { return "blocking" }

// stubCache is a map-backed CacheRepository without expiry or goroutines.
type stubCache struct {
	entries map[string]*core.CacheEntry
	sets    int
}

func newStubCache() *stubCache {
	return &stubCache{entries: make(map[string]*core.CacheEntry)}
}

func (c *stubCache) Get(_ context.Context, key string) (*core.CacheEntry, error) {
	entry, ok := c.entries[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return entry, nil
}

func (c *stubCache) Set(_ context.Context, entry *core.CacheEntry) error {
	c.entries[entry.Key] = entry
	c.sets++
	return nil
}

func (c *stubCache) Delete(_ context.Context, key string) error {
	delete(c.entries, key)
	return nil
}

func (c *stubCache) Cleanup(context.Context) error { return nil }

type serviceOpts struct {
	classifier core.Classifier
	cache      core.CacheRepository
	store      core.StateStore
	cacheOn    bool
}

func newTestService(t *testing.T, opts serviceOpts) *core.OrganizerService {
	t.Helper()
	if opts.store == nil {
		opts.store = store.NewMemoryStore()
	}
	primary := opts.classifier
	fallback := rules.NewClassifier(zap.NewNop())
	if primary == nil {
		primary = fallback
	}
	return core.NewOrganizerService(
		primary,
		fallback,
		opts.cache,
		opts.store,
		similarity.TokenSet{},
		whitelist.NewChecker(nil, nil),
		core.DefaultScoringConfig(),
		[]string{"me@example.org"},
		opts.cacheOn,
		time.Hour,
		50*time.Millisecond,
		zap.NewNop(),
	)
}

func inboxMsg(id, name, addr string, received time.Time, read bool) core.MessageRecord {
	return core.MessageRecord{
		ID:         id,
		Subject:    "Subject " + id,
		Body:       "Body of " + id,
		SenderName: name,
		SenderAddr: addr,
		To:         []core.Recipient{{Address: "me@example.org"}},
		Received:   received,
		ObservedAt: serviceBase,
		Read:       read,
	}
}

func TestAnalyzeBuildsAndPersistsSnapshot(t *testing.T) {
	st := store.NewMemoryStore()
	svc := newTestService(t, serviceOpts{store: st})
	ctx := context.Background()

	inbox := []core.MessageRecord{
		inboxMsg("in-1", "Alice Adams", "alice@corp.com", serviceBase.Add(-2*time.Hour), true),
		inboxMsg("in-2", "Adams, Alice", "alice@corp.com", serviceBase.Add(-26*time.Hour), true),
	}
	sent := []core.MessageRecord{
		{
			ID:         "out-1",
			To:         []core.Recipient{{Name: "Alice Adams", Address: "alice@corp.com"}},
			Body:       "Works for me.",
			Received:   serviceBase.Add(-100 * time.Minute),
			ObservedAt: serviceBase,
		},
	}

	snap, err := svc.Analyze(ctx, sent, inbox)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.NotEmpty(t, snap.RunID)

	id, ok := snap.Identities["alice@corp.com"]
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"Alice Adams", "Adams, Alice"}, id.Aliases)

	p := snap.Profiles["alice@corp.com"]
	require.NotNil(t, p)
	assert.Equal(t, 2, p.ReceivedFrom)
	assert.Equal(t, 1, p.SentTo)
	assert.Equal(t, 1, p.ReplyCount)

	require.Contains(t, snap.SenderScores, "alice@corp.com")

	// Everything the snapshot holds must also be in the store.
	persisted, err := st.GetSenderScores(ctx)
	require.NoError(t, err)
	assert.Contains(t, persisted, "alice@corp.com")
}

func TestAnalyzeTrackingNeverDecrements(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	unread := []core.MessageRecord{
		inboxMsg("in-1", "Bob", "bob@corp.com", serviceBase.Add(-time.Hour), false),
	}
	read := []core.MessageRecord{
		inboxMsg("in-1", "Bob", "bob@corp.com", serviceBase.Add(-time.Hour), true),
	}

	// Two runs observing the message unread.
	for i := 0; i < 2; i++ {
		svc := newTestService(t, serviceOpts{store: st})
		_, err := svc.Analyze(ctx, nil, unread)
		require.NoError(t, err)
	}
	entry, err := st.GetTracking(ctx, "in-1")
	require.NoError(t, err)
	assert.Equal(t, 2, entry.TimesSeenUnread)
	assert.False(t, entry.LastSeenRead)

	// A read observation records the state without touching the counter.
	svc := newTestService(t, serviceOpts{store: st})
	_, err = svc.Analyze(ctx, nil, read)
	require.NoError(t, err)

	entry, err = st.GetTracking(ctx, "in-1")
	require.NoError(t, err)
	assert.Equal(t, 2, entry.TimesSeenUnread)
	assert.True(t, entry.LastSeenRead)
}

func TestScoreMessageAppliesPersistedUnreadCounter(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	// Four prior runs already saw in-1 unread.
	require.NoError(t, st.PutTracking(ctx, &core.EmailTrackingEntry{
		MessageID:       "in-1",
		TimesSeenUnread: 4,
		FirstSeen:       serviceBase.Add(-96 * time.Hour),
	}))

	svc := newTestService(t, serviceOpts{store: st})
	inbox := []core.MessageRecord{
		inboxMsg("in-1", "Alice", "alice@corp.com", serviceBase.Add(-time.Hour), false),
		inboxMsg("in-2", "Alice", "alice@corp.com", serviceBase.Add(-time.Hour), false),
	}
	snap, err := svc.Analyze(ctx, nil, inbox)
	require.NoError(t, err)

	// The run loop evaluates the raw mail-store records, which carry no
	// counter of their own; the snapshot must supply it.
	_, ignored := svc.ScoreMessage(inbox[0], snap)
	_, firstTime := svc.ScoreMessage(inbox[1], snap)
	assert.Less(t, ignored.State, firstTime.State,
		"a message unread across many runs must score below a first-time-unread one")

	ev, err := svc.EvaluateMessage(ctx, inbox[0], snap)
	require.NoError(t, err)
	assert.Equal(t, 5, ev.Record.TimesSeenUnread)
	assert.InDelta(t, ignored.State, ev.Breakdown.State, 1e-9)
}

func TestLoadSnapshotCarriesTracking(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	unread := inboxMsg("in-1", "Bob", "bob@corp.com", serviceBase.Add(-time.Hour), false)
	for i := 0; i < 3; i++ {
		svc := newTestService(t, serviceOpts{store: st})
		_, err := svc.Analyze(ctx, nil, []core.MessageRecord{unread})
		require.NoError(t, err)
	}

	// A fresh process loading the persisted snapshot sees the same penalty
	// as the one that ran the analysis.
	fresh := newTestService(t, serviceOpts{store: st})
	snap, err := fresh.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Contains(t, snap.Tracking, "in-1")

	_, withHistory := fresh.ScoreMessage(unread, snap)
	_, without := fresh.ScoreMessage(unread, nil)
	assert.Less(t, withHistory.State, without.State)
}

func TestScoreMessageDeterministic(t *testing.T) {
	svc := newTestService(t, serviceOpts{})
	ctx := context.Background()

	inbox := []core.MessageRecord{
		inboxMsg("in-1", "Alice", "alice@corp.com", serviceBase.Add(-2*time.Hour), true),
	}
	snap, err := svc.Analyze(ctx, nil, inbox)
	require.NoError(t, err)

	rec := inboxMsg("in-2", "Alice", "alice@corp.com", serviceBase.Add(-time.Hour), false)
	rec.Classification = &core.Classification{
		Category: core.CategoryProfessional, Urgency: core.UrgencyMedium, Available: true,
	}

	final1, b1 := svc.ScoreMessage(rec, snap)
	final2, b2 := svc.ScoreMessage(rec, snap)
	assert.Equal(t, final1, final2)
	assert.Equal(t, b1, b2)
}

func TestScoreMessageUnknownSenderIsNeutral(t *testing.T) {
	svc := newTestService(t, serviceOpts{})

	rec := inboxMsg("in-1", "Stranger", "stranger@elsewhere.net", serviceBase.Add(-time.Hour), false)
	_, b := svc.ScoreMessage(rec, nil)

	assert.InDelta(t, 0.5, b.Sender, 1e-9)
	assert.True(t, b.SenderNeutral)
	assert.False(t, b.SenderAmbiguous)
}

func TestScoreMessageBoundedComponents(t *testing.T) {
	svc := newTestService(t, serviceOpts{})

	rec := inboxMsg("in-1", "Alice", "alice@corp.com", serviceBase.Add(-time.Hour), false)
	rec.Flagged = true
	rec.Importance = core.ImportanceHigh
	rec.DueDate = serviceBase
	rec.Classification = &core.Classification{
		Category: core.CategoryPersonal, Urgency: core.UrgencyUrgent,
		ActionItems: []string{"Call back today"}, Available: true,
	}

	final, b := svc.ScoreMessage(rec, nil)
	for name, v := range map[string]float64{
		"final": final, "sender": b.Sender, "topic": b.Topic,
		"temporal": b.Temporal, "state": b.State, "recipient": b.Recipient,
	} {
		assert.GreaterOrEqual(t, v, 0.0, name)
		assert.LessOrEqual(t, v, 1.0, name)
	}
}

func TestEvaluateMessageFallsBackToRulesOnError(t *testing.T) {
	svc := newTestService(t, serviceOpts{classifier: failingClassifier{}})

	rec := inboxMsg("in-1", "Alice", "alice@corp.com", serviceBase.Add(-time.Hour), false)
	rec.Subject = "Project meeting tomorrow"
	rec.Body = "Can you send the agenda before the meeting? Regards, Alice"

	ev, err := svc.EvaluateMessage(context.Background(), rec, nil)
	require.NoError(t, err)
	require.NotNil(t, ev.Record.Classification)
	assert.Equal(t, "rules", ev.Record.Classification.Source)
	assert.True(t, ev.Record.Classification.Available)
}

func TestEvaluateMessageFallsBackToRulesOnTimeout(t *testing.T) {
	svc := newTestService(t, serviceOpts{classifier: blockingClassifier{}})

	rec := inboxMsg("in-1", "Alice", "alice@corp.com", serviceBase.Add(-time.Hour), false)

	start := time.Now()
	ev, err := svc.EvaluateMessage(context.Background(), rec, nil)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, "rules", ev.Record.Classification.Source)
}

func TestEvaluateMessageUnavailableClassification(t *testing.T) {
	// Both the primary and the fallback slots hold a failing classifier.
	st := store.NewMemoryStore()
	svc := core.NewOrganizerService(
		failingClassifier{},
		nil,
		nil,
		st,
		similarity.TokenSet{},
		whitelist.NewChecker(nil, nil),
		core.DefaultScoringConfig(),
		nil,
		false,
		time.Hour,
		50*time.Millisecond,
		zap.NewNop(),
	)

	rec := inboxMsg("in-1", "Alice", "alice@corp.com", serviceBase.Add(-time.Hour), false)
	ev, err := svc.EvaluateMessage(context.Background(), rec, nil)
	require.NoError(t, err, "classification failure must degrade, not abort")

	cls := ev.Record.Classification
	require.NotNil(t, cls)
	assert.False(t, cls.Available)
	assert.Equal(t, "unavailable", cls.Source)
	assert.Equal(t, core.CategoryGeneral, cls.Category)
	assert.Equal(t, core.UrgencyMedium, cls.Urgency)
	assert.NotEmpty(t, ev.Decision.Rule)
}

func TestEvaluateMessageUsesCache(t *testing.T) {
	cache := newStubCache()
	svc := newTestService(t, serviceOpts{cache: cache, cacheOn: true})

	rec := inboxMsg("in-1", "Alice", "alice@corp.com", serviceBase.Add(-time.Hour), false)

	ev, err := svc.EvaluateMessage(context.Background(), rec, nil)
	require.NoError(t, err)
	assert.Equal(t, "rules", ev.Record.Classification.Source)
	assert.Equal(t, 1, cache.sets)

	ev, err = svc.EvaluateMessage(context.Background(), rec, nil)
	require.NoError(t, err)
	assert.Equal(t, "cache", ev.Record.Classification.Source)
	assert.Equal(t, 1, cache.sets, "a cache hit must not rewrite the entry")
}

func TestEvaluateMessageKeepsPresetClassification(t *testing.T) {
	svc := newTestService(t, serviceOpts{classifier: failingClassifier{}})

	rec := inboxMsg("in-1", "Alice", "alice@corp.com", serviceBase.Add(-time.Hour), false)
	rec.Classification = &core.Classification{
		Category: core.CategoryPersonal, Urgency: core.UrgencyLow, Source: "preset", Available: true,
	}

	ev, err := svc.EvaluateMessage(context.Background(), rec, nil)
	require.NoError(t, err)
	assert.Equal(t, "preset", ev.Record.Classification.Source)
}

func TestEvaluateMessageCancelledContext(t *testing.T) {
	svc := newTestService(t, serviceOpts{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.EvaluateMessage(ctx, inboxMsg("in-1", "", "a@b.c", serviceBase, false), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadSnapshotEmptyStore(t *testing.T) {
	svc := newTestService(t, serviceOpts{})

	snap, err := svc.LoadSnapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Empty(t, snap.SenderScores)

	// Scoring against the empty snapshot falls back to neutral.
	_, b := svc.ScoreMessage(inboxMsg("in-1", "X", "x@y.z", serviceBase.Add(-time.Hour), true), snap)
	assert.InDelta(t, 0.5, b.Sender, 1e-9)
	assert.True(t, b.SenderNeutral)
}

func TestLoadSnapshotRoundTrip(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	first := newTestService(t, serviceOpts{store: st})
	inbox := []core.MessageRecord{
		inboxMsg("in-1", "Alice Adams", "alice@corp.com", serviceBase.Add(-2*time.Hour), true),
	}
	_, err := first.Analyze(ctx, nil, inbox)
	require.NoError(t, err)

	// A fresh service instance sees the persisted analysis.
	second := newTestService(t, serviceOpts{store: st})
	snap, err := second.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Contains(t, snap.SenderScores, "alice@corp.com")

	// The reloaded normalizer resolves known aliases again.
	rec := inboxMsg("in-2", "Adams, Alice", "", serviceBase.Add(-time.Hour), true)
	rec.SenderAddr = ""
	_, b := second.ScoreMessage(rec, snap)
	assert.False(t, b.SenderNeutral, "persisted alias should resolve to the known sender")
}
