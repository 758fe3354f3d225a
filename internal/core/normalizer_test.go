package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnuru1/InboxWrangler/internal/similarity"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(similarity.TokenSet{}, 0.72)
}

func TestNormalizerMergesDisplayNameVariants(t *testing.T) {
	n := newTestNormalizer()
	n.Observe("John Doe", "jdoe@corp.com")
	n.Observe("Doe, John", "jdoe@corp.com")
	n.Observe("John Doe", "JDoe@Corp.com")

	ids := n.Finalize()
	require.Len(t, ids, 1)

	id, ok := ids["jdoe@corp.com"]
	require.True(t, ok)
	assert.Equal(t, "jdoe@corp.com", id.Address)
	assert.ElementsMatch(t, []string{"John Doe", "Doe, John"}, id.Aliases)
	assert.False(t, id.Ambiguous)
	assert.False(t, id.Automated)
}

func TestNormalizerReplayOrderIndependence(t *testing.T) {
	obs := []struct{ name, addr string }{
		{"John Doe", "jdoe@corp.com"},
		{"Doe, John", ""},
		{"", "jdoe@corp.com"},
		{"Jane Smith", "jsmith@corp.com"},
		{"John Doe", "/o=Corp/ou=Exchange/cn=Recipients/cn=jdoe"},
		{"Billing", "billing@vendor.example"},
	}

	forward := newTestNormalizer()
	for _, o := range obs {
		forward.Observe(o.name, o.addr)
	}

	backward := newTestNormalizer()
	for i := len(obs) - 1; i >= 0; i-- {
		backward.Observe(obs[i].name, obs[i].addr)
	}

	assert.Equal(t, forward.Finalize(), backward.Finalize())
}

func TestNormalizerProxyAddressAttachesToRealIdentity(t *testing.T) {
	n := newTestNormalizer()
	n.Observe("John Doe", "jdoe@corp.com")
	n.Observe("John Doe", "/o=Corp/ou=Exchange/cn=Recipients/cn=jdoe")

	ids := n.Finalize()
	require.Len(t, ids, 1)

	id := ids["jdoe@corp.com"]
	require.NotNil(t, id)
	assert.Contains(t, id.Variants, "/o=corp/ou=exchange/cn=recipients/cn=jdoe")

	key, known := n.Resolve("", "/o=Corp/ou=Exchange/cn=Recipients/cn=jdoe")
	assert.Equal(t, "jdoe@corp.com", key)
	assert.True(t, known)
}

func TestNormalizerResolvesNameAgainstLocalPart(t *testing.T) {
	n := newTestNormalizer()
	// Address seen without any display name; the name arrives separately.
	n.Observe("", "jsmith@corp.com")
	n.Observe("Jane Smith", "")

	ids := n.Finalize()
	require.Len(t, ids, 1)

	id := ids["jsmith@corp.com"]
	require.NotNil(t, id)
	assert.Contains(t, id.Aliases, "Jane Smith")
}

func TestNormalizerUnresolvedNameBecomesAmbiguousIdentity(t *testing.T) {
	n := newTestNormalizer()
	n.Observe("John Doe", "jdoe@corp.com")
	n.Observe("Totally Unrelated", "")

	ids := n.Finalize()
	require.Len(t, ids, 2)

	id, ok := ids["totally unrelated"]
	require.True(t, ok, "unresolved names must create an identity, not vanish")
	assert.True(t, id.Ambiguous)
	assert.Empty(t, id.Address)
}

func TestNormalizerFinalizeIdempotent(t *testing.T) {
	n := newTestNormalizer()
	n.Observe("John Doe", "jdoe@corp.com")
	n.Observe("Doe, John", "")

	first := n.Finalize()
	second := n.Finalize()
	assert.Equal(t, first, second)
}

func TestNormalizerObserveNameThatIsAddress(t *testing.T) {
	n := newTestNormalizer()
	n.Observe("jdoe@corp.com", "")

	ids := n.Finalize()
	require.Len(t, ids, 1)
	id := ids["jdoe@corp.com"]
	require.NotNil(t, id)
	assert.Equal(t, "jdoe@corp.com", id.Address)
	assert.Empty(t, id.Aliases)
}

func TestNormalizerResolveIsReadOnly(t *testing.T) {
	n := newTestNormalizer()
	n.Observe("John Doe", "jdoe@corp.com")
	n.Finalize()

	key, known := n.Resolve("Doe, John", "")
	assert.Equal(t, "jdoe@corp.com", key)
	assert.True(t, known)

	// Resolving something unknown must not grow the identity set.
	key, known = n.Resolve("", "stranger@elsewhere.net")
	assert.Equal(t, "stranger@elsewhere.net", key)
	assert.False(t, known)
	assert.Len(t, n.Identities(), 1)
}

func TestNormalizerAutomatedSenderDetection(t *testing.T) {
	n := newTestNormalizer()
	n.Observe("GitHub", "notifications@github.com")
	n.Observe("Mail Delivery System", "mailer-daemon@mail.example")
	n.Observe("John Doe", "jdoe@corp.com")

	ids := n.Finalize()
	require.Len(t, ids, 3)
	assert.True(t, ids["notifications@github.com"].Automated)
	assert.True(t, ids["mailer-daemon@mail.example"].Automated)
	assert.False(t, ids["jdoe@corp.com"].Automated)
}

func TestLocalPartEvidence(t *testing.T) {
	tests := []struct {
		name    string
		display string
		address string
		want    float64
	}{
		{"full joined name", "John Doe", "johndoe@corp.com", 1.0},
		{"dotted local part", "John Doe", "john.doe@corp.com", 1.0},
		{"first initial plus surname", "Jane Smith", "jsmith@corp.com", 0.9},
		{"name plus last initial", "Jane Smith", "janes@corp.com", 0.9},
		{"shared token", "John Doe", "doe.family@corp.com", 0.8},
		{"substring only", "Ann Lee", "annlee2@corp.com", 0.6},
		{"no overlap", "John Doe", "billing@corp.com", 0},
		{"no address", "John Doe", "", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, localPartEvidence(tc.display, tc.address), 1e-9)
		})
	}
}

func TestCanonicalAddress(t *testing.T) {
	assert.Equal(t, "jdoe@corp.com", canonicalAddress(" <MAILTO:JDoe@Corp.com> "))
	assert.Equal(t, "jdoe@corp.com", canonicalAddress("jdoe@corp.com"))
}

func TestIsRealAddress(t *testing.T) {
	assert.True(t, isRealAddress("jdoe@corp.com"))
	assert.False(t, isRealAddress("/o=corp/ou=exchange/cn=recipients/cn=jdoe"))
	assert.False(t, isRealAddress("not-an-address"))
}
