package core

import (
	"regexp"
	"sort"
	"strings"

	"github.com/gnuru1/InboxWrangler/internal/similarity"
)

var automatedSenderPattern = regexp.MustCompile(`(?i)\b(no-?reply|do-?not-?reply|donotreply|mailer-daemon|postmaster|notifications?|alerts?|system)\b`)

// observation is one raw (display name, address) sighting.
type observation struct {
	Name string
	Addr string
}

// Normalizer collapses display-name and address variants into canonical
// identities. Observations are collected first and the identity set is built
// in Finalize, so replaying the same history in any order produces the same
// identities and alias membership.
type Normalizer struct {
	sim       Similarity
	threshold float64

	seen map[observation]struct{}

	identities map[string]*Identity
	byVariant  map[string]string // address variant -> identity key
	byAlias    map[string]string // folded alias -> identity key
	finalized  bool
}

// NewNormalizer creates a normalizer using the given similarity strategy and
// acceptance threshold for fuzzy display-name resolution.
func NewNormalizer(sim Similarity, threshold float64) *Normalizer {
	return &Normalizer{
		sim:        sim,
		threshold:  threshold,
		seen:       make(map[observation]struct{}),
		identities: make(map[string]*Identity),
		byVariant:  make(map[string]string),
		byAlias:    make(map[string]string),
	}
}

// Observe records one raw sighting. Safe to call with empty fields; a name
// that is itself an address is treated as one.
func (n *Normalizer) Observe(displayName, address string) {
	name := cleanDisplayName(displayName)
	addr := canonicalAddress(address)
	if addr == "" && strings.Contains(name, "@") {
		addr = canonicalAddress(name)
		name = ""
	}
	if name == "" && addr == "" {
		return
	}
	n.seen[observation{Name: name, Addr: addr}] = struct{}{}
	n.finalized = false
}

// Finalize builds the canonical identity set from everything observed so
// far. Idempotent: calling it again without new observations is a no-op.
func (n *Normalizer) Finalize() map[string]*Identity {
	if n.finalized {
		return n.identities
	}
	n.identities = make(map[string]*Identity)
	n.byVariant = make(map[string]string)
	n.byAlias = make(map[string]string)

	obs := make([]observation, 0, len(n.seen))
	for o := range n.seen {
		obs = append(obs, o)
	}
	sort.Slice(obs, func(i, j int) bool {
		if obs[i].Addr != obs[j].Addr {
			return obs[i].Addr < obs[j].Addr
		}
		return obs[i].Name < obs[j].Name
	})

	// Pass 1: every distinct real address becomes an identity; paired
	// display names attach as aliases.
	for _, o := range obs {
		if !isRealAddress(o.Addr) {
			continue
		}
		id, ok := n.identities[o.Addr]
		if !ok {
			id = &Identity{
				Key:       o.Addr,
				Address:   o.Addr,
				Automated: isAutomatedSender(o.Name, o.Addr),
			}
			n.identities[o.Addr] = id
			n.indexVariant(o.Addr, o.Addr)
		}
		if o.Name != "" {
			id.AddAlias(o.Name)
			n.indexAlias(o.Name, o.Addr)
			if !id.Automated && isAutomatedSender(o.Name, "") {
				id.Automated = true
			}
		}
	}

	// Pass 2: nameless-or-proxy observations resolve against the settled
	// address identities; anything unresolved becomes a new identity rather
	// than being dropped.
	for _, o := range obs {
		if isRealAddress(o.Addr) {
			continue
		}
		key, ok := n.resolveLoose(o.Name, o.Addr)
		if !ok {
			key = n.newAmbiguousIdentity(o)
		}
		id := n.identities[key]
		if o.Name != "" {
			id.AddAlias(o.Name)
			n.indexAlias(o.Name, key)
		}
		if o.Addr != "" {
			id.AddVariant(o.Addr)
			n.indexVariant(o.Addr, key)
		}
	}

	n.finalized = true
	return n.identities
}

// Resolve maps a sighting to an identity key without mutating state, so it
// is safe during concurrent scoring. The second return reports whether the
// key belongs to a known identity; unknown addresses resolve to their own
// lower-cased form so downstream fallbacks can still use the domain.
func (n *Normalizer) Resolve(displayName, address string) (string, bool) {
	name := cleanDisplayName(displayName)
	addr := canonicalAddress(address)
	if addr == "" && strings.Contains(name, "@") {
		addr = canonicalAddress(name)
		name = ""
	}

	// An exact address match always wins over a fuzzy display-name match.
	if addr != "" {
		if key, ok := n.byVariant[addr]; ok {
			return key, true
		}
		if isRealAddress(addr) {
			return addr, false
		}
	}
	if name != "" {
		if key, ok := n.byAlias[similarity.Fold(name)]; ok {
			return key, true
		}
		if key, ok := n.resolveLoose(name, ""); ok {
			return key, true
		}
		return similarity.Fold(name), false
	}
	return addr, false
}

// Identities returns the finalized identity set.
func (n *Normalizer) Identities() map[string]*Identity {
	return n.Finalize()
}

// resolveLoose finds the best-matching address identity for a display name,
// combining alias similarity with address local-part evidence. Ties break
// toward the lexicographically smallest key so resolution is deterministic.
func (n *Normalizer) resolveLoose(name, _ string) (string, bool) {
	if name == "" {
		return "", false
	}
	if key, ok := n.byAlias[similarity.Fold(name)]; ok {
		return key, true
	}

	keys := make([]string, 0, len(n.identities))
	for k, id := range n.identities {
		if id.Address != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	bestKey, bestScore := "", 0.0
	for _, k := range keys {
		id := n.identities[k]
		score := localPartEvidence(name, id.Address)
		for _, alias := range id.Aliases {
			if s := n.sim.Score(name, alias); s > score {
				score = s
			}
		}
		if score > bestScore {
			bestKey, bestScore = k, score
		}
	}
	if bestScore >= n.threshold {
		return bestKey, true
	}
	return "", false
}

func (n *Normalizer) newAmbiguousIdentity(o observation) string {
	key := similarity.Fold(o.Name)
	if key == "" {
		key = o.Addr
	}
	if _, exists := n.identities[key]; !exists {
		n.identities[key] = &Identity{
			Key:       key,
			Automated: isAutomatedSender(o.Name, o.Addr),
			Ambiguous: true,
		}
	}
	return key
}

func (n *Normalizer) indexAlias(alias, key string) {
	folded := similarity.Fold(alias)
	if folded == "" {
		return
	}
	if _, taken := n.byAlias[folded]; !taken {
		n.byAlias[folded] = key
	}
}

func (n *Normalizer) indexVariant(variant, key string) {
	if variant == "" {
		return
	}
	if _, taken := n.byVariant[variant]; !taken {
		n.byVariant[variant] = key
	}
}

// localPartEvidence scores how strongly a display name matches the local
// part of an address: full joined name, first-initial+surname, or a shared
// name token, in decreasing strength.
func localPartEvidence(name, address string) float64 {
	at := strings.LastIndex(address, "@")
	if at <= 0 {
		return 0
	}
	local := strings.ToLower(address[:at])
	localJoined := stripSeparators(local)
	localTokens := splitLocalPart(local)

	tokens := similarity.Tokens(name)
	if len(tokens) == 0 {
		return 0
	}

	if strings.Join(tokens, "") == localJoined {
		return 1.0
	}
	if len(tokens) >= 2 {
		first, last := tokens[0], tokens[len(tokens)-1]
		if string(first[0])+last == localJoined || first+string(last[0]) == localJoined {
			return 0.9
		}
	}
	best := 0.0
	for _, t := range tokens {
		if len(t) <= 2 {
			continue
		}
		for _, lt := range localTokens {
			if t == lt && best < 0.8 {
				best = 0.8
			}
		}
		if strings.Contains(localJoined, t) && best < 0.6 {
			best = 0.6
		}
	}
	return best
}

func splitLocalPart(local string) []string {
	return strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
}

func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '.' || r == '_' || r == '-' || r == '+' {
			return -1
		}
		return r
	}, s)
}

func cleanDisplayName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Trim(name, `"'`)
	return strings.TrimSpace(name)
}

func canonicalAddress(address string) string {
	addr := strings.ToLower(strings.TrimSpace(address))
	addr = strings.Trim(addr, "<>")
	addr = strings.TrimPrefix(addr, "mailto:")
	return addr
}

// isRealAddress distinguishes SMTP addresses from directory proxy forms
// such as /o=Org/ou=.../cn=Recipients.
func isRealAddress(addr string) bool {
	return strings.Contains(addr, "@") && !strings.HasPrefix(addr, "/")
}

func isAutomatedSender(name, addr string) bool {
	if name != "" && automatedSenderPattern.MatchString(name) {
		return true
	}
	if addr == "" {
		return false
	}
	local := addr
	if at := strings.LastIndex(addr, "@"); at > 0 {
		local = addr[:at]
	}
	return automatedSenderPattern.MatchString(local)
}
