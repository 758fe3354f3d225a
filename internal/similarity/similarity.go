// Package similarity provides the string-similarity strategies used by the
// contact normalizer for fuzzy display-name resolution. All strategies score
// in [0,1] and are symmetric in their arguments.
package similarity

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/unicode/norm"
)

// Fold normalizes a string for comparison: NFKC normalization, lower-casing
// and whitespace collapsing. Both strategies fold before comparing.
func Fold(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}

// Tokens splits a folded string into comparison tokens, dropping punctuation.
func Tokens(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// TokenSet scores by shared-token overlap. "Doe, John" and "John Doe" score
// 1.0; a lone shared surname scores by the smaller token count, so short
// aliases are not drowned out by long ones.
type TokenSet struct{}

// Score implements the similarity contract.
func (TokenSet) Score(a, b string) float64 {
	ta, tb := Tokens(a), Tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(ta))
	for _, t := range ta {
		set[t] = struct{}{}
	}
	shared := 0
	for _, t := range tb {
		if _, ok := set[t]; ok {
			shared++
			delete(set, t)
		}
	}
	smaller := len(ta)
	if len(tb) < smaller {
		smaller = len(tb)
	}
	return float64(shared) / float64(smaller)
}

// Name implements the similarity contract.
func (TokenSet) Name() string { return "token-set" }

// Levenshtein scores by normalized edit distance over folded strings.
type Levenshtein struct{}

// Score implements the similarity contract.
func (Levenshtein) Score(a, b string) float64 {
	fa, fb := Fold(a), Fold(b)
	if fa == "" || fb == "" {
		return 0
	}
	if fa == fb {
		return 1
	}
	dist := levenshtein.ComputeDistance(fa, fb)
	longer := len([]rune(fa))
	if l := len([]rune(fb)); l > longer {
		longer = l
	}
	return 1 - float64(dist)/float64(longer)
}

// Name implements the similarity contract.
func (Levenshtein) Name() string { return "levenshtein" }

// Strategy names accepted by New.
const (
	StrategyTokenSet    = "token-set"
	StrategyLevenshtein = "levenshtein"
)

// Scorer is the minimal contract both strategies satisfy.
type Scorer interface {
	Score(a, b string) float64
	Name() string
}

// New returns the named strategy.
func New(name string) (Scorer, error) {
	switch name {
	case StrategyTokenSet, "":
		return TokenSet{}, nil
	case StrategyLevenshtein:
		return Levenshtein{}, nil
	default:
		return nil, fmt.Errorf("unsupported similarity strategy: %s", name)
	}
}
