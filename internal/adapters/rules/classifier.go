package rules

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/gnuru1/InboxWrangler/internal/core"
)

var highUrgencyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(urgent|asap|immediately|emergency|now)\b`),
	regexp.MustCompile(`\b(due today|due tomorrow)\b`),
	regexp.MustCompile(`\b(critical|crucial|vital)\b`),
}

var mediumUrgencyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(important|priority|attention)\b`),
	regexp.MustCompile(`\b(please respond|please reply|needs response)\b`),
	regexp.MustCompile(`\b(deadline|due this week|due soon)\b`),
}

type categoryRule struct {
	category core.Category
	patterns []*regexp.Regexp
}

// Category rules are evaluated in declaration order so ties resolve
// deterministically.
var categoryRules = []categoryRule{
	{core.CategoryNewsletter, []*regexp.Regexp{
		regexp.MustCompile(`\b(newsletter|update|digest)\b`),
		regexp.MustCompile(`unsubscribe`),
		regexp.MustCompile(`\b(weekly|monthly|quarterly)\s+update`),
	}},
	{core.CategoryPromotional, []*regexp.Regexp{
		regexp.MustCompile(`\b(offer|discount|sale|promo|marketing)\b`),
		regexp.MustCompile(`unsubscribe`),
		regexp.MustCompile(`\b(limited time|exclusive)\b`),
	}},
	{core.CategoryPersonal, []*regexp.Regexp{
		regexp.MustCompile(`\b(hey|hi|hello|greetings)\b`),
		regexp.MustCompile(`\b(how are you|hope you|thinking of you)\b`),
		regexp.MustCompile(`family|friend|personal`),
	}},
	{core.CategoryProfessional, []*regexp.Regexp{
		regexp.MustCompile(`\b(meeting|discussion|project|report|business|client|colleague)\b`),
		regexp.MustCompile(`\b(regards|sincerely|best|team)\b`),
	}},
	{core.CategoryTransactional, []*regexp.Regexp{
		regexp.MustCompile(`\b(order|invoice|receipt|payment|transaction|shipping|booking|confirmation)\b`),
		regexp.MustCompile(`\b(confirm|confirmed)\b`),
	}},
	{core.CategorySpam, []*regexp.Regexp{
		regexp.MustCompile(`\b(viagra|cialis|pharmacy|loan|mortgage|refinance|degree|online degree)\b`),
		regexp.MustCompile(`click here`),
		regexp.MustCompile(`unsubscribe at`),
	}},
}

var actionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:please|kindly|can you|could you)[^.!?]*\?`),
	regexp.MustCompile(`(?i)(?:please|kindly|can you|could you)[^.!?]*(?:\.|$)`),
	regexp.MustCompile(`(?i)(?:need to|needs to|must|should)[^.!?]*(?:\.|$)`),
	regexp.MustCompile(`(?i)(?:don't forget to|remember to)[^.!?]*(?:\.|$)`),
	regexp.MustCompile(`(?i)(?:action (?:needed|required|item))[^.!?]*(?:\.|$)`),
	regexp.MustCompile(`(?i)deadline[^.!?]*(?:\.|$)`),
	regexp.MustCompile(`(?i)by (?:monday|tuesday|wednesday|thursday|friday|saturday|sunday|tomorrow|next week|today|eod|eow)`),
	regexp.MustCompile(`(?i)due (?:date|by)[^.!?]*(?:\.|$)`),
}

var (
	urlPattern        = regexp.MustCompile(`http[s]?://\S+`)
	emailPattern      = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	nonAlphaPattern   = regexp.MustCompile(`[^a-z\s]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	sentencePattern   = regexp.MustCompile(`[^.!?\n]+[.!?]?`)
)

var stopWords = map[string]struct{}{
	"a": {}, "about": {}, "after": {}, "all": {}, "also": {}, "an": {}, "and": {},
	"any": {}, "are": {}, "as": {}, "at": {}, "be": {}, "been": {}, "but": {},
	"by": {}, "can": {}, "could": {}, "did": {}, "do": {}, "does": {}, "for": {},
	"from": {}, "had": {}, "has": {}, "have": {}, "he": {}, "her": {}, "here": {},
	"him": {}, "his": {}, "how": {}, "i": {}, "if": {}, "in": {}, "into": {},
	"is": {}, "it": {}, "its": {}, "just": {}, "me": {}, "more": {}, "my": {},
	"no": {}, "not": {}, "of": {}, "on": {}, "or": {}, "our": {}, "out": {},
	"please": {}, "she": {}, "so": {}, "some": {}, "than": {}, "that": {},
	"the": {}, "their": {}, "them": {}, "then": {}, "there": {}, "these": {},
	"they": {}, "this": {}, "to": {}, "up": {}, "was": {}, "we": {}, "were": {},
	"what": {}, "when": {}, "which": {}, "who": {}, "will": {}, "with": {},
	"would": {}, "you": {}, "your": {},
}

const maxActionItems = 5

// Classifier categorizes email content with keyword and pattern heuristics.
// It needs no network access and never fails, which makes it the terminal
// fallback behind the model-backed classifiers.
type Classifier struct {
	maxTopics int
	logger    *zap.Logger
}

// NewClassifier creates a new rule-based classifier
func NewClassifier(logger *zap.Logger) *Classifier {
	return &Classifier{
		maxTopics: 3,
		logger:    logger,
	}
}

// Classify analyzes an email using pattern heuristics only
func (c *Classifier) Classify(_ context.Context, subject, body, _ string) (*core.Classification, error) {
	text := strings.ToLower(subject + " " + body)

	cls := &core.Classification{
		Category:    c.categorize(strings.ToLower(subject), text),
		Topics:      c.topics(text),
		ActionItems: c.actionItems(subject + " " + body),
		Urgency:     c.urgency(text),
		Sentiment:   "neutral",
		Source:      "rules",
		Available:   true,
	}
	return cls, nil
}

// Name returns the classifier name
func (c *Classifier) Name() string {
	return "rules"
}

func (c *Classifier) urgency(text string) core.Urgency {
	highCount := 0
	for _, p := range highUrgencyPatterns {
		if p.MatchString(text) {
			highCount++
		}
	}
	mediumCount := 0
	for _, p := range mediumUrgencyPatterns {
		if p.MatchString(text) {
			mediumCount++
		}
	}

	switch {
	case highCount >= 2 || (highCount >= 1 && mediumCount >= 1):
		return core.UrgencyHigh
	case mediumCount >= 1 || highCount >= 1:
		return core.UrgencyMedium
	default:
		return core.UrgencyLow
	}
}

func (c *Classifier) categorize(subject, text string) core.Category {
	scores := make(map[core.Category]int, len(categoryRules))
	maxScore := 0
	for _, rule := range categoryRules {
		score := 0
		for _, p := range rule.patterns {
			if p.MatchString(subject) {
				score += 3
			} else if p.MatchString(text) {
				score++
			}
		}
		// Unsubscribe links are a strong bulk-mail signal.
		if rule.category == core.CategoryNewsletter || rule.category == core.CategoryPromotional {
			if strings.Contains(text, "unsubscribe") {
				score += 2
			}
		}
		scores[rule.category] = score
		if score > maxScore {
			maxScore = score
		}
	}

	if maxScore == 0 {
		return core.CategoryGeneral
	}
	if scores[core.CategorySpam] >= 3 {
		return core.CategorySpam
	}
	for _, cat := range []core.Category{
		core.CategoryTransactional,
		core.CategoryProfessional,
		core.CategoryPersonal,
		core.CategoryNewsletter,
		core.CategoryPromotional,
	} {
		if scores[cat] == maxScore {
			return cat
		}
	}
	for _, rule := range categoryRules {
		if scores[rule.category] == maxScore {
			return rule.category
		}
	}
	return core.CategoryGeneral
}

func (c *Classifier) topics(text string) []string {
	cleaned := urlPattern.ReplaceAllString(text, " ")
	cleaned = emailPattern.ReplaceAllString(cleaned, " ")
	cleaned = nonAlphaPattern.ReplaceAllString(cleaned, " ")
	cleaned = whitespacePattern.ReplaceAllString(cleaned, " ")

	counts := make(map[string]int)
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 1 {
			continue
		}
		if _, skip := stopWords[word]; skip {
			continue
		}
		counts[word]++
	}
	if len(counts) == 0 {
		return nil
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > c.maxTopics {
		words = words[:c.maxTopics]
	}
	return words
}

func (c *Classifier) actionItems(text string) []string {
	if text == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var items []string
	for _, sentence := range sentencePattern.FindAllString(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		for _, p := range actionPatterns {
			for _, match := range p.FindAllString(sentence, -1) {
				match = strings.TrimSpace(match)
				if len(match) <= 10 {
					continue
				}
				key := strings.Join(strings.Fields(strings.ToLower(match)), " ")
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				items = append(items, capitalize(match))
				if len(items) >= maxActionItems {
					return items
				}
			}
		}
	}
	return items
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
