// Package textmatch provides QuickBooks-name normalization and fuzzy
// similarity used by the classification and mapping engines.
//
// Similarity is 1 - (Levenshtein distance / max length) over normalized
// forms. FindSimilar powers the "you mapped X, did you also mean these?"
// suggestions; it never auto-applies a mapping.
package textmatch

import (
	"regexp"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// abbreviations expands domain shorthand QuickBooks users lean on.
// Applied with word-boundary matching so partial words don't collide.
var abbreviations = map[string]string{
	"exp":   "expenses",
	"ent":   "entertainment",
	"svc":   "service",
	"svcs":  "services",
	"mgmt":  "management",
	"admin": "administration",
	"util":  "utilities",
	"maint": "maintenance",
	"insur": "insurance",
}

var (
	parentheticalRe = regexp.MustCompile(`\([^)]*\)`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
	wordRe          = regexp.MustCompile(`[a-z0-9]+`)
)

// Normalize canonicalizes a QuickBooks account or category name:
// lowercase, trimmed, collapsed whitespace, "&" replaced with "and",
// parenthetical annotations stripped, and known abbreviations expanded.
func Normalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, "&", "and")
	s = parentheticalRe.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, ".", " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	s = wordRe.ReplaceAllStringFunc(s, func(word string) string {
		if expansion, ok := abbreviations[word]; ok {
			return expansion
		}
		return word
	})

	return s
}

// Similarity scores two names in [0, 1]. Identical normalized forms
// score 1.0 without computing edit distance.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1.0
	}
	if na == "" || nb == "" {
		return 0.0
	}

	distance := levenshtein.ComputeDistance(na, nb)
	maxLen := len([]rune(na))
	if l := len([]rune(nb)); l > maxLen {
		maxLen = l
	}

	return 1.0 - float64(distance)/float64(maxLen)
}

// Match is a candidate name with its similarity score.
type Match struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// DefaultThreshold is the similarity cutoff for suggestions.
const DefaultThreshold = 0.7

// FindSimilar returns candidates similar to target, sorted descending by
// score. Exact raw matches (case/whitespace-insensitive) are excluded;
// candidates whose normalized form matches target's exactly score 0.99.
func FindSimilar(target string, candidates []string, threshold float64) []Match {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	targetRaw := strings.ToLower(strings.TrimSpace(target))
	targetNorm := Normalize(target)

	var matches []Match
	for _, candidate := range candidates {
		if strings.ToLower(strings.TrimSpace(candidate)) == targetRaw {
			continue
		}

		var score float64
		if Normalize(candidate) == targetNorm {
			score = 0.99
		} else {
			score = Similarity(target, candidate)
		}

		if score >= threshold {
			matches = append(matches, Match{Name: candidate, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	return matches
}
