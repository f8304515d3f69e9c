// Package identity scores how likely two normalized employer names denote the
// same employer.
package identity

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// DefaultThreshold separates "same employer" from "different employer".
const DefaultThreshold = 0.7

// acronymScore is granted when one name is the initials of the other.
const acronymScore = 0.85

// Matcher scores normalized employer names. The score, not the threshold
// verdict, is what feeds pairing.
type Matcher struct {
	threshold float64
}

// NewMatcher returns a Matcher. A threshold outside [0,1] selects DefaultThreshold.
func NewMatcher(threshold float64) *Matcher {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Matcher{threshold: threshold}
}

// Threshold is the lowest score still judged the same employer.
func (m *Matcher) Threshold() float64 { return m.threshold }

// Same reports whether a score is at or above the threshold.
func (m *Matcher) Same(score float64) bool {
	return score >= m.threshold
}

// Score returns a similarity in [0,1]: the maximum of the token-set, edit
// distance and acronym similarities. Empty names score 0.
func (m *Matcher) Score(a, b string) float64 {
	return Score(a, b)
}

// Score is the threshold-independent similarity used by Matcher.
func Score(a, b string) float64 {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	return max(TokenSet(a, b), Edit(a, b), Acronym(a, b))
}

// TokenSet is the Dice coefficient over the word sets of a and b, so word
// order does not matter.
func TokenSet(a, b string) float64 {
	setA, setB := tokenSet(a), tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	common := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			common++
		}
	}

	return 2 * float64(common) / float64(len(setA)+len(setB))
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		set[field] = struct{}{}
	}
	return set
}

// Edit is 1 - levenshtein/maxlen over runes. Names are also compared with
// spaces removed so that "tech mahindra" matches "techmahindra".
func Edit(a, b string) float64 {
	return max(editRatio(a, b), editRatio(compact(a), compact(b)))
}

func editRatio(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 0
	}
	distance := levenshtein.ComputeDistance(a, b)
	return 1 - float64(distance)/float64(longest)
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// Acronym scores names where one side is the initials of the other,
// e.g. "tcs" and "tata consultancy services".
func Acronym(a, b string) float64 {
	if isAcronymOf(a, b) || isAcronymOf(b, a) {
		return acronymScore
	}
	return 0
}

func isAcronymOf(short, long string) bool {
	if strings.ContainsRune(short, ' ') {
		return false
	}
	words := strings.Fields(long)
	if len(words) < 2 || utf8.RuneCountInString(short) != len(words) {
		return false
	}

	var initials strings.Builder
	for _, word := range words {
		r, _ := utf8.DecodeRuneInString(word)
		initials.WriteRune(r)
	}

	return initials.String() == short
}
