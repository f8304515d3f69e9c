// Package normalize canonicalizes employer names so that spellings taken from
// different documents can be compared.
package normalize

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	bracketedRe = regexp.MustCompile(`\([^()]*\)|\[[^\[\]]*\]|\{[^{}]*\}`)
	openTailRe  = regexp.MustCompile(`[(\[{].*$`)
	messrsRe    = regexp.MustCompile(`^\s*(m/s|m/s\.|messrs\.?)\s+`)
	initialsRe  = regexp.MustCompile(`\b(?:\pL\.){2,}`)
)

// Abbreviated legal forms are dropped wherever they appear after the first token.
var legalAbbreviations = map[string]struct{}{
	"ltd": {}, "pvt": {}, "inc": {}, "llp": {}, "llc": {}, "corp": {}, "plc": {},
	"gmbh": {}, "pte": {}, "pty": {}, "bv": {}, "nv": {}, "srl": {}, "sarl": {},
	"spa": {}, "oy": {}, "kk": {}, "ag": {}, "sa": {}, "ab": {}, "lp": {}, "kg": {},
}

// Spelled-out legal forms are only dropped as a trailing run.
var legalWords = map[string]struct{}{
	"limited": {}, "private": {}, "incorporated": {}, "corporation": {},
	"company": {}, "co": {}, "and": {}, "the": {},
}

var leadingNoise = map[string]struct{}{
	"the": {}, "messrs": {},
}

// A token from this set ends the name: what follows is a former or
// alternative name.
var cutMarkers = map[string]struct{}{
	"formerly": {}, "previously": {}, "fka": {}, "erstwhile": {},
}

// Name returns the canonical form of an employer name. It is pure and
// idempotent; input without any letters or digits yields "".
func Name(raw string) string {
	s := stripMarks(raw)
	s = cases.Fold().String(s)

	s = messrsRe.ReplaceAllString(s, "")
	s = initialsRe.ReplaceAllStringFunc(s, func(m string) string {
		return strings.ReplaceAll(m, ".", "")
	})
	for {
		next := bracketedRe.ReplaceAllString(s, " ")
		if next == s {
			break
		}
		s = next
	}
	s = openTailRe.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "&", " and ")
	s = strings.ReplaceAll(s, "f/k/a", " fka ")

	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens = trimLeading(tokens)
	tokens = cutAtMarker(tokens)
	tokens = dropAbbreviations(tokens)
	tokens = trimTrailing(tokens)

	return strings.Join(tokens, " ")
}

func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func trimLeading(tokens []string) []string {
	for len(tokens) > 1 {
		if _, ok := leadingNoise[tokens[0]]; !ok {
			break
		}
		tokens = tokens[1:]
	}
	return tokens
}

func cutAtMarker(tokens []string) []string {
	for i := 1; i < len(tokens); i++ {
		if _, ok := cutMarkers[tokens[i]]; ok {
			return tokens[:i]
		}
	}
	return tokens
}

func dropAbbreviations(tokens []string) []string {
	if len(tokens) < 2 {
		return tokens
	}
	out := tokens[:1:1]
	for _, token := range tokens[1:] {
		if _, ok := legalAbbreviations[token]; ok {
			continue
		}
		out = append(out, token)
	}
	return out
}

func trimTrailing(tokens []string) []string {
	for len(tokens) > 1 {
		if _, ok := legalWords[tokens[len(tokens)-1]]; !ok {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

// Cache memoizes Name by raw string. It is owned by the caller and may be
// shared between concurrent reconciliations; a nil Cache computes directly.
type Cache struct {
	mu    sync.RWMutex
	names map[string]string
}

func NewCache() *Cache {
	return &Cache{names: make(map[string]string)}
}

// Name returns the memoized canonical form of raw.
func (c *Cache) Name(raw string) string {
	if c == nil {
		return Name(raw)
	}

	c.mu.RLock()
	name, ok := c.names[raw]
	c.mu.RUnlock()
	if ok {
		return name
	}

	name = Name(raw)

	c.mu.Lock()
	if c.names == nil {
		c.names = make(map[string]string)
	}
	c.names[raw] = name
	c.mu.Unlock()

	return name
}

// Len reports how many distinct raw names are memoized.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.names)
}
