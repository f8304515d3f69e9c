package identity

import (
	"math"
	"testing"

	"github.com/spigell/pf-reconciler/internal/normalize"
)

func TestScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
		min  float64
		max  float64
	}{
		{name: "identical", a: "acme", b: "acme", min: 1, max: 1},
		{name: "reordered words", a: "tech solutions", b: "solutions tech", min: 1, max: 1},
		{name: "typo", a: "globex", b: "glob3x", min: 0.8, max: 0.9},
		{name: "missing space", a: "tech mahindra", b: "techmahindra", min: 1, max: 1},
		{name: "acronym", a: "tcs", b: "tata consultancy services", min: acronymScore, max: acronymScore},
		{name: "extra word", a: "acme", b: "acme technologies", min: 0.6, max: 0.7},
		{name: "different", a: "initech", b: "soylent", min: 0, max: 0.3},
		{name: "empty left", a: "", b: "acme", min: 0, max: 0},
		{name: "both empty", a: "", b: "", min: 0, max: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Score(tt.a, tt.b)
			if got < tt.min || got > tt.max {
				t.Fatalf("Score(%q, %q) = %.3f, want within [%.3f, %.3f]", tt.a, tt.b, got, tt.min, tt.max)
			}
			if back := Score(tt.b, tt.a); math.Abs(back-got) > 1e-12 {
				t.Fatalf("score is not symmetric: %.6f vs %.6f", got, back)
			}
		})
	}
}

func TestMatcherThreshold(t *testing.T) {
	t.Parallel()

	m := NewMatcher(-1)
	if m.Threshold() != DefaultThreshold {
		t.Fatalf("expected default threshold, got %v", m.Threshold())
	}

	score := m.Score(normalize.Name("Acme Pvt Ltd"), normalize.Name("ACME LIMITED"))
	if !m.Same(score) {
		t.Fatalf("expected acme spellings to be the same employer, score %.3f", score)
	}

	if NewMatcher(1.5).Threshold() != DefaultThreshold {
		t.Fatalf("expected out of range threshold to select the default")
	}
	if !NewMatcher(0).Same(0) {
		t.Fatalf("expected a zero threshold to accept every score")
	}

	strict := NewMatcher(0.95)
	if strict.Same(Score("globex", "glob3x")) {
		t.Fatalf("expected typo to fall below a strict threshold")
	}
}
