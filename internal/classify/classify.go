// Package classify maps reconciliation evidence to a fixed taxonomy of
// discrepancy labels. Every classification carries the scores it was derived
// from.
package classify

import (
	"fmt"
	"math"

	"github.com/spigell/pf-reconciler/internal/employment"
	"github.com/spigell/pf-reconciler/internal/identity"
	"github.com/spigell/pf-reconciler/internal/interval"
)

// Label is the outcome assigned to a pair or an unmatched record.
type Label string

const (
	ConfirmedMatch      Label = "confirmed_match"
	PartialMatch        Label = "partial_match"
	DateDiscrepancy     Label = "date_discrepancy"
	LowConfidenceMatch  Label = "low_confidence_match"
	UnverifiableCVEntry Label = "unverifiable_cv_entry"
	UnexplainedPFEntry  Label = "unexplained_pf_entry"
	InvalidRecord       Label = "invalid_record"
)

// Labels lists every label in report order.
var Labels = []Label{
	ConfirmedMatch,
	PartialMatch,
	DateDiscrepancy,
	LowConfidenceMatch,
	UnverifiableCVEntry,
	UnexplainedPFEntry,
	InvalidRecord,
}

// Severity ranks how much attention a reviewer should pay.
type Severity string

const (
	SeverityInfo   Severity = "info"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

var severities = map[Label]Severity{
	ConfirmedMatch:      SeverityInfo,
	PartialMatch:        SeverityLow,
	DateDiscrepancy:     SeverityMedium,
	LowConfidenceMatch:  SeverityMedium,
	UnverifiableCVEntry: SeverityHigh,
	UnexplainedPFEntry:  SeverityMedium,
	InvalidRecord:       SeverityMedium,
}

// Flag qualifies a label without changing it.
type Flag string

const (
	FlagApproximateDates       Flag = "approximate_dates"
	FlagUnknownDates           Flag = "unknown_dates"
	FlagOngoingEndMismatch     Flag = "ongoing_end_mismatch"
	FlagIdentityBelowThreshold Flag = "identity_below_threshold"
	FlagEmptyEmployer          Flag = "empty_employer"
)

// Precision tells whether a relation was computed from exact days.
type Precision string

const (
	PrecisionExact       Precision = "exact"
	PrecisionApproximate Precision = "approximate"
)

// Evidence is what the engine knows about a candidate pair.
type Evidence struct {
	IdentityScore float64            `json:"identity_score"`
	OverlapScore  float64            `json:"overlap_score"`
	Confidence    float64            `json:"confidence"`
	Alignment     interval.Alignment `json:"alignment"`
	// EmptyEmployer is set when screening marked either side as unnamed.
	EmptyEmployer bool `json:"empty_employer,omitempty"`
}

// Classification is an auditable label.
type Classification struct {
	Label     Label     `json:"label"`
	Severity  Severity  `json:"severity"`
	Precision Precision `json:"precision,omitempty"`
	Flags     []Flag    `json:"flags,omitempty"`
	Reason    string    `json:"reason"`
	// Evidence is the pair's evidence, or for an unmatched record its
	// strongest candidate, if it had any.
	Evidence *Evidence `json:"evidence,omitempty"`
}

// Config holds the classification thresholds. The identity threshold belongs
// to the identity.Matcher the classifier is built with.
type Config struct {
	ConfirmedConfidence float64 `mapstructure:"confirmed-confidence" json:"confirmed_confidence"`
	ConfirmedOverlap    float64 `mapstructure:"confirmed-overlap" json:"confirmed_overlap"`
	PartialConfidence   float64 `mapstructure:"partial-confidence" json:"partial_confidence"`
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		ConfirmedConfidence: 0.75,
		ConfirmedOverlap:    0.8,
		PartialConfidence:   0.5,
	}
}

// Validate checks that every threshold lies in [0,1]. The error is an
// *employment.InputError naming the offending threshold.
func (c Config) Validate() error {
	thresholds := []struct {
		name  string
		value float64
	}{
		{"confirmed-confidence", c.ConfirmedConfidence},
		{"confirmed-overlap", c.ConfirmedOverlap},
		{"partial-confidence", c.PartialConfidence},
	}
	for _, th := range thresholds {
		if math.IsNaN(th.value) || th.value < 0 || th.value > 1 {
			return employment.NewInputError(th.name, fmt.Sprintf("must be within [0,1], got %v", th.value))
		}
	}
	return nil
}

// Classifier assigns labels.
type Classifier struct {
	cfg     Config
	matcher *identity.Matcher
}

// New returns a Classifier that judges employer identity with matcher. A nil
// matcher uses identity.DefaultThreshold.
func New(cfg Config, matcher *identity.Matcher) *Classifier {
	if matcher == nil {
		matcher = identity.NewMatcher(identity.DefaultThreshold)
	}
	return &Classifier{cfg: cfg, matcher: matcher}
}

// Pair classifies a confirmed pair. A pair where only one side is still
// ongoing is never a confirmed match.
func (c *Classifier) Pair(ev Evidence) Classification {
	rel := ev.Alignment.Relation
	same := c.matcher.Same(ev.IdentityScore)
	ongoing := ev.Alignment.OngoingMismatch

	var label Label
	var reason string

	switch {
	case same && (rel == interval.Disjoint || rel == interval.Adjacent):
		label = DateDiscrepancy
		if rel == interval.Adjacent {
			reason = fmt.Sprintf("same employer but periods only touch (%d day gap)", ev.Alignment.GapDays)
		} else {
			reason = fmt.Sprintf("same employer but periods are %d days apart", ev.Alignment.GapDays)
		}
	case !ongoing && ev.Confidence >= c.cfg.ConfirmedConfidence &&
		(rel == interval.Equal || (rel == interval.Overlapping && ev.OverlapScore >= c.cfg.ConfirmedOverlap)):
		label = ConfirmedMatch
		reason = fmt.Sprintf("employer and period agree (%s, overlap %.2f)", rel, ev.OverlapScore)
	case ev.Confidence >= c.cfg.PartialConfidence &&
		(ongoing || ev.OverlapScore < c.cfg.ConfirmedOverlap || rel == interval.AContainsB || rel == interval.BContainsA):
		label = PartialMatch
		reason = partialReason(rel, ev.OverlapScore)
		if ongoing {
			reason = fmt.Sprintf("one side is still ongoing while the other has ended (%s, overlap %.2f)", rel, ev.OverlapScore)
		}
	default:
		label = LowConfidenceMatch
		reason = fmt.Sprintf("weak evidence (confidence %.2f, identity %.2f of %.2f needed, %s)",
			ev.Confidence, ev.IdentityScore, c.matcher.Threshold(), rel)
	}

	evidence := ev
	return Classification{
		Label:     label,
		Severity:  severities[label],
		Precision: precisionOf(ev.Alignment),
		Flags:     c.flags(ev),
		Reason:    reason,
		Evidence:  &evidence,
	}
}

func partialReason(rel interval.Relation, overlap float64) string {
	switch rel {
	case interval.AContainsB:
		return "CV claims a longer span than PF shows"
	case interval.BContainsA:
		return "PF shows a longer span than CV claims"
	case interval.Unknown:
		return "employer agrees but dates are unknown"
	default:
		return fmt.Sprintf("periods only partly agree (overlap %.2f)", overlap)
	}
}

// UnmatchedCV classifies a CV record with no PF record above the floor.
func (c *Classifier) UnmatchedCV(best *Evidence) Classification {
	return c.unmatched(UnverifiableCVEntry, "no PF record corroborates this CV entry", best)
}

// UnmatchedPF classifies a PF record with no CV record above the floor.
func (c *Classifier) UnmatchedPF(best *Evidence) Classification {
	return c.unmatched(UnexplainedPFEntry, "no CV entry explains this PF record", best)
}

func (c *Classifier) unmatched(label Label, reason string, best *Evidence) Classification {
	cl := Classification{
		Label:    label,
		Severity: severities[label],
		Reason:   reason,
	}
	if best != nil {
		evidence := *best
		cl.Evidence = &evidence
		cl.Reason = fmt.Sprintf("%s; best candidate confidence %.2f", reason, best.Confidence)
	}
	return cl
}

// Invalid classifies a record that failed the start <= end invariant.
func (c *Classifier) Invalid(reason string) Classification {
	return Classification{
		Label:    InvalidRecord,
		Severity: severities[InvalidRecord],
		Reason:   reason,
	}
}

func (c *Classifier) flags(ev Evidence) []Flag {
	var flags []Flag
	if ev.Alignment.Relation == interval.Unknown {
		flags = append(flags, FlagUnknownDates)
	} else if ev.Alignment.Approximate {
		flags = append(flags, FlagApproximateDates)
	}
	if ev.Alignment.OngoingMismatch {
		flags = append(flags, FlagOngoingEndMismatch)
	}
	if !c.matcher.Same(ev.IdentityScore) {
		flags = append(flags, FlagIdentityBelowThreshold)
	}
	if ev.EmptyEmployer {
		flags = append(flags, FlagEmptyEmployer)
	}
	return flags
}

func precisionOf(al interval.Alignment) Precision {
	if al.Approximate {
		return PrecisionApproximate
	}
	return PrecisionExact
}

// SeverityOf returns the severity attached to a label.
func SeverityOf(l Label) Severity {
	return severities[l]
}
