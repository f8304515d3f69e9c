// Package employment holds the employment-period records compared by the
// reconciler, the partial-date model they use and the parsers that turn
// extracted strings into that model.
package employment

import (
	"fmt"
	"strings"
)

// Source identifies which document a record was extracted from.
type Source string

const (
	SourceCV Source = "CV"
	SourcePF Source = "PF"
)

// ParseSource accepts the source tag case-insensitively. Unknown tags yield "".
func ParseSource(s string) Source {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(SourceCV):
		return SourceCV
	case string(SourcePF), "EPF":
		return SourcePF
	default:
		return ""
	}
}

func (s Source) Valid() bool {
	return s == SourceCV || s == SourcePF
}

// Record is one observed employment span. Records are treated as immutable
// once extracted; derived values are kept by the reconciler, not here.
type Record struct {
	// ID is an optional caller-supplied identifier echoed in reports.
	ID          string         `json:"id,omitempty"`
	Source      Source         `json:"source"`
	EmployerRaw string         `json:"employer"`
	Start       Date           `json:"start"`
	End         End            `json:"end"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Validate checks the start <= end invariant. Both boundaries must be known;
// they are compared at the coarser of the two precisions.
func (r Record) Validate() error {
	if !r.Start.Known() || !r.End.Known() {
		return nil
	}

	if Compare(r.Start, r.End.Date) > 0 {
		return fmt.Errorf("start %s is after end %s", r.Start, r.End)
	}

	return nil
}

// Label is a short human-readable description used in logs and prompts.
func (r Record) Label() string {
	employer := strings.TrimSpace(r.EmployerRaw)
	if employer == "" {
		employer = "<no employer>"
	}
	return fmt.Sprintf("%s %s (%s - %s)", r.Source, employer, r.Start, r.End)
}
