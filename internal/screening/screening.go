// Package screening runs the checks every record passes before it may take
// part in pairing.
package screening

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/pf-reconciler/internal/employment"
)

// Filter represents a single screening step applied to one side's records.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Apply(ctx context.Context, deps Deps, b *Batch) (*Batch, Step, error)
}

// Deps aggregates dependencies shared across all screening steps.
type Deps struct {
	Logger *zap.Logger
	// Normalize returns the canonical employer name of a raw string.
	Normalize func(raw string) string
}

// Step describes the result of executing a screening step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Entry is a record together with its position in the input collection.
type Entry struct {
	Index  int
	Record employment.Record
	// Unnamed marks a record whose employer name normalized to nothing. It
	// can still pair on time overlap but gains no identity evidence.
	Unnamed bool
}

// Batch holds the records of one side that are still eligible for pairing
// and the anomalies set aside so far. Both keep input order.
type Batch struct {
	Side      employment.Source
	Entries   []Entry
	Anomalies []*employment.Anomaly
}

// NewBatch wraps the records of one side.
func NewBatch(side employment.Source, records []employment.Record) *Batch {
	entries := make([]Entry, 0, len(records))
	for i, r := range records {
		entries = append(entries, Entry{Index: i, Record: r})
	}
	return &Batch{Side: side, Entries: entries}
}

func (b *Batch) Len() int { return len(b.Entries) }

// Status represents runtime information about a filter.
type Status struct {
	Name     string `json:"name"`
	Enabled  bool   `json:"enabled"`
	Required bool   `json:"required,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Default returns the standard screening steps in execution order.
func Default() []Filter {
	return []Filter{
		NewSourceTag(),
		NewDateInvariant(),
		NewEmployerIdentity(),
	}
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
// Unknown names and required steps are rejected.
func DisableByName(steps []Filter, name, reason string) error {
	for _, step := range steps {
		if step.Name() != name {
			continue
		}
		if isRequired(step) {
			return fmt.Errorf("screening step %q cannot be disabled", name)
		}
		step.Disable(reason)
		return nil
	}
	return fmt.Errorf("unknown screening step %q", name)
}

// CheckDisable returns an error unless name is a default step that may be disabled.
func CheckDisable(name string) error {
	return DisableByName(Default(), name, "")
}

func isRequired(step Filter) bool {
	r, ok := step.(interface{ Required() bool })
	return ok && r.Required()
}

// Run executes the supplied filters sequentially. An error from any step is
// fatal for the whole run.
func Run(ctx context.Context, deps Deps, steps []Filter, b *Batch) (*Batch, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			deps.Logger.Debug("screening step disabled", zap.String("name", step.Name()), zap.String("side", string(b.Side)))
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next, info, err := step.Apply(ctx, deps, b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		deps.Logger.Debug("screening step",
			zap.String("name", step.Name()),
			zap.String("side", string(b.Side)),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		b = next
	}

	return b, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		status := Status{Name: step.Name(), Enabled: step.IsEnabled(), Required: isRequired(step)}
		if reporter, ok := step.(interface{ Reason() string }); ok {
			status.Reason = reporter.Reason()
		}
		statuses = append(statuses, status)
	}
	return statuses
}
