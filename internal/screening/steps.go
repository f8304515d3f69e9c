package screening

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/pf-reconciler/internal/employment"
)

type sourceTagFilter struct{}

// NewSourceTag creates a filter that rejects the whole input when a record
// lacks its source tag or sits in the other side's collection.
func NewSourceTag() Filter {
	return &sourceTagFilter{}
}

func (f *sourceTagFilter) Name() string { return "source_tag" }

func (f *sourceTagFilter) Disable(string) {}

func (f *sourceTagFilter) IsEnabled() bool { return true }

func (f *sourceTagFilter) Required() bool { return true }

func (f *sourceTagFilter) Apply(_ context.Context, _ Deps, b *Batch) (*Batch, Step, error) {
	field := strings.ToLower(string(b.Side))
	for _, entry := range b.Entries {
		source := entry.Record.Source
		if !source.Valid() {
			return b, Step{}, employment.NewInputError(
				fmt.Sprintf("%s[%d].source", field, entry.Index),
				"record is missing its source tag",
			)
		}
		if source != b.Side {
			return b, Step{}, employment.NewInputError(
				fmt.Sprintf("%s[%d].source", field, entry.Index),
				fmt.Sprintf("%s record found in the %s collection", source, b.Side),
			)
		}
	}

	return b, Step{Initial: b.Len(), Left: b.Len()}, nil
}

type dateInvariantFilter struct{}

// NewDateInvariant creates a filter that sets aside records whose start is
// after their end.
func NewDateInvariant() Filter {
	return &dateInvariantFilter{}
}

func (f *dateInvariantFilter) Name() string { return "date_invariant" }

func (f *dateInvariantFilter) Disable(string) {}

func (f *dateInvariantFilter) IsEnabled() bool { return true }

func (f *dateInvariantFilter) Required() bool { return true }

func (f *dateInvariantFilter) Apply(_ context.Context, deps Deps, b *Batch) (*Batch, Step, error) {
	initial := b.Len()

	kept := make([]Entry, 0, initial)
	anomalies := append([]*employment.Anomaly(nil), b.Anomalies...)
	for _, entry := range b.Entries {
		if err := entry.Record.Validate(); err != nil {
			if deps.Logger != nil {
				deps.Logger.Debug("record violates start <= end",
					zap.Int("index", entry.Index),
					zap.String("record", entry.Record.Label()),
				)
			}
			anomalies = append(anomalies, &employment.Anomaly{
				Index:  entry.Index,
				Record: entry.Record,
				Reason: err.Error(),
			})
			continue
		}
		kept = append(kept, entry)
	}

	dropped := initial - len(kept)
	if dropped > 0 && deps.Logger != nil {
		deps.Logger.Info("excluding records that violate start <= end",
			zap.String("side", string(b.Side)),
			zap.Int("excluded_records", dropped),
			zap.Int("records_left", len(kept)),
		)
	}

	next := &Batch{Side: b.Side, Entries: kept, Anomalies: anomalies}
	return next, Step{Initial: initial, Dropped: dropped, Left: len(kept)}, nil
}

type employerIdentityFilter struct {
	disabled bool
	reason   string
}

// NewEmployerIdentity creates a step that marks records whose employer name
// normalizes to nothing as unnamed. They stay in the batch; the engine pairs
// them on time alone and flags the missing name.
func NewEmployerIdentity() Filter {
	return &employerIdentityFilter{}
}

func (f *employerIdentityFilter) Name() string { return "employer_identity" }

func (f *employerIdentityFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *employerIdentityFilter) IsEnabled() bool { return !f.disabled }

func (f *employerIdentityFilter) Reason() string { return f.reason }

func (f *employerIdentityFilter) Apply(_ context.Context, deps Deps, b *Batch) (*Batch, Step, error) {
	if deps.Normalize == nil {
		return b, Step{Initial: b.Len(), Left: b.Len()}, nil
	}

	entries := make([]Entry, 0, b.Len())
	var unnamed []int
	for _, entry := range b.Entries {
		entry.Unnamed = deps.Normalize(entry.Record.EmployerRaw) == ""
		if entry.Unnamed {
			unnamed = append(unnamed, entry.Index)
		}
		entries = append(entries, entry)
	}

	if len(unnamed) > 0 && deps.Logger != nil {
		deps.Logger.Info("records without a usable employer name",
			zap.String("side", string(b.Side)),
			zap.Ints("record_indexes", unnamed),
		)
	}

	next := &Batch{Side: b.Side, Entries: entries, Anomalies: b.Anomalies}
	return next, Step{Initial: b.Len(), Left: b.Len()}, nil
}
