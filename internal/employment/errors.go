package employment

import (
	"errors"
	"fmt"
)

// ErrInput marks missing or malformed top-level input. It aborts a run.
var ErrInput = errors.New("invalid input")

// ErrAnomaly marks a single record that failed its invariant.
var ErrAnomaly = errors.New("record anomaly")

// InputError describes why the input of a reconciliation was rejected.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// Is implements errors.Is support.
func (e *InputError) Is(target error) bool {
	return target == ErrInput
}

// NewInputError creates an InputError.
func NewInputError(field, reason string) *InputError {
	return &InputError{Field: field, Reason: reason}
}

// Anomaly is a record excluded from pairing because it failed validation.
// It is recovered locally and reported, never returned to the caller.
type Anomaly struct {
	// Index is the record position in its input collection.
	Index  int
	Record Record
	Reason string
}

func (a *Anomaly) Error() string {
	return fmt.Sprintf("%s record #%d: %s", a.Record.Source, a.Index, a.Reason)
}

// Is implements errors.Is support.
func (a *Anomaly) Is(target error) bool {
	return target == ErrAnomaly
}
