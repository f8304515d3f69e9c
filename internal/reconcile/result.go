package reconcile

import (
	"github.com/spigell/pf-reconciler/internal/classify"
	"github.com/spigell/pf-reconciler/internal/employment"
	"github.com/spigell/pf-reconciler/internal/interval"
)

// Entry is a screened record with the values derived from it.
type Entry struct {
	// Index is the record position in its input collection.
	Index      int               `json:"index"`
	Record     employment.Record `json:"record"`
	Normalized string            `json:"employer_normalized"`
	// Unnamed is set by screening when the employer name normalized to nothing.
	Unnamed  bool              `json:"unnamed,omitempty"`
	Interval interval.Interval `json:"-"`
}

// Pair is a confirmed association chosen by the matching.
type Pair struct {
	CV             Entry                   `json:"cv"`
	PF             Entry                   `json:"pf"`
	Classification classify.Classification `json:"classification"`
}

// Unmatched is a record no pair was chosen for.
type Unmatched struct {
	Entry
	Classification classify.Classification `json:"classification"`
}

// Anomaly is a record excluded from pairing because it failed validation.
type Anomaly struct {
	Index          int                     `json:"index"`
	Record         employment.Record       `json:"record"`
	Classification classify.Classification `json:"classification"`
}

// Gap is a run of CV-claimed days no pair corroborates.
type Gap struct {
	Start employment.Date `json:"start"`
	End   employment.Date `json:"end"`
	Days  int             `json:"days"`
}

// Coverage compares CV-claimed time with PF-corroborated time.
type Coverage struct {
	ClaimedDays      int     `json:"claimed_days"`
	CorroboratedDays int     `json:"corroborated_days"`
	Ratio            float64 `json:"ratio"`
	Gaps             []Gap   `json:"gaps"`
}

// Stats counts the work done by a run.
type Stats struct {
	CVRecords  int `json:"cv_records"`
	PFRecords  int `json:"pf_records"`
	Candidates int `json:"candidates"`
	Accepted   int `json:"accepted_edges"`
}

// Result is the complete outcome of a reconciliation. Pairs follow CV input
// order; unmatched records and anomalies follow their side's input order.
type Result struct {
	Pairs       []Pair      `json:"pairs"`
	UnmatchedCV []Unmatched `json:"unmatched_cv"`
	UnmatchedPF []Unmatched `json:"unmatched_pf"`
	Anomalies   []Anomaly   `json:"anomalies"`
	Coverage    Coverage    `json:"coverage"`
	Stats       Stats       `json:"stats"`
	// Horizon is the day ongoing periods were closed at.
	Horizon employment.Date `json:"horizon"`
	Config  Config          `json:"config"`
}
