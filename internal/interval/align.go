package interval

// Relation describes how interval a sits relative to interval b.
type Relation string

const (
	Disjoint    Relation = "disjoint"
	Adjacent    Relation = "adjacent"
	Overlapping Relation = "overlapping"
	AContainsB  Relation = "a_contains_b"
	BContainsA  Relation = "b_contains_a"
	Equal       Relation = "equal"
	// Unknown is used when either start date is unknown.
	Unknown Relation = "unknown"
)

// Swap returns the relation seen from b's side.
func (r Relation) Swap() Relation {
	switch r {
	case AContainsB:
		return BContainsA
	case BContainsA:
		return AContainsB
	default:
		return r
	}
}

// Intersects reports whether the relation implies shared time.
func (r Relation) Intersects() bool {
	switch r {
	case Overlapping, AContainsB, BContainsA, Equal:
		return true
	default:
		return false
	}
}

// DefaultToleranceDays absorbs payroll-cycle lag between two periods.
const DefaultToleranceDays = 31

// Alignment is the result of comparing two intervals.
type Alignment struct {
	Relation Relation `json:"relation"`
	// OverlapRatio is the Jaccard index of the two intervals over days.
	OverlapRatio float64 `json:"overlap_ratio"`
	// GapDays counts the days strictly between disjoint or adjacent intervals.
	GapDays int `json:"gap_days,omitempty"`
	// Approximate marks a relation computed under reduced date precision.
	Approximate bool `json:"approximate,omitempty"`
	// OngoingMismatch marks exactly one side being still ongoing.
	OngoingMismatch bool `json:"ongoing_mismatch,omitempty"`
}

// Aligner compares intervals. Ongoing ends are unbounded for ordering and are
// clipped to the horizon day for duration math.
type Aligner struct {
	toleranceDays int
	horizon       int
}

// NewAligner returns an Aligner. A negative tolerance selects DefaultToleranceDays.
func NewAligner(toleranceDays, horizon int) *Aligner {
	if toleranceDays < 0 {
		toleranceDays = DefaultToleranceDays
	}
	return &Aligner{toleranceDays: toleranceDays, horizon: horizon}
}

func (al *Aligner) Horizon() int { return al.horizon }

// Align computes the relation and overlap ratio of a and b.
func (al *Aligner) Align(a, b Interval) Alignment {
	out := Alignment{
		Approximate:     a.Approximate || b.Approximate,
		OngoingMismatch: a.Ongoing != b.Ongoing,
	}

	if !a.Known || !b.Known {
		out.Relation = Unknown
		out.Approximate = true
		out.OngoingMismatch = false
		return out
	}

	switch {
	case a.Start == b.Start && a.End == b.End:
		out.Relation = Equal
		out.OverlapRatio = 1
		return out
	case a.End < b.Start || b.End < a.Start:
		out.GapDays = gap(a, b)
		out.Relation = Disjoint
		if out.GapDays <= al.toleranceDays {
			out.Relation = Adjacent
		}
		return out
	case a.Start < b.Start && a.End > b.End:
		out.Relation = AContainsB
	case b.Start < a.Start && b.End > a.End:
		out.Relation = BContainsA
	default:
		out.Relation = Overlapping
	}

	out.OverlapRatio = al.jaccard(a, b)
	return out
}

func gap(a, b Interval) int {
	if a.End < b.Start {
		return b.Start - a.End - 1
	}
	return a.Start - b.End - 1
}

func (al *Aligner) jaccard(a, b Interval) float64 {
	aEnd, bEnd := a.Clip(al.horizon), b.Clip(al.horizon)

	inter := min(aEnd, bEnd) - max(a.Start, b.Start) + 1
	if inter <= 0 {
		return 0
	}
	union := max(aEnd, bEnd) - min(a.Start, b.Start) + 1

	ratio := float64(inter) / float64(union)
	if ratio > 1 {
		return 1
	}
	return ratio
}

// Intersection returns the shared days of a and b clipped to the horizon,
// and false when they share none.
func (al *Aligner) Intersection(a, b Interval) (start, end int, ok bool) {
	if !a.Known || !b.Known {
		return 0, 0, false
	}
	start = max(a.Start, b.Start)
	end = min(a.Clip(al.horizon), b.Clip(al.horizon))
	if end < start {
		return 0, 0, false
	}
	return start, end, true
}
