// Package interval turns employment periods into day ranges and describes how
// two such ranges relate in time.
package interval

import (
	"math"
	"time"

	"github.com/spigell/pf-reconciler/internal/employment"
)

// Unbounded is the end day of an ongoing interval.
const Unbounded = math.MaxInt

// Interval is a closed range of days since the Unix epoch. Partial dates are
// widened to the most permissive days they can denote.
type Interval struct {
	Start int
	End   int
	// Known is false when the start date is unknown; such intervals cannot be aligned.
	Known bool
	// Ongoing marks an End of Unbounded.
	Ongoing bool
	// Approximate is set when any boundary is coarser than a day or the end is unknown.
	Approximate bool
	// EndUnknown marks an end that was not observed; End then closes the start's unit.
	EndUnknown bool
}

// Day converts t to days since the Unix epoch.
func Day(t time.Time) int {
	return int(t.Unix() / 86400)
}

// Time converts a day number back to a UTC date.
func Time(day int) time.Time {
	return time.Unix(int64(day)*86400, 0).UTC()
}

// FromRecord derives the interval of a record.
func FromRecord(r employment.Record) Interval {
	if !r.Start.Known() {
		return Interval{Approximate: true, EndUnknown: !r.End.Known() && !r.End.Ongoing()}
	}

	iv := Interval{
		Start:       Day(r.Start.First()),
		Known:       true,
		Approximate: r.Start.Precision != employment.PrecisionDay,
	}

	switch {
	case r.End.Ongoing():
		iv.End = Unbounded
		iv.Ongoing = true
	case r.End.Known():
		iv.End = Day(r.End.Date.Last())
		if r.End.Date.Precision != employment.PrecisionDay {
			iv.Approximate = true
		}
	default:
		iv.End = Day(r.Start.Last())
		iv.EndUnknown = true
		iv.Approximate = true
	}

	return iv
}

// Clip returns the end day bounded by horizon. The result never precedes Start.
func (iv Interval) Clip(horizon int) int {
	end := iv.End
	if end > horizon {
		end = horizon
	}
	if end < iv.Start {
		end = iv.Start
	}
	return end
}

// Days is the clipped length of the interval in days.
func (iv Interval) Days(horizon int) int {
	if !iv.Known {
		return 0
	}
	return iv.Clip(horizon) - iv.Start + 1
}

// LatestDay returns the latest concrete day mentioned by the intervals: any
// closed end or any start. It is the default horizon for ongoing ends.
func LatestDay(intervals ...Interval) int {
	latest := math.MinInt
	for _, iv := range intervals {
		if !iv.Known {
			continue
		}
		latest = max(latest, iv.Start)
		if !iv.Ongoing {
			latest = max(latest, iv.End)
		}
	}
	return latest
}
