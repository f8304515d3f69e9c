package reconcile

import (
	"cmp"
	"slices"

	"github.com/spigell/pf-reconciler/internal/employment"
	"github.com/spigell/pf-reconciler/internal/interval"
)

// span is a closed range of days.
type span struct {
	start, end int
}

func (s span) days() int { return s.end - s.start + 1 }

// coverage measures how much CV-claimed time the pairs corroborate. Only
// pairs whose periods actually overlap count as corroboration.
func coverage(aligner *interval.Aligner, cv []Entry, pairs []Pair) Coverage {
	var claimed []span
	for _, entry := range cv {
		if !entry.Interval.Known {
			continue
		}
		claimed = append(claimed, span{entry.Interval.Start, entry.Interval.Clip(aligner.Horizon())})
	}

	var corroborated []span
	for _, pair := range pairs {
		ev := pair.Classification.Evidence
		if ev == nil || ev.OverlapScore <= 0 {
			continue
		}
		if start, end, ok := aligner.Intersection(pair.CV.Interval, pair.PF.Interval); ok {
			corroborated = append(corroborated, span{start, end})
		}
	}

	claimed = merge(claimed)
	corroborated = merge(corroborated)

	out := Coverage{
		ClaimedDays:      total(claimed),
		CorroboratedDays: total(corroborated),
		Gaps:             []Gap{},
	}
	if out.ClaimedDays > 0 {
		out.Ratio = float64(out.CorroboratedDays) / float64(out.ClaimedDays)
	}

	for _, gap := range subtract(claimed, corroborated) {
		out.Gaps = append(out.Gaps, Gap{
			Start: employment.FromTime(interval.Time(gap.start)),
			End:   employment.FromTime(interval.Time(gap.end)),
			Days:  gap.days(),
		})
	}

	return out
}

// merge sorts spans and joins those that overlap or touch.
func merge(spans []span) []span {
	if len(spans) == 0 {
		return nil
	}

	sorted := slices.Clone(spans)
	slices.SortFunc(sorted, func(a, b span) int {
		if c := cmp.Compare(a.start, b.start); c != 0 {
			return c
		}
		return cmp.Compare(a.end, b.end)
	})

	out := []span{sorted[0]}
	for _, s := range sorted[1:] {
		last := &out[len(out)-1]
		if s.start <= last.end+1 {
			last.end = max(last.end, s.end)
			continue
		}
		out = append(out, s)
	}
	return out
}

// subtract returns the parts of from not covered by minus. Both must be merged.
func subtract(from, minus []span) []span {
	var out []span
	j := 0
	for _, s := range from {
		cur := s.start
		for j < len(minus) && minus[j].end < cur {
			j++
		}
		for k := j; k < len(minus) && minus[k].start <= s.end; k++ {
			if minus[k].start > cur {
				out = append(out, span{cur, minus[k].start - 1})
			}
			cur = max(cur, minus[k].end+1)
		}
		if cur <= s.end {
			out = append(out, span{cur, s.end})
		}
	}
	return out
}

func total(spans []span) int {
	n := 0
	for _, s := range spans {
		n += s.days()
	}
	return n
}
