// Package matching solves maximum-weight bipartite matching with the
// Hungarian method. Weights are compared lexicographically so that callers
// can encode tie-breaking rules without mixing magnitudes.
package matching

import "math"

// Weight is an edge weight ordered by Primary, then Secondary, then Tertiary.
// Weights form an ordered group under component-wise addition, which is all
// the Hungarian method needs.
type Weight struct {
	Primary   int64
	Secondary int64
	Tertiary  int64
}

var infinite = Weight{Primary: math.MaxInt64 / 4}

func (w Weight) Add(o Weight) Weight {
	return Weight{w.Primary + o.Primary, w.Secondary + o.Secondary, w.Tertiary + o.Tertiary}
}

func (w Weight) Sub(o Weight) Weight {
	return Weight{w.Primary - o.Primary, w.Secondary - o.Secondary, w.Tertiary - o.Tertiary}
}

func (w Weight) Neg() Weight {
	return Weight{-w.Primary, -w.Secondary, -w.Tertiary}
}

// Less orders weights lexicographically.
func (w Weight) Less(o Weight) bool {
	if w.Primary != o.Primary {
		return w.Primary < o.Primary
	}
	if w.Secondary != o.Secondary {
		return w.Secondary < o.Secondary
	}
	return w.Tertiary < o.Tertiary
}

// Positive reports whether w is greater than the zero weight.
func (w Weight) Positive() bool {
	return Weight{}.Less(w)
}

// Solve returns, for every row of weights, the matched column or -1. Only
// edges with a positive weight are ever matched; zero or negative entries
// mean "no edge". The total weight of the matching is maximal. Rows may have
// different lengths; missing entries are treated as no edge.
func Solve(weights [][]Weight) []int {
	rows := len(weights)
	cols := 0
	for _, row := range weights {
		cols = max(cols, len(row))
	}

	assignment := make([]int, rows)
	for i := range assignment {
		assignment[i] = -1
	}
	if rows == 0 || cols == 0 {
		return assignment
	}

	n := max(rows, cols)
	cost := func(i, j int) Weight {
		if i >= rows || j >= len(weights[i]) {
			return Weight{}
		}
		w := weights[i][j]
		if !w.Positive() {
			return Weight{}
		}
		return w.Neg()
	}

	// Potentials and the matching are 1-indexed; index 0 is a sentinel.
	u := make([]Weight, n+1)
	v := make([]Weight, n+1)
	p := make([]int, n+1)
	way := make([]int, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]Weight, n+1)
		used := make([]bool, n+1)
		for j := range minv {
			minv[j] = infinite
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := infinite
			j1 := 0

			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost(i0-1, j-1).Sub(u[i0]).Sub(v[j])
				if cur.Less(minv[j]) {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j].Less(delta) {
					delta = minv[j]
					j1 = j
				}
			}

			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] = u[p[j]].Add(delta)
					v[j] = v[j].Sub(delta)
				} else {
					minv[j] = minv[j].Sub(delta)
				}
			}

			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	for j := 1; j <= n; j++ {
		i := p[j] - 1
		if i < 0 || i >= rows || j-1 >= len(weights[i]) {
			continue
		}
		if weights[i][j-1].Positive() {
			assignment[i] = j - 1
		}
	}

	return assignment
}

// Total sums the weights selected by an assignment.
func Total(weights [][]Weight, assignment []int) Weight {
	var total Weight
	for i, j := range assignment {
		if j >= 0 {
			total = total.Add(weights[i][j])
		}
	}
	return total
}
