package plot

import (
	"cmp"
	"math"
	"slices"
)

func finite(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			out = append(out, x)
		}
	}
	return out
}

func finitePairs(xs, ys []float64) ([]float64, []float64) {
	ox, oy := make([]float64, 0, len(xs)), make([]float64, 0, len(ys))
	for i := range xs {
		if math.IsNaN(ys[i]) || math.IsInf(ys[i], 0) {
			continue
		}
		ox = append(ox, xs[i])
		oy = append(oy, ys[i])
	}
	return ox, oy
}

// sortPairs orders both slices by xs.
func sortPairs(xs, ys []float64) {
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int { return cmp.Compare(xs[a], xs[b]) })
	sx, sy := make([]float64, len(xs)), make([]float64, len(ys))
	for k, i := range idx {
		sx[k], sy[k] = xs[i], ys[i]
	}
	copy(xs, sx)
	copy(ys, sy)
}
