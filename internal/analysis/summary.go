package analysis

import (
	"math"
	"slices"
	"strconv"

	"github.com/aclements/go-moremath/stats"
	"gonum.org/v1/gonum/stat"
)

// letterTags names successive letter values: median, fourths (hinges),
// eighths, sixteenths and so on.
// Levels past the last tag are named L<k>.
var letterTags = []string{"M", "F", "E", "D", "C", "B", "A", "Z", "Y", "X", "W", "V", "U", "T", "S", "R"}

func letterTag(k int) string {
	if k < len(letterTags) {
		return letterTags[k]
	}
	return "L" + strconv.Itoa(k+1)
}

// LetterValue is one pair of Tukey letter values at a given depth.
type LetterValue struct {
	Tag    string
	Depth  float64
	Lower  float64
	Upper  float64
	Mid    float64 // midsummary (Lower+Upper)/2
	Spread float64 // Upper-Lower
}

// Summary describes the shape of a batch of values.
type Summary struct {
	N          int
	Min        float64
	LowerHinge float64
	Median     float64
	UpperHinge float64
	Max        float64
	Mean       float64
	StdDev     float64

	// Skewness is the moment coefficient of skewness.
	Skewness float64
	// BowleySkew is the quartile skewness (Fu + Fl - 2M) / (Fu - Fl), in [-1, 1].
	BowleySkew float64

	LetterValues []LetterValue
}

// Summarize computes the five-number summary, moments and letter values.
// NaN values are ignored.
func Summarize(xs []float64) (Summary, error) {
	clean := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			clean = append(clean, x)
		}
	}
	if len(clean) == 0 {
		return Summary{}, ErrTooFewPoints
	}

	sample := stats.Sample{Xs: clean}
	sample.Sort()

	lvs := LetterValues(sample.Xs)
	s := Summary{
		N:            len(clean),
		Mean:         sample.Mean(),
		LetterValues: lvs,
		Median:       lvs[0].Lower,
	}
	s.Min, s.Max = sample.Bounds()
	if len(clean) > 1 {
		s.StdDev = sample.StdDev()
		s.Skewness = stat.Skew(clean, nil)
	}
	if len(lvs) > 1 {
		s.LowerHinge, s.UpperHinge = lvs[1].Lower, lvs[1].Upper
	} else {
		s.LowerHinge, s.UpperHinge = s.Median, s.Median
	}
	s.BowleySkew = bowley(s.LowerHinge, s.Median, s.UpperHinge)
	return s, nil
}

// LetterValues computes Tukey's letter values from sorted data. Depth
// halves at each level, d(k+1) = (floor(d(k)) + 1) / 2, and stops once
// the depth reaches 1 (the extremes).
func LetterValues(sorted []float64) []LetterValue {
	n := len(sorted)
	if n == 0 {
		return nil
	}

	var out []LetterValue
	depth := float64(n+1) / 2
	for i := 0; ; i++ {
		lo := valueAtDepth(sorted, depth)
		hi := valueAtDepth(sorted, float64(n+1)-depth)
		out = append(out, LetterValue{
			Tag:    letterTag(i),
			Depth:  depth,
			Lower:  lo,
			Upper:  hi,
			Mid:    (lo + hi) / 2,
			Spread: hi - lo,
		})
		if depth <= 1 {
			break
		}
		depth = (math.Floor(depth) + 1) / 2
	}
	return out
}

// valueAtDepth returns the value at a 1-based depth, averaging the two
// neighbours for half depths.
func valueAtDepth(sorted []float64, depth float64) float64 {
	lo := int(math.Floor(depth)) - 1
	hi := int(math.Ceil(depth)) - 1
	lo = min(max(lo, 0), len(sorted)-1)
	hi = min(max(hi, 0), len(sorted)-1)
	return (sorted[lo] + sorted[hi]) / 2
}

func bowley(lower, median, upper float64) float64 {
	spread := upper - lower
	if spread == 0 {
		return 0
	}
	return (upper + lower - 2*median) / spread
}

// Median returns the median of xs, ignoring NaN. It returns NaN for no data.
func Median(xs []float64) float64 {
	sorted := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			sorted = append(sorted, x)
		}
	}
	if len(sorted) == 0 {
		return math.NaN()
	}
	slices.Sort(sorted)
	return valueAtDepth(sorted, float64(len(sorted)+1)/2)
}
