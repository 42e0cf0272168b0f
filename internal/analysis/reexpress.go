package analysis

import (
	"fmt"
	"math"
	"strconv"
)

// DefaultPower is the re-expression that makes daily discharge roughly
// symmetric.
const DefaultPower = 0.2

// Reexpress applies Tukey's power transformation to every value:
// x^p for p > 0, log10(x) for p == 0 and -x^p for p < 0, so order is
// preserved for every power. Negative values are always rejected; zero is
// rejected for p <= 0.
func Reexpress(xs []float64, p float64) ([]float64, error) {
	out := make([]float64, len(xs))
	for i, x := range xs {
		v, err := reexpress(x, p)
		if err != nil {
			return nil, fmt.Errorf("value %d (%g): %w", i, x, err)
		}
		out[i] = v
	}
	return out, nil
}

func reexpress(x, p float64) (float64, error) {
	switch {
	case math.IsNaN(x):
		return math.NaN(), nil
	case x < 0:
		return 0, ErrNonPositive
	case p == 0:
		if x == 0 {
			return 0, ErrNonPositive
		}
		return math.Log10(x), nil
	case p < 0:
		if x == 0 {
			return 0, ErrNonPositive
		}
		return -math.Pow(x, p), nil
	default:
		return math.Pow(x, p), nil
	}
}

// PowerLabel names a power the way it appears on plot axes.
func PowerLabel(p float64) string {
	switch p {
	case 1:
		return "x"
	case 0.5:
		return "√x"
	case 0:
		return "log x"
	case -0.5:
		return "-1/√x"
	case -1:
		return "-1/x"
	}
	return "x^" + strconv.FormatFloat(p, 'g', -1, 64)
}

// LadderStep is the shape of the data under one power.
type LadderStep struct {
	Power      float64
	Label      string
	Valid      bool
	BowleySkew float64
	Skewness   float64
	// Midsummaries of the F, E and D letter values; a symmetric batch has
	// them roughly equal to the median.
	Median float64
	Mids   []float64
}

// Ladder re-expresses xs at each power and reports how symmetric the result
// is. Powers outside the data's domain are reported with Valid false.
func Ladder(xs []float64, powers []float64) []LadderStep {
	steps := make([]LadderStep, 0, len(powers))
	for _, p := range powers {
		step := LadderStep{Power: p, Label: PowerLabel(p)}
		re, err := Reexpress(xs, p)
		if err == nil {
			if s, err := Summarize(re); err == nil {
				step.Valid = true
				step.BowleySkew = s.BowleySkew
				step.Skewness = s.Skewness
				step.Median = s.Median
				for _, lv := range s.LetterValues[1:min(4, len(s.LetterValues))] {
					step.Mids = append(step.Mids, lv.Mid)
				}
			}
		}
		steps = append(steps, step)
	}
	return steps
}

// MostSymmetric returns the valid step with the smallest absolute quartile
// skewness, and false when no step is valid.
func MostSymmetric(steps []LadderStep) (LadderStep, bool) {
	var best LadderStep
	found := false
	for _, s := range steps {
		if !s.Valid {
			continue
		}
		if !found || math.Abs(s.BowleySkew) < math.Abs(best.BowleySkew) {
			best, found = s, true
		}
	}
	return best, found
}
