package report

import (
	"math"
	"strconv"

	"github.com/couchcryptid/streamflow-eda/internal/analysis"
)

// num formats a statistic with four significant digits.
func num(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'g', 4, 64)
}

func fiveNumber(s analysis.Summary) []Stat {
	return []Stat{
		{"n", strconv.Itoa(s.N)},
		{"Minimum", num(s.Min)},
		{"Lower hinge", num(s.LowerHinge)},
		{"Median", num(s.Median)},
		{"Upper hinge", num(s.UpperHinge)},
		{"Maximum", num(s.Max)},
		{"Mean", num(s.Mean)},
	}
}

func describeSkew(bowley float64) string {
	switch {
	case math.Abs(bowley) < 0.1:
		return "roughly symmetric"
	case bowley >= 0.3:
		return "strongly right-skewed"
	case bowley > 0:
		return "mildly right-skewed"
	case bowley <= -0.3:
		return "strongly left-skewed"
	default:
		return "mildly left-skewed"
	}
}

// driftWord describes how the midsummaries of the F, E and D letter values
// move away from the median.
func driftWord(lvs []analysis.LetterValue) string {
	if len(lvs) < 2 {
		return "little"
	}
	median := lvs[0].Mid
	last := lvs[min(3, len(lvs)-1)].Mid
	spread := lvs[1].Spread
	if spread == 0 || math.Abs(last-median) < 0.05*spread {
		return "little"
	}
	if last > median {
		return "upward"
	}
	return "downward"
}

func maxAbs(xs []float64) float64 {
	var m float64
	for _, x := range xs {
		if !math.IsNaN(x) {
			m = max(m, math.Abs(x))
		}
	}
	return m
}
