package analysis

import (
	"math"
	"time"
)

// MonthSummary describes the values falling in one calendar month across
// all years.
type MonthSummary struct {
	Month      time.Month
	N          int
	Min        float64
	LowerHinge float64
	Median     float64
	UpperHinge float64
	Max        float64
	Mean       float64
	// Values are the month's observations in input order, for box plots.
	Values []float64
}

// Monthly groups values by the calendar month of their date. It always
// returns twelve entries, January first; months without data have N == 0
// and NaN statistics.
func Monthly(dates []time.Time, values []float64) ([]MonthSummary, error) {
	if len(dates) != len(values) {
		return nil, ErrLengthMismatch
	}

	out := make([]MonthSummary, 12)
	for i := range out {
		out[i].Month = time.Month(i + 1)
	}
	for i, d := range dates {
		if math.IsNaN(values[i]) {
			continue
		}
		m := &out[d.Month()-1]
		m.Values = append(m.Values, values[i])
	}

	for i := range out {
		m := &out[i]
		s, err := Summarize(m.Values)
		if err != nil {
			nan := math.NaN()
			m.Min, m.LowerHinge, m.Median, m.UpperHinge, m.Max, m.Mean = nan, nan, nan, nan, nan, nan
			continue
		}
		m.N = s.N
		m.Min, m.LowerHinge, m.Median = s.Min, s.LowerHinge, s.Median
		m.UpperHinge, m.Max, m.Mean = s.UpperHinge, s.Max, s.Mean
	}
	return out, nil
}
