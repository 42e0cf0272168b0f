package domain

import "time"

// DayOfYear returns the 1-based day of the year (1..366).
func DayOfYear(t time.Time) int {
	return t.YearDay()
}

// DecimalYear converts a date to fractional years, e.g. 2000-07-02 -> 2000.5.
func DecimalYear(t time.Time) float64 {
	year := t.Year()
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, t.Location())
	end := start.AddDate(1, 0, 0)
	return float64(year) + t.Sub(start).Hours()/end.Sub(start).Hours()
}

// DecimalYears applies DecimalYear to every date.
func DecimalYears(dates []time.Time) []float64 {
	out := make([]float64, len(dates))
	for i, d := range dates {
		out[i] = DecimalYear(d)
	}
	return out
}

// Gap is a run of consecutive missing calendar days.
type Gap struct {
	From time.Time // first missing day
	To   time.Time // last missing day
}

// Days returns the number of missing days in the gap.
func (g Gap) Days() int {
	return int(g.To.Sub(g.From).Hours()/24) + 1
}

// Gaps lists missing calendar days between consecutive values of a sorted series.
func Gaps(s Series) []Gap {
	var gaps []Gap
	for i := 1; i < len(s.Values); i++ {
		prev := truncateDay(s.Values[i-1].Date)
		cur := truncateDay(s.Values[i].Date)
		next := prev.AddDate(0, 0, 1)
		if cur.After(next) {
			gaps = append(gaps, Gap{From: next, To: cur.AddDate(0, 0, -1)})
		}
	}
	return gaps
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
