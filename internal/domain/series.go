package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// DateLayout is the ISO date format used by NWIS requests and snapshots.
const DateLayout = "2006-01-02"

var (
	// ErrEmptySeries is returned when an operation needs at least one value.
	ErrEmptySeries = errors.New("empty series")

	// ErrInvalidRange is returned for a date range whose start is not before its end.
	ErrInvalidRange = errors.New("invalid date range")
)

// Site identifies one NWIS time series: a monitoring location plus the
// parameter and statistic codes requested for it.
type Site struct {
	ID        string `json:"site"`
	Parameter string `json:"parameter"`
	Statistic string `json:"statistic"`
	Name      string `json:"name,omitempty"` // station name reported by the service
	Unit      string `json:"unit,omitempty"`
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Validate checks that both bounds are set and Start is before End.
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidRange)
	}
	if !r.Start.Before(r.End) {
		return fmt.Errorf("%w: start %s is not before end %s", ErrInvalidRange,
			r.Start.Format(DateLayout), r.End.Format(DateLayout))
	}
	return nil
}

// Days returns the number of calendar days covered, both ends included.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// DailyValue is one day of discharge for a site.
type DailyValue struct {
	Date       time.Time `json:"date"`
	Discharge  float64   `json:"discharge"`
	Qualifiers []string  `json:"qualifiers,omitempty"`
}

// Series is an ordered run of daily values for one site.
type Series struct {
	Site   Site
	Values []DailyValue
}

// Len returns the number of daily values.
func (s Series) Len() int {
	return len(s.Values)
}

// Dates returns the date column.
func (s Series) Dates() []time.Time {
	out := make([]time.Time, len(s.Values))
	for i, v := range s.Values {
		out[i] = v.Date
	}
	return out
}

// Discharges returns the discharge column.
func (s Series) Discharges() []float64 {
	out := make([]float64, len(s.Values))
	for i, v := range s.Values {
		out[i] = v.Discharge
	}
	return out
}

// Sort orders values by ascending date in place.
func (s Series) Sort() {
	sort.SliceStable(s.Values, func(i, j int) bool {
		return s.Values[i].Date.Before(s.Values[j].Date)
	})
}

// Range returns the first and last dates. The series must be sorted.
func (s Series) Range() (DateRange, error) {
	if len(s.Values) == 0 {
		return DateRange{}, ErrEmptySeries
	}
	return DateRange{Start: s.Values[0].Date, End: s.Values[len(s.Values)-1].Date}, nil
}

// ParseDate parses an ISO calendar date into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}
