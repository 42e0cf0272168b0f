package analysis

import (
	"fmt"
	"math"
	"time"

	"github.com/couchcryptid/streamflow-eda/internal/domain"
)

// SurfaceOptions configures the day-of-year by year residual surface.
type SurfaceOptions struct {
	Loess LoessOptions
	// DayStep and YearStep are the grid spacing. Zero means 5 days and
	// 1 year.
	DayStep  int
	YearStep int
}

// Surface is a smoothed field evaluated on a regular grid.
type Surface struct {
	Days  []float64
	Years []float64
	// Z is indexed [year][day].
	Z [][]float64
	// Min and Max bound the finite values of Z.
	Min float64
	Max float64
}

// At returns the value at grid cell (day index c, year index r).
func (s Surface) At(c, r int) float64 {
	return s.Z[r][c]
}

// ResidualSurface fits a 2-D loess of values on (day of year, calendar
// year) and evaluates it on a grid spanning days 1..366 and the years
// present in dates.
func ResidualSurface(dates []time.Time, values []float64, opts SurfaceOptions) (Surface, error) {
	if len(dates) != len(values) {
		return Surface{}, ErrLengthMismatch
	}
	if len(dates) == 0 {
		return Surface{}, fmt.Errorf("residual surface: %w", ErrTooFewPoints)
	}
	dayStep := opts.DayStep
	if dayStep <= 0 {
		dayStep = 5
	}
	yearStep := opts.YearStep
	if yearStep <= 0 {
		yearStep = 1
	}

	doy := make([]float64, len(dates))
	year := make([]float64, len(dates))
	first, last := dates[0].Year(), dates[0].Year()
	for i, d := range dates {
		doy[i] = float64(domain.DayOfYear(d))
		year[i] = float64(d.Year())
		first, last = min(first, d.Year()), max(last, d.Year())
	}

	fit, err := FitLoess2D(doy, year, values, opts.Loess)
	if err != nil {
		return Surface{}, fmt.Errorf("residual surface: %w", err)
	}

	var s Surface
	for d := 1; d <= 366; d += dayStep {
		s.Days = append(s.Days, float64(d))
	}
	for y := first; y <= last; y += yearStep {
		s.Years = append(s.Years, float64(y))
	}
	s.Z = fit.Grid(s.Days, s.Years)

	s.Min, s.Max = math.Inf(1), math.Inf(-1)
	for _, row := range s.Z {
		for _, z := range row {
			if math.IsNaN(z) {
				continue
			}
			s.Min, s.Max = min(s.Min, z), max(s.Max, z)
		}
	}
	return s, nil
}
