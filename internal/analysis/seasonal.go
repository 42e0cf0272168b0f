package analysis

import (
	"time"

	"github.com/couchcryptid/streamflow-eda/internal/domain"
)

// Seasonal is a smooth annual cycle fitted against day of year.
type Seasonal struct {
	// Days is 1..366 and Curve the smooth evaluated there.
	Days  []float64
	Curve []float64
	// Component is the smooth at each observation's day of year, and
	// Adjusted the observation with it removed.
	Component []float64
	Adjusted  []float64
}

// SeasonalSmooth fits a loess of values against day of year.
func SeasonalSmooth(dates []time.Time, values []float64, opts LoessOptions) (Seasonal, error) {
	if len(dates) != len(values) {
		return Seasonal{}, ErrLengthMismatch
	}

	doy := make([]float64, len(dates))
	for i, d := range dates {
		doy[i] = float64(domain.DayOfYear(d))
	}
	fit, err := FitLoess(doy, values, opts)
	if err != nil {
		return Seasonal{}, err
	}

	s := Seasonal{
		Days:      make([]float64, 366),
		Component: fit.Fitted(),
		Adjusted:  fit.Residuals(),
	}
	for i := range s.Days {
		s.Days[i] = float64(i + 1)
	}
	s.Curve = fit.Predict(s.Days)
	return s, nil
}
