package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Method selects how a straight line is fitted.
type Method string

const (
	MethodOLS      Method = "ols"
	MethodHuber    Method = "huber"
	MethodBisquare Method = "bisquare"
)

// Tuning constants giving 95% efficiency at the normal distribution.
const (
	HuberK    = 1.345
	BisquareC = 4.685
)

const (
	robustMaxIterations = 20
	robustTolerance     = 1e-6
	// madNormal rescales the median absolute residual to a standard deviation.
	madNormal = 0.6745
)

// Line is a fitted straight line y = Intercept + Slope*x.
type Line struct {
	Intercept float64
	Slope     float64
	Method    Method

	// Scale is the residual scale: the residual standard error for OLS and
	// the MAD estimate for robust fits.
	Scale    float64
	RSquared float64

	Iterations int
	Converged  bool
	// Weights are the final IRLS weights; nil for OLS.
	Weights []float64
}

// At evaluates the line at x.
func (l Line) At(x float64) float64 {
	return l.Intercept + l.Slope*x
}

// Residuals returns y - At(x) for each pair.
func (l Line) Residuals(x, y []float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = y[i] - l.At(x[i])
	}
	return out
}

// FitLine fits a straight line with the given method.
func FitLine(x, y []float64, method Method) (Line, error) {
	switch method {
	case MethodOLS, "":
		return OLS(x, y)
	case MethodHuber, MethodBisquare:
		return Robust(x, y, method)
	}
	return Line{}, fmt.Errorf("unknown regression method %q", method)
}

// OLS fits a line by ordinary least squares.
func OLS(x, y []float64) (Line, error) {
	if err := checkLineInput(x, y); err != nil {
		return Line{}, err
	}
	alpha, beta := stat.LinearRegression(x, y, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) {
		return Line{}, ErrSingular
	}

	l := Line{Intercept: alpha, Slope: beta, Method: MethodOLS, Converged: true}
	l.RSquared = stat.RSquared(x, y, nil, alpha, beta)
	if len(x) > 2 {
		var rss float64
		for _, r := range l.Residuals(x, y) {
			rss += r * r
		}
		l.Scale = math.Sqrt(rss / float64(len(x)-2))
	}
	return l, nil
}

// Robust fits a line by M-estimation with iteratively reweighted least
// squares, starting from the OLS fit. The scale is re-estimated from the
// median absolute residual at every step. Iteration stops when the
// relative change in residuals falls below 1e-6 or after 20 steps.
func Robust(x, y []float64, method Method) (Line, error) {
	var psi func(float64) float64
	switch method {
	case MethodHuber:
		psi = huberWeight
	case MethodBisquare:
		psi = bisquareWeight
	default:
		return Line{}, fmt.Errorf("unknown robust method %q", method)
	}

	l, err := OLS(x, y)
	if err != nil {
		return Line{}, err
	}
	l.Method = method
	l.Converged = false

	w := make([]float64, len(x))
	resid := l.Residuals(x, y)
	for it := 1; it <= robustMaxIterations; it++ {
		l.Iterations = it
		l.Scale = madScale(resid)
		if l.Scale == 0 {
			l.Converged = true
			for i := range w {
				w[i] = 1
			}
			break
		}

		var sumW float64
		for i, r := range resid {
			w[i] = psi(r / l.Scale)
			sumW += w[i]
		}
		if sumW == 0 {
			return Line{}, fmt.Errorf("robust %s fit: all weights zero: %w", method, ErrSingular)
		}

		alpha, beta := stat.LinearRegression(x, y, w, false)
		if math.IsNaN(alpha) || math.IsNaN(beta) {
			return Line{}, fmt.Errorf("robust %s fit: %w", method, ErrSingular)
		}
		l.Intercept, l.Slope = alpha, beta

		next := l.Residuals(x, y)
		change := residualChange(resid, next)
		resid = next
		if change < robustTolerance {
			l.Converged = true
			break
		}
	}

	l.Weights = w
	l.RSquared = stat.RSquared(x, y, nil, l.Intercept, l.Slope)
	return l, nil
}

func checkLineInput(x, y []float64) error {
	if len(x) != len(y) {
		return ErrLengthMismatch
	}
	if len(x) < 2 {
		return fmt.Errorf("line through %d points: %w", len(x), ErrTooFewPoints)
	}
	lo, hi := x[0], x[0]
	for _, v := range x {
		lo, hi = min(lo, v), max(hi, v)
	}
	if lo == hi {
		return fmt.Errorf("predictor is constant: %w", ErrSingular)
	}
	return nil
}

func huberWeight(u float64) float64 {
	a := math.Abs(u)
	if a <= HuberK {
		return 1
	}
	return HuberK / a
}

func bisquareWeight(u float64) float64 {
	a := math.Abs(u) / BisquareC
	if a >= 1 {
		return 0
	}
	t := 1 - a*a
	return t * t
}

func madScale(resid []float64) float64 {
	abs := make([]float64, len(resid))
	for i, r := range resid {
		abs[i] = math.Abs(r)
	}
	return Median(abs) / madNormal
}

// residualChange is the root relative change between two residual vectors.
func residualChange(prev, next []float64) float64 {
	var num, den float64
	for i := range prev {
		d := prev[i] - next[i]
		num += d * d
		den += prev[i] * prev[i]
	}
	if den == 0 {
		return 0
	}
	return math.Sqrt(num / den)
}
