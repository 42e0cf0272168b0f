package analysis

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Family selects the error distribution assumed by a loess fit.
type Family string

const (
	// FamilyGaussian fits once by weighted least squares.
	FamilyGaussian Family = "gaussian"
	// FamilySymmetric refits with bisquare robustness weights so isolated
	// outliers do not pull the curve.
	FamilySymmetric Family = "symmetric"
)

// DefaultRobustIterations is the number of fits made by the symmetric family.
const DefaultRobustIterations = 4

// LoessOptions configures a loess fit.
type LoessOptions struct {
	// Span is the fraction of points in each local neighbourhood. Values
	// above 1 use every point and inflate the neighbourhood radius.
	Span float64
	// Degree of the local polynomial, 0, 1 or 2.
	Degree int
	Family Family
	// Iterations is the total number of fits for FamilySymmetric.
	// Zero means DefaultRobustIterations.
	Iterations int
}

func (o LoessOptions) validate() error {
	if !(o.Span > 0) || math.IsInf(o.Span, 0) {
		return fmt.Errorf("span %g: %w", o.Span, ErrInvalidSpan)
	}
	if o.Degree < 0 || o.Degree > 2 {
		return fmt.Errorf("degree %d: %w", o.Degree, ErrInvalidSpan)
	}
	switch o.Family {
	case "", FamilyGaussian, FamilySymmetric:
	default:
		return fmt.Errorf("unknown loess family %q", o.Family)
	}
	return nil
}

func (o LoessOptions) fits() int {
	if o.Family != FamilySymmetric {
		return 1
	}
	if o.Iterations > 0 {
		return o.Iterations
	}
	return DefaultRobustIterations
}

// neighbours returns q = ceil(span*n), clamped to [1, n].
func (o LoessOptions) neighbours(n int) int {
	q := int(math.Ceil(o.Span * float64(n)))
	return min(max(q, 1), n)
}

// Loess is a fitted one-predictor local regression.
type Loess struct {
	opts    LoessOptions
	q       int
	inflate float64
	xs      []float64 // predictor, ascending
	ys      []float64
	robust  []float64
	order   []int // order[k] is the input index of xs[k]
	fitted  []float64
}

// FitLoess fits y against x. NaN pairs are not allowed.
func FitLoess(x, y []float64, opts LoessOptions) (*Loess, error) {
	if len(x) != len(y) {
		return nil, ErrLengthMismatch
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	n := len(x)
	if n < opts.Degree+1 {
		return nil, fmt.Errorf("loess of degree %d on %d points: %w", opts.Degree, n, ErrTooFewPoints)
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(x[a], x[b]) })

	l := &Loess{
		opts:    opts,
		q:       opts.neighbours(n),
		inflate: max(opts.Span, 1),
		xs:      make([]float64, n),
		ys:      make([]float64, n),
		robust:  make([]float64, n),
		order:   order,
		fitted:  make([]float64, n),
	}
	for k, i := range order {
		l.xs[k], l.ys[k] = x[i], y[i]
		l.robust[k] = 1
	}

	resid := make([]float64, n)
	for it := range opts.fits() {
		for k, x0 := range l.xs {
			l.fitted[k] = l.fitAt(x0)
			resid[k] = l.ys[k] - l.fitted[k]
		}
		if it == opts.fits()-1 || !bisquareUpdate(resid, l.robust) {
			break
		}
	}
	return l, nil
}

// Fitted returns the fitted values in input order.
func (l *Loess) Fitted() []float64 {
	out := make([]float64, len(l.fitted))
	for k, i := range l.order {
		out[i] = l.fitted[k]
	}
	return out
}

// Residuals returns y minus the fitted values, in input order.
func (l *Loess) Residuals() []float64 {
	out := make([]float64, len(l.fitted))
	for k, i := range l.order {
		out[i] = l.ys[k] - l.fitted[k]
	}
	return out
}

// Predict evaluates the curve at each point of at, using the final
// robustness weights. Points where no local fit is possible are NaN.
func (l *Loess) Predict(at []float64) []float64 {
	out := make([]float64, len(at))
	for i, x0 := range at {
		out[i] = l.fitAt(x0)
	}
	return out
}

// window returns the start of the q nearest neighbours of x0 in xs and the
// neighbourhood radius.
func (l *Loess) window(x0 float64) (int, float64) {
	n := len(l.xs)
	lo, _ := slices.BinarySearch(l.xs, x0)
	lo = min(max(lo-l.q/2, 0), n-l.q)
	for lo > 0 && x0-l.xs[lo-1] < l.xs[lo+l.q-1]-x0 {
		lo--
	}
	for lo+l.q < n && l.xs[lo+l.q]-x0 < x0-l.xs[lo] {
		lo++
	}
	h := max(x0-l.xs[lo], l.xs[lo+l.q-1]-x0) * l.inflate
	return lo, h
}

func (l *Loess) fitAt(x0 float64) float64 {
	lo, h := l.window(x0)
	p := l.opts.Degree + 1
	eq := newNormalEq(p)
	for _, useRobust := range []bool{true, false} {
		eq.reset()
		for k := lo; k < lo+l.q; k++ {
			w, u := 1.0, 0.0
			if h > 0 {
				u = (l.xs[k] - x0) / h
				w = tricube(math.Abs(u))
			}
			if useRobust {
				w *= l.robust[k]
			}
			if w == 0 {
				continue
			}
			eq.row[0] = 1
			if p > 1 {
				eq.row[1] = u
			}
			if p > 2 {
				eq.row[2] = u * u
			}
			eq.add(w, l.ys[k])
		}
		for terms := p; terms >= 1; terms-- {
			if v, ok := eq.solve(terms); ok {
				return v
			}
		}
	}
	return math.NaN()
}

// Loess2D is a fitted two-predictor local regression. Both predictors are
// divided by their standard deviation before distances are taken.
type Loess2D struct {
	opts    LoessOptions
	q       int
	inflate float64
	scaleU  float64
	scaleV  float64
	u, v, y []float64
	robust  []float64
	fitted  []float64
}

// FitLoess2D fits y against the predictor pair (x1, x2).
func FitLoess2D(x1, x2, y []float64, opts LoessOptions) (*Loess2D, error) {
	if len(x1) != len(y) || len(x2) != len(y) {
		return nil, ErrLengthMismatch
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	n := len(y)
	if n < surfaceTerms(opts.Degree) {
		return nil, fmt.Errorf("2-D loess of degree %d on %d points: %w", opts.Degree, n, ErrTooFewPoints)
	}

	l := &Loess2D{
		opts:    opts,
		q:       opts.neighbours(n),
		inflate: math.Sqrt(max(opts.Span, 1)),
		scaleU:  spread(x1),
		scaleV:  spread(x2),
		u:       make([]float64, n),
		v:       make([]float64, n),
		y:       slices.Clone(y),
		robust:  make([]float64, n),
	}
	for i := range y {
		l.u[i] = x1[i] / l.scaleU
		l.v[i] = x2[i] / l.scaleV
		l.robust[i] = 1
	}

	if opts.fits() > 1 {
		scratch := make([]float64, 2*n)
		resid := make([]float64, n)
		l.fitted = make([]float64, n)
		for it := range opts.fits() {
			for i := range y {
				l.fitted[i] = l.fitAt(l.u[i], l.v[i], scratch)
				resid[i] = y[i] - l.fitted[i]
			}
			if it == opts.fits()-1 || !bisquareUpdate(resid, l.robust) {
				break
			}
		}
	}
	return l, nil
}

// Fitted returns the fitted values at the data points.
func (l *Loess2D) Fitted() []float64 {
	if l.fitted == nil {
		scratch := make([]float64, 2*len(l.y))
		l.fitted = make([]float64, len(l.y))
		for i := range l.y {
			l.fitted[i] = l.fitAt(l.u[i], l.v[i], scratch)
		}
	}
	return slices.Clone(l.fitted)
}

// Predict evaluates the surface at (a, b) in the original predictor units.
func (l *Loess2D) Predict(a, b float64) float64 {
	return l.fitAt(a/l.scaleU, b/l.scaleV, make([]float64, 2*len(l.y)))
}

// Grid evaluates the surface on the cartesian product of xs1 and xs2.
// The result is indexed [j][i] for xs2[j], xs1[i].
func (l *Loess2D) Grid(xs1, xs2 []float64) [][]float64 {
	scratch := make([]float64, 2*len(l.y))
	out := make([][]float64, len(xs2))
	for j, b := range xs2 {
		out[j] = make([]float64, len(xs1))
		for i, a := range xs1 {
			out[j][i] = l.fitAt(a/l.scaleU, b/l.scaleV, scratch)
		}
	}
	return out
}

func (l *Loess2D) fitAt(a, b float64, scratch []float64) float64 {
	n := len(l.y)
	dist, sel := scratch[:n], scratch[n:2*n]
	for i := range n {
		du, dv := l.u[i]-a, l.v[i]-b
		dist[i] = math.Sqrt(du*du + dv*dv)
	}
	copy(sel, dist)
	h := selectKth(sel, l.q-1) * l.inflate

	p := surfaceTerms(l.opts.Degree)
	eq := newNormalEq(p)
	for _, useRobust := range []bool{true, false} {
		eq.reset()
		for i := range n {
			w, du, dv := 1.0, 0.0, 0.0
			if h > 0 {
				w = tricube(dist[i] / h)
				du, dv = (l.u[i]-a)/h, (l.v[i]-b)/h
			} else if dist[i] > 0 {
				w = 0
			}
			if useRobust {
				w *= l.robust[i]
			}
			if w == 0 {
				continue
			}
			eq.row[0] = 1
			if p > 1 {
				eq.row[1], eq.row[2] = du, dv
			}
			if p > 3 {
				eq.row[3], eq.row[4], eq.row[5] = du*du, du*dv, dv*dv
			}
			eq.add(w, l.y[i])
		}
		for _, terms := range []int{6, 3, 1} {
			if terms > p {
				continue
			}
			if v, ok := eq.solve(terms); ok {
				return v
			}
		}
	}
	return math.NaN()
}

func surfaceTerms(degree int) int {
	switch degree {
	case 0:
		return 1
	case 1:
		return 3
	default:
		return 6
	}
}

func spread(xs []float64) float64 {
	if len(xs) < 2 {
		return 1
	}
	sd := stat.StdDev(xs, nil)
	if !(sd > 0) {
		return 1
	}
	return sd
}

func tricube(d float64) float64 {
	if d >= 1 {
		return 0
	}
	t := 1 - d*d*d
	return t * t * t
}

// bisquareUpdate sets robustness weights from residuals scaled by six
// median absolute residuals. It reports false when the residuals are all
// zero and no further iteration can change the fit.
func bisquareUpdate(resid, robust []float64) bool {
	abs := make([]float64, len(resid))
	for i, r := range resid {
		abs[i] = math.Abs(r)
	}
	s := Median(abs)
	if !(s > 0) {
		return false
	}
	for i, r := range resid {
		u := r / (6 * s)
		if math.IsNaN(u) || math.Abs(u) >= 1 {
			robust[i] = 0
			continue
		}
		t := 1 - u*u
		robust[i] = t * t
	}
	return true
}

// normalEq accumulates the weighted normal equations of a local
// polynomial. Terms are ordered so the system for a lower degree is a
// leading principal block.
type normalEq struct {
	p   int
	ata []float64
	atb []float64
	row []float64
}

func newNormalEq(p int) *normalEq {
	return &normalEq{
		p:   p,
		ata: make([]float64, p*p),
		atb: make([]float64, p),
		row: make([]float64, p),
	}
}

func (e *normalEq) reset() {
	clear(e.ata)
	clear(e.atb)
}

func (e *normalEq) add(w, y float64) {
	for r := range e.p {
		wr := w * e.row[r]
		e.atb[r] += wr * y
		for c := range e.p {
			e.ata[r*e.p+c] += wr * e.row[c]
		}
	}
}

// solve returns the intercept of the fit using the first terms terms.
func (e *normalEq) solve(terms int) (float64, bool) {
	if e.ata[0] <= 0 {
		return 0, false
	}
	a := mat.NewDense(terms, terms, nil)
	b := mat.NewVecDense(terms, nil)
	for r := range terms {
		b.SetVec(r, e.atb[r])
		for c := range terms {
			a.Set(r, c, e.ata[r*e.p+c])
		}
	}
	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return 0, false
	}
	v := x.AtVec(0)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// selectKth partially orders a and returns its k-th smallest element.
func selectKth(a []float64, k int) float64 {
	lo, hi := 0, len(a)-1
	for lo < hi {
		pivot := a[lo+(hi-lo)/2]
		i, j := lo, hi
		for i <= j {
			for a[i] < pivot {
				i++
			}
			for a[j] > pivot {
				j--
			}
			if i <= j {
				a[i], a[j] = a[j], a[i]
				i++
				j--
			}
		}
		switch {
		case k <= j:
			hi = j
		case k >= i:
			lo = i
		default:
			return a[k]
		}
	}
	return a[k]
}
