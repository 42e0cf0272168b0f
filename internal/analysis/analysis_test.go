package analysis

import (
	"math"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(lo, hi int) []float64 {
	out := make([]float64, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, float64(i))
	}
	return out
}

// wiggle is small deterministic noise.
func wiggle(i int) float64 {
	return 0.3 * math.Sin(1.3*float64(i))
}

func dailyDates(from time.Time, days int) []time.Time {
	out := make([]time.Time, days)
	for i := range out {
		out[i] = from.AddDate(0, 0, i)
	}
	return out
}

func TestSummarize(t *testing.T) {
	s, err := Summarize(seq(1, 9))
	require.NoError(t, err)

	assert.Equal(t, 9, s.N)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 3.0, s.LowerHinge)
	assert.Equal(t, 5.0, s.Median)
	assert.Equal(t, 7.0, s.UpperHinge)
	assert.Equal(t, 9.0, s.Max)
	assert.InDelta(t, 5.0, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(7.5), s.StdDev, 1e-12)
	assert.InDelta(t, 0, s.Skewness, 1e-12)
	assert.InDelta(t, 0, s.BowleySkew, 1e-12)

	tags := make([]string, len(s.LetterValues))
	for i, lv := range s.LetterValues {
		tags[i] = lv.Tag
	}
	assert.Equal(t, []string{"M", "F", "E", "D", "C"}, tags)

	d := s.LetterValues[3]
	assert.Equal(t, 1.5, d.Depth)
	assert.Equal(t, 1.5, d.Lower)
	assert.Equal(t, 8.5, d.Upper)
	assert.Equal(t, 7.0, d.Spread)
}

func TestLetterValues_ReachExtremes(t *testing.T) {
	xs := make([]float64, 10950)
	for i := range xs {
		xs[i] = float64(i + 1)
	}
	lvs := LetterValues(xs)

	last := lvs[len(lvs)-1]
	assert.Equal(t, 1.0, last.Depth)
	assert.Equal(t, 1.0, last.Lower)
	assert.Equal(t, 10950.0, last.Upper)
	assert.Len(t, lvs, 15)
	assert.Equal(t, "S", last.Tag)

	for i := 1; i < len(lvs); i++ {
		assert.Less(t, lvs[i].Depth, lvs[i-1].Depth)
	}
}

func TestLetterTag_PastNamedLevels(t *testing.T) {
	assert.Equal(t, "M", letterTag(0))
	assert.Equal(t, "R", letterTag(15))
	assert.Equal(t, "L17", letterTag(16))
}

func TestSummarize_RightSkewed(t *testing.T) {
	s, err := Summarize([]float64{1, 2, 3, 10, 100, math.NaN()})
	require.NoError(t, err)

	assert.Equal(t, 5, s.N)
	assert.InDelta(t, 0.75, s.BowleySkew, 1e-12)
	assert.Greater(t, s.Skewness, 1.0)
}

func TestSummarize_Empty(t *testing.T) {
	_, err := Summarize([]float64{math.NaN()})
	require.ErrorIs(t, err, ErrTooFewPoints)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))
	assert.Equal(t, 3.0, Median([]float64{5, 1, 3}))
	assert.True(t, math.IsNaN(Median(nil)))
}

func TestReexpress(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		p    float64
		want []float64
	}{
		{"square root", []float64{4, 9, 0}, 0.5, []float64{2, 3, 0}},
		{"log", []float64{1, 100}, 0, []float64{0, 2}},
		{"negative reciprocal", []float64{2, 4}, -1, []float64{-0.5, -0.25}},
		{"fifth root", []float64{32}, 0.2, []float64{2}},
		{"identity", []float64{1.5}, 1, []float64{1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Reexpress(tt.in, tt.p)
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.want, got, 1e-12)
		})
	}
}

func TestReexpress_PreservesOrder(t *testing.T) {
	in := []float64{0.5, 1, 2, 40, 3000}
	for _, p := range []float64{1, 0.5, 0.2, 0, -0.5, -1} {
		got, err := Reexpress(in, p)
		require.NoError(t, err)
		assert.True(t, slices.IsSorted(got), "power %g", p)
	}
}

func TestReexpress_Domain(t *testing.T) {
	_, err := Reexpress([]float64{1, 0}, 0)
	require.ErrorIs(t, err, ErrNonPositive)

	_, err = Reexpress([]float64{0}, -0.5)
	require.ErrorIs(t, err, ErrNonPositive)

	_, err = Reexpress([]float64{-1}, 0.2)
	require.ErrorIs(t, err, ErrNonPositive)
}

func TestPowerLabel(t *testing.T) {
	assert.Equal(t, "log x", PowerLabel(0))
	assert.Equal(t, "√x", PowerLabel(0.5))
	assert.Equal(t, "x^0.2", PowerLabel(0.2))
	assert.Equal(t, "-1/x", PowerLabel(-1))
}

func TestLadder_FindsLogForLogSymmetricData(t *testing.T) {
	xs := make([]float64, 0, 41)
	for i := -20; i <= 20; i++ {
		xs = append(xs, math.Pow(10, float64(i)/10))
	}

	steps := Ladder(xs, []float64{1, 0.5, 0, -0.5})
	require.Len(t, steps, 4)
	for _, s := range steps {
		assert.True(t, s.Valid)
	}
	assert.Greater(t, steps[0].BowleySkew, steps[1].BowleySkew)
	assert.InDelta(t, 0, steps[2].BowleySkew, 1e-12)
	assert.Less(t, steps[3].BowleySkew, 0.0)
	assert.Len(t, steps[2].Mids, 3)

	best, ok := MostSymmetric(steps)
	require.True(t, ok)
	assert.Equal(t, 0.0, best.Power)
}

func TestLadder_InvalidPower(t *testing.T) {
	steps := Ladder([]float64{0, 1, 2}, []float64{1, 0})
	assert.True(t, steps[0].Valid)
	assert.False(t, steps[1].Valid)

	_, ok := MostSymmetric([]LadderStep{{Valid: false}})
	assert.False(t, ok)
}

func TestFitLoess_ReproducesPolynomials(t *testing.T) {
	x := seq(0, 49)
	line := make([]float64, len(x))
	quad := make([]float64, len(x))
	for i, v := range x {
		line[i] = 2*v + 1
		quad[i] = 0.1*v*v - v + 3
	}

	lin, err := FitLoess(x, line, LoessOptions{Span: 0.3, Degree: 1})
	require.NoError(t, err)
	assert.InDeltaSlice(t, line, lin.Fitted(), 1e-8)
	assert.InDeltaSlice(t, []float64{22, 50}, lin.Predict([]float64{10.5, 24.5}), 1e-8)

	q, err := FitLoess(x, quad, LoessOptions{Span: 0.3, Degree: 2})
	require.NoError(t, err)
	assert.InDeltaSlice(t, quad, q.Fitted(), 1e-8)
}

func TestFitLoess_UnsortedInputKeepsOrder(t *testing.T) {
	x := []float64{3, 0, 2, 1, 4, 5, 7, 6, 9, 8}
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = 5 - v
	}

	fit, err := FitLoess(x, y, LoessOptions{Span: 0.5, Degree: 1})
	require.NoError(t, err)
	assert.InDeltaSlice(t, y, fit.Fitted(), 1e-8)
	for _, r := range fit.Residuals() {
		assert.InDelta(t, 0, r, 1e-8)
	}
}

func TestFitLoess_SymmetricResistsOutlier(t *testing.T) {
	x := seq(0, 99)
	y := make([]float64, len(x))
	for i := range x {
		y[i] = x[i] + wiggle(i)
	}
	y[50] = 1000

	gauss, err := FitLoess(x, y, LoessOptions{Span: 0.3, Degree: 1, Family: FamilyGaussian})
	require.NoError(t, err)
	robust, err := FitLoess(x, y, LoessOptions{Span: 0.3, Degree: 1, Family: FamilySymmetric})
	require.NoError(t, err)

	assert.Greater(t, gauss.Fitted()[50], 80.0)
	assert.InDelta(t, 50, robust.Fitted()[50], 2)
	assert.InDelta(t, 950, robust.Residuals()[50], 3)
}

func TestFitLoess_Errors(t *testing.T) {
	x, y := seq(1, 10), seq(1, 10)
	tests := []struct {
		name string
		x, y []float64
		opts LoessOptions
		want error
	}{
		{"zero span", x, y, LoessOptions{Span: 0, Degree: 1}, ErrInvalidSpan},
		{"degree three", x, y, LoessOptions{Span: 0.5, Degree: 3}, ErrInvalidSpan},
		{"length mismatch", x, y[:3], LoessOptions{Span: 0.5, Degree: 1}, ErrLengthMismatch},
		{"too few", x[:2], y[:2], LoessOptions{Span: 0.5, Degree: 2}, ErrTooFewPoints},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FitLoess(tt.x, tt.y, tt.opts)
			require.ErrorIs(t, err, tt.want)
		})
	}

	_, err := FitLoess(x, y, LoessOptions{Span: 0.5, Degree: 1, Family: "cauchy"})
	require.Error(t, err)
}

func TestFitLoess2D_ReproducesPlane(t *testing.T) {
	var x1, x2, z []float64
	for i := range 10 {
		for j := range 10 {
			x1 = append(x1, float64(i))
			x2 = append(x2, float64(j)*100)
			z = append(z, 2*float64(i)+0.03*float64(j)*100+1)
		}
	}

	fit, err := FitLoess2D(x1, x2, z, LoessOptions{Span: 0.3, Degree: 1})
	require.NoError(t, err)
	assert.InDeltaSlice(t, z, fit.Fitted(), 1e-8)
	assert.InDelta(t, 2*4.5+0.03*450+1, fit.Predict(4.5, 450), 1e-8)

	grid := fit.Grid([]float64{0, 9}, []float64{0, 300, 900})
	require.Len(t, grid, 3)
	require.Len(t, grid[0], 2)
	assert.InDelta(t, 19.0, grid[0][1], 1e-8)
	assert.InDelta(t, 10.0, grid[1][0], 1e-8)
}

func TestFitLoess2D_Symmetric(t *testing.T) {
	var x1, x2, z []float64
	for i := range 12 {
		for j := range 12 {
			x1 = append(x1, float64(i))
			x2 = append(x2, float64(j))
			z = append(z, float64(i+j)+wiggle(i*12+j))
		}
	}
	z[6*12+6] += 500

	fit, err := FitLoess2D(x1, x2, z, LoessOptions{Span: 0.25, Degree: 1, Family: FamilySymmetric})
	require.NoError(t, err)
	assert.InDelta(t, 12, fit.Fitted()[6*12+6], 2)
}

func TestSelectKth(t *testing.T) {
	in := []float64{9, 1, 8, 2, 7, 3, 6, 4, 5, 5}
	sorted := slices.Sorted(slices.Values(in))
	for k := range in {
		a := slices.Clone(in)
		assert.Equal(t, sorted[k], selectKth(a, k), "k=%d", k)
	}
}

func TestOLS(t *testing.T) {
	x := seq(0, 9)
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = 3 + 2*v
	}

	l, err := OLS(x, y)
	require.NoError(t, err)
	assert.InDelta(t, 3, l.Intercept, 1e-9)
	assert.InDelta(t, 2, l.Slope, 1e-9)
	assert.InDelta(t, 1, l.RSquared, 1e-9)
	assert.InDelta(t, 0, l.Scale, 1e-9)
	assert.Equal(t, MethodOLS, l.Method)
	assert.InDelta(t, 23, l.At(10), 1e-9)

	_, err = OLS([]float64{1, 1, 1}, []float64{1, 2, 3})
	require.ErrorIs(t, err, ErrSingular)

	_, err = OLS([]float64{1}, []float64{1})
	require.ErrorIs(t, err, ErrTooFewPoints)

	_, err = OLS([]float64{1, 2}, []float64{1})
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestRobust_ResistsOutliers(t *testing.T) {
	x := seq(0, 29)
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = 3 + 2*v + wiggle(i)
	}
	y[10] += 80
	y[20] += 60

	ols, err := OLS(x, y)
	require.NoError(t, err)
	assert.Greater(t, math.Abs(ols.Intercept-3), 2.0)

	for _, method := range []Method{MethodHuber, MethodBisquare} {
		t.Run(string(method), func(t *testing.T) {
			l, err := FitLine(x, y, method)
			require.NoError(t, err)
			assert.Equal(t, method, l.Method)
			assert.True(t, l.Converged)
			assert.LessOrEqual(t, l.Iterations, robustMaxIterations)
			assert.InDelta(t, 2, l.Slope, 0.05)
			assert.InDelta(t, 3, l.Intercept, 0.5)
			require.Len(t, l.Weights, len(x))
			assert.Less(t, l.Weights[10], 0.1)
			assert.Less(t, l.Weights[20], 0.1)
			assert.Greater(t, l.Weights[5], 0.9)
		})
	}
}

func TestFitLine_UnknownMethod(t *testing.T) {
	_, err := FitLine(seq(0, 3), seq(0, 3), "lad")
	require.Error(t, err)
}

func TestResiduals(t *testing.T) {
	r, err := Residuals([]float64{3, 5}, []float64{1, 6})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, -1}, r)

	_, err = Residuals([]float64{1}, nil)
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestMonthly(t *testing.T) {
	dates := dailyDates(time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC), 365*2)
	values := make([]float64, len(dates))
	for i, d := range dates {
		values[i] = float64(d.Month())
	}
	// drop every June
	var keptDates []time.Time
	var keptValues []float64
	for i, d := range dates {
		if d.Month() != time.June {
			keptDates = append(keptDates, d)
			keptValues = append(keptValues, values[i])
		}
	}

	months, err := Monthly(keptDates, keptValues)
	require.NoError(t, err)
	require.Len(t, months, 12)

	assert.Equal(t, time.January, months[0].Month)
	assert.Equal(t, 62, months[0].N)
	assert.Equal(t, 1.0, months[0].Median)
	assert.Equal(t, 56, months[1].N)
	assert.Equal(t, 12.0, months[11].Mean)
	assert.Len(t, months[11].Values, 62)

	assert.Equal(t, 0, months[5].N)
	assert.True(t, math.IsNaN(months[5].Median))

	_, err = Monthly(dates, values[:1])
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestSeasonalSmooth(t *testing.T) {
	dates := dailyDates(time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC), 365*3)
	values := make([]float64, len(dates))
	for i, d := range dates {
		values[i] = math.Sin(2 * math.Pi * float64(d.YearDay()) / 365)
	}

	s, err := SeasonalSmooth(dates, values, LoessOptions{Span: 0.3, Degree: 2})
	require.NoError(t, err)

	require.Len(t, s.Days, 366)
	require.Len(t, s.Curve, 366)
	require.Len(t, s.Component, len(values))
	require.Len(t, s.Adjusted, len(values))
	assert.Equal(t, 1.0, s.Days[0])
	assert.Equal(t, 366.0, s.Days[365])

	assert.InDelta(t, 1, s.Curve[90], 0.1)
	assert.InDelta(t, -1, s.Curve[273], 0.1)
	for i := range values {
		assert.InDelta(t, values[i], s.Component[i]+s.Adjusted[i], 1e-12)
	}
}

func TestResidualSurface(t *testing.T) {
	dates := dailyDates(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), 366+365*3)
	values := make([]float64, len(dates))
	for i, d := range dates {
		values[i] = 0.01 * float64(d.Year()-2000)
	}

	s, err := ResidualSurface(dates, values, SurfaceOptions{
		Loess: LoessOptions{Span: 0.3, Degree: 1},
	})
	require.NoError(t, err)

	require.Len(t, s.Days, 74)
	assert.Equal(t, 366.0, s.Days[73])
	assert.Equal(t, []float64{2000, 2001, 2002, 2003}, s.Years)
	require.Len(t, s.Z, 4)
	require.Len(t, s.Z[0], 74)

	assert.InDelta(t, 0.02, s.At(10, 2), 1e-8)
	assert.InDelta(t, 0.0, s.Min, 1e-8)
	assert.InDelta(t, 0.03, s.Max, 1e-8)
}

func TestResidualSurface_Errors(t *testing.T) {
	_, err := ResidualSurface(nil, nil, SurfaceOptions{Loess: LoessOptions{Span: 0.2, Degree: 1}})
	require.ErrorIs(t, err, ErrTooFewPoints)

	_, err = ResidualSurface([]time.Time{time.Now()}, nil, SurfaceOptions{})
	require.ErrorIs(t, err, ErrLengthMismatch)
}
