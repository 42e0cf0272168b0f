package plot

import (
	"fmt"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/couchcryptid/streamflow-eda/internal/analysis"
)

func testDates(n int) []time.Time {
	out := make([]time.Time, n)
	start := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

func seasonalValues(dates []time.Time) []float64 {
	out := make([]float64, len(dates))
	for i, d := range dates {
		out[i] = 100 + 50*math.Sin(2*math.Pi*float64(d.YearDay())/365) + float64(i%7)
	}
	return out
}

// requirePNG checks that path holds a decodable PNG of a plausible size.
func requirePNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err, "%s is not a PNG", path)
	assert.Greater(t, cfg.Width, 100)
	assert.Greater(t, cfg.Height, 100)
}

func TestTimeChart(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	r := NewRenderer(dir)
	dates := testDates(400)
	values := seasonalValues(dates)
	values[10] = math.NaN()

	path, err := r.TimeChart("01-discharge", "Daily discharge", "ft3/s", dates,
		Line{Name: "discharge", Values: values, Points: true},
		Line{Name: "trend", Values: values, Color: chart.ColorRed},
	)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "01-discharge.png"), path)
	requirePNG(t, path)
}

func TestTimeChart_Errors(t *testing.T) {
	r := NewRenderer(t.TempDir())
	dates := testDates(3)

	_, err := r.TimeChart("x", "x", "y", dates, Line{Name: "short", Values: []float64{1}})
	require.Error(t, err)

	_, err = r.TimeChart("x", "x", "y", dates, Line{Name: "nan", Values: []float64{math.NaN(), math.NaN(), 1}})
	require.ErrorIs(t, err, ErrNoData)
}

func TestQuantile(t *testing.T) {
	r := NewRenderer(t.TempDir())
	path, err := r.Quantile("02-quantile", "Quantile plot", "ft3/s", seasonalValues(testDates(200)))
	require.NoError(t, err)
	requirePNG(t, path)

	_, err = r.Quantile("empty", "", "", []float64{math.NaN()})
	require.ErrorIs(t, err, ErrNoData)
}

func TestLadder(t *testing.T) {
	r := NewRenderer(t.TempDir())
	steps := analysis.Ladder(seasonalValues(testDates(200)), []float64{1, 0.5, 0.2, 0, -0.5})

	path, err := r.Ladder("03-ladder", steps)
	require.NoError(t, err)
	requirePNG(t, path)

	_, err = r.Ladder("one", steps[:1])
	require.ErrorIs(t, err, ErrNoData)
}

func TestSeasonal(t *testing.T) {
	r := NewRenderer(t.TempDir())
	dates := testDates(365 * 2)
	values := seasonalValues(dates)

	s, err := analysis.SeasonalSmooth(dates, values, analysis.LoessOptions{Span: 0.3, Degree: 1})
	require.NoError(t, err)

	path, err := r.Seasonal("07-seasonal", dates, values, s)
	require.NoError(t, err)
	requirePNG(t, path)

	_, err = r.Seasonal("bad", dates[:1], values, s)
	require.ErrorIs(t, err, analysis.ErrLengthMismatch)
}

func TestMonthlyBoxes(t *testing.T) {
	r := NewRenderer(t.TempDir())
	dates := testDates(365 * 2)
	months, err := analysis.Monthly(dates, seasonalValues(dates))
	require.NoError(t, err)
	months[3].Values = nil

	path, err := r.MonthlyBoxes("06-monthly", "Residuals by month", "residual", months)
	require.NoError(t, err)
	requirePNG(t, path)

	_, err = r.MonthlyBoxes("none", "", "", []analysis.MonthSummary{{Month: time.May}})
	require.ErrorIs(t, err, ErrNoData)
}

func TestSurface(t *testing.T) {
	r := NewRenderer(t.TempDir())
	s := analysis.Surface{
		Days:  []float64{1, 6, 11, 16},
		Years: []float64{2000, 2001, 2002},
	}
	for y := range s.Years {
		row := make([]float64, len(s.Days))
		for d := range row {
			row[d] = float64(d) - float64(y)
		}
		s.Z = append(s.Z, row)
	}
	s.Min, s.Max = -2, 3

	path, err := r.Surface("08-surface", "Residual surface", s, 5)
	require.NoError(t, err)
	requirePNG(t, path)

	_, err = r.Surface("flat", "", analysis.Surface{Days: []float64{1}, Years: []float64{2000}}, 5)
	require.ErrorIs(t, err, ErrNoData)
}

func TestSurface_FractionalBounds(t *testing.T) {
	r := NewRenderer(t.TempDir())
	bounds := [][2]float64{
		{-0.1137, 0.0791},
		{-0.0412, 0.0388},
		{-1.0 / 3, 0.7},
		{0.015, 0.0151},
	}
	for i, b := range bounds {
		lo, hi := b[0], b[1]
		s := analysis.Surface{
			Days:  []float64{1, 6, 11},
			Years: []float64{2000, 2001},
			Min:   lo,
			Max:   hi,
		}
		for y := range s.Years {
			row := make([]float64, len(s.Days))
			for d := range row {
				row[d] = lo + (hi-lo)*float64(d+y)/float64(len(s.Days))
			}
			s.Z = append(s.Z, row)
		}

		var path string
		require.NotPanics(t, func() {
			var err error
			path, err = r.Surface(fmt.Sprintf("surface-%d", i), "Residual surface", s, 9)
			require.NoError(t, err)
		}, "lo=%g hi=%g", lo, hi)
		requirePNG(t, path)
	}
}

func TestContourLevels(t *testing.T) {
	assert.InDeltaSlice(t, []float64{1, 2, 3}, contourLevels(0, 4, 3), 1e-12)
}

func TestSortPairs(t *testing.T) {
	xs := []float64{3, 1, 2}
	ys := []float64{30, 10, 20}
	sortPairs(xs, ys)
	assert.Equal(t, []float64{1, 2, 3}, xs)
	assert.Equal(t, []float64{10, 20, 30}, ys)
}
