package plot

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/couchcryptid/streamflow-eda/internal/analysis"
)

const (
	defaultWidth  = 1200
	defaultHeight = 500
)

// ErrNoData is returned when every point of a figure is missing.
var ErrNoData = errors.New("nothing to plot")

// Renderer writes figures into one output directory.
type Renderer struct {
	dir    string
	width  int
	height int
}

// NewRenderer returns a Renderer writing into dir, created on first use.
func NewRenderer(dir string) *Renderer {
	return &Renderer{dir: dir, width: defaultWidth, height: defaultHeight}
}

// Dir returns the output directory.
func (r *Renderer) Dir() string { return r.dir }

// Line is one named series of a time chart. Values align with the chart's
// dates; NaN values are left out.
type Line struct {
	Name   string
	Values []float64
	Color  drawing.Color
	// Points draws markers instead of a connected line.
	Points bool
}

// TimeChart draws lines against a shared date axis and returns the path of
// the PNG written.
func (r *Renderer) TimeChart(name, title, yLabel string, dates []time.Time, lines ...Line) (string, error) {
	var series []chart.Series
	for _, l := range lines {
		if len(l.Values) != len(dates) {
			return "", fmt.Errorf("%s: line %q has %d values for %d dates", name, l.Name, len(l.Values), len(dates))
		}
		xs, ys := make([]time.Time, 0, len(dates)), make([]float64, 0, len(dates))
		for i, v := range l.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			xs = append(xs, dates[i])
			ys = append(ys, v)
		}
		if len(xs) < 2 {
			continue
		}
		series = append(series, chart.TimeSeries{Name: l.Name, XValues: xs, YValues: ys, Style: lineStyle(l)})
	}
	if len(series) == 0 {
		return "", fmt.Errorf("%s: %w", name, ErrNoData)
	}

	ch := chart.Chart{
		Title:      title,
		Width:      r.width,
		Height:     r.height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: "Date", ValueFormatter: chart.TimeValueFormatterWithFormat("2006")},
		YAxis:      chart.YAxis{Name: yLabel},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return r.render(name, &ch)
}

// Quantile draws the sorted values against their plotting positions
// (i - 0.5) / n.
func (r *Renderer) Quantile(name, title, yLabel string, values []float64) (string, error) {
	sorted := finite(values)
	if len(sorted) < 2 {
		return "", fmt.Errorf("%s: %w", name, ErrNoData)
	}
	slices.Sort(sorted)

	f := make([]float64, len(sorted))
	for i := range sorted {
		f[i] = (float64(i) + 0.5) / float64(len(sorted))
	}

	ch := chart.Chart{
		Title:      title,
		Width:      r.width / 2,
		Height:     r.height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: "f-value", Range: &chart.ContinuousRange{Min: 0, Max: 1}},
		YAxis:      chart.YAxis{Name: yLabel},
		Series: []chart.Series{
			chart.ContinuousSeries{Name: "quantiles", XValues: f, YValues: sorted, Style: pointStyle(chart.ColorBlue)},
		},
	}
	return r.render(name, &ch)
}

// Ladder draws the quartile skewness of each valid power on the ladder.
func (r *Renderer) Ladder(name string, steps []analysis.LadderStep) (string, error) {
	var valid []analysis.LadderStep
	for _, s := range steps {
		if s.Valid {
			valid = append(valid, s)
		}
	}
	if len(valid) < 2 {
		return "", fmt.Errorf("%s: %w", name, ErrNoData)
	}
	slices.SortFunc(valid, func(a, b analysis.LadderStep) int { return cmp.Compare(a.Power, b.Power) })

	xs, ys := make([]float64, len(valid)), make([]float64, len(valid))
	ticks := make([]chart.Tick, len(valid))
	for i, s := range valid {
		xs[i], ys[i] = s.Power, s.BowleySkew
		ticks[i] = chart.Tick{Value: s.Power, Label: s.Label}
	}

	ch := chart.Chart{
		Title:      "Quartile skewness along the ladder of powers",
		Width:      r.width / 2,
		Height:     r.height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: "power", Ticks: ticks},
		YAxis:      chart.YAxis{Name: "Bowley skew"},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "skew",
				XValues: xs,
				YValues: ys,
				Style:   chart.Style{StrokeColor: chart.ColorBlue, StrokeWidth: 2, DotColor: chart.ColorBlue, DotWidth: 4},
			},
			chart.ContinuousSeries{
				Name:    "symmetric",
				XValues: []float64{xs[0], xs[len(xs)-1]},
				YValues: []float64{0, 0},
				Style:   chart.Style{StrokeColor: chart.ColorAlternateGray, StrokeWidth: 1, StrokeDashArray: []float64{4, 4}},
			},
		},
	}
	return r.render(name, &ch)
}

// Seasonal draws the day-of-year smooth over the values it was fitted to.
func (r *Renderer) Seasonal(name string, dates []time.Time, values []float64, s analysis.Seasonal) (string, error) {
	if len(dates) != len(values) {
		return "", fmt.Errorf("%s: %w", name, analysis.ErrLengthMismatch)
	}
	doy := make([]float64, 0, len(values))
	ys := make([]float64, 0, len(values))
	for i, d := range dates {
		if math.IsNaN(values[i]) {
			continue
		}
		doy = append(doy, float64(d.YearDay()))
		ys = append(ys, values[i])
	}
	days, curve := finitePairs(s.Days, s.Curve)
	if len(doy) < 2 || len(days) < 2 {
		return "", fmt.Errorf("%s: %w", name, ErrNoData)
	}
	sortPairs(doy, ys)

	ch := chart.Chart{
		Title:      "Residuals by day of year with seasonal smooth",
		Width:      r.width,
		Height:     r.height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: "day of year", Range: &chart.ContinuousRange{Min: 1, Max: 366}},
		YAxis:      chart.YAxis{Name: "residual"},
		Series: []chart.Series{
			chart.ContinuousSeries{Name: "residuals", XValues: doy, YValues: ys, Style: pointStyle(chart.ColorAlternateGray)},
			chart.ContinuousSeries{Name: "seasonal", XValues: days, YValues: curve, Style: chart.Style{StrokeColor: chart.ColorRed, StrokeWidth: 3}},
		},
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return r.render(name, &ch)
}

func (r *Renderer) render(name string, ch *chart.Chart) (string, error) {
	path, f, err := r.create(name)
	if err != nil {
		return "", err
	}
	if err := ch.Render(chart.PNG, f); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

func (r *Renderer) create(name string) (string, *os.File, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("create output dir: %w", err)
	}
	path := r.path(name)
	f, err := os.Create(path)
	if err != nil {
		return "", nil, fmt.Errorf("create %s: %w", path, err)
	}
	return path, f, nil
}

func (r *Renderer) path(name string) string {
	return filepath.Join(r.dir, name+".png")
}

func lineStyle(l Line) chart.Style {
	color := l.Color
	if color.IsZero() {
		color = chart.ColorBlue
	}
	if l.Points {
		return pointStyle(color)
	}
	return chart.Style{StrokeColor: color, StrokeWidth: 2}
}

// pointStyle draws markers only, with no connecting line.
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    1.5,
		DotColor:    col,
	}
}
