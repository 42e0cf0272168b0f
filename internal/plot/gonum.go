package plot

import (
	"fmt"
	"image/color"
	"math"
	"os"

	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/couchcryptid/streamflow-eda/internal/analysis"
)

// MonthlyBoxes draws one box plot per calendar month. Months without data
// keep their slot on the axis and are left empty.
func (r *Renderer) MonthlyBoxes(name, title, yLabel string, months []analysis.MonthSummary) (string, error) {
	p := gplot.New()
	p.Title.Text = title
	p.Y.Label.Text = yLabel

	labels := make([]string, len(months))
	drawn := 0
	for i, m := range months {
		labels[i] = m.Month.String()[:3]
		values := finite(m.Values)
		if len(values) == 0 {
			continue
		}
		box, err := plotter.NewBoxPlot(vg.Points(20), float64(i), plotter.Values(values))
		if err != nil {
			return "", fmt.Errorf("%s: box for %s: %w", name, m.Month, err)
		}
		box.FillColor = color.RGBA{R: 0x9e, G: 0xca, B: 0xe1, A: 0xff}
		p.Add(box)
		drawn++
	}
	if drawn == 0 {
		return "", fmt.Errorf("%s: %w", name, ErrNoData)
	}
	p.NominalX(labels...)
	p.Add(plotter.NewGrid())

	return r.save(name, p, pixels(r.width), pixels(r.height))
}

// Surface draws a smoothed field as a heat map with contour lines at
// levels evenly spaced between its minimum and maximum.
func (r *Renderer) Surface(name, title string, s analysis.Surface, levels int) (string, error) {
	if len(s.Days) < 2 || len(s.Years) < 2 || math.IsInf(s.Min, 0) {
		return "", fmt.Errorf("%s: %w", name, ErrNoData)
	}
	lo, hi := s.Min, s.Max
	if hi <= lo {
		hi = lo + 1
	}
	levels = max(levels, 1)

	// The palette is sampled on the colormap's own [0, 1] range; heat.Min
	// and heat.Max map the data onto it.
	g := surfaceGrid{s}
	heat := plotter.NewHeatMap(g, moreland.SmoothBlueRed().Palette(64))
	heat.Min, heat.Max = lo, hi

	contour := plotter.NewContour(g, contourLevels(lo, hi, levels), monochrome{color.Gray{Y: 0x30}})

	p := gplot.New()
	p.Title.Text = title
	p.X.Label.Text = "day of year"
	p.Y.Label.Text = "year"
	p.Add(heat, contour)

	return r.save(name, p, pixels(r.width), pixels(r.height*7/5))
}

func (r *Renderer) save(name string, p *gplot.Plot, w, h vg.Length) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := r.path(name)
	if err := p.Save(w, h, path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return path, nil
}

// surfaceGrid adapts analysis.Surface to plotter.GridXYZ.
type surfaceGrid struct {
	s analysis.Surface
}

func (g surfaceGrid) Dims() (c, r int)   { return len(g.s.Days), len(g.s.Years) }
func (g surfaceGrid) Z(c, r int) float64 { return g.s.At(c, r) }
func (g surfaceGrid) X(c int) float64    { return g.s.Days[c] }
func (g surfaceGrid) Y(r int) float64    { return g.s.Years[r] }

// monochrome is a palette of one color, for contour lines over a heat map.
type monochrome struct {
	c color.Color
}

func (m monochrome) Colors() []color.Color { return []color.Color{m.c} }

var _ palette.Palette = monochrome{}

// contourLevels returns n levels strictly inside (lo, hi).
func contourLevels(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	step := (hi - lo) / float64(n+1)
	for i := range out {
		out[i] = lo + step*float64(i+1)
	}
	return out
}

// pixels converts a pixel count at the default 96 dpi to a vg.Length.
func pixels(n int) vg.Length {
	return vg.Length(n) * vg.Inch / 96
}
