// Package report runs the analysis stages over a cleaned discharge series,
// writes one figure per stage and assembles the narrative report.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/couchcryptid/streamflow-eda/internal/analysis"
	"github.com/couchcryptid/streamflow-eda/internal/config"
	"github.com/couchcryptid/streamflow-eda/internal/domain"
	"github.com/couchcryptid/streamflow-eda/internal/observability"
	"github.com/couchcryptid/streamflow-eda/internal/plot"
)

// Stage names, in execution order. They label the stage duration metric and
// prefix the figure file names.
const (
	StageSeries    = "series"
	StageSkew      = "skew"
	StageReexpress = "reexpress"
	StageTrend     = "trend"
	StageResiduals = "residuals"
	StageMonthly   = "monthly"
	StageSeasonal  = "seasonal"
	StageSurface   = "surface"
)

// Stages lists every stage in the order Build runs them.
var Stages = []string{
	StageSeries, StageSkew, StageReexpress, StageTrend,
	StageResiduals, StageMonthly, StageSeasonal, StageSurface,
}

// Stat is one labelled figure in a section's table.
type Stat struct {
	Name  string
	Value string
}

// Section is the narrative for one stage.
type Section struct {
	Stage string
	Title string
	Text  string
	Stats []Stat
	// Plots are file names relative to the output directory.
	Plots []string
}

// Trend holds the three fits to the re-expressed series.
type Trend struct {
	Loess  []float64
	OLS    analysis.Line
	Robust analysis.Line
}

// Report is the outcome of a Build: the narrative sections and the numeric
// results behind them.
type Report struct {
	Title       string
	Site        domain.Site
	Range       domain.DateRange
	N           int
	GeneratedAt time.Time
	Params      config.Analysis
	Sections    []Section

	Raw         analysis.Summary
	Ladder      []analysis.LadderStep
	Reexpressed []float64
	ReSummary   analysis.Summary
	Trend       Trend
	Residuals   []float64
	Months      []analysis.MonthSummary
	Seasonal    analysis.Seasonal
	Surface     analysis.Surface
}

// Builder runs the analysis stages in order, each feeding the next.
type Builder struct {
	renderer *plot.Renderer
	params   config.Analysis
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewBuilder creates a Builder writing figures through renderer.
func NewBuilder(renderer *plot.Renderer, params config.Analysis, logger *slog.Logger, metrics *observability.Metrics) *Builder {
	return &Builder{
		renderer: renderer,
		params:   params,
		logger:   logger,
		metrics:  metrics,
	}
}

// Build analyses a cleaned, date-ordered series. It stops at the first
// failing stage or when ctx is cancelled between stages.
func (b *Builder) Build(ctx context.Context, series domain.Series) (*Report, error) {
	if series.Len() < 2 {
		return nil, fmt.Errorf("report: %w", domain.ErrEmptySeries)
	}
	r, err := series.Range()
	if err != nil {
		return nil, err
	}

	rep := &Report{
		Title:       "Exploratory analysis of daily discharge",
		Site:        series.Site,
		Range:       r,
		N:           series.Len(),
		GeneratedAt: domain.Now(),
		Params:      b.params,
	}
	st := &state{
		dates:  series.Dates(),
		values: series.Discharges(),
		years:  domain.DecimalYears(series.Dates()),
		unit:   unitLabel(series.Site),
	}

	steps := []struct {
		name string
		run  func(*Report, *state) (Section, error)
	}{
		{StageSeries, b.seriesStage},
		{StageSkew, b.skewStage},
		{StageReexpress, b.reexpressStage},
		{StageTrend, b.trendStage},
		{StageResiduals, b.residualStage},
		{StageMonthly, b.monthlyStage},
		{StageSeasonal, b.seasonalStage},
		{StageSurface, b.surfaceStage},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		sec, err := step.run(rep, st)
		if err != nil {
			return nil, fmt.Errorf("%s stage: %w", step.name, err)
		}
		sec.Stage = step.name
		elapsed := time.Since(start)
		b.metrics.StageDuration.WithLabelValues(step.name).Observe(elapsed.Seconds())
		b.logger.Info("stage complete", "stage", step.name, "plots", len(sec.Plots), "duration", elapsed)
		rep.Sections = append(rep.Sections, sec)
	}
	return rep, nil
}

// state carries the series through the stages.
type state struct {
	dates  []time.Time
	values []float64
	years  []float64
	unit   string
}

func (b *Builder) seriesStage(rep *Report, st *state) (Section, error) {
	s, err := analysis.Summarize(st.values)
	if err != nil {
		return Section{}, err
	}
	rep.Raw = s

	plotPath, err := b.renderer.TimeChart(figure(1, StageSeries), "Daily discharge", st.unit, st.dates,
		plot.Line{Name: "discharge", Values: st.values, Points: true})
	if err != nil {
		return Section{}, err
	}
	return Section{
		Title: "Daily discharge",
		Text: fmt.Sprintf("The series holds %d daily values from %s to %s. Discharge ranges from %s to %s %s with a median of %s.",
			rep.N, rep.Range.Start.Format(domain.DateLayout), rep.Range.End.Format(domain.DateLayout),
			num(s.Min), num(s.Max), st.unit, num(s.Median)),
		Stats: fiveNumber(s),
		Plots: b.plots(plotPath),
	}, nil
}

func (b *Builder) skewStage(rep *Report, st *state) (Section, error) {
	rep.Ladder = analysis.Ladder(st.values, b.params.LadderPower)

	quantile, err := b.renderer.Quantile(figure(2, StageSkew), "Quantile plot of daily discharge", st.unit, st.values)
	if err != nil {
		return Section{}, err
	}
	ladder, err := b.renderer.Ladder(figure(2, StageSkew+"-ladder"), rep.Ladder)
	if err != nil {
		return Section{}, err
	}

	stats := []Stat{
		{"Quartile (Bowley) skewness", num(rep.Raw.BowleySkew)},
		{"Moment skewness", num(rep.Raw.Skewness)},
	}
	for _, lv := range rep.Raw.LetterValues[:min(4, len(rep.Raw.LetterValues))] {
		stats = append(stats, Stat{"Midsummary " + lv.Tag, num(lv.Mid)})
	}
	for _, step := range rep.Ladder {
		v := "out of domain"
		if step.Valid {
			v = num(step.BowleySkew)
		}
		stats = append(stats, Stat{"Skew under " + step.Label, v})
	}

	text := fmt.Sprintf("Daily discharge is %s: the quartile skewness is %s and the midsummaries drift %s as the letter values move into the tails.",
		describeSkew(rep.Raw.BowleySkew), num(rep.Raw.BowleySkew), driftWord(rep.Raw.LetterValues))
	if best, ok := analysis.MostSymmetric(rep.Ladder); ok {
		text += fmt.Sprintf(" Along the ladder of powers the most symmetric choice is %s.", best.Label)
	}
	return Section{
		Title: "Skewness",
		Text:  text,
		Stats: stats,
		Plots: b.plots(quantile, ladder),
	}, nil
}

func (b *Builder) reexpressStage(rep *Report, st *state) (Section, error) {
	re, err := analysis.Reexpress(st.values, b.params.Power)
	if err != nil {
		return Section{}, err
	}
	s, err := analysis.Summarize(re)
	if err != nil {
		return Section{}, err
	}
	rep.Reexpressed, rep.ReSummary = re, s

	label := analysis.PowerLabel(b.params.Power)
	quantile, err := b.renderer.Quantile(figure(3, StageReexpress), "Quantile plot of "+label, label, re)
	if err != nil {
		return Section{}, err
	}
	return Section{
		Title: "Re-expression",
		Text: fmt.Sprintf("Re-expressing discharge as %s brings the quartile skewness from %s to %s, so the batch is %s and the trend fits below work on a symmetric scale.",
			label, num(rep.Raw.BowleySkew), num(s.BowleySkew), describeSkew(s.BowleySkew)),
		Stats: append([]Stat{{"Power", strconv.FormatFloat(b.params.Power, 'g', -1, 64)}}, fiveNumber(s)...),
		Plots: b.plots(quantile),
	}, nil
}

func (b *Builder) trendStage(rep *Report, st *state) (Section, error) {
	fit, err := analysis.FitLoess(st.years, rep.Reexpressed, analysis.LoessOptions{
		Span:   b.params.TrendSpan,
		Degree: b.params.TrendDegree,
		Family: analysis.Family(b.params.TrendFamily),
	})
	if err != nil {
		return Section{}, err
	}
	ols, err := analysis.OLS(st.years, rep.Reexpressed)
	if err != nil {
		return Section{}, err
	}
	robust, err := analysis.Robust(st.years, rep.Reexpressed, analysis.Method(b.params.RobustMethod))
	if err != nil {
		return Section{}, err
	}
	rep.Trend = Trend{Loess: fit.Fitted(), OLS: ols, Robust: robust}

	label := analysis.PowerLabel(b.params.Power)
	plotPath, err := b.renderer.TimeChart(figure(4, StageTrend), "Trend in "+label, label, st.dates,
		plot.Line{Name: label, Values: rep.Reexpressed, Points: true, Color: chart.ColorAlternateGray},
		plot.Line{Name: "loess", Values: rep.Trend.Loess, Color: chart.ColorRed},
		plot.Line{Name: "least squares", Values: lineValues(ols, st.years), Color: chart.ColorBlue},
		plot.Line{Name: "robust (" + string(robust.Method) + ")", Values: lineValues(robust, st.years), Color: chart.ColorGreen},
	)
	if err != nil {
		return Section{}, err
	}

	return Section{
		Title: "Trend",
		Text: fmt.Sprintf("A loess smooth (span %s, degree %d, %s family) follows the slow movement of %s. The least-squares line changes by %s per year and the robust %s line by %s per year.",
			num(b.params.TrendSpan), b.params.TrendDegree, b.params.TrendFamily, label,
			num(ols.Slope), robust.Method, num(robust.Slope)),
		Stats: []Stat{
			{"OLS intercept", num(ols.Intercept)},
			{"OLS slope per year", num(ols.Slope)},
			{"OLS R²", num(ols.RSquared)},
			{"Robust intercept", num(robust.Intercept)},
			{"Robust slope per year", num(robust.Slope)},
			{"Robust scale", num(robust.Scale)},
			{"Robust iterations", strconv.Itoa(robust.Iterations)},
		},
		Plots: b.plots(plotPath),
	}, nil
}

func (b *Builder) residualStage(rep *Report, st *state) (Section, error) {
	resid, err := analysis.Residuals(rep.Reexpressed, rep.Trend.Loess)
	if err != nil {
		return Section{}, err
	}
	rep.Residuals = resid

	check, err := analysis.FitLoess(st.years, resid, analysis.LoessOptions{Span: b.params.TrendSpan, Degree: 1})
	if err != nil {
		return Section{}, err
	}
	s, err := analysis.Summarize(resid)
	if err != nil {
		return Section{}, err
	}

	plotPath, err := b.renderer.TimeChart(figure(5, StageResiduals), "Residuals from the loess trend", "residual", st.dates,
		plot.Line{Name: "residual", Values: resid, Points: true, Color: chart.ColorAlternateGray},
		plot.Line{Name: "loess", Values: check.Fitted(), Color: chart.ColorRed},
	)
	if err != nil {
		return Section{}, err
	}
	midspread := s.UpperHinge - s.LowerHinge
	wander := maxAbs(check.Fitted())
	text := fmt.Sprintf("Residuals from the trend have median %s and a midspread of %s.", num(s.Median), num(midspread))
	if wander < midspread/4 {
		text += " A second smooth through them stays near zero, so what remains is seasonal and day-to-day variation."
	} else {
		text += fmt.Sprintf(" A second smooth through them still wanders by up to %s, so some long-term movement is left in the residuals.", num(wander))
	}
	return Section{
		Title: "Residuals",
		Text:  text,
		Stats: fiveNumber(s),
		Plots: b.plots(plotPath),
	}, nil
}

func (b *Builder) monthlyStage(rep *Report, st *state) (Section, error) {
	months, err := analysis.Monthly(st.dates, rep.Residuals)
	if err != nil {
		return Section{}, err
	}
	rep.Months = months

	plotPath, err := b.renderer.MonthlyBoxes(figure(6, StageMonthly), "Residuals by calendar month", "residual", months)
	if err != nil {
		return Section{}, err
	}

	var stats []Stat
	high, low := -1, -1
	for i, m := range months {
		if m.N == 0 {
			stats = append(stats, Stat{m.Month.String(), "no data"})
			continue
		}
		stats = append(stats, Stat{m.Month.String(), fmt.Sprintf("median %s, n=%d", num(m.Median), m.N)})
		if high < 0 || m.Median > months[high].Median {
			high = i
		}
		if low < 0 || m.Median < months[low].Median {
			low = i
		}
	}
	text := "Grouping the residuals by calendar month shows the annual cycle the trend leaves behind."
	if high >= 0 {
		text += fmt.Sprintf(" Flow runs highest relative to trend in %s and lowest in %s.", months[high].Month, months[low].Month)
	}
	return Section{
		Title: "Monthly residuals",
		Text:  text,
		Stats: stats,
		Plots: b.plots(plotPath),
	}, nil
}

func (b *Builder) seasonalStage(rep *Report, st *state) (Section, error) {
	s, err := analysis.SeasonalSmooth(st.dates, rep.Residuals, analysis.LoessOptions{
		Span:   b.params.SeasonalSpan,
		Degree: b.params.TrendDegree,
	})
	if err != nil {
		return Section{}, err
	}
	rep.Seasonal = s

	plotPath, err := b.renderer.Seasonal(figure(7, StageSeasonal), st.dates, rep.Residuals, s)
	if err != nil {
		return Section{}, err
	}
	amp, err := analysis.Summarize(s.Curve)
	if err != nil {
		return Section{}, err
	}
	adj, err := analysis.Summarize(s.Adjusted)
	if err != nil {
		return Section{}, err
	}
	return Section{
		Title: "Seasonal cycle",
		Text: fmt.Sprintf("A loess against day of year (span %s) gives a seasonal cycle with a range of %s. Removing it leaves residuals with a midspread of %s.",
			num(b.params.SeasonalSpan), num(amp.Max-amp.Min), num(adj.UpperHinge-adj.LowerHinge)),
		Stats: []Stat{
			{"Seasonal minimum", num(amp.Min)},
			{"Seasonal maximum", num(amp.Max)},
			{"Deseasonalized midspread", num(adj.UpperHinge - adj.LowerHinge)},
		},
		Plots: b.plots(plotPath),
	}, nil
}

func (b *Builder) surfaceStage(rep *Report, st *state) (Section, error) {
	s, err := analysis.ResidualSurface(st.dates, rep.Residuals, analysis.SurfaceOptions{
		Loess: analysis.LoessOptions{
			Span:   b.params.SurfaceSpan,
			Degree: b.params.SurfaceDegree,
		},
		DayStep:  b.params.SurfaceDayStep,
		YearStep: b.params.SurfaceYearStep,
	})
	if err != nil {
		return Section{}, err
	}
	rep.Surface = s

	plotPath, err := b.renderer.Surface(figure(8, StageSurface), "Smoothed residuals by day of year and year", s, b.params.SurfaceLevels)
	if err != nil {
		return Section{}, err
	}
	return Section{
		Title: "Residual surface",
		Text: fmt.Sprintf("Smoothing the residuals jointly on day of year and year (span %s) shows whether the seasonal cycle itself has shifted over %d years. The surface ranges from %s to %s.",
			num(b.params.SurfaceSpan), len(s.Years), num(s.Min), num(s.Max)),
		Stats: []Stat{
			{"Grid", fmt.Sprintf("%d days x %d years", len(s.Days), len(s.Years))},
			{"Surface minimum", num(s.Min)},
			{"Surface maximum", num(s.Max)},
		},
		Plots: b.plots(plotPath),
	}, nil
}

// plots counts written figures and returns their names relative to the
// output directory.
func (b *Builder) plots(paths ...string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		b.metrics.PlotsWritten.Inc()
		out[i] = filepath.Base(p)
	}
	return out
}

func figure(n int, stage string) string {
	return fmt.Sprintf("%02d-%s", n, stage)
}

func lineValues(l analysis.Line, xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = l.At(x)
	}
	return out
}

func unitLabel(site domain.Site) string {
	if site.Unit != "" {
		return site.Unit
	}
	return "discharge"
}
