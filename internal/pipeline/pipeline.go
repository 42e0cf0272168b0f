package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/streamflow-eda/internal/domain"
	"github.com/couchcryptid/streamflow-eda/internal/observability"
)

// Extractor fetches the raw daily series for a site and date range.
type Extractor interface {
	Fetch(ctx context.Context, site domain.Site, r domain.DateRange) (domain.Series, error)
}

// Transformer cleans a raw series before it is persisted.
type Transformer interface {
	Transform(ctx context.Context, raw domain.Series) (domain.Series, domain.CleanStats, error)
}

// Cache is the snapshot the fetched series is written to. A present
// snapshot short-circuits the fetch unless Options.Refresh is set.
type Cache interface {
	Exists(ctx context.Context) (bool, error)
	Load(ctx context.Context) (domain.Series, error)
	Save(ctx context.Context, series domain.Series) error
}

// Loader receives the cleaned series after the snapshot is saved.
type Loader interface {
	Name() string
	Load(ctx context.Context, run domain.Run, series domain.Series) error
}

// Options controls one acquisition run.
type Options struct {
	Site        domain.Site
	Range       domain.DateRange
	Refresh     bool
	MaxAttempts int

	// Backoff between failed fetch attempts starts at InitialBackoff and
	// doubles up to MaxBackoff. Zero values use 200ms and 5s.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Result describes what a run produced.
type Result struct {
	Run      domain.Run
	Series   domain.Series
	Stats    domain.CleanStats
	Gaps     []domain.Gap
	Cached   bool
	Attempts int
}

// Pipeline orchestrates the extract-transform-load sequence of the fetch command.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	cache       Cache
	loaders     []Loader
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// New creates a Pipeline. Extra loaders run after the snapshot is saved.
func New(e Extractor, t Transformer, c Cache, logger *slog.Logger, metrics *observability.Metrics, loaders ...Loader) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		cache:       c,
		loaders:     loaders,
		logger:      logger,
		metrics:     metrics,
	}
}

// Run fetches, cleans and persists one site's daily series, or returns the
// cached snapshot when one exists and a refresh was not requested.
func (p *Pipeline) Run(ctx context.Context, opts Options) (Result, error) {
	if err := opts.Range.Validate(); err != nil {
		return Result{}, err
	}
	run := domain.NewRun()
	logger := p.logger.With("run_id", run.ID, "site", opts.Site.ID)

	if !opts.Refresh {
		series, ok, err := p.cached(ctx, opts, logger)
		if err != nil {
			return Result{}, err
		}
		if ok {
			logger.Info("snapshot cache hit, skipping fetch", "values", series.Len())
			return Result{Run: run, Series: series, Gaps: domain.Gaps(series), Cached: true}, nil
		}
	}
	p.metrics.SnapshotCache.WithLabelValues("miss").Inc()

	logger.Info("fetching daily values",
		"start", opts.Range.Start.Format(domain.DateLayout),
		"end", opts.Range.End.Format(domain.DateLayout),
	)
	raw, attempts, err := p.extract(ctx, opts, logger)
	if err != nil {
		return Result{}, err
	}

	series, stats, err := p.transformer.Transform(ctx, raw)
	if err != nil {
		return Result{}, fmt.Errorf("transform: %w", err)
	}
	p.recordDrops(stats)
	if series.Len() == 0 {
		return Result{}, fmt.Errorf("site %s: %w after cleaning", opts.Site.ID, domain.ErrEmptySeries)
	}

	if err := p.cache.Save(ctx, series); err != nil {
		return Result{}, fmt.Errorf("save snapshot: %w", err)
	}
	p.metrics.RecordsSaved.Add(float64(series.Len()))
	logger.Info("snapshot saved", "values", series.Len(), "dropped", stats.Dropped())

	var loadErrs []error
	for _, l := range p.loaders {
		if err := l.Load(ctx, run, series); err != nil {
			logger.Error("loader failed", "loader", l.Name(), "error", err)
			loadErrs = append(loadErrs, fmt.Errorf("%s: %w", l.Name(), err))
			continue
		}
		p.metrics.RecordsProduced.WithLabelValues(l.Name()).Add(float64(series.Len()))
	}

	result := Result{
		Run:      run,
		Series:   series,
		Stats:    stats,
		Gaps:     domain.Gaps(series),
		Attempts: attempts,
	}
	return result, errors.Join(loadErrs...)
}

// cached returns the stored snapshot when it holds the requested site and
// covers the requested range. Any other snapshot is treated as a miss.
func (p *Pipeline) cached(ctx context.Context, opts Options, logger *slog.Logger) (domain.Series, bool, error) {
	ok, err := p.cache.Exists(ctx)
	if err != nil {
		return domain.Series{}, false, fmt.Errorf("check snapshot: %w", err)
	}
	if !ok {
		return domain.Series{}, false, nil
	}
	series, err := p.cache.Load(ctx)
	if err != nil {
		return domain.Series{}, false, fmt.Errorf("load snapshot: %w", err)
	}
	if reason := snapshotMismatch(series, opts); reason != "" {
		logger.Info("snapshot does not match request, refetching", "reason", reason)
		return domain.Series{}, false, nil
	}
	p.metrics.SnapshotCache.WithLabelValues("hit").Inc()
	return series, true, nil
}

// snapshotMismatch explains why a stored series cannot answer opts, or
// returns "" when it can.
func snapshotMismatch(series domain.Series, opts Options) string {
	got, want := series.Site, opts.Site
	switch {
	case got.ID != want.ID:
		return fmt.Sprintf("site %q, want %q", got.ID, want.ID)
	case got.Parameter != want.Parameter:
		return fmt.Sprintf("parameter %q, want %q", got.Parameter, want.Parameter)
	case got.Statistic != want.Statistic:
		return fmt.Sprintf("statistic %q, want %q", got.Statistic, want.Statistic)
	}
	r, err := series.Range()
	if err != nil {
		return "snapshot is empty"
	}
	if r.Start.After(opts.Range.Start) || r.End.Before(opts.Range.End) {
		return fmt.Sprintf("snapshot covers %s to %s, want %s to %s",
			r.Start.Format(domain.DateLayout), r.End.Format(domain.DateLayout),
			opts.Range.Start.Format(domain.DateLayout), opts.Range.End.Format(domain.DateLayout))
	}
	return ""
}

// extract calls the extractor until it succeeds, the attempts run out, or
// the context is cancelled. Returns the number of attempts made.
func (p *Pipeline) extract(ctx context.Context, opts Options, logger *slog.Logger) (domain.Series, int, error) {
	maxAttempts := max(opts.MaxAttempts, 1)
	backoff := opts.InitialBackoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	maxBackoff := opts.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = 5 * time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		series, err := p.extractor.Fetch(ctx, opts.Site, opts.Range)
		if err == nil {
			return series, attempt, nil
		}
		if ctx.Err() != nil {
			return domain.Series{}, attempt, ctx.Err()
		}
		lastErr = err
		logger.Warn("fetch failed", "attempt", attempt, "max_attempts", maxAttempts, "error", err)

		if attempt == maxAttempts {
			break
		}
		if !sleepWithContext(ctx, backoff) {
			return domain.Series{}, attempt, ctx.Err()
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
	return domain.Series{}, maxAttempts, fmt.Errorf("fetch failed after %d attempts: %w", maxAttempts, lastErr)
}

func (p *Pipeline) recordDrops(stats domain.CleanStats) {
	for reason, n := range map[string]int{
		"missing":   stats.Missing,
		"negative":  stats.Negative,
		"rejected":  stats.Rejected,
		"duplicate": stats.Duplicates,
	} {
		if n > 0 {
			p.metrics.RecordsDropped.WithLabelValues(reason).Add(float64(n))
		}
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
