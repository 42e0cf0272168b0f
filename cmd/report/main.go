// Command report loads the discharge snapshot written by fetch, runs the
// analysis stages and writes one PNG per stage plus report.md to OUTPUT_DIR.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/streamflow-eda/internal/adapter/snapshot"
	"github.com/couchcryptid/streamflow-eda/internal/config"
	"github.com/couchcryptid/streamflow-eda/internal/domain"
	"github.com/couchcryptid/streamflow-eda/internal/observability"
	"github.com/couchcryptid/streamflow-eda/internal/plot"
	"github.com/couchcryptid/streamflow-eda/internal/report"
)

const printWidth = 100

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	if err := run(cfg, logger, metrics); err != nil {
		logger.Error("report failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	params, err := config.LoadAnalysis(cfg.AnalysisConfig)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := snapshot.Open(cfg.SnapshotFormat, cfg.SnapshotPath)
	if err != nil {
		return err
	}
	series, err := store.Load(ctx)
	if errors.Is(err, snapshot.ErrNotFound) {
		return fmt.Errorf("%w: run fetch first", err)
	}
	if err != nil {
		return err
	}
	series, stats := domain.Clean(series)
	if stats.Dropped() > 0 {
		logger.Warn("snapshot contained unusable values", "dropped", stats.Dropped(), "duplicates", stats.Duplicates)
	}
	logger.Info("snapshot loaded", "path", cfg.SnapshotPath, "site", series.Site.ID, "values", series.Len())

	builder := report.NewBuilder(plot.NewRenderer(cfg.OutputDir), params, logger, metrics)
	rep, err := builder.Build(ctx, series)
	if err != nil {
		return err
	}

	path, err := rep.WriteFile(cfg.OutputDir)
	if err != nil {
		return err
	}
	logger.Info("report written", "path", path, "sections", len(rep.Sections))

	if cfg.ReportPrint {
		if err := rep.Print(os.Stdout, printWidth); err != nil {
			return err
		}
	}

	metrics.LastRunTime.Set(float64(time.Now().Unix()))
	return metrics.WriteTextfile(cfg.MetricsTextfile)
}
