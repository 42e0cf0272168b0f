// Command fetch downloads daily discharge for one site from the USGS NWIS
// daily-values service, cleans it and writes the snapshot the report reads.
// An existing snapshot is reused unless REFRESH=true.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	kafkaadapter "github.com/couchcryptid/streamflow-eda/internal/adapter/kafka"
	"github.com/couchcryptid/streamflow-eda/internal/adapter/snapshot"
	"github.com/couchcryptid/streamflow-eda/internal/adapter/usgs"
	"github.com/couchcryptid/streamflow-eda/internal/config"
	"github.com/couchcryptid/streamflow-eda/internal/domain"
	"github.com/couchcryptid/streamflow-eda/internal/observability"
	"github.com/couchcryptid/streamflow-eda/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	if err := run(cfg, logger, metrics); err != nil {
		logger.Error("fetch failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	store, err := snapshot.Open(cfg.SnapshotFormat, cfg.SnapshotPath)
	if err != nil {
		return err
	}
	client := usgs.NewClient(cfg.USGSBaseURL, cfg.USGSTimeout, metrics, logger)

	var loaders []pipeline.Loader
	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		loaders = append(loaders, writer)
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	p := pipeline.New(client, pipeline.NewTransformer(logger), store, logger, metrics, loaders...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := p.Run(ctx, pipeline.Options{
		Site:        cfg.Site,
		Range:       cfg.Range,
		Refresh:     cfg.Refresh,
		MaxAttempts: cfg.FetchRetries,
	})
	if err != nil {
		return err
	}

	r, err := res.Series.Range()
	if err != nil {
		return err
	}
	logger.Info("snapshot ready",
		"run_id", res.Run.ID,
		"path", cfg.SnapshotPath,
		"format", cfg.SnapshotFormat,
		"cached", res.Cached,
		"values", res.Series.Len(),
		"first", r.Start.Format(domain.DateLayout),
		"last", r.End.Format(domain.DateLayout),
		"gaps", len(res.Gaps),
	)

	metrics.LastRunTime.Set(float64(time.Now().Unix()))
	return metrics.WriteTextfile(cfg.MetricsTextfile)
}
