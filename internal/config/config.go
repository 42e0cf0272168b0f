package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/streamflow-eda/internal/domain"
)

// Config holds all settings for the fetch and report commands, populated
// from environment variables.
type Config struct {
	// USGS NWIS daily-values request.
	Site         domain.Site
	Range        domain.DateRange
	USGSBaseURL  string
	USGSTimeout  time.Duration
	FetchRetries int

	// Snapshot cache.
	SnapshotFormat string
	SnapshotPath   string
	Refresh        bool

	// Report output.
	OutputDir      string
	ReportPrint    bool
	AnalysisConfig string

	MetricsTextfile string
	LogLevel        string
	LogFormat       string

	// Optional Kafka publishing of cleaned daily values.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	start, err := domain.ParseDate(sharedcfg.EnvOrDefault("START_DATE", "1990-01-01"))
	if err != nil {
		return nil, fmt.Errorf("invalid START_DATE: %w", err)
	}
	end, err := domain.ParseDate(sharedcfg.EnvOrDefault("END_DATE", "2019-12-31"))
	if err != nil {
		return nil, fmt.Errorf("invalid END_DATE: %w", err)
	}

	timeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("USGS_TIMEOUT", "60s"))
	if err != nil || timeout <= 0 {
		return nil, errors.New("invalid USGS_TIMEOUT")
	}

	retries, err := strconv.Atoi(sharedcfg.EnvOrDefault("FETCH_MAX_ATTEMPTS", "4"))
	if err != nil || retries < 1 || retries > 20 {
		return nil, errors.New("invalid FETCH_MAX_ATTEMPTS: must be between 1 and 20")
	}

	refresh, err := parseBool("REFRESH", false)
	if err != nil {
		return nil, err
	}
	reportPrint, err := parseBool("REPORT_PRINT", false)
	if err != nil {
		return nil, err
	}
	kafkaEnabled, err := parseBool("KAFKA_ENABLED", false)
	if err != nil {
		return nil, err
	}

	format := strings.ToLower(sharedcfg.EnvOrDefault("SNAPSHOT_FORMAT", "csv"))
	defaultPath := "data/discharge.csv"
	if format == "sqlite" {
		defaultPath = "data/discharge.db"
	}

	cfg := &Config{
		Site: domain.Site{
			ID:        sharedcfg.EnvOrDefault("USGS_SITE", "01646500"),
			Parameter: sharedcfg.EnvOrDefault("USGS_PARAMETER", "00060"),
			Statistic: sharedcfg.EnvOrDefault("USGS_STATISTIC", "00003"),
		},
		Range:        domain.DateRange{Start: start, End: end},
		USGSBaseURL:  sharedcfg.EnvOrDefault("USGS_BASE_URL", "https://waterservices.usgs.gov/nwis/dv/"),
		USGSTimeout:  timeout,
		FetchRetries: retries,

		SnapshotFormat: format,
		SnapshotPath:   sharedcfg.EnvOrDefault("SNAPSHOT_PATH", defaultPath),
		Refresh:        refresh,

		OutputDir:      sharedcfg.EnvOrDefault("OUTPUT_DIR", "out"),
		ReportPrint:    reportPrint,
		AnalysisConfig: os.Getenv("ANALYSIS_CONFIG"),

		MetricsTextfile: os.Getenv("METRICS_TEXTFILE"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: parseList(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "streamflow-daily-values"),
	}

	if cfg.Site.ID == "" {
		return nil, errors.New("USGS_SITE is required")
	}
	if err := cfg.Range.Validate(); err != nil {
		return nil, fmt.Errorf("START_DATE/END_DATE: %w", err)
	}
	if cfg.SnapshotFormat != "csv" && cfg.SnapshotFormat != "sqlite" {
		return nil, fmt.Errorf("invalid SNAPSHOT_FORMAT %q (allowed: csv, sqlite)", cfg.SnapshotFormat)
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required")
	}

	return cfg, nil
}

func parseBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q", key, v)
	}
	return b, nil
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
