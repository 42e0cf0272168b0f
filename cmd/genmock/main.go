// Command genmock writes a synthetic daily discharge snapshot in the same
// format the fetch command produces, so the report can be run offline.
// It prints the statistics used in test assertions.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/discharge.csv \
//	  -start 1990-01-01 -end 2019-12-31 \
//	  -seed 1
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/couchcryptid/streamflow-eda/internal/adapter/snapshot"
	"github.com/couchcryptid/streamflow-eda/internal/analysis"
	"github.com/couchcryptid/streamflow-eda/internal/domain"
	"github.com/couchcryptid/streamflow-eda/internal/synthetic"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/discharge.csv", "output snapshot path")
	format := flag.String("format", "csv", "snapshot format: csv or sqlite")
	site := flag.String("site", "01646500", "site number written to the snapshot")
	start := flag.String("start", "1990-01-01", "first date")
	end := flag.String("end", "2019-12-31", "last date")
	seed := flag.Uint64("seed", 1, "random seed")
	median := flag.Float64("median", 10000, "typical daily flow")
	trend := flag.Float64("trend", 0.002, "log10 change per year")
	flag.Parse()

	r, err := parseRange(*start, *end)
	if err != nil {
		return err
	}

	opts := synthetic.DefaultOptions(domain.Site{
		ID:        *site,
		Parameter: "00060",
		Statistic: "00003",
		Name:      "SYNTHETIC RIVER",
		Unit:      "ft3/s",
	}, r)
	opts.Seed = *seed
	opts.Median = *median
	opts.TrendPerYear = *trend

	series := synthetic.Generate(opts)
	log.Printf("generated %d daily values for %s", series.Len(), *site)

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return err
	}
	store, err := snapshot.Open(*format, *out)
	if err != nil {
		return err
	}
	if err := store.Save(context.Background(), series); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	log.Printf("wrote %s snapshot: %s", *format, *out)

	return printStats(series)
}

func parseRange(start, end string) (domain.DateRange, error) {
	s, err := domain.ParseDate(start)
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("-start: %w", err)
	}
	e, err := domain.ParseDate(end)
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("-end: %w", err)
	}
	r := domain.DateRange{Start: s, End: e}
	return r, r.Validate()
}

func printStats(series domain.Series) error {
	values := series.Discharges()
	raw, err := analysis.Summarize(values)
	if err != nil {
		return err
	}
	re, err := analysis.Reexpress(values, analysis.DefaultPower)
	if err != nil {
		return err
	}
	reSummary, err := analysis.Summarize(re)
	if err != nil {
		return err
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d (gaps: %d)\n", series.Len(), len(domain.Gaps(series)))
	fmt.Printf("Five numbers: %g %g %g %g %g\n", raw.Min, raw.LowerHinge, raw.Median, raw.UpperHinge, raw.Max)
	fmt.Printf("Bowley skew raw=%.4f reexpressed=%.4f\n", raw.BowleySkew, reSummary.BowleySkew)

	printLadder(values)
	return printMonths(series, re)
}

func printLadder(values []float64) {
	fmt.Println("\nLadder of powers:")
	for _, step := range analysis.Ladder(values, []float64{1, 0.5, 0.2, 0, -0.5}) {
		if !step.Valid {
			fmt.Printf("  %-8s n/a\n", step.Label)
			continue
		}
		fmt.Printf("  %-8s bowley=%.4f skewness=%.4f\n", step.Label, step.BowleySkew, step.Skewness)
	}
}

func printMonths(series domain.Series, re []float64) error {
	months, err := analysis.Monthly(series.Dates(), re)
	if err != nil {
		return err
	}
	fmt.Println("\nMonthly medians (reexpressed):")
	for _, m := range months {
		fmt.Printf("  %s n=%d median=%.4f\n", m.Month.String()[:3], m.N, m.Median)
	}
	return nil
}
