// Command validate checks a discharge snapshot before it is analysed: date
// order, duplicate days, value sanity, gaps and coverage of the requested
// range. It exits non-zero when any phase fails.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -snapshot data/discharge.csv \
//	  -start 1990-01-01 -end 2019-12-31
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/couchcryptid/streamflow-eda/internal/adapter/snapshot"
	"github.com/couchcryptid/streamflow-eda/internal/analysis"
	"github.com/couchcryptid/streamflow-eda/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// limits are the thresholds the phases check against.
type limits struct {
	Range       domain.DateRange // zero means the snapshot's own range
	MaxGapDays  int
	MinCoverage float64
}

func main() {
	path := flag.String("snapshot", "data/discharge.csv", "snapshot path")
	format := flag.String("format", "csv", "snapshot format: csv or sqlite")
	start := flag.String("start", "", "expected first date (optional)")
	end := flag.String("end", "", "expected last date (optional)")
	maxGap := flag.Int("max-gap", 31, "longest acceptable run of missing days")
	minCoverage := flag.Float64("min-coverage", 0.9, "minimum fraction of days present")
	flag.Parse()

	lim := limits{MaxGapDays: *maxGap, MinCoverage: *minCoverage}
	if *start != "" || *end != "" {
		s, err := domain.ParseDate(*start)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: -start: %v\n", err)
			os.Exit(1)
		}
		e, err := domain.ParseDate(*end)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: -end: %v\n", err)
			os.Exit(1)
		}
		lim.Range = domain.DateRange{Start: s, End: e}
	}

	os.Exit(run(*format, *path, lim))
}

func run(format, path string, lim limits) int {
	fmt.Println("=== Discharge Snapshot Validation ===")
	fmt.Println()

	store, err := snapshot.Open(format, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	series, err := store.Load(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load snapshot: %v\n", err)
		return 1
	}

	phases := validate(series, lim)

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Site %s: %d daily values\n", series.Site.ID, series.Len())

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func validate(series domain.Series, lim limits) []*phase {
	return []*phase{
		validateOrder(series),
		validateValues(series),
		validateGaps(series, lim),
		validateCoverage(series, lim),
		validateReexpression(series),
	}
}

// ── Phases ──

// maxReported caps the errors listed per phase.
const maxReported = 20

func validateOrder(series domain.Series) *phase {
	p := &phase{name: "Phase 1: Date order and duplicates"}
	if series.Len() == 0 {
		p.errorf("snapshot is empty")
		return p
	}
	for i := 1; i < series.Len() && len(p.errors) < maxReported; i++ {
		prev, cur := series.Values[i-1].Date, series.Values[i].Date
		switch {
		case cur.Equal(prev):
			p.errorf("duplicate date %s at row %d", cur.Format(domain.DateLayout), i+1)
		case cur.Before(prev):
			p.errorf("row %d: %s precedes %s", i+1, cur.Format(domain.DateLayout), prev.Format(domain.DateLayout))
		}
	}
	return p
}

func validateValues(series domain.Series) *phase {
	p := &phase{name: "Phase 2: Discharge values"}
	for i, v := range series.Values {
		if len(p.errors) >= maxReported {
			break
		}
		q := v.Discharge
		switch {
		case math.IsNaN(q) || math.IsInf(q, 0):
			p.errorf("row %d (%s): non-finite discharge", i+1, v.Date.Format(domain.DateLayout))
		case q == domain.NoDataValue:
			p.errorf("row %d (%s): no-data sentinel left in snapshot", i+1, v.Date.Format(domain.DateLayout))
		case q < 0:
			p.errorf("row %d (%s): negative discharge %g", i+1, v.Date.Format(domain.DateLayout), q)
		}
	}
	return p
}

func validateGaps(series domain.Series, lim limits) *phase {
	p := &phase{name: "Phase 3: Gaps between daily values"}
	for _, g := range domain.Gaps(series) {
		if g.Days() > lim.MaxGapDays && len(p.errors) < maxReported {
			p.errorf("%d missing days from %s to %s (limit %d)", g.Days(),
				g.From.Format(domain.DateLayout), g.To.Format(domain.DateLayout), lim.MaxGapDays)
		}
	}
	return p
}

func validateCoverage(series domain.Series, lim limits) *phase {
	p := &phase{name: "Phase 4: Coverage of the date range"}
	got, err := series.Range()
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	want := lim.Range
	if want.Start.IsZero() {
		want = got
	}
	if got.Start.After(want.Start) {
		p.errorf("first value %s is after requested start %s",
			got.Start.Format(domain.DateLayout), want.Start.Format(domain.DateLayout))
	}
	if got.End.Before(want.End) {
		p.errorf("last value %s is before requested end %s",
			got.End.Format(domain.DateLayout), want.End.Format(domain.DateLayout))
	}
	if coverage := float64(series.Len()) / float64(want.Days()); coverage < lim.MinCoverage {
		p.errorf("coverage %.3f below %.3f", coverage, lim.MinCoverage)
	}
	return p
}

// validateReexpression checks that the analysis can take the default power
// and that it moves the distribution toward symmetry.
func validateReexpression(series domain.Series) *phase {
	p := &phase{name: "Phase 5: Re-expression"}
	values := series.Discharges()
	re, err := analysis.Reexpress(values, analysis.DefaultPower)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	raw, err := analysis.Summarize(values)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	after, err := analysis.Summarize(re)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	if math.Abs(after.BowleySkew) > math.Abs(raw.BowleySkew) {
		p.errorf("power %g increases skew: bowley %.4f -> %.4f",
			analysis.DefaultPower, raw.BowleySkew, after.BowleySkew)
	}
	return p
}
