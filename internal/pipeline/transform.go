package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/streamflow-eda/internal/domain"
)

// DischargeTransformer implements Transformer using domain.Clean and logs
// any calendar gaps left in the cleaned series.
type DischargeTransformer struct {
	logger *slog.Logger
}

// NewTransformer creates a DischargeTransformer.
func NewTransformer(logger *slog.Logger) *DischargeTransformer {
	return &DischargeTransformer{logger: logger}
}

func (t *DischargeTransformer) Transform(_ context.Context, raw domain.Series) (domain.Series, domain.CleanStats, error) {
	series, stats := domain.Clean(raw)

	if stats.Dropped() > 0 {
		t.logger.Info("daily values dropped during cleaning",
			"site", raw.Site.ID,
			"missing", stats.Missing,
			"negative", stats.Negative,
			"rejected", stats.Rejected,
			"duplicates", stats.Duplicates,
		)
	}

	gaps := domain.Gaps(series)
	missingDays := 0
	for _, g := range gaps {
		missingDays += g.Days()
		t.logger.Debug("gap in daily series",
			"from", g.From.Format(domain.DateLayout),
			"to", g.To.Format(domain.DateLayout),
			"days", g.Days(),
		)
	}
	if len(gaps) > 0 {
		t.logger.Warn("daily series has gaps", "site", raw.Site.ID, "gaps", len(gaps), "missing_days", missingDays)
	}

	return series, stats, nil
}
