package usgs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/streamflow-eda/internal/domain"
	"github.com/couchcryptid/streamflow-eda/internal/observability"
)

// ErrNoTimeSeries is returned when the service answers 200 with no series
// for the requested site, parameter and statistic.
var ErrNoTimeSeries = errors.New("no time series in response")

// Client fetches daily values from the USGS NWIS daily-values service.
// It implements pipeline.Extractor.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an NWIS daily-values client.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// Fetch retrieves every daily value for the site within the inclusive date range.
func (c *Client) Fetch(ctx context.Context, site domain.Site, r domain.DateRange) (domain.Series, error) {
	params := url.Values{
		"format":      {"json"},
		"sites":       {site.ID},
		"parameterCd": {site.Parameter},
		"statCd":      {site.Statistic},
		"startDT":     {r.Start.Format(domain.DateLayout)},
		"endDT":       {r.End.Format(domain.DateLayout)},
		"siteStatus":  {"all"},
	}
	fullURL := c.baseURL + "?" + params.Encode()

	start := time.Now()
	series, err := c.doRequest(ctx, fullURL, site)
	c.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues("error").Inc()
		return domain.Series{}, err
	}
	c.metrics.FetchRequests.WithLabelValues("success").Inc()
	c.metrics.RecordsFetched.Add(float64(series.Len()))

	c.logger.Debug("usgs daily values fetched",
		"site", site.ID,
		"values", series.Len(),
		"duration", time.Since(start),
	)
	return series, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string, site domain.Site) (domain.Series, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.Series{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Series{}, fmt.Errorf("daily values request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.Series{}, fmt.Errorf("usgs API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var wml response
	if err := json.NewDecoder(resp.Body).Decode(&wml); err != nil {
		return domain.Series{}, fmt.Errorf("decode response: %w", err)
	}

	return toSeries(wml, site)
}

// toSeries flattens the first WaterML time series into domain values.
func toSeries(wml response, site domain.Site) (domain.Series, error) {
	if len(wml.Value.TimeSeries) == 0 {
		return domain.Series{}, fmt.Errorf("site %s: %w", site.ID, ErrNoTimeSeries)
	}
	ts := wml.Value.TimeSeries[0]

	site.Name = ts.SourceInfo.SiteName
	site.Unit = ts.Variable.Unit.UnitCode
	noData := ts.Variable.NoDataValue
	if noData == 0 {
		noData = domain.NoDataValue
	}

	out := domain.Series{Site: site}
	for _, block := range ts.Values {
		for _, v := range block.Value {
			date, err := parseDateTime(v.DateTime)
			if err != nil {
				return domain.Series{}, err
			}
			q, err := strconv.ParseFloat(strings.TrimSpace(v.Value), 64)
			if err != nil {
				return domain.Series{}, fmt.Errorf("parse value %q on %s: %w", v.Value, v.DateTime, err)
			}
			if q == noData {
				q = domain.NoDataValue
			}
			out.Values = append(out.Values, domain.DailyValue{
				Date:       date,
				Discharge:  q,
				Qualifiers: v.Qualifiers,
			})
		}
	}
	return out, nil
}

// parseDateTime reads the calendar day from an NWIS dateTime such as
// "1990-01-01T00:00:00.000". The time of day is always local midnight.
func parseDateTime(s string) (time.Time, error) {
	if len(s) < len(domain.DateLayout) {
		return time.Time{}, fmt.Errorf("invalid dateTime %q", s)
	}
	return domain.ParseDate(s[:len(domain.DateLayout)])
}

// WaterML JSON response types.

type response struct {
	Value struct {
		TimeSeries []timeSeries `json:"timeSeries"`
	} `json:"value"`
}

type timeSeries struct {
	Name       string `json:"name"` // "USGS:01646500:00060:00003"
	SourceInfo struct {
		SiteName string `json:"siteName"`
	} `json:"sourceInfo"`
	Variable struct {
		VariableName string `json:"variableName"`
		Unit         struct {
			UnitCode string `json:"unitCode"`
		} `json:"unit"`
		NoDataValue float64 `json:"noDataValue"`
	} `json:"variable"`
	Values []valueBlock `json:"values"`
}

type valueBlock struct {
	Value []point `json:"value"`
}

type point struct {
	Value      string   `json:"value"`
	Qualifiers []string `json:"qualifiers"`
	DateTime   string   `json:"dateTime"`
}
