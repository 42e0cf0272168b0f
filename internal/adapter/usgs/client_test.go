package usgs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/streamflow-eda/internal/domain"
	"github.com/couchcryptid/streamflow-eda/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

const potomacResponse = `{
  "value": {
    "timeSeries": [{
      "name": "USGS:01646500:00060:00003",
      "sourceInfo": {"siteName": "POTOMAC RIVER NEAR WASH, DC LITTLE FALLS PUMP STA"},
      "variable": {
        "variableName": "Streamflow, ft&#179;/s",
        "unit": {"unitCode": "ft3/s"},
        "noDataValue": -999999.0
      },
      "values": [{
        "value": [
          {"value": "10400", "qualifiers": ["A"], "dateTime": "1990-01-01T00:00:00.000"},
          {"value": "-999999", "qualifiers": ["A", "Ice"], "dateTime": "1990-01-02T00:00:00.000"},
          {"value": "9870", "qualifiers": ["A", "e"], "dateTime": "1990-01-03T00:00:00.000"}
        ]
      }]
    }]
  }
}`

var testSite = domain.Site{ID: "01646500", Parameter: "00060", Statistic: "00003"}

var testRange = domain.DateRange{
	Start: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(1990, 1, 3, 0, 0, 0, 0, time.UTC),
}

func testClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_Fetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "01646500", q.Get("sites"))
		assert.Equal(t, "00060", q.Get("parameterCd"))
		assert.Equal(t, "00003", q.Get("statCd"))
		assert.Equal(t, "1990-01-01", q.Get("startDT"))
		assert.Equal(t, "1990-01-03", q.Get("endDT"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(potomacResponse))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	series, err := c.Fetch(context.Background(), testSite, testRange)
	require.NoError(t, err)

	require.Equal(t, 3, series.Len())
	assert.Equal(t, "POTOMAC RIVER NEAR WASH, DC LITTLE FALLS PUMP STA", series.Site.Name)
	assert.Equal(t, "ft3/s", series.Site.Unit)
	assert.Equal(t, "01646500", series.Site.ID)

	assert.Equal(t, time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), series.Values[0].Date)
	assert.Equal(t, 10400.0, series.Values[0].Discharge)
	assert.Equal(t, []string{"A"}, series.Values[0].Qualifiers)
	assert.Equal(t, float64(domain.NoDataValue), series.Values[1].Discharge)
	assert.Equal(t, 9870.0, series.Values[2].Discharge)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.FetchRequests.WithLabelValues("success")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.metrics.RecordsFetched))
}

func TestClient_Fetch_NoTimeSeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"value":{"timeSeries":[]}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Fetch(context.Background(), testSite, testRange)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoTimeSeries))
}

func TestClient_Fetch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`Bad Request: site number 0164650 is invalid`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Fetch(context.Background(), testSite, testRange)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "is invalid")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.FetchRequests.WithLabelValues("error")))
}

func TestClient_Fetch_MalformedValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"value":{"timeSeries":[{"values":[{"value":[{"value":"abc","dateTime":"1990-01-01T00:00:00.000"}]}]}]}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Fetch(context.Background(), testSite, testRange)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse value")
}

func TestClient_Fetch_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"value":`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Fetch(context.Background(), testSite, testRange)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestClient_Fetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.httpClient.Timeout = 50 * time.Millisecond

	_, err := c.Fetch(context.Background(), testSite, testRange)
	require.Error(t, err)
}

func TestParseDateTime(t *testing.T) {
	d, err := parseDateTime("2019-06-01T00:00:00.000-04:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC), d)

	_, err = parseDateTime("2019")
	require.Error(t, err)
}
