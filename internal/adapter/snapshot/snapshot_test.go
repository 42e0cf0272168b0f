package snapshot

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/streamflow-eda/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSeries() domain.Series {
	return domain.Series{
		Site: domain.Site{ID: "01646500", Parameter: "00060", Statistic: "00003", Unit: "ft3/s"},
		Values: []domain.DailyValue{
			{Date: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), Discharge: 10400},
			{Date: time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC), Discharge: 9870.5},
			{Date: time.Date(1990, 1, 4, 0, 0, 0, 0, time.UTC), Discharge: 0},
		},
	}
}

func TestStores_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	stores := map[string]Store{
		"csv":    NewCSVStore(filepath.Join(dir, "csv", "discharge.csv")),
		"sqlite": NewSQLiteStore(filepath.Join(dir, "sqlite", "discharge.db")),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			ok, err := store.Exists(ctx)
			require.NoError(t, err)
			assert.False(t, ok)

			_, err = store.Load(ctx)
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Save(ctx, testSeries()))

			ok, err = store.Exists(ctx)
			require.NoError(t, err)
			assert.True(t, ok)

			got, err := store.Load(ctx)
			require.NoError(t, err)
			if diff := cmp.Diff(testSeries(), got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStores_SaveReplaces(t *testing.T) {
	dir := t.TempDir()
	for _, store := range []Store{
		NewCSVStore(filepath.Join(dir, "discharge.csv")),
		NewSQLiteStore(filepath.Join(dir, "discharge.db")),
	} {
		ctx := context.Background()
		require.NoError(t, store.Save(ctx, testSeries()))

		shorter := testSeries()
		shorter.Values = shorter.Values[:1]
		require.NoError(t, store.Save(ctx, shorter))

		got, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Len())
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testSeries()))

	want := "# site=01646500 parameter=00060 statistic=00003 unit=ft3/s\n" +
		"date,discharge\n" +
		"1990-01-01,10400\n" +
		"1990-01-02,9870.5\n" +
		"1990-01-04,0\n"
	assert.Equal(t, want, buf.String())
}

func TestReadCSV_SkipsMissingAndSorts(t *testing.T) {
	in := "date,discharge\n" +
		"1990-01-03,30\n" +
		"1990-01-01,10\n" +
		"1990-01-02,NA\n" +
		"1990-01-04,\n" +
		"1990-01-05,NaN\n"

	got, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, 10.0, got.Values[0].Discharge)
	assert.Equal(t, 30.0, got.Values[1].Discharge)
	assert.Empty(t, got.Site.ID)
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"bad header", "day,flow\n1990-01-01,1\n"},
		{"bad date", "date,discharge\n01/01/1990,1\n"},
		{"bad number", "date,discharge\n1990-01-01,lots\n"},
		{"wrong field count", "date,discharge\n1990-01-01,1,2\n"},
		{"no rows", "date,discharge\n"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in))
			require.Error(t, err)
		})
	}
}

func TestCSVStore_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewCSVStore(filepath.Join(dir, "discharge.csv"))
	require.NoError(t, store.Save(context.Background(), testSeries()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "discharge.csv", entries[0].Name())
}

func TestOpen(t *testing.T) {
	s, err := Open("csv", "x.csv")
	require.NoError(t, err)
	assert.IsType(t, &CSVStore{}, s)

	s, err = Open("sqlite", "x.db")
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)

	_, err = Open("parquet", "x.parquet")
	require.Error(t, err)
}
