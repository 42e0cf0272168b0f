package snapshot

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/streamflow-eda/internal/domain"
)

var csvHeader = []string{"date", "discharge"}

// CSVStore keeps the snapshot as a two-column CSV file: an ISO date and
// the daily discharge. Site metadata lives in a "# site=..." comment line.
type CSVStore struct {
	path string
}

// NewCSVStore creates a store backed by the file at path.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Exists reports whether the snapshot file is present.
func (s *CSVStore) Exists(_ context.Context) (bool, error) {
	_, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat snapshot: %w", err)
	}
	return true, nil
}

// Load reads the snapshot file.
func (s *CSVStore) Load(_ context.Context) (domain.Series, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Series{}, fmt.Errorf("%s: %w", s.path, ErrNotFound)
	}
	if err != nil {
		return domain.Series{}, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	series, err := ReadCSV(f)
	if err != nil {
		return domain.Series{}, fmt.Errorf("read snapshot %s: %w", s.path, err)
	}
	return series, nil
}

// Save writes the snapshot atomically: a temp file in the same directory
// is renamed over the target.
func (s *CSVStore) Save(_ context.Context, series domain.Series) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.csv")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after rename

	if err := WriteCSV(tmp, series); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// WriteCSV encodes a series as a site comment, a header and one row per day.
func WriteCSV(w io.Writer, series domain.Series) error {
	if _, err := fmt.Fprintf(w, "# site=%s parameter=%s statistic=%s unit=%s\n",
		series.Site.ID, series.Site.Parameter, series.Site.Statistic, series.Site.Unit); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}
	for _, v := range series.Values {
		row := []string{
			v.Date.Format(domain.DateLayout),
			strconv.FormatFloat(v.Discharge, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write snapshot row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV decodes a snapshot. Rows with an empty, "NA" or "NaN" discharge
// are skipped; a malformed date or number is an error.
func ReadCSV(r io.Reader) (domain.Series, error) {
	br := bufio.NewReader(r)

	var series domain.Series
	if first, err := br.Peek(1); err == nil && first[0] == '#' {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return domain.Series{}, fmt.Errorf("read site line: %w", err)
		}
		series.Site = parseSiteLine(line)
	}

	cr := csv.NewReader(br)
	cr.Comment = '#'
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return domain.Series{}, fmt.Errorf("read header: %w", err)
	}
	if !strings.EqualFold(header[0], csvHeader[0]) || !strings.EqualFold(header[1], csvHeader[1]) {
		return domain.Series{}, fmt.Errorf("unexpected header %q", header)
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.Series{}, err
		}

		val := strings.TrimSpace(rec[1])
		if val == "" || val == "NA" || val == "NaN" {
			continue
		}
		date, err := domain.ParseDate(strings.TrimSpace(rec[0]))
		if err != nil {
			return domain.Series{}, err
		}
		q, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return domain.Series{}, fmt.Errorf("parse discharge %q on %s: %w", val, rec[0], err)
		}
		series.Values = append(series.Values, domain.DailyValue{Date: date, Discharge: q})
	}

	if series.Len() == 0 {
		return domain.Series{}, domain.ErrEmptySeries
	}
	series.Sort()
	return series, nil
}

// parseSiteLine reads "key=value" pairs from the leading comment line.
func parseSiteLine(line string) domain.Site {
	var site domain.Site
	for _, field := range strings.Fields(strings.TrimPrefix(line, "#")) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch key {
		case "site":
			site.ID = value
		case "parameter":
			site.Parameter = value
		case "statistic":
			site.Statistic = value
		case "unit":
			site.Unit = value
		}
	}
	return site
}
