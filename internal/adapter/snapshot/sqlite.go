package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/couchcryptid/streamflow-eda/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS site (
	id        TEXT PRIMARY KEY,
	parameter TEXT NOT NULL,
	statistic TEXT NOT NULL,
	name      TEXT NOT NULL DEFAULT '',
	unit      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS daily_values (
	site      TEXT NOT NULL,
	date      TEXT NOT NULL,
	discharge REAL NOT NULL,
	PRIMARY KEY (site, date)
);
`

// SQLiteStore keeps the snapshot in a single-file SQLite database. Each
// Save replaces the stored site and all of its daily values in one transaction.
type SQLiteStore struct {
	path string
}

// NewSQLiteStore creates a store backed by the database file at path.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// Exists reports whether the database holds any daily values.
func (s *SQLiteStore) Exists(ctx context.Context) (bool, error) {
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	db, err := s.open(ctx)
	if err != nil {
		return false, err
	}
	defer db.Close()

	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM daily_values`).Scan(&n); err != nil {
		return false, fmt.Errorf("count daily values: %w", err)
	}
	return n > 0, nil
}

// Load reads the stored site and its values ordered by date.
func (s *SQLiteStore) Load(ctx context.Context) (domain.Series, error) {
	ok, err := s.Exists(ctx)
	if err != nil {
		return domain.Series{}, err
	}
	if !ok {
		return domain.Series{}, fmt.Errorf("%s: %w", s.path, ErrNotFound)
	}

	db, err := s.open(ctx)
	if err != nil {
		return domain.Series{}, err
	}
	defer db.Close()

	var series domain.Series
	err = db.QueryRowContext(ctx, `SELECT id, parameter, statistic, name, unit FROM site LIMIT 1`).
		Scan(&series.Site.ID, &series.Site.Parameter, &series.Site.Statistic, &series.Site.Name, &series.Site.Unit)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return domain.Series{}, fmt.Errorf("read site: %w", err)
	}

	rows, err := db.QueryContext(ctx, `SELECT date, discharge FROM daily_values ORDER BY date`)
	if err != nil {
		return domain.Series{}, fmt.Errorf("query daily values: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			date      string
			discharge float64
		)
		if err := rows.Scan(&date, &discharge); err != nil {
			return domain.Series{}, fmt.Errorf("scan daily value: %w", err)
		}
		d, err := domain.ParseDate(date)
		if err != nil {
			return domain.Series{}, err
		}
		series.Values = append(series.Values, domain.DailyValue{Date: d, Discharge: discharge})
	}
	if err := rows.Err(); err != nil {
		return domain.Series{}, fmt.Errorf("iterate daily values: %w", err)
	}
	return series, nil
}

// Save replaces the snapshot with series.
func (s *SQLiteStore) Save(ctx context.Context, series domain.Series) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM daily_values`); err != nil {
		return fmt.Errorf("clear daily values: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM site`); err != nil {
		return fmt.Errorf("clear site: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO site (id, parameter, statistic, name, unit) VALUES (?, ?, ?, ?, ?)`,
		series.Site.ID, series.Site.Parameter, series.Site.Statistic, series.Site.Name, series.Site.Unit,
	); err != nil {
		return fmt.Errorf("insert site: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO daily_values (site, date, discharge) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, v := range series.Values {
		if _, err := stmt.ExecContext(ctx, series.Site.ID, v.Date.Format(domain.DateLayout), v.Discharge); err != nil {
			return fmt.Errorf("insert %s: %w", v.Date.Format(domain.DateLayout), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init snapshot schema: %w", err)
	}
	return db, nil
}
