// Package snapshot persists the cleaned daily discharge series that the
// fetch command downloads and the report command analyses.
package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchcryptid/streamflow-eda/internal/domain"
)

// ErrNotFound is returned by Load when no snapshot has been saved yet.
var ErrNotFound = errors.New("snapshot not found")

// Store reads and writes a single snapshot of a daily series.
// Save replaces any previous snapshot.
type Store interface {
	Exists(ctx context.Context) (bool, error)
	Load(ctx context.Context) (domain.Series, error)
	Save(ctx context.Context, series domain.Series) error
}

// Open returns the store for the configured format ("csv" or "sqlite").
func Open(format, path string) (Store, error) {
	switch format {
	case "csv":
		return NewCSVStore(path), nil
	case "sqlite":
		return NewSQLiteStore(path), nil
	default:
		return nil, fmt.Errorf("unknown snapshot format %q", format)
	}
}
