// Package store keeps extracted reports so they can be fetched again by ID.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchcryptid/cbc-history-etl/internal/config"
	"github.com/couchcryptid/cbc-history-etl/internal/domain"
)

// ErrNotFound is returned by Get for an unknown report ID.
var ErrNotFound = errors.New("report not found")

// Store persists reports keyed by Report.ID. Put replaces any existing report
// with the same ID.
type Store interface {
	Put(ctx context.Context, report domain.Report) error
	Get(ctx context.Context, id string) (domain.Report, error)
	Close() error
}

// Open builds the store selected by STORE_DRIVER. It returns nil, nil for
// the "none" driver.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case config.StoreNone, "":
		return nil, nil
	case config.StoreMemory:
		return NewMemory(cfg.StoreCacheSize), nil
	case config.StoreSQLite:
		return NewSQLite(cfg.StorePath)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
