// Package database wires the sqlx connection pool used by repository/audit
// and blockwatcher's BlockStorage, mirroring the teacher's driver-selection
// pattern (database/testhelpers) but backed by sqlx instead of sqlboiler.
package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Driver names recognized by Connect.
const (
	DriverSQLite3  = "sqlite3"
	DriverPostgres = "postgres"
)

// Config describes how to reach the backing store.
type Config struct {
	Driver string
	DSN    string
}

// Connect opens a pooled connection for the configured driver.
func Connect(cfg Config) (*sqlx.DB, error) {
	switch cfg.Driver {
	case DriverSQLite3, DriverPostgres:
		db, err := sqlx.Connect(cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", cfg.Driver)
	}
}
