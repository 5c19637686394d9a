package database

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"leadflow/internal/platform/config"
)

// New opens the workspace database. All entities live in a single sqlite
// file; concurrent writers rely on the driver's busy handling.
func New(cfg config.DatabaseConfig) (*sql.DB, error) {
	dsn := cfg.Path
	if !strings.Contains(dsn, "?") {
		dsn += "?cache=shared&mode=rwc&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	maxConns := cfg.MaxConnections
	if maxConns <= 0 {
		maxConns = 10
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}
