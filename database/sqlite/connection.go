// Package sqlite opens SQLite sessions with the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/gaborage/go-tables/config"
	"github.com/gaborage/go-tables/database/internal/dialect"
	"github.com/gaborage/go-tables/database/internal/session"
	"github.com/gaborage/go-tables/database/types"
	"github.com/gaborage/go-tables/logger"
)

var openSQLiteDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("sqlite", dsn)
}

// DSN returns the database path. In-memory databases are made shared so that every
// pooled connection sees the same data.
func DSN(cfg *config.ConnectionConfig) string {
	if cfg.ConnectionString != "" {
		return cfg.ConnectionString
	}
	if cfg.Database == ":memory:" {
		return "file::memory:?cache=shared"
	}
	if strings.Contains(cfg.Database, "?") {
		return cfg.Database + "&_pragma=busy_timeout(5000)"
	}
	return cfg.Database + "?_pragma=busy_timeout(5000)"
}

// NewSession opens the SQLite database and pins a session.
func NewSession(ctx context.Context, cfg *config.ConnectionConfig, log logger.Logger) (*session.Session, error) {
	db, err := openSQLiteDB(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	s, err := session.Connect(ctx, db, dialect.For(types.SQLite), cfg.Pool)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("database", cfg.Database).
		Msg("Opened SQLite database")

	return s, nil
}
