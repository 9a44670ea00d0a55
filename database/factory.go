package database

import (
	"context"
	"strings"

	"github.com/gaborage/go-tables/config"
	"github.com/gaborage/go-tables/database/internal/tracking"
	"github.com/gaborage/go-tables/database/mysql"
	"github.com/gaborage/go-tables/database/oracle"
	"github.com/gaborage/go-tables/database/postgresql"
	"github.com/gaborage/go-tables/database/sqlite"
	"github.com/gaborage/go-tables/database/types"
	"github.com/gaborage/go-tables/logger"
)

// Connector opens the native session of one connection.
type Connector func(ctx context.Context, cfg *config.ConnectionConfig, log logger.Logger) (types.Session, error)

// NewSession opens a session with the driver named by cfg.Driver (case-insensitive).
// An unknown driver yields a *types.UnsupportedDriverError; driver failures are
// returned as the vendor connector reports them.
func NewSession(ctx context.Context, cfg *config.ConnectionConfig, log logger.Logger) (types.Session, error) {
	var (
		s   types.Session
		err error
	)
	switch strings.ToLower(cfg.Driver) {
	case MySQL:
		s, err = unwrap(mysql.NewSession(ctx, cfg, log))
	case PostgreSQL:
		s, err = unwrap(postgresql.NewSession(ctx, cfg, log))
	case Oracle:
		s, err = unwrap(oracle.NewSession(ctx, cfg, log))
	case SQLite:
		s, err = unwrap(sqlite.NewSession(ctx, cfg, log))
	default:
		return nil, &types.UnsupportedDriverError{Driver: cfg.Driver, Supported: SupportedDrivers()}
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// unwrap keeps a nil *S from turning into a non-nil types.Session.
func unwrap[S types.Session](s S, err error) (types.Session, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ValidateDriver returns nil if driver is supported, a *types.UnsupportedDriverError otherwise.
func ValidateDriver(driver string) error {
	switch strings.ToLower(driver) {
	case MySQL, PostgreSQL, Oracle, SQLite:
		return nil
	default:
		return &types.UnsupportedDriverError{Driver: driver, Supported: SupportedDrivers()}
	}
}

// SupportedDrivers returns the driver names NewSession accepts.
func SupportedDrivers() []string {
	return []string{MySQL, PostgreSQL, Oracle, SQLite}
}

// track wraps s so every statement is logged, traced and measured.
func track(s types.Session, log logger.Logger, name string, qcfg *config.QueryConfig) types.Session {
	return tracking.NewSession(s, log, name, qcfg)
}
