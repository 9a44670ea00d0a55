// Package oracle opens Oracle sessions with the pure Go go-ora driver.
package oracle

import (
	"context"
	"database/sql"
	"fmt"

	go_ora "github.com/sijms/go-ora/v2"

	"github.com/gaborage/go-tables/config"
	"github.com/gaborage/go-tables/database/internal/dialect"
	"github.com/gaborage/go-tables/database/internal/session"
	"github.com/gaborage/go-tables/database/types"
	"github.com/gaborage/go-tables/logger"
)

var openOracleDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("oracle", dsn)
}

// DSN builds a go-ora URL for cfg. The service name falls back to the database field.
func DSN(cfg *config.ConnectionConfig) string {
	if cfg.ConnectionString != "" {
		return cfg.ConnectionString
	}

	service := cfg.ServiceName
	if service == "" {
		service = cfg.Database
	}
	return go_ora.BuildUrl(cfg.Host, cfg.Port, service, cfg.Username, cfg.Password, nil)
}

// NewSession connects to Oracle and pins a session.
func NewSession(ctx context.Context, cfg *config.ConnectionConfig, log logger.Logger) (*session.Session, error) {
	db, err := openOracleDB(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open Oracle database: %w", err)
	}

	s, err := session.Connect(ctx, db, dialect.For(types.Oracle), cfg.Pool)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("service", cfg.ServiceName).
		Msg("Connected to Oracle database")

	return s, nil
}
