// Package mysql opens MySQL and MariaDB sessions with go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"

	driver "github.com/go-sql-driver/mysql"

	"github.com/gaborage/go-tables/config"
	"github.com/gaborage/go-tables/database/internal/dialect"
	"github.com/gaborage/go-tables/database/internal/session"
	"github.com/gaborage/go-tables/database/types"
	"github.com/gaborage/go-tables/logger"
)

var openMySQLDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("mysql", dsn)
}

// DSN builds the go-sql-driver DSN for cfg. A configured connection string wins.
// The charset goes into the DSN so every pooled connection starts with it.
func DSN(cfg *config.ConnectionConfig) string {
	if cfg.ConnectionString != "" {
		return cfg.ConnectionString
	}

	mc := driver.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Database
	if cfg.Charset != "" {
		mc.Params = map[string]string{"charset": cfg.Charset}
	}
	return mc.FormatDSN()
}

// NewSession connects to MySQL and pins a session.
func NewSession(ctx context.Context, cfg *config.ConnectionConfig, log logger.Logger) (*session.Session, error) {
	db, err := openMySQLDB(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	s, err := session.Connect(ctx, db, dialect.For(types.MySQL), cfg.Pool)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("Connected to MySQL database")

	return s, nil
}
