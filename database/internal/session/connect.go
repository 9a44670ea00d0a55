package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gaborage/go-tables/config"
	"github.com/gaborage/go-tables/database/types"
)

// PingTimeout bounds the connectivity check done while connecting.
var PingTimeout = 10 * time.Second

// Connect applies pool settings to db, pings it and pins a session. db is closed
// when any step fails.
func Connect(ctx context.Context, db *sql.DB, d types.Dialect, pool config.PoolConfig) (*Session, error) {
	if pool.MaxConnections > 0 {
		db.SetMaxOpenConns(pool.MaxConnections)
	}
	if pool.IdleConnections > 0 {
		db.SetMaxIdleConns(pool.IdleConnections)
	}
	db.SetConnMaxIdleTime(pool.IdleTime)
	db.SetConnMaxLifetime(pool.MaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to ping %s database: %w", d.Vendor(), err), db.Close())
	}

	s, err := Open(ctx, db, d)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return s, nil
}
