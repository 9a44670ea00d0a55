package tracking

import (
	"context"
	"database/sql"
	"time"

	"github.com/gaborage/go-tables/config"
	"github.com/gaborage/go-tables/database/types"
	"github.com/gaborage/go-tables/logger"
)

// Session decorates a types.Session so that every statement is tracked.
type Session struct {
	types.Session
	tc *Context
}

var _ types.Session = (*Session)(nil)

// NewSession wraps inner. name is the registry name of the connection.
func NewSession(inner types.Session, log logger.Logger, name string, cfg *config.QueryConfig) *Session {
	return &Session{
		Session: inner,
		tc: &Context{
			Logger:     log,
			Vendor:     inner.Dialect().Vendor(),
			Connection: name,
			Settings:   NewSettings(cfg),
		},
	}
}

// Query runs and tracks a row-producing statement. The row count is reported as affected.
func (s *Session) Query(ctx context.Context, query string, args ...any) (*types.ResultSet, error) {
	start := time.Now()
	rs, err := s.Session.Query(ctx, query, args...)
	TrackStatement(ctx, s.tc, query, args, start, int64(rs.Len()), err)
	return rs, err
}

// Exec runs and tracks a statement that produces no rows.
func (s *Session) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := s.Session.Exec(ctx, query, args...)
	TrackStatement(ctx, s.tc, query, args, start, rowsAffected(res, err), err)
	return res, err
}

// Insert runs and tracks an INSERT.
func (s *Session) Insert(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := s.Session.Insert(ctx, query, args...)
	TrackStatement(ctx, s.tc, query, args, start, rowsAffected(res, err), err)
	return res, err
}

// SetCharset switches the character set and tracks the statement that does it.
func (s *Session) SetCharset(ctx context.Context, charset string) error {
	start := time.Now()
	err := s.Session.SetCharset(ctx, charset)
	stmt, _ := s.Dialect().CharsetStatement(charset)
	if stmt == "" {
		stmt = "SET CHARSET " + charset
	}
	TrackStatement(ctx, s.tc, stmt, nil, start, 0, err)
	return err
}

func rowsAffected(res sql.Result, err error) int64 {
	if res == nil || err != nil {
		return 0
	}
	n, raErr := res.RowsAffected()
	if raErr != nil {
		return 0
	}
	return n
}
