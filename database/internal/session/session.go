// Package session implements types.Session on top of database/sql. A session pins
// one *sql.Conn from the pool so that the affected count, the last generated id and
// the client character set behave like a single native connection handle.
package session

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"

	"github.com/gaborage/go-tables/database/types"
)

// Session is a database/sql backed types.Session.
type Session struct {
	db      *sql.DB
	dialect types.Dialect

	mu       sync.Mutex
	conn     *sql.Conn
	charset  string
	affected int64
	insertID int64
	hasID    bool
	closed   bool
}

var _ types.Session = (*Session)(nil)

// Open pins a connection from db. The session owns db and closes it on Close.
func Open(ctx context.Context, db *sql.DB, d types.Dialect) (*Session, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &Session{db: db, dialect: d, conn: conn}, nil
}

// Dialect returns the SQL dialect of the underlying driver.
func (s *Session) Dialect() types.Dialect { return s.dialect }

// Query runs a row-producing statement and reads every row as nullable text.
func (s *Session) Query(ctx context.Context, query string, args ...any) (*types.ResultSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rs *types.ResultSet
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		rs, err = readRows(rows)
		return err
	})
	if err != nil {
		s.affected = -1
		return nil, err
	}
	s.affected = int64(rs.Len())
	return rs, nil
}

// Exec runs a statement that produces no rows.
func (s *Session) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exec(ctx, query, args...)
}

// Insert runs an INSERT and resolves the generated id on the same connection.
func (s *Session) Insert(ctx context.Context, query string, args ...any) (sql.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hasID = false
	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	s.insertID, s.hasID = s.lastInsertID(ctx, res)
	return res, nil
}

func (s *Session) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		var err error
		res, err = conn.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		s.affected = -1
		return nil, err
	}
	if n, raErr := res.RowsAffected(); raErr == nil {
		s.affected = n
	} else {
		s.affected = 0
	}
	return res, nil
}

func (s *Session) lastInsertID(ctx context.Context, res sql.Result) (int64, bool) {
	if q := s.dialect.LastInsertIDQuery(); q != "" {
		var id int64
		if err := s.conn.QueryRowContext(ctx, q).Scan(&id); err != nil {
			return 0, false
		}
		return id, true
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, false
	}
	return id, true
}

// Affected returns the rows affected by the last statement, or -1 after a failure.
func (s *Session) Affected() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.affected
}

// InsertID returns the id generated by the last successful Insert.
func (s *Session) InsertID() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertID, s.hasID
}

// SetCharset switches the client character set. The setting is replayed if the
// pinned connection has to be replaced.
func (s *Session) SetCharset(ctx context.Context, charset string) error {
	stmt, ok := s.dialect.CharsetStatement(charset)
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrCharsetUnsupported, s.dialect.Vendor())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.withConn(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, stmt)
		return err
	})
	if err != nil {
		return err
	}
	s.charset = charset
	return nil
}

// Health pings the pinned connection.
func (s *Session) Health(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withConn(ctx, func(conn *sql.Conn) error {
		return conn.PingContext(ctx)
	})
}

// Stats returns pool statistics.
func (s *Session) Stats() map[string]any {
	st := s.db.Stats()
	return map[string]any{
		"vendor":           s.dialect.Vendor(),
		"open_connections": st.OpenConnections,
		"in_use":           st.InUse,
		"idle":             st.Idle,
		"wait_count":       st.WaitCount,
		"wait_duration":    st.WaitDuration.String(),
		"max_open":         st.MaxOpenConnections,
	}
}

// Close releases the pinned connection and closes the pool.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if s.conn != nil {
		if err := s.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			errs = append(errs, err)
		}
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// withConn runs fn on the pinned connection. When the driver reports the connection
// as broken it is replaced once, the charset is replayed and fn is retried.
// Callers hold s.mu.
func (s *Session) withConn(ctx context.Context, fn func(*sql.Conn) error) error {
	if s.closed {
		return types.ErrSessionClosed
	}

	err := fn(s.conn)
	if !errors.Is(err, driver.ErrBadConn) && !errors.Is(err, sql.ErrConnDone) {
		return err
	}

	_ = s.conn.Close()
	conn, connErr := s.db.Conn(ctx)
	if connErr != nil {
		return errors.Join(err, connErr)
	}
	s.conn = conn

	if s.charset != "" {
		if stmt, ok := s.dialect.CharsetStatement(s.charset); ok {
			if _, csErr := conn.ExecContext(ctx, stmt); csErr != nil {
				return csErr
			}
		}
	}
	return fn(conn)
}

func readRows(rows *sql.Rows) (*types.ResultSet, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	rs := &types.ResultSet{Columns: cols, Rows: [][]sql.NullString{}}
	for rows.Next() {
		record := make([]sql.NullString, len(cols))
		dest := make([]any, len(cols))
		for i := range record {
			dest[i] = &record[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		rs.Rows = append(rs.Rows, record)
	}
	return rs, rows.Err()
}
