// Package testing provides in-memory fakes for unit tests of code built on the
// table layer. TestSession implements types.Session with an expectation API, so
// tests can assert on the SQL and bind arguments a table sends without a database.
//
// For tests that need real driver behaviour, open an in-memory SQLite connection
// or use the container helpers in testing/containers.
package testing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gaborage/go-tables/database/internal/dialect"
	"github.com/gaborage/go-tables/database/types"
)

// ErrUnexpectedStatement is returned for a statement no expectation matches.
var ErrUnexpectedStatement = errors.New("unexpected statement")

// TestSession is an in-memory types.Session.
//
// SQL matching is partial (substring) by default; StrictSQLMatching requires an exact
// match. Expectations are reusable: the first matching one wins every time.
//
//	s := NewTestSession(types.MySQL).
//	    ExpectQuery("FROM `users`").
//	        WillReturnRows(NewRowSet("id", "name").AddRow(1, "Ana")).
//	    ExpectExec("DELETE FROM `users`").
//	        WillReturnRowsAffected(1)
type TestSession struct {
	dialect types.Dialect

	mu          sync.RWMutex
	queries     []*QueryExpectation
	execs       []*ExecExpectation
	calls       []Call
	strictMatch bool
	affected    int64
	insertID    int64
	hasID       bool
	charset     string
	closed      bool
}

// Call is one statement received by a TestSession.
type Call struct {
	Kind string // "query", "exec" or "insert"
	SQL  string
	Args []any
}

// QueryExpectation answers matching Query calls.
type QueryExpectation struct {
	parent *TestSession
	sql    string
	rows   *RowSet
	err    error
}

// ExecExpectation answers matching Exec and Insert calls.
type ExecExpectation struct {
	parent       *TestSession
	sql          string
	rowsAffected int64
	insertID     int64
	hasID        bool
	err          error
}

var _ types.Session = (*TestSession)(nil)

// NewTestSession creates a fake session speaking the dialect of vendor.
func NewTestSession(vendor types.Vendor) *TestSession {
	return &TestSession{dialect: dialect.For(vendor)}
}

// StrictSQLMatching switches to exact SQL matching.
func (s *TestSession) StrictSQLMatching() *TestSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strictMatch = true
	return s
}

// ExpectQuery registers an answer for Query calls matching sqlPattern.
func (s *TestSession) ExpectQuery(sqlPattern string) *QueryExpectation {
	exp := &QueryExpectation{parent: s, sql: sqlPattern, rows: NewRowSet()}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, exp)
	return exp
}

// ExpectExec registers an answer for Exec and Insert calls matching sqlPattern.
func (s *TestSession) ExpectExec(sqlPattern string) *ExecExpectation {
	exp := &ExecExpectation{parent: s, sql: sqlPattern}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execs = append(s.execs, exp)
	return exp
}

// WillReturnRows sets the rows returned by the query.
func (e *QueryExpectation) WillReturnRows(rows *RowSet) *TestSession {
	e.rows = rows
	return e.parent
}

// WillReturnError makes the query fail.
func (e *QueryExpectation) WillReturnError(err error) *TestSession {
	e.err = err
	return e.parent
}

// WillReturnRowsAffected sets the affected row count.
func (e *ExecExpectation) WillReturnRowsAffected(n int64) *TestSession {
	e.rowsAffected = n
	return e.parent
}

// WillReturnInsertID sets the generated id reported after an Insert, with one affected row.
func (e *ExecExpectation) WillReturnInsertID(id int64) *TestSession {
	e.insertID = id
	e.hasID = true
	if e.rowsAffected == 0 {
		e.rowsAffected = 1
	}
	return e.parent
}

// WillReturnError makes the statement fail.
func (e *ExecExpectation) WillReturnError(err error) *TestSession {
	e.err = err
	return e.parent
}

func (s *TestSession) matchSQL(expected, actual string) bool {
	if s.strictMatch {
		return strings.TrimSpace(expected) == strings.TrimSpace(actual)
	}
	return strings.Contains(actual, expected)
}

// Query answers with the first matching query expectation.
func (s *TestSession) Query(_ context.Context, query string, args ...any) (*types.ResultSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, types.ErrSessionClosed
	}
	s.calls = append(s.calls, Call{Kind: "query", SQL: query, Args: args})

	for _, exp := range s.queries {
		if !s.matchSQL(exp.sql, query) {
			continue
		}
		if exp.err != nil {
			s.affected = -1
			return nil, exp.err
		}
		rs := exp.rows.resultSet()
		s.affected = int64(rs.Len())
		return rs, nil
	}
	s.affected = -1
	return nil, fmt.Errorf("%w: query %q", ErrUnexpectedStatement, query)
}

// Exec answers with the first matching exec expectation.
func (s *TestSession) Exec(_ context.Context, query string, args ...any) (sql.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exec("exec", query, args)
}

// Insert answers like Exec and records the expectation's insert id.
func (s *TestSession) Insert(_ context.Context, query string, args ...any) (sql.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hasID = false
	res, err := s.exec("insert", query, args)
	if err != nil {
		return nil, err
	}
	r := res.(result)
	s.insertID, s.hasID = r.id, r.hasID
	return res, nil
}

func (s *TestSession) exec(kind, query string, args []any) (sql.Result, error) {
	if s.closed {
		return nil, types.ErrSessionClosed
	}
	s.calls = append(s.calls, Call{Kind: kind, SQL: query, Args: args})

	for _, exp := range s.execs {
		if !s.matchSQL(exp.sql, query) {
			continue
		}
		if exp.err != nil {
			s.affected = -1
			return nil, exp.err
		}
		s.affected = exp.rowsAffected
		return result{affected: exp.rowsAffected, id: exp.insertID, hasID: exp.hasID}, nil
	}
	s.affected = -1
	return nil, fmt.Errorf("%w: %s %q", ErrUnexpectedStatement, kind, query)
}

// Affected returns the affected count of the last statement.
func (s *TestSession) Affected() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.affected
}

// InsertID returns the id of the last successful Insert.
func (s *TestSession) InsertID() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.insertID, s.hasID
}

// SetCharset records the charset when the dialect supports switching it.
func (s *TestSession) SetCharset(_ context.Context, charset string) error {
	if _, ok := s.dialect.CharsetStatement(charset); !ok {
		return types.ErrCharsetUnsupported
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.charset = charset
	return nil
}

// Charset returns the last charset set.
func (s *TestSession) Charset() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.charset
}

// Dialect returns the session dialect.
func (s *TestSession) Dialect() types.Dialect { return s.dialect }

// Health fails only after Close.
func (s *TestSession) Health(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return types.ErrSessionClosed
	}
	return nil
}

// Stats reports the number of statements received.
func (s *TestSession) Stats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{"vendor": s.dialect.Vendor(), "statements": len(s.calls)}
}

// Close marks the session closed.
func (s *TestSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *TestSession) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Calls returns every statement received, in order.
func (s *TestSession) Calls() []Call {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Call(nil), s.calls...)
}

type result struct {
	affected int64
	id       int64
	hasID    bool
}

func (r result) LastInsertId() (int64, error) {
	if !r.hasID {
		return 0, errors.New("no insert id")
	}
	return r.id, nil
}

func (r result) RowsAffected() (int64, error) { return r.affected, nil }
