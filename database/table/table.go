// Package table is the per-table query builder and executor. A Table accumulates
// read intent (fields, filters, ordering, grouping, paging and output formatting)
// through chained calls, assembles it into SQL for the connection's dialect, binds
// the filter values, executes and decodes the rows into text.
//
// Every terminal operation is synchronous and reports through a completion
// callback invoked before it returns:
//
//	users.Select("id", "name").
//	    Filter("active", 1).
//	    Order("name", "").
//	    Limit(20).
//	    Execute(ctx, func(rows []types.Row, err error) {
//	        ...
//	    })
//
// Statements are observable as text (hooks, logs and the diagnostics log) with the
// bound values written in place of their placeholders.
package table

import (
	"context"
	"database/sql"
	"time"

	"github.com/gaborage/go-tables/database/diagnostics"
	"github.com/gaborage/go-tables/database/events"
	"github.com/gaborage/go-tables/database/types"
	"github.com/gaborage/go-tables/logger"
)

// QueryFunc receives the decoded rows of Execute and Query. rows is nil when the
// statement produced no row set, which is different from an empty result.
type QueryFunc func(rows []types.Row, err error)

// ExecFunc receives the outcome of Insert, Update and Delete.
type ExecFunc func(res ExecResult, err error)

// ExecResult is the outcome of a mutation.
type ExecResult struct {
	Affected int64
	// InsertID is only valid after a successful Insert on a driver reporting ids.
	InsertID sql.NullInt64
}

// Table is one table of a connection. It owns a single QuerySpec and is not safe
// for concurrent use; the session underneath is shared by every Table of the
// connection.
type Table struct {
	name       string
	connection string
	session    types.Session
	dialect    types.Dialect
	bus        *events.Bus
	diag       *diagnostics.Log
	log        logger.Logger

	spec QuerySpec
}

// Option configures a Table.
type Option func(*Table)

// WithConnectionName sets the connection name reported to hooks, logs and diagnostics.
func WithConnectionName(name string) Option {
	return func(t *Table) { t.connection = name }
}

// WithEvents sets the hook bus.
func WithEvents(bus *events.Bus) Option {
	return func(t *Table) { t.bus = bus }
}

// WithDiagnostics sets the statement log.
func WithDiagnostics(d *diagnostics.Log) Option {
	return func(t *Table) { t.diag = d }
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(t *Table) {
		if log != nil {
			t.log = log
		}
	}
}

// New creates a Table named name on session.
func New(name string, session types.Session, opts ...Option) (*Table, error) {
	if name == "" {
		return nil, types.ErrEmptyTableName
	}
	t := &Table{
		name:    name,
		session: session,
		dialect: session.Dialect(),
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Affected returns the rows affected or returned by the most recent statement on
// the connection, by any Table.
func (t *Table) Affected() int64 { return t.session.Affected() }

// InsertID returns the id generated by the most recent successful Insert on the
// connection, or zero.
func (t *Table) InsertID() int64 {
	id, _ := t.session.InsertID()
	return id
}

// Statement renders the SELECT the next Execute would send, without sending it.
func (t *Table) Statement() (string, error) {
	st, err := t.selectStatement()
	if err != nil {
		return "", err
	}
	return st.text(), nil
}

func (t *Table) event(name events.Name, st statement) *events.Event {
	return &events.Event{
		Name:       name,
		Connection: t.connection,
		Table:      t.name,
		Statement:  st.text(),
		Args:       st.args,
	}
}

func (t *Table) record(ctx context.Context, text string, start time.Time, rows int, err error) {
	t.diag.Record(ctx, diagnostics.Record{
		Statement:  text,
		Start:      start,
		Result:     rows,
		Affected:   t.session.Affected(),
		Connection: t.connection,
		Table:      t.name,
		Err:        err,
	})
}
