// Package types contains the capability interfaces shared by the database packages.
// They live apart from the database package to avoid import cycles and to keep
// them easy to fake in tests.
//
//nolint:revive // Package name "types" is intentionally generic to avoid circular imports
package types

import (
	"context"
	"database/sql"

	"github.com/Masterminds/squirrel"
)

// Vendor identifies a database driver family.
type Vendor = string

const (
	MySQL      Vendor = "mysql"
	PostgreSQL Vendor = "postgresql"
	Oracle     Vendor = "oracle"
	SQLite     Vendor = "sqlite"
)

// Session is the native connection handle behind a named connection. It mirrors a
// single driver connection: the affected count, the last generated id and the
// character set belong to the session, not to a statement.
type Session interface {
	// Query runs a row-producing statement and materialises every row.
	Query(ctx context.Context, query string, args ...any) (*ResultSet, error)
	// Exec runs a statement that produces no rows.
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	// Insert runs an INSERT and records the generated id when the driver exposes one.
	Insert(ctx context.Context, query string, args ...any) (sql.Result, error)

	// Affected returns the rows affected (or returned) by the most recent statement.
	Affected() int64
	// InsertID returns the id generated by the most recent successful Insert.
	InsertID() (int64, bool)

	SetCharset(ctx context.Context, charset string) error
	Dialect() Dialect
	Health(ctx context.Context) error
	Stats() map[string]any
	Close() error
}

// Dialect captures the SQL differences between vendors that the table layer needs.
type Dialect interface {
	Vendor() Vendor
	// QuoteIdentifier quotes a column or table name. "*" is returned unchanged.
	QuoteIdentifier(name string) string
	// Placeholder converts "?" placeholders into the driver's bind syntax.
	Placeholder() squirrel.PlaceholderFormat
	// LimitClause renders the row limit for a SELECT; it returns "" when limit is nil.
	// offset is ignored unless limit is set.
	LimitClause(limit, offset *int) string
	// MutationLimit reports whether UPDATE and DELETE accept a trailing LIMIT.
	MutationLimit() bool
	// RowLocator names the pseudo column used to cap UPDATE and DELETE when
	// MutationLimit is false; "" means the cap cannot be expressed.
	RowLocator() string
	// CharsetStatement returns the statement that switches the client character set.
	CharsetStatement(charset string) (string, bool)
	// LastInsertIDQuery returns a query yielding the last generated id, or "" when
	// sql.Result.LastInsertId is reliable.
	LastInsertIDQuery() string
}
