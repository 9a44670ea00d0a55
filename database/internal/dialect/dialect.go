// Package dialect implements the vendor-specific SQL details used by the table
// layer: identifier quoting, bind placeholders, row limits and charset switching.
package dialect

import (
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/gaborage/go-tables/database/internal/sqllex"
	"github.com/gaborage/go-tables/database/types"
)

// For returns the dialect of a vendor. Unknown vendors get the MySQL dialect, whose
// "?" placeholders every database/sql driver in this module understands.
func For(vendor types.Vendor) types.Dialect {
	switch vendor {
	case types.PostgreSQL:
		return postgres{}
	case types.Oracle:
		return oracle{}
	case types.SQLite:
		return sqlite{}
	default:
		return mysql{}
	}
}

func quote(name, open, closing string) string {
	if name == "*" || name == "" {
		return name
	}
	escaped := strings.ReplaceAll(name, closing, closing+closing)
	return open + escaped + closing
}

func limitOffset(limit, offset *int) string {
	if limit == nil {
		return ""
	}
	if offset != nil {
		return fmt.Sprintf("LIMIT %d, %d", *offset, *limit)
	}
	return fmt.Sprintf("LIMIT %d", *limit)
}

type mysql struct{}

func (mysql) Vendor() types.Vendor                    { return types.MySQL }
func (mysql) QuoteIdentifier(name string) string      { return quote(name, "`", "`") }
func (mysql) Placeholder() squirrel.PlaceholderFormat { return squirrel.Question }
func (mysql) LimitClause(limit, offset *int) string   { return limitOffset(limit, offset) }
func (mysql) MutationLimit() bool                     { return true }
func (mysql) RowLocator() string                      { return "" }
func (mysql) LastInsertIDQuery() string               { return "" }
func (mysql) CharsetStatement(cs string) (string, bool) {
	if !sqllex.IsCharsetName(cs) {
		return "", false
	}
	return "SET NAMES " + cs, true
}

type sqlite struct{}

func (sqlite) Vendor() types.Vendor                    { return types.SQLite }
func (sqlite) QuoteIdentifier(name string) string      { return quote(name, "`", "`") }
func (sqlite) Placeholder() squirrel.PlaceholderFormat { return squirrel.Question }
func (sqlite) LimitClause(limit, offset *int) string   { return limitOffset(limit, offset) }
func (sqlite) MutationLimit() bool                     { return false }
func (sqlite) RowLocator() string                      { return "rowid" }
func (sqlite) LastInsertIDQuery() string               { return "" }

// SQLite text is always UTF-8; only the pragma for new databases can be set.
func (sqlite) CharsetStatement(cs string) (string, bool) {
	if !sqllex.IsCharsetName(cs) || !strings.HasPrefix(strings.ToLower(cs), "utf") {
		return "", false
	}
	return fmt.Sprintf("PRAGMA encoding = '%s'", strings.ToUpper(cs)), true
}

type postgres struct{}

func (postgres) Vendor() types.Vendor                    { return types.PostgreSQL }
func (postgres) QuoteIdentifier(name string) string      { return quote(name, `"`, `"`) }
func (postgres) Placeholder() squirrel.PlaceholderFormat { return squirrel.Dollar }
func (postgres) MutationLimit() bool                     { return false }
func (postgres) RowLocator() string                      { return "ctid" }
func (postgres) LastInsertIDQuery() string               { return "SELECT lastval()" }

func (postgres) LimitClause(limit, offset *int) string {
	if limit == nil {
		return ""
	}
	if offset != nil {
		return fmt.Sprintf("LIMIT %d OFFSET %d", *limit, *offset)
	}
	return fmt.Sprintf("LIMIT %d", *limit)
}

func (postgres) CharsetStatement(cs string) (string, bool) {
	if !sqllex.IsCharsetName(cs) {
		return "", false
	}
	return fmt.Sprintf("SET client_encoding TO '%s'", cs), true
}

type oracle struct{}

func (oracle) Vendor() types.Vendor                    { return types.Oracle }
func (oracle) Placeholder() squirrel.PlaceholderFormat { return squirrel.Colon }
func (oracle) MutationLimit() bool                     { return false }
func (oracle) RowLocator() string                      { return "ROWID" }
func (oracle) LastInsertIDQuery() string               { return "" }

// Oracle 12c+ row limiting.
func (oracle) LimitClause(limit, offset *int) string {
	if limit == nil {
		return ""
	}
	if offset != nil && *offset > 0 {
		return fmt.Sprintf("OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", *offset, *limit)
	}
	return fmt.Sprintf("FETCH FIRST %d ROWS ONLY", *limit)
}

// Oracle folds unquoted names to upper case, so plain identifiers stay bare.
// Reserved words are quoted in upper case and anything else is quoted verbatim.
func (oracle) QuoteIdentifier(name string) string {
	switch {
	case name == "*" || name == "":
		return name
	case sqllex.IsOracleReserved(name):
		return `"` + strings.ToUpper(name) + `"`
	case sqllex.IsPlainIdentifier(name):
		return name
	default:
		return quote(name, `"`, `"`)
	}
}

// The Oracle client character set is fixed by NLS_LANG at connect time.
func (oracle) CharsetStatement(string) (string, bool) { return "", false }
