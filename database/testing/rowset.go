package testing

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/gaborage/go-tables/database/types"
)

// RowSet is a fluent builder for the rows a TestSession query returns.
//
//	rows := NewRowSet("id", "name").
//	    AddRow(1, "Alice").
//	    AddRow(2, nil)
type RowSet struct {
	columns []string
	rows    [][]any
}

// NewRowSet creates an empty RowSet with the given columns.
func NewRowSet(columns ...string) *RowSet {
	return &RowSet{columns: columns, rows: make([][]any, 0)}
}

// AddRow appends one row. It panics when the value count does not match the columns.
func (rs *RowSet) AddRow(values ...any) *RowSet {
	if len(values) != len(rs.columns) {
		panic(fmt.Sprintf("AddRow: expected %d values for columns %v, got %d",
			len(rs.columns), rs.columns, len(values)))
	}
	rs.rows = append(rs.rows, values)
	return rs
}

// resultSet converts the rows to driver text the way database/sql would.
func (rs *RowSet) resultSet() *types.ResultSet {
	out := &types.ResultSet{Columns: append([]string(nil), rs.columns...), Rows: make([][]sql.NullString, 0, len(rs.rows))}
	for _, row := range rs.rows {
		record := make([]sql.NullString, len(row))
		for i, v := range row {
			record[i] = toNullString(v)
		}
		out.Rows = append(out.Rows, record)
	}
	return out
}

func toNullString(v any) sql.NullString {
	switch val := v.(type) {
	case nil:
		return sql.NullString{}
	case sql.NullString:
		return val
	case []byte:
		return sql.NullString{String: string(val), Valid: true}
	case time.Time:
		return sql.NullString{String: val.Format(time.RFC3339Nano), Valid: true}
	default:
		return sql.NullString{String: fmt.Sprint(val), Valid: true}
	}
}
