//revive:disable-next-line:var-naming // Package name "types" avoids circular imports.
package types

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"strings"
)

// ResultSet is a fully read row set as the driver returned it.
type ResultSet struct {
	Columns []string
	Rows    [][]sql.NullString
}

// Len returns the number of rows, zero for a nil set.
func (rs *ResultSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rows)
}

// Row is one decoded result row: column order is preserved and every value is text.
type Row struct {
	columns []string
	values  map[string]string
}

// NewRow builds a row from parallel column and value slices.
func NewRow(columns, values []string) Row {
	r := Row{columns: make([]string, 0, len(columns)), values: make(map[string]string, len(columns))}
	for i, c := range columns {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		r.Set(c, v)
	}
	return r
}

// Get returns the value of column, or "" when the column is absent.
func (r Row) Get(column string) string {
	return r.values[column]
}

// Lookup returns the value of column and whether it exists.
func (r Row) Lookup(column string) (string, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Set assigns a value, appending the column when it is new.
func (r *Row) Set(column, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, ok := r.values[column]; !ok {
		r.columns = append(r.columns, column)
	}
	r.values[column] = value
}

// Columns returns the column names in result order.
func (r Row) Columns() []string {
	return append([]string(nil), r.columns...)
}

// Len returns the number of columns.
func (r Row) Len() int { return len(r.columns) }

// Map returns a copy of the row as a plain map.
func (r Row) Map() map[string]string {
	m := make(map[string]string, len(r.values))
	for k, v := range r.values {
		m[k] = v
	}
	return m
}

// MarshalJSON encodes the row as an object whose keys keep result order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.values[c])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// rowProducingKeywords start statements that return a row set.
var rowProducingKeywords = []string{"SELECT", "SHOW", "DESCRIBE", "DESC", "EXPLAIN", "WITH", "PRAGMA", "VALUES"}

// ReturnsRows reports whether a raw statement produces a row set: its leading
// keyword starts a query, or it carries a RETURNING clause. Comments and quoted
// text are skipped.
func ReturnsRows(query string) bool {
	words := sqlWords(query)
	if len(words) == 0 {
		return false
	}
	for _, k := range rowProducingKeywords {
		if words[0] == k {
			return true
		}
	}
	for _, w := range words[1:] {
		if w == "RETURNING" {
			return true
		}
	}
	return false
}

// sqlWords returns the upper-cased bare words of query, leaving out comments,
// quoted strings and quoted identifiers.
func sqlWords(query string) []string {
	var words []string
	for i := 0; i < len(query); {
		c := query[i]
		switch {
		case c == '-' && strings.HasPrefix(query[i:], "--"):
			end := strings.IndexByte(query[i:], '\n')
			if end < 0 {
				return words
			}
			i += end + 1
		case c == '/' && strings.HasPrefix(query[i:], "/*"):
			end := strings.Index(query[i+2:], "*/")
			if end < 0 {
				return words
			}
			i += end + 4
		case c == '\'' || c == '"' || c == '`':
			end := strings.IndexByte(query[i+1:], c)
			if end < 0 {
				return words
			}
			i += end + 2
		case isWordByte(c):
			j := i
			for j < len(query) && (isWordByte(query[j]) || query[j] >= '0' && query[j] <= '9') {
				j++
			}
			words = append(words, strings.ToUpper(query[i:j]))
			i = j
		default:
			i++
		}
	}
	return words
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}
