package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowKeepsColumnOrder(t *testing.T) {
	r := NewRow([]string{"id", "name", "city"}, []string{"7", "Ana", ""})

	assert.Equal(t, []string{"id", "name", "city"}, r.Columns())
	assert.Equal(t, "Ana", r.Get("name"))
	assert.Equal(t, "", r.Get("missing"))
	assert.Equal(t, 3, r.Len())

	v, ok := r.Lookup("city")
	assert.True(t, ok)
	assert.Empty(t, v)
	_, ok = r.Lookup("zip")
	assert.False(t, ok)

	r.Set("name", "Bia")
	r.Set("zip", "01000")
	assert.Equal(t, []string{"id", "name", "city", "zip"}, r.Columns())
	assert.Equal(t, "Bia", r.Map()["name"])

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"7","name":"Bia","city":"","zip":"01000"}`, string(b))
}

func TestZeroRowSet(t *testing.T) {
	var r Row
	r.Set("a", "1")
	assert.Equal(t, "1", r.Get("a"))

	var rs *ResultSet
	assert.Zero(t, rs.Len())
}

func TestReturnsRows(t *testing.T) {
	tests := map[string]bool{
		"SELECT 1":                            true,
		"  select * from t":                   true,
		"(SELECT 1) UNION (SELECT 2)":         true,
		"SHOW TABLES":                         true,
		"with x as (select 1) select *":       true,
		"PRAGMA table_info(t)":                true,
		"DESC users":                          true,
		"INSERT INTO t VALUES (1)":            false,
		"UPDATE t SET a = 1":                  false,
		"DELETE FROM t":                       false,
		"CREATE TABLE t (id int)":             false,
		"SET NAMES utf8mb4":                   false,
		"SELECTED":                            false,
		"":                                    false,
		"/* c */ SELECT COUNT(*) AS n FROM t": true,
		"-- report\nSELECT 1":                 true,
		"INSERT INTO t (name) VALUES ('x') RETURNING id": true,
		"delete from t where id = 1 returning *":         true,
		"INSERT INTO t (note) VALUES ('returning')":      false,
		"/* SELECT */ DELETE FROM t":                     false,
		"-- SELECT":                                      false,
	}
	for q, want := range tests {
		assert.Equal(t, want, ReturnsRows(q), q)
	}
}

func TestUnsupportedDriverError(t *testing.T) {
	err := fmt.Errorf("open: %w", &UnsupportedDriverError{Driver: "mssql", Supported: []string{"sqlite", "mysql"}})

	assert.True(t, errors.Is(err, ErrUnsupportedDriver))
	var ude *UnsupportedDriverError
	require.ErrorAs(t, err, &ude)
	assert.Equal(t, "mssql", ude.Driver)
	assert.Equal(t, `unsupported database driver: "mssql" (supported: mysql, sqlite)`, ude.Error())
}
