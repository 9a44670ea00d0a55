package database

import (
	"github.com/gaborage/go-tables/database/table"
	"github.com/gaborage/go-tables/database/types"
)

// Session is the native handle behind a Connection.
type Session = types.Session

// Row is one decoded result row.
type Row = types.Row

// Table is the query builder of one table.
type Table = table.Table
