package database

import "github.com/gaborage/go-tables/database/types"

// Driver names accepted in connection configuration. The single source of truth
// lives in types.
const (
	MySQL      = types.MySQL
	PostgreSQL = types.PostgreSQL
	Oracle     = types.Oracle
	SQLite     = types.SQLite
)
