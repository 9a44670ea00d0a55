package mysql

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-tables/config"
	"github.com/gaborage/go-tables/database/types"
	"github.com/gaborage/go-tables/logger"
)

func TestDSN(t *testing.T) {
	cfg := &config.ConnectionConfig{
		Driver:   config.MySQL,
		Host:     "db.local",
		Port:     3307,
		Username: "app",
		Password: "p@ss",
		Database: "shop",
		Charset:  "utf8mb4",
	}
	assert.Equal(t, "app:p@ss@tcp(db.local:3307)/shop?charset=utf8mb4", DSN(cfg))

	cfg.Charset = ""
	assert.Equal(t, "app:p@ss@tcp(db.local:3307)/shop", DSN(cfg))

	cfg.ConnectionString = "root@unix(/tmp/mysql.sock)/x"
	assert.Equal(t, "root@unix(/tmp/mysql.sock)/x", DSN(cfg))
}

func withOpener(t *testing.T, fn func(string) (*sql.DB, error)) {
	t.Helper()
	orig := openMySQLDB
	openMySQLDB = fn
	t.Cleanup(func() { openMySQLDB = orig })
}

func TestNewSessionPingsAndPins(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing()

	var gotDSN string
	withOpener(t, func(dsn string) (*sql.DB, error) {
		gotDSN = dsn
		return db, nil
	})

	cfg := &config.ConnectionConfig{Driver: config.MySQL, Host: "h", Port: 3306, Username: "u", Database: "d"}
	s, err := NewSession(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "u@tcp(h:3306)/d", gotDSN)
	assert.Equal(t, types.MySQL, s.Dialect().Vendor())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewSessionPingFailureClosesDB(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing().WillReturnError(errors.New("refused"))
	mock.ExpectClose()

	withOpener(t, func(string) (*sql.DB, error) { return db, nil })

	_, err = NewSession(context.Background(), &config.ConnectionConfig{Driver: config.MySQL, Host: "h"}, logger.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping mysql database")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewSessionOpenFailure(t *testing.T) {
	withOpener(t, func(string) (*sql.DB, error) { return nil, errors.New("bad dsn") })

	_, err := NewSession(context.Background(), &config.ConnectionConfig{Driver: config.MySQL}, logger.Nop())
	assert.ErrorContains(t, err, "failed to open MySQL database")
}
