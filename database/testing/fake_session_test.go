package testing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-tables/database/types"
)

func TestQueryExpectation(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC)
	s := NewTestSession(types.MySQL).
		ExpectQuery("FROM `users`").
		WillReturnRows(NewRowSet("id", "name", "born").AddRow(1, "Ana", ts).AddRow(2, nil, []byte("x")))

	rs, err := s.Query(context.Background(), "SELECT * FROM `users` WHERE `id` > ?", 0)
	require.NoError(t, err)
	require.Equal(t, 2, rs.Len())
	assert.Equal(t, "1", rs.Rows[0][0].String)
	assert.Equal(t, "2024-03-09T14:05:00Z", rs.Rows[0][2].String)
	assert.False(t, rs.Rows[1][1].Valid)
	assert.Equal(t, "x", rs.Rows[1][2].String)
	assert.EqualValues(t, 2, s.Affected())

	AssertStatementExecuted(t, s, "FROM `users`")
	AssertStatementCount(t, s, "SELECT", 1)
}

func TestUnexpectedStatement(t *testing.T) {
	s := NewTestSession(types.SQLite)

	_, err := s.Query(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, ErrUnexpectedStatement)
	_, err = s.Exec(context.Background(), "DELETE FROM t")
	assert.ErrorIs(t, err, ErrUnexpectedStatement)
	assert.EqualValues(t, -1, s.Affected())
}

func TestExecAndInsertExpectations(t *testing.T) {
	boom := errors.New("boom")
	s := NewTestSession(types.MySQL).
		ExpectExec("INSERT INTO `items`").WillReturnInsertID(12).
		ExpectExec("UPDATE `items`").WillReturnRowsAffected(3).
		ExpectExec("DELETE").WillReturnError(boom)

	_, err := s.Insert(context.Background(), "INSERT INTO `items` (`a`) VALUES (?)", "x")
	require.NoError(t, err)
	id, ok := s.InsertID()
	assert.True(t, ok)
	assert.EqualValues(t, 12, id)
	assert.EqualValues(t, 1, s.Affected())

	res, err := s.Exec(context.Background(), "UPDATE `items` SET `a` = ?", "y")
	require.NoError(t, err)
	n, _ := res.RowsAffected()
	assert.EqualValues(t, 3, n)

	_, err = s.Exec(context.Background(), "DELETE FROM `items`")
	assert.ErrorIs(t, err, boom)

	calls := s.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "insert", calls[0].Kind)
	assert.Equal(t, []any{"x"}, calls[0].Args)
}

func TestStrictMatching(t *testing.T) {
	s := NewTestSession(types.MySQL).StrictSQLMatching().
		ExpectQuery("SELECT 1").WillReturnRows(NewRowSet("1").AddRow(1))

	_, err := s.Query(context.Background(), "SELECT 1 ")
	require.NoError(t, err)
	_, err = s.Query(context.Background(), "SELECT 12")
	assert.Error(t, err)
}

func TestCharsetAndClose(t *testing.T) {
	s := NewTestSession(types.MySQL)
	require.NoError(t, s.SetCharset(context.Background(), "utf8"))
	assert.Equal(t, "utf8", s.Charset())

	ora := NewTestSession(types.Oracle)
	assert.ErrorIs(t, ora.SetCharset(context.Background(), "x"), types.ErrCharsetUnsupported)

	require.NoError(t, s.Close())
	assert.True(t, s.Closed())
	assert.ErrorIs(t, s.Health(context.Background()), types.ErrSessionClosed)
	_, err := s.Query(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, types.ErrSessionClosed)
}

func TestAddRowPanicsOnWidthMismatch(t *testing.T) {
	assert.Panics(t, func() { NewRowSet("a", "b").AddRow(1) })
}

func TestAssertNoStatements(t *testing.T) {
	AssertNoStatements(t, NewTestSession(types.MySQL))
}
