package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/gaborage/go-tables/config"
	dbtest "github.com/gaborage/go-tables/database/testing"
	"github.com/gaborage/go-tables/database/types"
	"github.com/gaborage/go-tables/logger"
)

const selectUsers = "SELECT * FROM `users` WHERE `id` = ?"

func setupTestTracerProvider(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	original := otel.GetTracerProvider()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(original)
	})
	return exporter
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestNewSettingsDefaults(t *testing.T) {
	s := NewSettings(nil)
	assert.Equal(t, DefaultSlowQueryThreshold, s.SlowQueryThreshold())
	assert.True(t, s.SlowQueryEnabled())
	assert.Equal(t, DefaultMaxQueryLength, s.MaxQueryLength())
	assert.False(t, s.LogQueryParameters())

	cfg := &config.QueryConfig{}
	cfg.Slow.Threshold = time.Second
	cfg.Log.MaxLength = 10
	cfg.Log.Parameters = true
	s = NewSettings(cfg)
	assert.Equal(t, time.Second, s.SlowQueryThreshold())
	assert.False(t, s.SlowQueryEnabled())
	assert.Equal(t, 10, s.MaxQueryLength())
	assert.True(t, s.LogQueryParameters())
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name  string
		value string
		max   int
		want  string
	}{
		{name: "disabled", value: "abcdef", max: 0, want: "abcdef"},
		{name: "fits", value: "abc", max: 3, want: "abc"},
		{name: "ellipsis", value: "abcdefgh", max: 6, want: "abc..."},
		{name: "tiny", value: "abcdef", max: 2, want: "ab"},
		{name: "runes", value: "ééééé", max: 4, want: "é..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateString(tt.value, tt.max))
		})
	}
}

func TestSanitizeArgs(t *testing.T) {
	assert.Nil(t, SanitizeArgs(nil, 10))
	got := SanitizeArgs([]any{"a long string", []byte("xyz"), 42}, 6)
	assert.Equal(t, []any{"a l...", "<bytes len=3>", "42"}, got)
}

func TestExtractHelpers(t *testing.T) {
	assert.Equal(t, "select", extractDBOperation(selectUsers))
	assert.Equal(t, "pragma", extractDBOperation("PRAGMA encoding = 'UTF-8'"))
	assert.Equal(t, "query", extractDBOperation("WITH x AS (SELECT 1) SELECT * FROM x"))
	assert.Equal(t, "query", extractDBOperation("   "))

	assert.Equal(t, "users", extractTableName(selectUsers))
	assert.Equal(t, "items", extractTableName(`INSERT INTO "app"."items" ("a") VALUES ($1)`))
	assert.Equal(t, "orders", extractTableName("UPDATE `orders` SET `a` = ?"))
	assert.Equal(t, "logs", extractTableName("DELETE FROM logs WHERE id = 1"))
	assert.Equal(t, unknownTable, extractTableName("SET NAMES utf8"))

	assert.Equal(t, "postgresql", normalizeDBVendor("postgres"))
	assert.Equal(t, "sqlite", normalizeDBVendor("SQLite3"))
	assert.Equal(t, "oracle", normalizeDBVendor("oracle"))
}

func TestTrackStatementCreatesSpan(t *testing.T) {
	exporter := setupTestTracerProvider(t)
	tc := &Context{Logger: logger.Nop(), Vendor: types.MySQL, Connection: "main", Settings: NewSettings(nil)}

	TrackStatement(context.Background(), tc, selectUsers, []any{1}, time.Now(), 1, nil)
	TrackStatement(context.Background(), tc, "DELETE FROM `users`", nil, time.Now(), 0, errors.New("denied"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "db.select", spans[0].Name)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "mysql", attrs["db.system"])
	assert.Equal(t, "users", attrs["db.collection.name"])
	assert.Equal(t, "main", attrs["db.connection.name"])
	assert.Equal(t, selectUsers, attrs["db.query.text"])

	assert.Equal(t, "db.delete", spans[1].Name)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.Equal(t, "denied", spans[1].Status.Description)
}

func TestTrackStatementLogLevels(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "debug", nil)
	cfg := &config.QueryConfig{}
	cfg.Slow.Enabled = true
	cfg.Slow.Threshold = 10 * time.Millisecond
	cfg.Log.Parameters = true
	tc := &Context{Logger: log, Vendor: types.SQLite, Connection: "local", Settings: NewSettings(cfg)}

	ctx := logger.WithDBCounter(context.Background())
	TrackStatement(ctx, tc, selectUsers, []any{7}, time.Now(), 3, nil)
	TrackStatement(ctx, tc, selectUsers, nil, time.Now().Add(-time.Second), 0, nil)
	TrackStatement(ctx, tc, selectUsers, nil, time.Now(), 0, errors.New("no such table"))

	lines := logLines(t, &buf)
	require.Len(t, lines, 3)

	assert.Equal(t, "debug", lines[0]["level"])
	assert.Equal(t, "local", lines[0]["connection"])
	assert.Equal(t, []any{"7"}, lines[0]["args"])
	assert.EqualValues(t, 3, lines[0]["rows_affected"])

	assert.Equal(t, "warn", lines[1]["level"])
	assert.Contains(t, lines[1]["message"], "Slow database statement")

	assert.Equal(t, "error", lines[2]["level"])
	assert.Equal(t, "no such table", lines[2]["error"])

	assert.EqualValues(t, 3, logger.GetDBCounter(ctx))
	assert.Positive(t, logger.GetDBElapsed(ctx))
}

func TestTrackStatementNilContextIsIgnored(t *testing.T) {
	assert.NotPanics(t, func() {
		TrackStatement(context.Background(), nil, selectUsers, nil, time.Now(), 0, nil)
	})
}

func TestSessionTracksEveryStatement(t *testing.T) {
	exporter := setupTestTracerProvider(t)
	inner := dbtest.NewTestSession(types.MySQL).
		ExpectQuery("FROM `users`").WillReturnRows(dbtest.NewRowSet("id").AddRow(1).AddRow(2)).
		ExpectExec("INSERT INTO `users`").WillReturnInsertID(5).
		ExpectExec("UPDATE `users`").WillReturnRowsAffected(2)

	s := NewSession(inner, logger.Nop(), "main", nil)
	ctx := context.Background()

	rs, err := s.Query(ctx, selectUsers, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, rs.Len())

	_, err = s.Insert(ctx, "INSERT INTO `users` (`name`) VALUES (?)", "x")
	require.NoError(t, err)
	id, ok := s.InsertID()
	assert.True(t, ok)
	assert.EqualValues(t, 5, id)

	_, err = s.Exec(ctx, "UPDATE `users` SET `name` = ?", "y")
	require.NoError(t, err)
	assert.EqualValues(t, 2, s.Affected())

	require.NoError(t, s.SetCharset(ctx, "utf8mb4"))
	assert.Equal(t, "utf8mb4", inner.Charset())

	names := make([]string, 0, 4)
	for _, span := range exporter.GetSpans() {
		names = append(names, span.Name)
	}
	assert.Equal(t, []string{"db.select", "db.insert", "db.update", "db.set"}, names)
}

func TestSessionTracksFailedQuery(t *testing.T) {
	exporter := setupTestTracerProvider(t)
	inner := dbtest.NewTestSession(types.PostgreSQL)
	s := NewSession(inner, logger.Nop(), "pg", nil)

	rs, err := s.Query(context.Background(), "SELECT 1")
	assert.Error(t, err)
	assert.Nil(t, rs)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}
