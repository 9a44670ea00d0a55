package tracking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.32.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/gaborage/go-tables/logger"
)

const (
	defaultOperation = "query"

	dbTracerName      = "go-tables/database"
	maxDBQueryAttrLen = 2000
)

// TrackStatement records one finished statement: request counters, an OpenTelemetry
// client span, metrics and a log line. Failures log at error level, statements
// slower than the threshold at warn level, everything else at debug level.
func TrackStatement(ctx context.Context, tc *Context, query string, args []any, start time.Time, rowsAffected int64, err error) {
	if tc == nil || tc.Logger == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	elapsed := time.Since(start)

	logger.IncrementDBCounter(ctx)
	logger.AddDBElapsed(ctx, elapsed.Nanoseconds())

	createDBSpan(ctx, tc, query, start, err)
	recordDBMetrics(ctx, tc, query, elapsed, rowsAffected, err)

	fields := map[string]any{
		"vendor":      tc.Vendor,
		"connection":  tc.Connection,
		"duration_ms": elapsed.Milliseconds(),
		"query":       TruncateString(query, tc.Settings.MaxQueryLength()),
	}
	if tc.Settings.LogQueryParameters() && len(args) > 0 {
		fields["args"] = SanitizeArgs(args, tc.Settings.MaxQueryLength())
	}
	if rowsAffected > 0 {
		fields["rows_affected"] = rowsAffected
	}
	log := tc.Logger.WithContext(ctx).WithFields(fields)

	switch {
	case err != nil:
		log.Error().Err(err).Msg("Database statement error")
	case tc.Settings.SlowQueryEnabled() && elapsed > tc.Settings.SlowQueryThreshold():
		log.Warn().Msgf("Slow database statement detected (%s)", elapsed)
	default:
		log.Debug().Msg("Database statement executed")
	}
}

// TruncateString truncates value to at most maxLen runes, ending in "..." when
// there is room for it. maxLen <= 0 disables truncation.
func TruncateString(value string, maxLen int) string {
	if maxLen <= 0 {
		return value
	}
	r := []rune(value)
	if len(r) <= maxLen {
		return value
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// SanitizeArgs returns a log-safe copy of args: strings are truncated and byte
// slices replaced by their length.
func SanitizeArgs(args []any, maxLen int) []any {
	if len(args) == 0 {
		return nil
	}
	sanitized := make([]any, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case string:
			sanitized[i] = TruncateString(v, maxLen)
		case []byte:
			sanitized[i] = fmt.Sprintf("<bytes len=%d>", len(v))
		default:
			sanitized[i] = TruncateString(fmt.Sprintf("%v", v), maxLen)
		}
	}
	return sanitized
}

func createDBSpan(ctx context.Context, tc *Context, query string, start time.Time, err error) {
	operation := extractDBOperation(query)

	_, span := otel.Tracer(dbTracerName).Start(ctx, "db."+operation,
		trace.WithTimestamp(start),
		trace.WithSpanKind(trace.SpanKindClient),
	)

	attrs := []attribute.KeyValue{
		attribute.String("db.system", normalizeDBVendor(tc.Vendor)),
		semconv.DBQueryText(TruncateString(query, maxDBQueryAttrLen)),
	}
	if operation != defaultOperation {
		attrs = append(attrs, semconv.DBOperationName(operation))
	}
	if table := extractTableName(query); table != unknownTable {
		attrs = append(attrs, semconv.DBCollectionName(table))
	}
	if tc.Connection != "" {
		attrs = append(attrs, attribute.String("db.connection.name", tc.Connection))
	}
	span.SetAttributes(attrs...)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// extractDBOperation returns the lowercase leading SQL verb, or "query".
func extractDBOperation(query string) string {
	parts := strings.Fields(query)
	if len(parts) == 0 {
		return defaultOperation
	}

	operation := strings.ToLower(parts[0])
	switch operation {
	case "select", "insert", "update", "delete", "create", "drop", "alter", "truncate", "set", "show", "pragma":
		return operation
	default:
		return defaultOperation
	}
}

func normalizeDBVendor(vendor string) string {
	switch v := strings.ToLower(vendor); v {
	case "postgres", "postgresql":
		return "postgresql"
	case "sqlite3", "sqlite":
		return "sqlite"
	case "mariadb", "mysql":
		return "mysql"
	default:
		return v
	}
}
