package tracking

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	dbMeterName = "go-tables/database"

	metricDBCalls      = "db.client.calls"
	metricDBDuration   = "db.client.operation.duration"
	metricRowsAffected = "db.rows.affected"

	unknownTable = "unknown"
)

var (
	meterOnce sync.Once

	dbCallsCounter        metric.Int64Counter
	dbDurationHistogram   metric.Float64Histogram
	dbRowsAffectedCounter metric.Int64Counter
)

func logMetricError(metricName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize metric %s: %v\n", metricName, err)
	}
}

// initDBMeter creates the instruments from the global meter provider. It runs once,
// so a provider installed later is only picked up through the otel global delegate.
func initDBMeter() {
	meter := otel.Meter(dbMeterName)

	var err error
	dbCallsCounter, err = meter.Int64Counter(
		metricDBCalls,
		metric.WithDescription("Total number of database client calls"),
	)
	logMetricError(metricDBCalls, err)

	dbDurationHistogram, err = meter.Float64Histogram(
		metricDBDuration,
		metric.WithDescription("Duration of database statements in milliseconds"),
		metric.WithUnit("ms"),
	)
	logMetricError(metricDBDuration, err)

	dbRowsAffectedCounter, err = meter.Int64Counter(
		metricRowsAffected,
		metric.WithDescription("Number of rows affected by database statements"),
	)
	logMetricError(metricRowsAffected, err)
}

func recordDBMetrics(ctx context.Context, tc *Context, query string, duration time.Duration, rowsAffected int64, err error) {
	meterOnce.Do(initDBMeter)

	attrs := []attribute.KeyValue{
		attribute.String("db.system", normalizeDBVendor(tc.Vendor)),
		attribute.String("db.operation.name", extractDBOperation(query)),
		attribute.String("db.sql.table", extractTableName(query)),
	}

	if dbCallsCounter != nil {
		callAttrs := append(append([]attribute.KeyValue{}, attrs...), attribute.Bool("error", err != nil))
		dbCallsCounter.Add(ctx, 1, metric.WithAttributes(callAttrs...))
	}
	if dbDurationHistogram != nil {
		dbDurationHistogram.Record(ctx, float64(duration.Nanoseconds())/1e6, metric.WithAttributes(attrs...))
	}
	if dbRowsAffectedCounter != nil && rowsAffected > 0 && err == nil {
		dbRowsAffectedCounter.Add(ctx, rowsAffected, metric.WithAttributes(attrs...))
	}
}

var tablePatterns = map[string]*regexp.Regexp{
	"SELECT": regexp.MustCompile("(?i)FROM\\s+(?:[`\"]?\\w+[`\"]?\\.)?[`\"]?(\\w+)[`\"]?"),
	"INSERT": regexp.MustCompile("(?i)INSERT\\s+INTO\\s+(?:[`\"]?\\w+[`\"]?\\.)?[`\"]?(\\w+)[`\"]?"),
	"UPDATE": regexp.MustCompile("(?i)UPDATE\\s+(?:[`\"]?\\w+[`\"]?\\.)?[`\"]?(\\w+)[`\"]?"),
	"DELETE": regexp.MustCompile("(?i)DELETE\\s+FROM\\s+(?:[`\"]?\\w+[`\"]?\\.)?[`\"]?(\\w+)[`\"]?"),
}

// extractTableName returns the lowercase first table named by a DML statement.
// It is a lightweight matcher, not a SQL parser.
func extractTableName(query string) string {
	parts := strings.Fields(query)
	if len(parts) == 0 {
		return unknownTable
	}
	pattern, ok := tablePatterns[strings.ToUpper(parts[0])]
	if !ok {
		return unknownTable
	}
	if m := pattern.FindStringSubmatch(query); len(m) > 1 {
		return strings.ToLower(m[1])
	}
	return unknownTable
}
