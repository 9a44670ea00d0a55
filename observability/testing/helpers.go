// Package testing provides in-memory OpenTelemetry providers and assertions for
// tests of code that records statement spans and database metrics.
//
//	tp := NewTestTraceProvider()
//	defer tp.Shutdown(context.Background())
//	otel.SetTracerProvider(tp)
//
//	// run statements...
//
//	span := FindSpan(t, tp.Exporter, "db.select")
//	AssertSpanAttribute(t, span, "db.system", "mysql")
package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestTraceProvider wraps the SDK TracerProvider and in-memory exporter for testing.
type TestTraceProvider struct {
	*sdktrace.TracerProvider
	Exporter *tracetest.InMemoryExporter
}

// NewTestTraceProvider creates a TracerProvider exporting synchronously to memory.
func NewTestTraceProvider() *TestTraceProvider {
	exporter := tracetest.NewInMemoryExporter()
	return &TestTraceProvider{
		TracerProvider: sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)),
		Exporter:       exporter,
	}
}

// TestMeterProvider wraps the SDK MeterProvider and a manual reader for testing.
type TestMeterProvider struct {
	*sdkmetric.MeterProvider
	Reader *sdkmetric.ManualReader
}

// NewTestMeterProvider creates a MeterProvider whose metrics are read on demand.
func NewTestMeterProvider() *TestMeterProvider {
	reader := sdkmetric.NewManualReader()
	return &TestMeterProvider{
		MeterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		Reader:        reader,
	}
}

// Collect reads all metrics from the provider.
func (tmp *TestMeterProvider) Collect(t *testing.T) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, tmp.Reader.Collect(context.Background(), &rm), "failed to collect metrics")
	return rm
}

// FindSpan returns the first exported span named name and fails the test when there is none.
func FindSpan(t *testing.T, exporter *tracetest.InMemoryExporter, name string) *tracetest.SpanStub {
	t.Helper()
	for _, s := range exporter.GetSpans() {
		if s.Name == name {
			return &s
		}
	}
	require.Failf(t, "span not found", "no span named %q", name)
	return nil
}

// AssertSpanAttribute asserts that a span carries key with the expected value.
func AssertSpanAttribute(t *testing.T, span *tracetest.SpanStub, key string, expected any) {
	t.Helper()
	for _, attr := range span.Attributes {
		if string(attr.Key) == key {
			assertAttrValue(t, key, attr.Value, expected)
			return
		}
	}
	t.Errorf("attribute %s not found in span", key)
}

func assertAttrValue(t *testing.T, key string, v attribute.Value, expected any) {
	t.Helper()
	switch e := expected.(type) {
	case string:
		assert.Equal(t, e, v.AsString(), "attribute %s value mismatch", key)
	case int:
		assert.Equal(t, int64(e), v.AsInt64(), "attribute %s value mismatch", key)
	case int64:
		assert.Equal(t, e, v.AsInt64(), "attribute %s value mismatch", key)
	case bool:
		assert.Equal(t, e, v.AsBool(), "attribute %s value mismatch", key)
	default:
		t.Fatalf("unsupported attribute value type: %T", expected)
	}
}

// FindMetric finds a metric by name. Returns nil if not found.
func FindMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// GaugeInt64 returns the data points of an int64 gauge keyed by the value of attribute key.
func GaugeInt64(t *testing.T, rm metricdata.ResourceMetrics, name, key string) map[string]int64 {
	t.Helper()
	m := FindMetric(rm, name)
	require.NotNil(t, m, "metric %s not found", name)
	gauge, ok := m.Data.(metricdata.Gauge[int64])
	require.True(t, ok, "metric %s is %T, not an int64 gauge", name, m.Data)

	points := make(map[string]int64, len(gauge.DataPoints))
	for _, dp := range gauge.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key(key))
		points[v.AsString()] = dp.Value
	}
	return points
}

// SumInt64 returns the total of an int64 counter over all its data points.
func SumInt64(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	m := FindMetric(rm, name)
	require.NotNil(t, m, "metric %s not found", name)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is %T, not an int64 sum", name, m.Data)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}
