package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const registryMeterName = "go-tables/registry"

// StatsSource reports per-connection statistics keyed by connection name. Each
// value is a map carrying at least "driver" and "tables".
type StatsSource interface {
	Stats() map[string]any
}

// ObserveRegistry registers observable gauges reporting the open connections
// per driver and the cached table handles per connection of src. The returned
// registration must be unregistered before src is closed.
func ObserveRegistry(mp metric.MeterProvider, src StatsSource) (metric.Registration, error) {
	meter := mp.Meter(registryMeterName)

	open, err := meter.Int64ObservableGauge("db.client.connections.open",
		metric.WithDescription("Open named connections per driver"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create connections gauge: %w", err)
	}
	tables, err := meter.Int64ObservableGauge("db.client.tables.cached",
		metric.WithDescription("Cached table handles per connection"),
		metric.WithUnit("{table}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tables gauge: %w", err)
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		perDriver := make(map[string]int64)
		for name, raw := range src.Stats() {
			stats, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			driver, _ := stats["driver"].(string)
			perDriver[driver]++

			count, _ := stats["tables"].(int)
			o.ObserveInt64(tables, int64(count), metric.WithAttributes(
				attribute.String("db.connection", name),
				attribute.String("db.system", driver),
			))
		}
		for driver, n := range perDriver {
			o.ObserveInt64(open, n, metric.WithAttributes(attribute.String("db.system", driver)))
		}
		return nil
	}, open, tables)
}
