package observability

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/gaborage/go-tables/config"
)

// createExporters returns the span and metric exporters for cfg.Exporter. An
// empty exporter means stdout.
func createExporters(cfg config.ObservabilityConfig, w io.Writer) (sdktrace.SpanExporter, sdkmetric.Exporter, error) {
	switch strings.ToLower(cfg.Exporter) {
	case "", ExporterStdout:
		return createStdoutExporters(w)
	case ExporterOTLP:
		if cfg.Endpoint == "" {
			return nil, nil, ErrMissingEndpoint
		}
		switch strings.ToLower(cfg.Protocol) {
		case "", ProtocolHTTP:
			return createOTLPExporters(cfg)
		case ProtocolGRPC:
			return createOTLPGRPCExporters(cfg)
		default:
			return nil, nil, fmt.Errorf("protocol '%s': %w", cfg.Protocol, ErrInvalidProtocol)
		}
	default:
		return nil, nil, fmt.Errorf("exporter '%s': %w", cfg.Exporter, ErrInvalidExporter)
	}
}

func createStdoutExporters(w io.Writer) (sdktrace.SpanExporter, sdkmetric.Exporter, error) {
	traceOpts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
	metricOpts := []stdoutmetric.Option{stdoutmetric.WithPrettyPrint()}
	if w != nil {
		traceOpts = append(traceOpts, stdouttrace.WithWriter(w))
		metricOpts = append(metricOpts, stdoutmetric.WithWriter(w))
	}

	spanExporter, err := stdouttrace.New(traceOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create stdout trace exporter: %w", err)
	}
	metricExporter, err := stdoutmetric.New(metricOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create stdout metric exporter: %w", err)
	}
	return spanExporter, metricExporter, nil
}

// createOTLPExporters creates OTLP/HTTP exporters. The endpoint is host:port;
// a scheme, if present, is stripped and http selects an insecure connection.
func createOTLPExporters(cfg config.ObservabilityConfig) (sdktrace.SpanExporter, sdkmetric.Exporter, error) {
	endpoint, insecure := splitEndpoint(cfg.Endpoint)
	insecure = insecure || cfg.Insecure

	traceOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	metricOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(endpoint)}
	if insecure {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
		metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
	}

	ctx := context.Background()
	spanExporter, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	metricExporter, err := otlpmetrichttp.New(ctx, metricOpts...)
	if err != nil {
		_ = spanExporter.Shutdown(ctx)
		return nil, nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}
	return spanExporter, metricExporter, nil
}

// createOTLPGRPCExporters creates OTLP/gRPC exporters. A scheme on the endpoint
// is stripped the same way as for HTTP.
func createOTLPGRPCExporters(cfg config.ObservabilityConfig) (sdktrace.SpanExporter, sdkmetric.Exporter, error) {
	endpoint, plain := splitEndpoint(cfg.Endpoint)
	plain = plain || cfg.Insecure

	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(endpoint)}
	if plain {
		traceOpts = append(traceOpts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
		metricOpts = append(metricOpts, otlpmetricgrpc.WithTLSCredentials(insecure.NewCredentials()))
	}

	ctx := context.Background()
	spanExporter, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create OTLP gRPC trace exporter: %w", err)
	}
	metricExporter, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		_ = spanExporter.Shutdown(ctx)
		return nil, nil, fmt.Errorf("failed to create OTLP gRPC metric exporter: %w", err)
	}
	return spanExporter, metricExporter, nil
}

func splitEndpoint(endpoint string) (hostPort string, insecure bool) {
	switch {
	case strings.HasPrefix(endpoint, "http://"):
		return strings.TrimPrefix(endpoint, "http://"), true
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimPrefix(endpoint, "https://"), false
	default:
		return endpoint, false
	}
}
