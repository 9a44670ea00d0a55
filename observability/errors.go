package observability

import "errors"

// ErrMissingServiceName is returned when observability is enabled without a service name.
var ErrMissingServiceName = errors.New("observability: service name is required when observability is enabled")

// ErrMissingEndpoint is returned when the otlp exporter has no endpoint.
var ErrMissingEndpoint = errors.New("observability: endpoint is required for the otlp exporter")

// ErrInvalidExporter is returned when the exporter is not "stdout" or "otlp".
var ErrInvalidExporter = errors.New("observability: exporter must be either 'stdout' or 'otlp'")

// ErrInvalidProtocol is returned when the otlp protocol is not "http" or "grpc".
var ErrInvalidProtocol = errors.New("observability: protocol must be either 'http' or 'grpc'")
