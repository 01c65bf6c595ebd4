package observe

import (
	"errors"

	"github.com/jonwraymond/filmjoin/observe/exporters"
)

// Configuration errors.
var (
	ErrMissingServiceName     = errors.New("observe: service name is required")
	ErrInvalidSamplePct       = errors.New("observe: sample percentage must be between 0.0 and 1.0")
	ErrInvalidTracingExporter = errors.New("observe: invalid tracing exporter")
	ErrInvalidMetricsExporter = errors.New("observe: invalid metrics exporter")
	ErrInvalidLogLevel        = errors.New("observe: invalid log level")
	ErrInvalidLogRotation     = errors.New("observe: log rotation limits must be non-negative")
)

// ErrMissingOpName indicates Op.Name is empty.
var ErrMissingOpName = errors.New("observe: operation name is required")

// Sampling bounds for TracingConfig.SamplePct.
const (
	MinSamplePct = 0.0
	MaxSamplePct = 1.0
)

// Accepted configuration values. The empty string selects the default.
var (
	ValidTracingExporters = []string{exporters.OTLP, exporters.Jaeger, exporters.Stdout, exporters.None, ""}
	ValidMetricsExporters = []string{exporters.OTLP, exporters.Prometheus, exporters.Stdout, exporters.None, ""}
	ValidLogLevels        = []string{"debug", "info", "warn", "error", ""}
)

// RedactedFields lists field keys whose values are masked in log output.
var RedactedFields = []string{
	"password",
	"secret",
	"token",
	"api_key",
	"apiKey",
	"authorization",
	"credential",
}
