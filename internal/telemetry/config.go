package telemetry

import "github.com/felixgeelhaar/botctl/internal/version"

// Config holds configuration for the tracer
type Config struct {
	// ServiceName is reported as service.name
	ServiceName string

	// ServiceVersion is reported as service.version
	ServiceVersion string

	// Enabled determines whether spans are recorded at all.
	// When false, a noop tracer is used
	Enabled bool

	// Endpoint is the OTLP/HTTP collector (host:port or URL).
	// If empty, spans are recorded but not exported
	Endpoint string

	// SampleRate is the fraction of traces to sample (0.0 to 1.0)
	SampleRate float64
}

// DefaultConfig returns a disabled tracer configuration.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "botctl",
		ServiceVersion: version.GetInfo().Version,
		SampleRate:     1.0,
	}
}

// ExportConfig enables tracing with export to endpoint. An empty endpoint
// yields the disabled configuration.
func ExportConfig(endpoint string) Config {
	cfg := DefaultConfig()
	if endpoint != "" {
		cfg.Enabled = true
		cfg.Endpoint = endpoint
	}
	return cfg
}
