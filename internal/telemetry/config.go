// Package telemetry wires OpenTelemetry metrics and tracing for the sync
// engine. Exporters speak OTLP over HTTP; disabled signals get no-op providers.
package telemetry

import (
	"errors"
	"fmt"
)

const (
	// DefaultServiceName identifies the engine in telemetry backends
	DefaultServiceName = "inventory-sync-api"

	// DefaultEndpoint is the OTLP HTTP collector address
	DefaultEndpoint = "localhost:4318"

	// DefaultSampling is the trace sampling ratio used when none is configured
	DefaultSampling = 0.05
)

const (
	// ExporterOTLP pushes metrics to the collector
	ExporterOTLP = "otlp"

	// ExporterPrometheus serves metrics on /metrics for scraping
	ExporterPrometheus = "prometheus"

	// ExporterBoth enables push and pull at once
	ExporterBoth = "both"
)

// Config is the telemetry section of the service configuration
type Config struct {
	// Enabled gates every signal; when false nothing is exported
	Enabled bool `yaml:"enabled"`

	ServiceName    string `yaml:"serviceName,omitempty"`
	ServiceVersion string `yaml:"serviceVersion,omitempty"`

	// Endpoint is host:port of the collector; /v1/traces and /v1/metrics are appended
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure uses plain HTTP. Development only.
	Insecure bool `yaml:"insecure,omitempty"`

	Tracing *TracingConfig `yaml:"tracing,omitempty"`
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
}

// TracingConfig toggles trace export
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Sampling is a ratio in [0, 1]; 0 selects DefaultSampling
	Sampling float64 `yaml:"sampling,omitempty"`
}

// MetricsConfig toggles metric export
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	// Exporter is otlp, prometheus or both. Defaults to otlp.
	Exporter string `yaml:"exporter,omitempty"`
}

// GetExporter returns the configured exporter or ExporterOTLP
func (c *MetricsConfig) GetExporter() string {
	if c.Exporter == "" {
		return ExporterOTLP
	}
	return c.Exporter
}

func (c *MetricsConfig) pushes() bool {
	e := c.GetExporter()
	return e == ExporterOTLP || e == ExporterBoth
}

func (c *MetricsConfig) serves() bool {
	e := c.GetExporter()
	return e == ExporterPrometheus || e == ExporterBoth
}

// GetServiceName returns the configured service name or DefaultServiceName
func (c *Config) GetServiceName() string {
	if c.ServiceName == "" {
		return DefaultServiceName
	}
	return c.ServiceName
}

// GetServiceVersion returns the configured version or "unknown"
func (c *Config) GetServiceVersion() string {
	if c.ServiceVersion == "" {
		return "unknown"
	}
	return c.ServiceVersion
}

// GetEndpoint returns the collector endpoint or DefaultEndpoint
func (c *Config) GetEndpoint() string {
	if c.Endpoint == "" {
		return DefaultEndpoint
	}
	return c.Endpoint
}

// GetSampling returns the sampling ratio. An unset (zero) ratio cannot be
// told apart from an explicit zero in YAML, so it selects DefaultSampling.
func (c *TracingConfig) GetSampling() float64 {
	if c.Sampling == 0 {
		return DefaultSampling
	}
	return c.Sampling
}

// Validate checks the enabled parts of the configuration
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	var errs []error
	if c.Tracing != nil && c.Tracing.Enabled {
		if c.Tracing.Sampling < 0 || c.Tracing.Sampling > 1 {
			errs = append(errs, fmt.Errorf("tracing: sampling must be between 0.0 and 1.0, got %f", c.Tracing.Sampling))
		}
	}
	if c.Metrics != nil && c.Metrics.Enabled {
		switch c.Metrics.GetExporter() {
		case ExporterOTLP, ExporterPrometheus, ExporterBoth:
		default:
			errs = append(errs, fmt.Errorf("metrics: unknown exporter %q", c.Metrics.Exporter))
		}
	}
	return errors.Join(errs...)
}
