// Package otel exports admitguard command spans over OTLP. Tracing stays off
// unless the application config or --otel enables it.
package otel

import (
	"errors"
	"fmt"
)

// OTLP exporter protocols
const (
	ProtocolHTTP = "otlphttp"
	ProtocolGRPC = "otlpgrpc"
)

// Default collector addresses per protocol
const (
	DefaultHTTPEndpoint = "localhost:4318"
	DefaultGRPCEndpoint = "localhost:4317"
)

// Config is the tracing section of the application config after file,
// environment and flag overrides have been applied.
type Config struct {
	Enabled     bool
	Endpoint    string // host:port or a full URL; empty selects the protocol default
	Protocol    string
	Insecure    bool
	ServiceName string
	SampleRatio float64

	// resource attributes describing this installation
	RulesVersion    string
	DisplayTimezone string
}

// DefaultConfig leaves tracing off
func DefaultConfig() Config {
	return Config{
		Protocol:    ProtocolHTTP,
		ServiceName: TracerName,
		SampleRatio: 1.0,
	}
}

// Validate reports every invalid setting. A disabled config is always valid.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	var errs []error
	if c.Protocol != ProtocolHTTP && c.Protocol != ProtocolGRPC {
		errs = append(errs, fmt.Errorf("otel: protocol %q must be %s or %s", c.Protocol, ProtocolHTTP, ProtocolGRPC))
	}
	if c.ServiceName == "" {
		errs = append(errs, errors.New("otel: service name is required"))
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("otel: sample ratio %v must be between 0 and 1", c.SampleRatio))
	}
	return errors.Join(errs...)
}

// ResolvedEndpoint is Endpoint or the protocol's default collector address
func (c Config) ResolvedEndpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	if c.Protocol == ProtocolGRPC {
		return DefaultGRPCEndpoint
	}
	return DefaultHTTPEndpoint
}
