package compiler

import (
	"log/slog"
	"time"
)

// Option configures a compile
type Option func(*config)

// TelemetryLevel controls telemetry collection.
type TelemetryLevel int

const (
	TelemetryOff    TelemetryLevel = iota // no telemetry (default)
	TelemetryBasic                        // counts only
	TelemetryTiming                       // counts and time per pass
)

type config struct {
	logger    *slog.Logger
	telemetry TelemetryLevel
}

func newConfig(opts []Option) *config {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithLogger traces the compile at debug level
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithTelemetry sets the telemetry level
func WithTelemetry(level TelemetryLevel) Option {
	return func(c *config) {
		c.telemetry = level
	}
}

// Telemetry holds compile metrics.
type Telemetry struct {
	Lines       int
	Standard    int
	Auxiliary   int
	Diagnostics int

	// Zero unless TelemetryTiming is set
	ParseTime     time.Duration
	VerifyTime    time.Duration
	LinearizeTime time.Duration
	TotalTime     time.Duration
}
