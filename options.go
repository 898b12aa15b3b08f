package redboxdb

import (
	"github.com/hupe1980/redboxdb/internal/simd"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	kernel           simd.ISA
	kernelForced     bool
}

// Option configures Open behavior.
type Option func(*options)

func defaultOptions() options {
	return options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
	}
}

// WithLogger sets the logger used for operation and lifecycle logging.
// If nil is passed, logging stays disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetricsCollector sets the collector notified after each operation.
// If nil is passed, metrics stay disabled.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc != nil {
			o.metricsCollector = mc
		}
	}
}

// WithGenericKernel forces the portable Go distance kernel, bypassing
// the CPU capability probe. Intended for tests and for comparing the
// SIMD and scalar paths; queries answer identically up to floating-point
// summation order.
func WithGenericKernel() Option {
	return func(o *options) {
		o.kernel = simd.Generic
		o.kernelForced = true
	}
}
