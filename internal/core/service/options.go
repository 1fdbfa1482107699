package service

import (
	"log/slog"

	"github.com/yndnr/tuamail-go/internal/telemetry/metric"
)

type options struct {
	logger  *slog.Logger
	metrics *metric.Registry
}

// Option configures the services.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics registry. Nil disables metrics.
func WithMetrics(m *metric.Registry) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}
