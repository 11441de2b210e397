package proxy

import "go.uber.org/zap"

type config struct {
	logger       *zap.Logger
	leakTracking bool
}

// Option configures a Factory.
type Option func(*config)

// WithLogger overrides the package logger for one factory.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithLeakTracking controls whether bound objects get a collector cleanup that
// releases references their owner forgot. Enabled by default.
func WithLeakTracking(enabled bool) Option {
	return func(c *config) {
		c.leakTracking = enabled
	}
}
