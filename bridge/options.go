package bridge

import "go.uber.org/zap"

type config struct {
	policy  Policy
	logger  *zap.Logger
	maxText int
}

// Option configures a Host.
type Option func(*config)

// WithPolicy sets what unhandled calls and notifications answer. Resume by default.
func WithPolicy(p Policy) Option {
	return func(c *config) {
		c.policy = p
	}
}

// WithLogger overrides the package logger for one host.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithMaxText bounds the terminator scan of inbound text arguments, in characters.
func WithMaxText(n int) Option {
	return func(c *config) {
		c.maxText = n
	}
}
