package native

import "go.uber.org/zap"

type options struct {
	logger *zap.Logger
}

// Option configures the native platform.
type Option func(*options)

// WithLogger sets the logger used for callback and allocation diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}
