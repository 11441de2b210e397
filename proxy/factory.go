package proxy

import (
	"sync/atomic"

	"go.uber.org/zap"

	vtruntime "github.com/wippyai/vtable-runtime"
	"github.com/wippyai/vtable-runtime/abi"
	"github.com/wippyai/vtable-runtime/resource"
)

// Factory binds raw foreign pointers to typed proxies and keeps the ledger of
// references it handed out.
type Factory struct {
	dispatcher   *abi.Dispatcher
	table        *resource.Table
	logger       *zap.Logger
	leakTracking bool
	closed       atomic.Bool
}

// NewFactory creates a factory calling through p.
func NewFactory(p vtruntime.Platform, opts ...Option) *Factory {
	cfg := config{leakTracking: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = Logger()
	}

	return &Factory{
		dispatcher:   abi.NewDispatcher(p),
		table:        resource.NewTable(),
		logger:       cfg.logger,
		leakTracking: cfg.leakTracking,
	}
}

func (f *Factory) Dispatcher() *abi.Dispatcher {
	return f.dispatcher
}

func (f *Factory) Platform() vtruntime.Platform {
	return f.dispatcher.Platform()
}

func (f *Factory) Logger() *zap.Logger {
	return f.logger
}

// Table exposes the reference ledger. Other packages record bridges and staged
// arrays in it too.
func (f *Factory) Table() *resource.Table {
	return f.table
}

// Live returns the number of references currently held through this factory.
func (f *Factory) Live() int {
	return f.table.Count(resource.KindProxy)
}

// Leaked returns how many proxy references were released by the collector cleanup.
func (f *Factory) Leaked() uint64 {
	return f.table.Leaked(resource.KindProxy)
}

// Subscribe registers an observer for reference lifecycle events.
func (f *Factory) Subscribe(o resource.Observer) (cancel func()) {
	return f.table.Subscribe(o)
}

// Close refuses new bindings and releases every reference still outstanding.
func (f *Factory) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	if n := f.table.Len(); n > 0 {
		f.logger.Warn("closing factory with outstanding references", zap.Int("count", n))
	}
	return f.table.Close()
}
