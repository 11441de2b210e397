package bridge

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	vtruntime "github.com/wippyai/vtable-runtime"
	"github.com/wippyai/vtable-runtime/abi"
	"github.com/wippyai/vtable-runtime/errors"
	"github.com/wippyai/vtable-runtime/proxy"
	"github.com/wippyai/vtable-runtime/resource"
)

// recordWords is the size of one interface record: [vtable*, bridge id].
const recordWords = 2

// trampolineKey identifies a shared trampoline. Foundation slots use the zero id
// since they behave the same for every contract.
type trampolineKey struct {
	iid   abi.GUID
	slot  int
	arity int
}

// route maps one published interface pointer back to its bridge.
type route struct {
	bridge *Bridge
	iface  int
}

// Host publishes Go implementations as foreign-callable objects.
//
// Trampolines are created once per (contract, slot) and shared by every bridge of
// that contract; they stay valid for the life of the process. Incoming calls find
// their bridge through the interface pointer they were made on.
type Host struct {
	factory *proxy.Factory
	p       vtruntime.Platform
	policy  Policy
	logger  *zap.Logger
	maxText int

	trampolines sync.Map // trampolineKey -> uintptr
	trampMu     sync.Mutex
	routes      sync.Map // uintptr -> *route
	nextID      atomic.Uint64
}

// NewHost creates a host publishing through the factory's platform. Proxies for
// incoming object arguments are built with f.
func NewHost(f *proxy.Factory, opts ...Option) *Host {
	cfg := config{policy: Resume, maxText: abi.DefaultMaxText}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = Logger()
	}
	if cfg.policy == nil {
		cfg.policy = Resume
	}

	return &Host{
		factory: f,
		p:       f.Platform(),
		policy:  cfg.policy,
		logger:  cfg.logger,
		maxText: cfg.maxText,
	}
}

func (h *Host) Factory() *proxy.Factory {
	return h.factory
}

func (h *Host) Policy() Policy {
	return h.policy
}

// Live returns the number of bridges not yet disposed.
func (h *Host) Live() int {
	return h.factory.Table().Count(resource.KindBridge)
}

// New builds one object implementing ifaces. The first interface is primary:
// its pointer is what Ptr returns and what the base id resolves to.
//
// Every vtable is complete and routed before New returns, so the pointers can be
// handed to foreign code immediately. The returned bridge holds one reference,
// owned by the caller.
func (h *Host) New(ifaces ...Interface) (*Bridge, error) {
	if len(ifaces) == 0 {
		return nil, errors.InvalidInput(errors.PhaseBridge, "bridge needs at least one interface")
	}
	for _, iface := range ifaces {
		if err := iface.validate(); err != nil {
			return nil, err
		}
	}

	size := h.p.PtrSize()
	words := uintptr(len(ifaces) * recordWords)
	for _, iface := range ifaces {
		words += uintptr(abi.FirstContractSlot + len(iface.Methods))
	}
	block, err := h.p.Alloc(words * size)
	if err != nil {
		return nil, errors.AllocationFailed(errors.PhaseBridge, words*size, err)
	}

	b := &Bridge{
		host:    h,
		id:      h.nextID.Add(1),
		block:   block,
		ifaces:  ifaces,
		records: make([]uintptr, len(ifaces)),
	}
	b.refs.Store(1)

	vtbl := block + uintptr(len(ifaces)*recordWords)*size
	for i, iface := range ifaces {
		slots, err := h.slots(iface)
		if err != nil {
			h.p.Free(block)
			return nil, err
		}
		for s, fn := range slots {
			h.p.WritePtr(vtbl+uintptr(s)*size, fn)
		}

		rec := block + uintptr(i*recordWords)*size
		h.p.WritePtr(rec, vtbl)
		h.p.WritePtr(rec+size, uintptr(b.id))
		b.records[i] = rec
		vtbl += uintptr(len(slots)) * size
	}

	for i, rec := range b.records {
		h.routes.Store(rec, &route{bridge: b, iface: i})
	}
	b.handle = h.factory.Table().Insert(resource.KindBridge, b.records[0], b)
	b.state.Store(int32(Active))

	h.logger.Debug("bridge published",
		zap.Uint64("id", b.id),
		zap.String("interface", ifaces[0].Name),
		zap.Uintptr("ptr", b.records[0]))
	return b, nil
}

// slots returns the trampoline for every slot of iface, creating missing ones.
func (h *Host) slots(iface Interface) ([]uintptr, error) {
	out := make([]uintptr, 0, abi.FirstContractSlot+len(iface.Methods))
	foundation := []trampolineKey{
		{slot: abi.SlotQueryInterface, arity: 2},
		{slot: abi.SlotAddRef},
		{slot: abi.SlotRelease},
	}
	for _, key := range foundation {
		fn, err := h.trampoline(key)
		if err != nil {
			return nil, err
		}
		out = append(out, fn)
	}
	for i, m := range iface.Methods {
		fn, err := h.trampoline(trampolineKey{iid: iface.IID, slot: abi.FirstContractSlot + i, arity: m.Arity})
		if err != nil {
			return nil, err
		}
		out = append(out, fn)
	}
	return out, nil
}

func (h *Host) trampoline(key trampolineKey) (uintptr, error) {
	if fn, ok := h.trampolines.Load(key); ok {
		return fn.(uintptr), nil
	}

	h.trampMu.Lock()
	defer h.trampMu.Unlock()
	if fn, ok := h.trampolines.Load(key); ok {
		return fn.(uintptr), nil
	}

	slot := key.slot
	fn, err := h.p.NewCallback(key.arity+1, func(args []uintptr) uintptr {
		return h.dispatch(slot, args)
	})
	if err != nil {
		return 0, errors.New(errors.PhaseBridge, errors.KindCallback).
			Detail("trampoline for slot %d: %v", slot, err).
			Cause(err).
			Build()
	}
	h.trampolines.Store(key, fn)
	return fn, nil
}

// dispatch is the body of every trampoline. It never panics back into foreign code.
func (h *Host) dispatch(slot int, args []uintptr) (result uintptr) {
	v, ok := h.routes.Load(args[0])
	if !ok {
		if slot == abi.SlotAddRef || slot == abi.SlotRelease {
			return 0
		}
		return abi.ENotConnected.Word()
	}
	r := v.(*route)
	b := r.bridge
	if !b.enter() {
		if slot == abi.SlotAddRef || slot == abi.SlotRelease {
			return 0
		}
		return abi.ENotConnected.Word()
	}
	defer b.exit()

	switch slot {
	case abi.SlotQueryInterface:
		return b.queryInterface(args[1], args[2]).Word()
	case abi.SlotAddRef:
		return uintptr(b.AddRef())
	case abi.SlotRelease:
		return uintptr(b.Release())
	}

	iface := &b.ifaces[r.iface]
	m := &iface.Methods[slot-abi.FirstContractSlot]
	c := &Call{
		Bridge:    b,
		Interface: iface,
		Method:    m,
		Args:      args[1:],
		host:      h,
	}
	defer c.finish()
	defer func() {
		if p := recover(); p != nil {
			h.logger.Error("bridge handler panicked",
				zap.String("interface", iface.Name),
				zap.String("method", m.Name),
				zap.Any("panic", p))
			result = abi.EUnexpected.Word()
		}
	}()

	if m.Fn == nil {
		return h.policy.Unhandled(c).Word()
	}
	return m.Fn(c).Word()
}

// Close disposes every bridge still published by this host.
func (h *Host) Close() error {
	var err error
	seen := make(map[*Bridge]bool)
	h.routes.Range(func(_, v any) bool {
		b := v.(*route).bridge
		if !seen[b] {
			seen[b] = true
			err = multierr.Append(err, b.Close())
		}
		return true
	})
	return err
}

func (i Interface) validate() error {
	for n, m := range i.Methods {
		if m.Arity < 0 {
			return errors.New(errors.PhaseBridge, errors.KindInvalidInput).
				Contract(i.Name).
				Detail("method %d (%s) has negative arity", n, m.Name).
				Build()
		}
	}
	if i.IID.IsZero() {
		return errors.New(errors.PhaseBridge, errors.KindInvalidInput).
			Contract(i.Name).
			Detail("interface has no capability id").
			Build()
	}
	return nil
}

func (h *Host) String() string {
	return fmt.Sprintf("bridge.Host(%d live)", h.Live())
}
