package bridge

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/vtable-runtime/abi"
	"github.com/wippyai/vtable-runtime/resource"
)

// State is the lifecycle position of a Bridge.
type State int32

const (
	Constructed State = iota
	Active
	Disposed
)

func (s State) String() string {
	switch s {
	case Constructed:
		return "constructed"
	case Active:
		return "active"
	case Disposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Method is one contract slot implemented in Go. Arity counts the arguments after
// the object pointer. A nil Fn answers with the host policy.
type Method struct {
	Fn    func(c *Call) abi.Status
	Name  string
	Arity int
}

// Interface is one contract a bridge implements, with methods in slot order
// starting at slot 3.
type Interface struct {
	Name    string
	Methods []Method
	Aliases []abi.GUID
	IID     abi.GUID
}

// Bridge is one foreign-callable object.
//
// Its logical reference count starts at 1 for the creator. Foreign code adds and
// drops references through the vtable; the final Release disposes the bridge.
// Close disposes regardless of outstanding references. Either way the native
// block is freed only after every trampoline currently running on it returns.
type Bridge struct {
	host     *Host
	ifaces   []Interface
	records  []uintptr
	block    uintptr
	id       uint64
	handle   resource.Handle
	refs     atomic.Int32
	inflight atomic.Int64
	state    atomic.Int32
	freed    atomic.Bool
}

// State returns the current lifecycle state.
func (b *Bridge) State() State {
	return State(b.state.Load())
}

// Ptr returns the primary interface pointer, or 0 once disposed.
func (b *Bridge) Ptr() uintptr {
	if b.State() != Active {
		return 0
	}
	return b.records[0]
}

// PtrFor returns the interface pointer answering iid.
func (b *Bridge) PtrFor(iid abi.GUID) (uintptr, bool) {
	if b.State() != Active {
		return 0, false
	}
	i, ok := b.lookup(iid)
	if !ok {
		return 0, false
	}
	return b.records[i], true
}

// RefCount returns the logical reference count.
func (b *Bridge) RefCount() uint32 {
	return uint32(b.refs.Load())
}

// AddRef takes a reference and returns the new count.
func (b *Bridge) AddRef() uint32 {
	if b.State() == Disposed {
		return 0
	}
	return uint32(b.refs.Add(1))
}

// Release drops a reference and returns the new count. The last one disposes.
func (b *Bridge) Release() uint32 {
	if b.State() == Disposed {
		return 0
	}
	n := b.refs.Add(-1)
	if n == 0 {
		b.dispose()
	}
	if n < 0 {
		b.host.logger.Warn("bridge released more often than referenced", zap.Uint64("id", b.id))
		return 0
	}
	return uint32(n)
}

// Close disposes the bridge even if foreign code still holds references; later
// calls on those references answer not-connected. Only the first call has an effect.
func (b *Bridge) Close() error {
	if n := b.refs.Load(); n > 1 && b.State() == Active {
		b.host.logger.Warn("disposing bridge with outstanding foreign references",
			zap.Uint64("id", b.id),
			zap.String("interface", b.ifaces[0].Name),
			zap.Int32("refs", n))
	}
	b.dispose()
	return nil
}

func (b *Bridge) dispose() {
	if !b.state.CompareAndSwap(int32(Active), int32(Disposed)) {
		return
	}
	for _, rec := range b.records {
		b.host.routes.Delete(rec)
	}
	b.host.factory.Table().Remove(b.handle)
	if b.inflight.Load() == 0 {
		b.free()
	}
}

// enter registers a running trampoline. It fails once the bridge is disposed.
func (b *Bridge) enter() bool {
	b.inflight.Add(1)
	if b.State() != Active {
		b.exit()
		return false
	}
	return true
}

func (b *Bridge) exit() {
	if b.inflight.Add(-1) == 0 && b.State() == Disposed {
		b.free()
	}
}

func (b *Bridge) free() {
	if !b.freed.CompareAndSwap(false, true) {
		return
	}
	b.host.p.Free(b.block)
	b.host.logger.Debug("bridge freed", zap.Uint64("id", b.id))
}

// lookup finds the interface answering iid. The base id maps to the primary.
func (b *Bridge) lookup(iid abi.GUID) (int, bool) {
	if iid == abi.IIDUnknown {
		return 0, true
	}
	for i, iface := range b.ifaces {
		if iface.IID == iid {
			return i, true
		}
		for _, alias := range iface.Aliases {
			if alias == iid {
				return i, true
			}
		}
	}
	return 0, false
}

func (b *Bridge) queryInterface(riid, ppv uintptr) abi.Status {
	if ppv == 0 {
		return abi.EPointer
	}
	p := b.host.p
	if riid == 0 {
		p.WritePtr(ppv, 0)
		return abi.EInvalidArg
	}
	iid, err := abi.GUIDFromBytes(p.Read(riid, 16))
	if err != nil {
		p.WritePtr(ppv, 0)
		return abi.EInvalidArg
	}
	i, ok := b.lookup(iid)
	if !ok {
		p.WritePtr(ppv, 0)
		return abi.ENoInterface
	}
	b.refs.Add(1)
	p.WritePtr(ppv, b.records[i])
	return abi.OK
}
