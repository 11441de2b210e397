package proxy

import (
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/vtable-runtime/abi"
	"github.com/wippyai/vtable-runtime/errors"
	"github.com/wippyai/vtable-runtime/resource"
)

// State is the lifecycle position of an Object.
type State int32

const (
	Unbound State = iota
	binding
	Bound
	Disposed
)

func (s State) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case binding:
		return "binding"
	case Bound:
		return "bound"
	case Disposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// maxTextAttempts bounds CallText retries when the value grows between the
// length query and the fetch.
const maxTextAttempts = 3

// Proxy is implemented by every type embedding Object.
type Proxy interface {
	Raw() (uintptr, error)
	Close() error
	State() State
	object() *Object
}

// Object holds one counted reference to a foreign object.
//
// Contract proxies embed Object and call through its helpers:
//
//	type Value struct{ proxy.Object }
//
//	func (v *Value) GetValue() (int32, error) {
//	    out, st, err := v.CallOut(abi.FirstContractSlot)
//	    ...
//	}
//
// The zero value is Unbound. Bind takes a reference; Close gives it back exactly once.
type Object struct {
	ref     *reference
	anchor  *anchor
	cleanup runtime.Cleanup
	typ     string
	state   atomic.Int32
}

// reference is the part of a bound Object the leak cleanup may touch. It must
// never point back at the Object or its anchor, or the cleanup could not run.
type reference struct {
	factory  *Factory
	typ      string
	ptr      uintptr
	handle   resource.Handle
	released atomic.Bool
}

// anchor is a private allocation reachable only from its Object; its collection
// signals that the Object was dropped.
type anchor struct {
	_ *reference
}

func (r *reference) release(leaked bool) bool {
	if !r.released.CompareAndSwap(false, true) {
		return false
	}
	remaining := r.factory.dispatcher.Release(r.ptr)
	if leaked {
		r.factory.table.Leak(r.handle)
		r.factory.logger.Warn("foreign reference released by cleanup; Close was never called",
			zap.String("type", r.typ),
			zap.Uintptr("ptr", r.ptr),
			zap.Uint32("remaining", remaining))
		return true
	}
	r.factory.table.Remove(r.handle)
	return true
}

// Close implements resource.Closer so a closing factory can release stragglers.
func (r *reference) Close() error {
	r.release(false)
	return nil
}

func (o *Object) object() *Object { return o }

// State returns the current lifecycle state.
func (o *Object) State() State {
	return State(o.state.Load())
}

// Bind takes one reference on ptr. It fails, without changing anything, on a null
// pointer or when the object is already bound or disposed.
func (o *Object) Bind(f *Factory, ptr uintptr) error {
	return o.bind(f, ptr, o.typeName())
}

func (o *Object) bind(f *Factory, ptr uintptr, typ string) error {
	if f == nil {
		return errors.InvalidInput(errors.PhaseBind, "nil factory")
	}
	if ptr == 0 {
		return errors.NullPointer(errors.PhaseBind, typ)
	}
	if !o.state.CompareAndSwap(int32(Unbound), int32(binding)) {
		if o.State() == Disposed {
			return errors.Disposed(errors.PhaseBind, typ)
		}
		held := uintptr(0)
		if o.State() == Bound {
			held = o.ref.ptr
		}
		return errors.AlreadyBound(typ, held)
	}
	if f.closed.Load() {
		o.state.Store(int32(Unbound))
		return errors.Disposed(errors.PhaseBind, "proxy.Factory")
	}

	f.dispatcher.AddRef(ptr)
	ref := &reference{factory: f, typ: typ, ptr: ptr}
	ref.handle = f.table.Insert(resource.KindProxy, ptr, ref)

	o.typ = typ
	o.ref = ref
	if f.leakTracking {
		o.anchor = &anchor{}
		o.cleanup = runtime.AddCleanup(o.anchor, func(r *reference) { r.release(true) }, ref)
	}
	o.state.Store(int32(Bound))
	return nil
}

// Raw returns the held pointer.
func (o *Object) Raw() (uintptr, error) {
	ref, err := o.live(errors.PhaseDispatch)
	if err != nil {
		return 0, err
	}
	return ref.ptr, nil
}

// Factory returns the factory the object was bound through, or nil.
func (o *Object) Factory() *Factory {
	if s := o.State(); s != Bound && s != Disposed {
		return nil
	}
	if o.ref == nil {
		return nil
	}
	return o.ref.factory
}

// Close releases the held reference. Only the first call has an effect; closing
// an object that was never bound just marks it disposed.
func (o *Object) Close() error {
	for {
		switch State(o.state.Load()) {
		case Disposed:
			return nil
		case Unbound:
			if o.state.CompareAndSwap(int32(Unbound), int32(Disposed)) {
				return nil
			}
		case Bound:
			if o.state.CompareAndSwap(int32(Bound), int32(Disposed)) {
				if o.anchor != nil {
					o.cleanup.Stop()
				}
				o.ref.release(false)
				runtime.KeepAlive(o.anchor)
				return nil
			}
		default:
			runtime.Gosched()
		}
	}
}

func (o *Object) live(phase errors.Phase) (*reference, error) {
	switch State(o.state.Load()) {
	case Bound:
		return o.ref, nil
	case Disposed:
		return nil, errors.Disposed(phase, o.typeName())
	default:
		return nil, errors.Unbound(phase, o.typeName())
	}
}

func (o *Object) typeName() string {
	if o.typ != "" {
		return o.typ
	}
	return "proxy.Object"
}

// Call invokes a contract slot returning a status.
func (o *Object) Call(slot int, args ...uintptr) (abi.Status, error) {
	ref, err := o.live(errors.PhaseDispatch)
	if err != nil {
		return abi.EUnexpected, err
	}
	st := ref.factory.dispatcher.Call(ref.ptr, slot, args...)
	runtime.KeepAlive(o.anchor)
	return st, nil
}

// CallOut invokes a getter slot and returns the word written to its out cell.
func (o *Object) CallOut(slot int, args ...uintptr) (uintptr, abi.Status, error) {
	ref, err := o.live(errors.PhaseDispatch)
	if err != nil {
		return 0, abi.EUnexpected, err
	}
	v, st := ref.factory.dispatcher.CallOut(ref.ptr, slot, args...)
	runtime.KeepAlive(o.anchor)
	return v, st, nil
}

// CallText invokes a text getter of the shape
// slot(this, args..., buffer, capacity, *needed): the first call sizes the buffer,
// the second fills it. needed counts characters including the terminator.
func (o *Object) CallText(slot int, args ...uintptr) (string, error) {
	ref, err := o.live(errors.PhaseDispatch)
	if err != nil {
		return "", err
	}
	defer runtime.KeepAlive(o.anchor)

	d := ref.factory.dispatcher
	p := d.Platform()
	needed, st := d.CallOut(ref.ptr, slot, append(args[:len(args):len(args)], 0, 0)...)
	if st.Failed() && st != abi.EInsufficientBuffer {
		return "", st.Err(o.typeName() + ".CallText")
	}

	for range maxTextAttempts {
		capacity := uint32(needed)
		if capacity <= 1 {
			return "", nil
		}
		buf, err := p.Alloc(uintptr(capacity) * 2)
		if err != nil {
			return "", errors.AllocationFailed(errors.PhaseDispatch, uintptr(capacity)*2, err)
		}

		needed, st = d.CallOut(ref.ptr, slot, append(args[:len(args):len(args)], buf, uintptr(capacity))...)
		switch {
		case st == abi.EInsufficientBuffer || (st.Succeeded() && uint32(needed) > capacity):
			p.Free(buf)
			continue
		case st.Failed():
			p.Free(buf)
			return "", st.Err(o.typeName() + ".CallText")
		}

		n := min(uint32(needed), capacity)
		if n <= 1 {
			p.Free(buf)
			return "", nil
		}
		raw := p.Read(buf, int(n-1)*2)
		p.Free(buf)
		return abi.DecodeUTF16(raw)
	}
	return "", errors.InvalidData(errors.PhaseDispatch, "text kept growing between length query and fetch")
}
