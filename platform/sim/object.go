package sim

import (
	"sync/atomic"

	"github.com/wippyai/vtable-runtime/abi"
)

// Method is one contract slot of a simulated object. Args include the object pointer.
type Method struct {
	Fn    func(args []uintptr) uintptr
	Arity int
}

// Object is a hand-built foreign object: a vtable of simulated callbacks with a
// counted reference and a QueryInterface answering a fixed set of ids.
// The count starts at 1, owned by whoever created the object.
type Object struct {
	p    *Platform
	iids []abi.GUID
	refs atomic.Int32
	qis  atomic.Int32
	Ptr  uintptr
}

// NewObject builds an object answering iids (and the base id) with methods at slots 3 and up.
func NewObject(p *Platform, iids []abi.GUID, methods ...Method) (*Object, error) {
	o := &Object{p: p, iids: iids}
	o.refs.Store(1)

	fns := []Method{
		{Arity: 3, Fn: o.queryInterface},
		{Arity: 1, Fn: func([]uintptr) uintptr { return uintptr(uint32(o.refs.Add(1))) }},
		{Arity: 1, Fn: func([]uintptr) uintptr { return uintptr(uint32(o.refs.Add(-1))) }},
	}
	fns = append(fns, methods...)

	size := p.PtrSize()
	vtbl, err := p.Alloc(uintptr(len(fns)) * size)
	if err != nil {
		return nil, err
	}
	for i, m := range fns {
		cb, err := p.NewCallback(m.Arity, m.Fn)
		if err != nil {
			return nil, err
		}
		p.WritePtr(vtbl+uintptr(i)*size, cb)
	}

	o.Ptr, err = p.Alloc(2 * size)
	if err != nil {
		return nil, err
	}
	p.WritePtr(o.Ptr, vtbl)
	return o, nil
}

// Refs returns the current reference count. Over-release shows up as a negative count.
func (o *Object) Refs() int32 {
	return o.refs.Load()
}

// Queries returns how many QueryInterface calls the object has served.
func (o *Object) Queries() int32 {
	return o.qis.Load()
}

func (o *Object) queryInterface(args []uintptr) uintptr {
	o.qis.Add(1)
	riid, ppv := args[1], args[2]
	if ppv == 0 {
		return abi.EPointer.Word()
	}
	iid, err := abi.GUIDFromBytes(o.p.Read(riid, 16))
	if err != nil {
		return abi.EInvalidArg.Word()
	}
	if iid == abi.IIDUnknown || o.supports(iid) {
		o.refs.Add(1)
		o.p.WritePtr(ppv, args[0])
		return abi.OK.Word()
	}
	o.p.WritePtr(ppv, 0)
	return abi.ENoInterface.Word()
}

func (o *Object) supports(iid abi.GUID) bool {
	for _, id := range o.iids {
		if id == iid {
			return true
		}
	}
	return false
}
