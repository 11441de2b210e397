package proxy

import (
	"reflect"
	"runtime"

	"github.com/wippyai/vtable-runtime/abi"
	"github.com/wippyai/vtable-runtime/errors"
)

// Create binds a new T to ptr, taking one reference. A null ptr yields the zero T
// and no error.
func Create[T Proxy](f *Factory, ptr uintptr) (T, error) {
	return CreateStatus[T](f, ptr, abi.OK)
}

// CreateStatus is Create for a pointer produced by a call that returned st.
// A failing st yields the zero T without looking at ptr.
func CreateStatus[T Proxy](f *Factory, ptr uintptr, st abi.Status) (T, error) {
	var zero T
	if st.Failed() || ptr == 0 {
		return zero, nil
	}

	s := resolve(reflect.TypeFor[T]())
	if s.err != nil {
		return zero, s.err
	}
	v, ok := s.ctor().(T)
	if !ok {
		return zero, errors.Uninstantiable(s.name, "constructor returned a different type")
	}
	if err := v.object().bind(f, ptr, s.name); err != nil {
		return zero, err
	}
	return v, nil
}

// Adopt is Create for a pointer whose reference the callee already transferred to
// the caller, as out parameters and QueryInterface results do. The transferred
// reference is given back once the proxy holds its own, so counts stay paired.
func Adopt[T Proxy](f *Factory, ptr uintptr, st abi.Status) (T, error) {
	var zero T
	if st.Failed() || ptr == 0 {
		return zero, nil
	}
	v, err := CreateStatus[T](f, ptr, st)
	f.dispatcher.Release(ptr)
	if err != nil {
		return zero, err
	}
	return v, nil
}

// Dup returns an independent second proxy for the object p refers to.
func Dup[T Proxy](p T) (T, error) {
	var zero T
	o := p.object()
	ref, err := o.live(errors.PhaseBind)
	if err != nil {
		return zero, err
	}
	v, err := Create[T](ref.factory, ref.ptr)
	runtime.KeepAlive(o.anchor)
	return v, err
}

// Query asks src for the contract registered for T. An object that does not
// implement it yields (zero, false, nil).
func Query[T Proxy](src Proxy) (T, bool, error) {
	var zero T
	iid, err := IIDOf[T]()
	if err != nil {
		return zero, false, err
	}
	return QueryIID[T](src, iid)
}

// QueryIID is Query for an explicit capability id.
func QueryIID[T Proxy](src Proxy, iid abi.GUID) (T, bool, error) {
	var zero T
	o := src.object()
	ref, err := o.live(errors.PhaseQuery)
	if err != nil {
		return zero, false, err
	}

	out, st := ref.factory.dispatcher.QueryInterface(ref.ptr, iid)
	runtime.KeepAlive(o.anchor)
	if st == abi.ENoInterface {
		return zero, false, nil
	}
	if st.Failed() {
		return zero, false, st.Err("QueryInterface " + iid.String())
	}
	if out == 0 {
		return zero, false, nil
	}

	v, err := Adopt[T](ref.factory, out, st)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}
