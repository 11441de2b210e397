// Package marshal stages proxies into native pointer arrays for outgoing calls.
//
//	arr, err := marshal.Stage(f, values)
//	if err != nil {
//	    return err
//	}
//	defer arr.Release()
//	st, err := obj.Call(slotSetValues, uintptr(arr.Len()), arr.Ptr())
//
// Each non-nil element gets one extra reference for the life of the array, so the
// callee may hold the pointers for the whole call even if the element's owner
// closes it concurrently.
package marshal

import (
	"reflect"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/wippyai/vtable-runtime/errors"
	"github.com/wippyai/vtable-runtime/proxy"
	"github.com/wippyai/vtable-runtime/resource"
)

// StagedArray is a native block of pointers plus the references taken for them.
type StagedArray struct {
	f        *proxy.Factory
	held     []uintptr
	block    uintptr
	n        int
	handle   resource.Handle
	released atomic.Bool
}

// Stage copies the pointers of items into one native block. An empty sequence
// allocates nothing and yields a null block. Nil elements are written as null.
// On failure every reference already taken is given back.
func Stage[T proxy.Proxy](f *proxy.Factory, items []T) (*StagedArray, error) {
	a := &StagedArray{f: f, n: len(items)}
	if len(items) == 0 {
		a.released.Store(true)
		return a, nil
	}

	p := f.Platform()
	size := p.PtrSize()
	block, err := p.Alloc(uintptr(len(items)) * size)
	if err != nil {
		return nil, errors.AllocationFailed(errors.PhaseMarshal, uintptr(len(items))*size, err)
	}
	a.block = block

	d := f.Dispatcher()
	for i, v := range items {
		var ptr uintptr
		if !isNil(v) {
			ptr, err = v.Raw()
			if err != nil {
				a.rollback()
				return nil, errors.New(errors.PhaseMarshal, errors.KindInvalidInput).
					Detail("element %d", i).
					Cause(err).
					Build()
			}
			d.AddRef(ptr)
			a.held = append(a.held, ptr)
		}
		p.WritePtr(block+uintptr(i)*size, ptr)
	}

	a.handle = f.Table().Insert(resource.KindStaged, block, a)
	return a, nil
}

// With stages items, hands the block to fn, and releases it however fn exits.
func With[T proxy.Proxy](f *proxy.Factory, items []T, fn func(ptr uintptr, n int) error) (err error) {
	a, err := Stage(f, items)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, a.Release())
	}()
	return fn(a.Ptr(), a.Len())
}

// Ptr returns the block address, or 0 for an empty array.
func (a *StagedArray) Ptr() uintptr {
	return a.block
}

// Len returns the element count.
func (a *StagedArray) Len() int {
	return a.n
}

// Release frees the block and gives back each extra reference. Only the first
// call has an effect.
func (a *StagedArray) Release() error {
	if !a.released.CompareAndSwap(false, true) {
		return nil
	}
	a.rollback()
	a.f.Table().Remove(a.handle)
	return nil
}

// Close implements resource.Closer.
func (a *StagedArray) Close() error {
	return a.Release()
}

func (a *StagedArray) rollback() {
	d := a.f.Dispatcher()
	for _, ptr := range a.held {
		d.Release(ptr)
	}
	a.held = nil
	a.f.Platform().Free(a.block)
	a.block = 0
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
