package abi

import (
	vtruntime "github.com/wippyai/vtable-runtime"
)

// Dispatcher performs indirect calls through vtable slots.
//
// The object pointer is always passed as the implicit first argument. The caller
// supplies arguments that match the slot's declared signature; a mismatch is undefined
// behavior and is not detected here.
type Dispatcher struct {
	p       vtruntime.Platform
	ptrSize uintptr
}

// NewDispatcher creates a dispatcher over a platform.
func NewDispatcher(p vtruntime.Platform) *Dispatcher {
	return &Dispatcher{
		p:       p,
		ptrSize: p.PtrSize(),
	}
}

// Platform returns the platform calls are made through.
func (d *Dispatcher) Platform() vtruntime.Platform {
	return d.p
}

// Slot reads the function pointer at index in the object's vtable.
func (d *Dispatcher) Slot(this uintptr, index int) uintptr {
	vtbl := d.p.ReadPtr(this)
	return d.p.ReadPtr(vtbl + uintptr(index)*d.ptrSize)
}

// Invoke calls slot with this prepended and returns the raw result word.
func (d *Dispatcher) Invoke(this uintptr, slot int, args ...uintptr) uintptr {
	fn := d.Slot(this, slot)
	full := make([]uintptr, len(args)+1)
	full[0] = this
	copy(full[1:], args)
	return d.p.Invoke(fn, full...)
}

// Call invokes a slot returning a status code.
func (d *Dispatcher) Call(this uintptr, slot int, args ...uintptr) Status {
	return StatusFromWord(d.Invoke(this, slot, args...))
}

// CallCount invokes a slot returning an unsigned 32-bit count.
func (d *Dispatcher) CallCount(this uintptr, slot int, args ...uintptr) uint32 {
	return uint32(d.Invoke(this, slot, args...))
}

// AddRef increments the foreign reference count and returns the new count.
func (d *Dispatcher) AddRef(this uintptr) uint32 {
	return d.CallCount(this, SlotAddRef)
}

// Release decrements the foreign reference count and returns the new count.
func (d *Dispatcher) Release(this uintptr) uint32 {
	return d.CallCount(this, SlotRelease)
}

// CallOut is the getter form: a pointer-sized out cell is appended as the last
// argument and its value returned alongside the status.
func (d *Dispatcher) CallOut(this uintptr, slot int, args ...uintptr) (uintptr, Status) {
	cell, err := d.p.Alloc(d.ptrSize)
	if err != nil {
		return 0, EOutOfMemory
	}
	defer d.p.Free(cell)

	d.p.WritePtr(cell, 0)
	st := d.Call(this, slot, appendArg(args, cell)...)
	return d.p.ReadPtr(cell), st
}

// CallOutBytes is the getter form for fixed-size out structs.
func (d *Dispatcher) CallOutBytes(this uintptr, slot int, size uintptr, args ...uintptr) ([]byte, Status) {
	if size == 0 {
		return nil, EInvalidArg
	}
	cell, err := d.p.Alloc(size)
	if err != nil {
		return nil, EOutOfMemory
	}
	defer d.p.Free(cell)

	d.p.Write(cell, make([]byte, size))
	st := d.Call(this, slot, appendArg(args, cell)...)
	return d.p.Read(cell, int(size)), st
}

// QueryInterface asks the object for the contract identified by iid.
// On success the returned pointer carries a reference owned by the caller.
func (d *Dispatcher) QueryInterface(this uintptr, iid GUID) (uintptr, Status) {
	ref, release, err := d.StageGUID(iid)
	if err != nil {
		return 0, EOutOfMemory
	}
	defer release()
	return d.CallOut(this, SlotQueryInterface, ref)
}

// StageGUID copies a capability id into foreign memory for by-reference passing.
func (d *Dispatcher) StageGUID(g GUID) (uintptr, func(), error) {
	ptr, err := d.p.Alloc(16)
	if err != nil {
		return 0, nil, err
	}
	b := g.Bytes()
	d.p.Write(ptr, b[:])
	return ptr, func() { d.p.Free(ptr) }, nil
}

// GUIDArg lowers a capability id passed by value into call words.
func (d *Dispatcher) GUIDArg(g GUID) ([]uintptr, func(), error) {
	b := g.Bytes()
	return d.p.ByValue(b[:])
}

// ReadGUID reads a capability id from foreign memory.
func (d *Dispatcher) ReadGUID(ptr uintptr) (GUID, error) {
	return GUIDFromBytes(d.p.Read(ptr, 16))
}

func appendArg(args []uintptr, last uintptr) []uintptr {
	out := make([]uintptr, len(args)+1)
	copy(out, args)
	out[len(args)] = last
	return out
}
