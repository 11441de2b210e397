package vtruntime

// Memory represents foreign memory addressed by native pointers.
type Memory interface {
	ReadPtr(addr uintptr) uintptr
	WritePtr(addr uintptr, value uintptr)
	ReadU16(addr uintptr) uint16
	ReadU32(addr uintptr) uint32
	WriteU32(addr uintptr, value uint32)
	Read(addr uintptr, length int) []byte
	Write(addr uintptr, data []byte)
}

// Allocator allocates foreign-visible memory that does not move for its lifetime.
type Allocator interface {
	Alloc(size uintptr) (uintptr, error)
	Free(ptr uintptr)
}

// Invoker performs one indirect call through a native function pointer.
// The argument list must match the target signature exactly; nothing is validated.
type Invoker interface {
	Invoke(fn uintptr, args ...uintptr) uintptr
}

// CallbackFactory publishes Go functions as native-callable function pointers.
// Published pointers stay valid for the lifetime of the process.
type CallbackFactory interface {
	NewCallback(arity int, fn func(args []uintptr) uintptr) (uintptr, error)
}

// Platform bundles everything the interop core needs from one address space.
type Platform interface {
	Memory
	Allocator
	Invoker
	CallbackFactory

	// PtrSize is the width of a pointer-sized vtable slot.
	PtrSize() uintptr

	// ByValue lowers a small struct passed by value into call words.
	// release must be called once the call returns.
	ByValue(data []byte) (words []uintptr, release func(), err error)
}
