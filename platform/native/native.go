//go:build darwin || (linux && (amd64 || arm64)) || windows

package native

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"go.uber.org/zap"

	vtruntime "github.com/wippyai/vtable-runtime"
	"github.com/wippyai/vtable-runtime/errors"
)

// Available reports whether this build has a native platform.
const Available = true

// MaxArity is the largest argument count, including the object pointer, a
// trampoline may declare.
const MaxArity = 12

var _ vtruntime.Platform = (*Platform)(nil)

type pinnedBlock struct {
	buf []uintptr
	pin runtime.Pinner
}

// Platform calls foreign code in-process through purego.
//
// Memory handed to foreign code is Go memory pinned for its whole lifetime, so
// the garbage collector neither moves nor frees it while foreign code holds it.
type Platform struct {
	blocks map[uintptr]*pinnedBlock
	logger *zap.Logger
	mu     sync.Mutex
}

// New creates a native platform.
func New(opts ...Option) (*Platform, error) {
	o := buildOptions(opts)
	return &Platform{
		blocks: make(map[uintptr]*pinnedBlock),
		logger: o.logger,
	}, nil
}

// Open creates a native platform behind the Platform interface.
func Open(opts ...Option) (vtruntime.Platform, error) {
	return New(opts...)
}

func (p *Platform) PtrSize() uintptr {
	return unsafe.Sizeof(uintptr(0))
}

// Alloc returns pinned, zeroed, pointer-aligned memory.
func (p *Platform) Alloc(size uintptr) (uintptr, error) {
	if size == 0 {
		size = 1
	}
	words := (size + p.PtrSize() - 1) / p.PtrSize()

	b := &pinnedBlock{buf: make([]uintptr, words)}
	b.pin.Pin(&b.buf[0])
	addr := uintptr(unsafe.Pointer(&b.buf[0]))

	p.mu.Lock()
	p.blocks[addr] = b
	p.mu.Unlock()
	return addr, nil
}

// Free unpins a block returned by Alloc. Unknown pointers are ignored and logged.
func (p *Platform) Free(ptr uintptr) {
	if ptr == 0 {
		return
	}
	p.mu.Lock()
	b, ok := p.blocks[ptr]
	delete(p.blocks, ptr)
	p.mu.Unlock()

	if !ok {
		p.logger.Warn("free of unknown block", zap.Uintptr("ptr", ptr))
		return
	}
	b.pin.Unpin()
}

// Live returns the number of outstanding allocations.
func (p *Platform) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.blocks)
}

func (p *Platform) ReadPtr(addr uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(addr))
}

func (p *Platform) WritePtr(addr uintptr, value uintptr) {
	*(*uintptr)(unsafe.Pointer(addr)) = value
}

func (p *Platform) ReadU16(addr uintptr) uint16 {
	return *(*uint16)(unsafe.Pointer(addr))
}

func (p *Platform) ReadU32(addr uintptr) uint32 {
	return *(*uint32)(unsafe.Pointer(addr))
}

func (p *Platform) WriteU32(addr uintptr, value uint32) {
	*(*uint32)(unsafe.Pointer(addr)) = value
}

func (p *Platform) Read(addr uintptr, length int) []byte {
	out := make([]byte, length)
	if length > 0 {
		copy(out, unsafe.Slice((*byte)(unsafe.Pointer(addr)), length))
	}
	return out
}

func (p *Platform) Write(addr uintptr, data []byte) {
	if len(data) == 0 {
		return
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(addr)), len(data)), data)
}

// Invoke performs the indirect call with the platform C calling convention.
func (p *Platform) Invoke(fn uintptr, args ...uintptr) uintptr {
	r1, _, _ := purego.SyscallN(fn, args...)
	return r1
}

// NewCallback publishes fn as a C function pointer taking arity word arguments.
// purego callbacks are never released, so callers cache the result.
func (p *Platform) NewCallback(arity int, fn func(args []uintptr) uintptr) (ptr uintptr, err error) {
	if fn == nil {
		return 0, errors.InvalidInput(errors.PhasePlatform, "callback function is nil")
	}
	adapter := adapt(arity, fn)
	if adapter == nil {
		return 0, errors.Unsupported(errors.PhasePlatform, fmt.Sprintf("callback arity %d exceeds %d", arity, MaxArity))
	}

	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.PhasePlatform, errors.KindCallback).
				Detail("create callback: %v", r).
				Build()
		}
	}()
	ptr = purego.NewCallback(adapter)
	p.logger.Debug("published callback", zap.Int("arity", arity), zap.Uintptr("fn", ptr))
	return ptr, nil
}

func adapt(arity int, fn func([]uintptr) uintptr) any {
	switch arity {
	case 0:
		return func() uintptr { return fn(nil) }
	case 1:
		return func(a0 uintptr) uintptr { return fn([]uintptr{a0}) }
	case 2:
		return func(a0, a1 uintptr) uintptr { return fn([]uintptr{a0, a1}) }
	case 3:
		return func(a0, a1, a2 uintptr) uintptr { return fn([]uintptr{a0, a1, a2}) }
	case 4:
		return func(a0, a1, a2, a3 uintptr) uintptr { return fn([]uintptr{a0, a1, a2, a3}) }
	case 5:
		return func(a0, a1, a2, a3, a4 uintptr) uintptr {
			return fn([]uintptr{a0, a1, a2, a3, a4})
		}
	case 6:
		return func(a0, a1, a2, a3, a4, a5 uintptr) uintptr {
			return fn([]uintptr{a0, a1, a2, a3, a4, a5})
		}
	case 7:
		return func(a0, a1, a2, a3, a4, a5, a6 uintptr) uintptr {
			return fn([]uintptr{a0, a1, a2, a3, a4, a5, a6})
		}
	case 8:
		return func(a0, a1, a2, a3, a4, a5, a6, a7 uintptr) uintptr {
			return fn([]uintptr{a0, a1, a2, a3, a4, a5, a6, a7})
		}
	case 9:
		return func(a0, a1, a2, a3, a4, a5, a6, a7, a8 uintptr) uintptr {
			return fn([]uintptr{a0, a1, a2, a3, a4, a5, a6, a7, a8})
		}
	case 10:
		return func(a0, a1, a2, a3, a4, a5, a6, a7, a8, a9 uintptr) uintptr {
			return fn([]uintptr{a0, a1, a2, a3, a4, a5, a6, a7, a8, a9})
		}
	case 11:
		return func(a0, a1, a2, a3, a4, a5, a6, a7, a8, a9, a10 uintptr) uintptr {
			return fn([]uintptr{a0, a1, a2, a3, a4, a5, a6, a7, a8, a9, a10})
		}
	case 12:
		return func(a0, a1, a2, a3, a4, a5, a6, a7, a8, a9, a10, a11 uintptr) uintptr {
			return fn([]uintptr{a0, a1, a2, a3, a4, a5, a6, a7, a8, a9, a10, a11})
		}
	}
	return nil
}

func packWord(b []byte) uintptr {
	var chunk [8]byte
	copy(chunk[:], b)
	return uintptr(binary.LittleEndian.Uint64(chunk[:]))
}
