package sim

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"
	"unsafe"

	vtruntime "github.com/wippyai/vtable-runtime"
	"github.com/wippyai/vtable-runtime/errors"
)

const (
	heapBase  uintptr = 0x1000_0000
	heapLimit uintptr = 0x6000_0000
	codeBase  uintptr = 0x7000_0000
	codeStep  uintptr = 16
	blockStep uintptr = 16
)

var _ vtruntime.Platform = (*Platform)(nil)

// Fault is raised (as a panic) on an access the simulated address space cannot serve.
type Fault struct {
	Op   string
	Addr uintptr
}

func (f *Fault) Error() string {
	return fmt.Sprintf("sim: %s fault at 0x%x", f.Op, f.Addr)
}

// Stats counts platform activity.
type Stats struct {
	Allocs    int
	Frees     int
	Live      int
	Calls     int
	Callbacks int
}

type block struct {
	data  []byte
	base  uintptr
	freed bool
}

type callback struct {
	fn    func(args []uintptr) uintptr
	arity int
}

// Platform is a deterministic simulated address space.
// Blocks are never reused, so use-after-free and double free fault reliably.
type Platform struct {
	blocks    []*block
	callbacks []callback
	stats     Stats
	next      uintptr
	mu        sync.RWMutex
}

// New creates an empty simulated address space.
func New() *Platform {
	return &Platform{next: heapBase}
}

// PtrSize returns the host pointer width.
func (p *Platform) PtrSize() uintptr {
	return unsafe.Sizeof(uintptr(0))
}

// Stats returns a snapshot of the activity counters.
func (p *Platform) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats
}

// Alloc reserves a zeroed block of at least size bytes.
func (p *Platform) Alloc(size uintptr) (uintptr, error) {
	if size == 0 {
		size = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	rounded := (size + blockStep - 1) &^ (blockStep - 1)
	if p.next+rounded > heapLimit {
		return 0, errors.AllocationFailed(errors.PhasePlatform, size, nil)
	}

	b := &block{base: p.next, data: make([]byte, size)}
	// one guard step between blocks keeps overruns from landing in a neighbor
	p.next += rounded + blockStep
	p.blocks = append(p.blocks, b)
	p.stats.Allocs++
	p.stats.Live++
	return b.base, nil
}

// Free releases a block returned by Alloc. Freeing zero is a no-op.
func (p *Platform) Free(ptr uintptr) {
	if ptr == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	b := p.lookup(ptr)
	if b == nil || b.base != ptr || b.freed {
		panic(&Fault{Op: "free", Addr: ptr})
	}
	b.freed = true
	b.data = nil
	p.stats.Frees++
	p.stats.Live--
}

// lookup finds the block whose range starts at or before addr. Caller holds mu.
func (p *Platform) lookup(addr uintptr) *block {
	i := sort.Search(len(p.blocks), func(i int) bool {
		return p.blocks[i].base > addr
	})
	if i == 0 {
		return nil
	}
	return p.blocks[i-1]
}

func (p *Platform) span(op string, addr uintptr, n int) []byte {
	b := p.lookup(addr)
	if b == nil || b.freed {
		panic(&Fault{Op: op, Addr: addr})
	}
	off := addr - b.base
	if off+uintptr(n) > uintptr(len(b.data)) {
		panic(&Fault{Op: op, Addr: addr})
	}
	return b.data[off : off+uintptr(n)]
}

// ReadPtr loads a pointer-sized word.
func (p *Platform) ReadPtr(addr uintptr) uintptr {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.PtrSize() == 8 {
		return uintptr(binary.LittleEndian.Uint64(p.span("read", addr, 8)))
	}
	return uintptr(binary.LittleEndian.Uint32(p.span("read", addr, 4)))
}

// WritePtr stores a pointer-sized word.
func (p *Platform) WritePtr(addr uintptr, value uintptr) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.PtrSize() == 8 {
		binary.LittleEndian.PutUint64(p.span("write", addr, 8), uint64(value))
		return
	}
	binary.LittleEndian.PutUint32(p.span("write", addr, 4), uint32(value))
}

func (p *Platform) ReadU16(addr uintptr) uint16 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return binary.LittleEndian.Uint16(p.span("read", addr, 2))
}

func (p *Platform) ReadU32(addr uintptr) uint32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return binary.LittleEndian.Uint32(p.span("read", addr, 4))
}

func (p *Platform) WriteU32(addr uintptr, value uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	binary.LittleEndian.PutUint32(p.span("write", addr, 4), value)
}

// Read copies length bytes out of the address space.
func (p *Platform) Read(addr uintptr, length int) []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]byte, length)
	copy(out, p.span("read", addr, length))
	return out
}

// Write copies data into the address space.
func (p *Platform) Write(addr uintptr, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	copy(p.span("write", addr, len(data)), data)
}

// NewCallback publishes fn at a fresh simulated code address.
func (p *Platform) NewCallback(arity int, fn func(args []uintptr) uintptr) (uintptr, error) {
	if fn == nil {
		return 0, errors.InvalidInput(errors.PhasePlatform, "callback function is nil")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.callbacks = append(p.callbacks, callback{fn: fn, arity: arity})
	p.stats.Callbacks++
	return codeBase + uintptr(len(p.callbacks)-1)*codeStep, nil
}

// Invoke calls a published callback. Unknown addresses and arity mismatches fault,
// standing in for the undefined behavior a real call would have.
func (p *Platform) Invoke(fn uintptr, args ...uintptr) uintptr {
	p.mu.Lock()
	idx := (fn - codeBase) / codeStep
	if fn < codeBase || (fn-codeBase)%codeStep != 0 || idx >= uintptr(len(p.callbacks)) {
		p.mu.Unlock()
		panic(&Fault{Op: "call", Addr: fn})
	}
	cb := p.callbacks[idx]
	p.stats.Calls++
	p.mu.Unlock()

	if cb.arity != len(args) {
		panic(&Fault{Op: fmt.Sprintf("call/%d args, want %d", len(args), cb.arity), Addr: fn})
	}
	return cb.fn(args)
}

// ByValue splits data into little-endian pointer-sized words.
func (p *Platform) ByValue(data []byte) ([]uintptr, func(), error) {
	size := int(p.PtrSize())
	words := make([]uintptr, (len(data)+size-1)/size)
	for i := range words {
		var chunk [8]byte
		copy(chunk[:], data[i*size:min(len(data), (i+1)*size)])
		words[i] = uintptr(binary.LittleEndian.Uint64(chunk[:]))
	}
	return words, func() {}, nil
}
