//go:build windows

package native

import "github.com/wippyai/vtable-runtime/errors"

// ByValue follows the x64 convention: aggregates of one word travel in a register,
// anything larger is passed as a pointer to a caller-owned copy.
func (p *Platform) ByValue(data []byte) ([]uintptr, func(), error) {
	if len(data) <= int(p.PtrSize()) {
		return []uintptr{packWord(data)}, func() {}, nil
	}
	ptr, err := p.Alloc(uintptr(len(data)))
	if err != nil {
		return nil, nil, errors.AllocationFailed(errors.PhaseDispatch, uintptr(len(data)), err)
	}
	p.Write(ptr, data)
	return []uintptr{ptr}, func() { p.Free(ptr) }, nil
}
