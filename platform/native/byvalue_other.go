//go:build darwin || (linux && (amd64 || arm64))

package native

import "github.com/wippyai/vtable-runtime/errors"

// ByValue follows SysV x86-64 and AAPCS64: integer aggregates up to two words are
// passed in consecutive general registers.
func (p *Platform) ByValue(data []byte) ([]uintptr, func(), error) {
	size := int(p.PtrSize())
	if len(data) > 2*size {
		return nil, nil, errors.Unsupported(errors.PhaseDispatch, "by-value aggregates larger than two words")
	}
	var words []uintptr
	for off := 0; off < len(data); off += size {
		words = append(words, packWord(data[off:min(len(data), off+size)]))
	}
	return words, func() {}, nil
}
