package abi

import (
	"golang.org/x/text/encoding/unicode"

	vtruntime "github.com/wippyai/vtable-runtime"
	"github.com/wippyai/vtable-runtime/errors"
)

// DefaultMaxText bounds the terminator scan of inbound text, in characters.
const DefaultMaxText = 1 << 15

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// DecodeUTF16 converts little-endian UTF-16 code units to a Go string.
func DecodeUTF16(b []byte) (string, error) {
	if len(b)%2 != 0 {
		return "", errors.InvalidData(errors.PhaseText, "odd UTF-16 byte count")
	}
	out, err := utf16le.NewDecoder().Bytes(b)
	if err != nil {
		return "", errors.Wrap(errors.PhaseText, errors.KindInvalidData, err, "decode UTF-16")
	}
	return string(out), nil
}

// EncodeUTF16 converts a Go string to little-endian UTF-16 code units without a terminator.
func EncodeUTF16(s string) ([]byte, error) {
	out, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseText, errors.KindInvalidData, err, "encode UTF-16")
	}
	return out, nil
}

// ReadTerminated scans a null-terminated UTF-16 string of unknown length.
// A null pointer or an empty string reports ok=false ("no value"). Scanning stops
// with an error after limit characters without a terminator.
func ReadTerminated(m vtruntime.Memory, ptr uintptr, limit int) (s string, ok bool, err error) {
	if ptr == 0 {
		return "", false, nil
	}
	if limit <= 0 {
		limit = DefaultMaxText
	}

	n := 0
	for m.ReadU16(ptr+uintptr(n)*2) != 0 {
		n++
		if n >= limit {
			return "", false, errors.InvalidData(errors.PhaseText, "text exceeds scan bound without terminator")
		}
	}
	if n == 0 {
		return "", false, nil
	}

	s, err = DecodeUTF16(m.Read(ptr, n*2))
	if err != nil {
		return "", false, err
	}
	return s, true, nil
}

// WriteText copies s into a caller-provided buffer of capacity characters,
// including the terminator, and returns the number of characters required.
// When the buffer is too small nothing is written.
func WriteText(m vtruntime.Memory, buf uintptr, capacity uint32, s string) (uint32, error) {
	units, err := EncodeUTF16(s)
	if err != nil {
		return 0, err
	}
	needed := uint32(len(units)/2) + 1
	if buf == 0 || capacity < needed {
		return needed, nil
	}
	m.Write(buf, append(units, 0, 0))
	return needed, nil
}
