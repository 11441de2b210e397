package abi

import (
	"encoding/binary"
	"strings"

	"github.com/google/uuid"

	"github.com/wippyai/vtable-runtime/errors"
)

// GUID is a 128-bit capability identifier in its native memory layout.
// Equality is full-width; compare with ==.
type GUID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

// IIDUnknown is the base contract every foreign object answers.
var IIDUnknown = MustGUID("00000000-0000-0000-C000-000000000046")

// ParseGUID parses the textual form, with or without braces.
func ParseGUID(s string) (GUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return GUID{}, errors.Wrap(errors.PhaseQuery, errors.KindInvalidInput, err, "parse capability id "+s)
	}
	var g GUID
	g.Data1 = binary.BigEndian.Uint32(u[0:4])
	g.Data2 = binary.BigEndian.Uint16(u[4:6])
	g.Data3 = binary.BigEndian.Uint16(u[6:8])
	copy(g.Data4[:], u[8:16])
	return g, nil
}

// MustGUID is ParseGUID that panics; intended for package-level ids.
func MustGUID(s string) GUID {
	g, err := ParseGUID(s)
	if err != nil {
		panic(err)
	}
	return g
}

// GUIDFromBytes decodes the 16-byte native layout.
func GUIDFromBytes(b []byte) (GUID, error) {
	if len(b) != 16 {
		return GUID{}, errors.InvalidData(errors.PhaseQuery, "capability id must be 16 bytes")
	}
	var g GUID
	g.Data1 = binary.LittleEndian.Uint32(b[0:4])
	g.Data2 = binary.LittleEndian.Uint16(b[4:6])
	g.Data3 = binary.LittleEndian.Uint16(b[6:8])
	copy(g.Data4[:], b[8:16])
	return g, nil
}

// Bytes returns the 16-byte native layout.
func (g GUID) Bytes() [16]byte {
	var b [16]byte
	binary.LittleEndian.PutUint32(b[0:4], g.Data1)
	binary.LittleEndian.PutUint16(b[4:6], g.Data2)
	binary.LittleEndian.PutUint16(b[6:8], g.Data3)
	copy(b[8:16], g.Data4[:])
	return b
}

func (g GUID) IsZero() bool {
	return g == GUID{}
}

func (g GUID) String() string {
	var u uuid.UUID
	binary.BigEndian.PutUint32(u[0:4], g.Data1)
	binary.BigEndian.PutUint16(u[4:6], g.Data2)
	binary.BigEndian.PutUint16(u[6:8], g.Data3)
	copy(u[8:16], g.Data4[:])
	return "{" + strings.ToUpper(u.String()) + "}"
}
