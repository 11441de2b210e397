package abi

import (
	"fmt"

	"github.com/wippyai/vtable-runtime/errors"
)

// Status is the 32-bit signed result of a foreign call.
// Zero and positive values are successes, negative values are failures.
type Status int32

const (
	OK    Status = 0
	False Status = 1

	ENotImpl            Status = -0x7FFFBFFF // 0x80004001
	ENoInterface        Status = -0x7FFFBFFE // 0x80004002
	EPointer            Status = -0x7FFFBFFD // 0x80004003
	EAbort              Status = -0x7FFFBFFC // 0x80004004
	EFail               Status = -0x7FFFBFFB // 0x80004005
	EUnexpected         Status = -0x7FFF0001 // 0x8000FFFF
	EOutOfMemory        Status = -0x7FF8FFF2 // 0x8007000E
	EInvalidArg         Status = -0x7FF8FFA9 // 0x80070057
	EInsufficientBuffer Status = -0x7FF8FF86 // 0x8007007A
	ENotConnected       Status = -0x7FFBFE03 // 0x800401FD
)

// StatusFromWord extracts a status from the low 32 bits of a call result.
func StatusFromWord(w uintptr) Status {
	return Status(int32(uint32(w)))
}

// Word widens the status to a call result word.
func (s Status) Word() uintptr {
	return uintptr(uint32(s))
}

func (s Status) Succeeded() bool { return s >= 0 }

func (s Status) Failed() bool { return s < 0 }

// Err converts a failing status into a *errors.StatusError; successes return nil.
func (s Status) Err(op string) error {
	if s >= 0 {
		return nil
	}
	return errors.Status(op, int32(s))
}

func (s Status) String() string {
	return fmt.Sprintf("0x%08X", uint32(s))
}
