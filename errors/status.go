package errors

import "fmt"

// StatusError is a failing 32-bit status code returned by a foreign call.
type StatusError struct {
	Op      string
	Message string
	Code    int32
}

var statusMessages = map[uint32]string{
	0x80004001: "not implemented",
	0x80004002: "no such interface supported",
	0x80004003: "invalid pointer",
	0x80004004: "operation aborted",
	0x80004005: "unspecified failure",
	0x8000FFFF: "catastrophic failure",
	0x80070005: "access denied",
	0x80070006: "invalid handle",
	0x8007000E: "out of memory",
	0x80070057: "one or more arguments are invalid",
	0x8007007A: "data area passed to a call is too small",
	0x800401FD: "object is not connected to server",
	0x80131301: "object is neutered",
	0x80131302: "process was not synchronized",
	0x80131c36: "process is not stopped",
}

// StatusMessage resolves a human-readable message for a status code.
// Unknown codes get a generic message.
func StatusMessage(code int32) string {
	if msg, ok := statusMessages[uint32(code)]; ok {
		return msg
	}
	if code >= 0 {
		return fmt.Sprintf("success status 0x%08X", uint32(code))
	}
	return fmt.Sprintf("unrecognized failure status 0x%08X", uint32(code))
}

// Status creates a StatusError for a failing code.
func Status(op string, code int32) *StatusError {
	return &StatusError{
		Op:      op,
		Code:    code,
		Message: StatusMessage(code),
	}
}

// Error implements the error interface
func (e *StatusError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("[dispatch] foreign_failure: 0x%08X %s", uint32(e.Code), e.Message)
	}
	return fmt.Sprintf("[dispatch] foreign_failure: %s returned 0x%08X %s", e.Op, uint32(e.Code), e.Message)
}

// Is reports whether target is a StatusError with the same code.
// A target with code zero matches any status error.
func (e *StatusError) Is(target error) bool {
	t, ok := target.(*StatusError)
	if !ok {
		return false
	}
	return t.Code == 0 || t.Code == e.Code
}
