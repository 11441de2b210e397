package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseBind      Phase = "bind"      // proxy binding and lifetime
	PhaseConstruct Phase = "construct" // proxy type resolution
	PhaseDispatch  Phase = "dispatch"  // outgoing vtable calls
	PhaseQuery     Phase = "query"     // capability queries
	PhaseBridge    Phase = "bridge"    // callback vtable construction and dispatch
	PhaseEnumerate Phase = "enumerate" // enumeration contract
	PhaseMarshal   Phase = "marshal"   // native array staging
	PhasePlatform  Phase = "platform"  // memory and call primitives
	PhaseText      Phase = "text"      // text parameter conversion
)

// Kind categorizes the error
type Kind string

const (
	KindAlreadyBound   Kind = "already_bound"
	KindDisposed       Kind = "disposed"
	KindUnbound        Kind = "unbound"
	KindUninstantiable Kind = "uninstantiable"
	KindNullPointer    Kind = "null_pointer"
	KindAllocation     Kind = "allocation"
	KindUnsupported    Kind = "unsupported"
	KindNotRegistered  Kind = "not_registered"
	KindInvalidInput   Kind = "invalid_input"
	KindInvalidData    Kind = "invalid_data"
	KindCallback       Kind = "callback"
	KindForeignFailure Kind = "foreign_failure"
)

// Error is the structured error type used throughout the runtime
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	GoType   string
	Contract string
	Detail   string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.GoType != "" || e.Contract != "" {
		b.WriteString(": ")
		switch {
		case e.GoType != "" && e.Contract != "":
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", contract ")
			b.WriteString(e.Contract)
		case e.GoType != "":
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		default:
			b.WriteString("contract ")
			b.WriteString(e.Contract)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.Contract != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Contract sets the foreign contract name
func (b *Builder) Contract(name string) *Builder {
	b.err.Contract = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for contract violations

// Disposed reports use of an object after it was released.
func Disposed(phase Phase, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDisposed,
		GoType: goType,
		Detail: "object has been disposed",
	}
}

// AlreadyBound reports a second bind on a proxy.
func AlreadyBound(goType string, ptr uintptr) *Error {
	return &Error{
		Phase:  PhaseBind,
		Kind:   KindAlreadyBound,
		GoType: goType,
		Detail: fmt.Sprintf("proxy already bound to 0x%x", ptr),
		Value:  ptr,
	}
}

// Unbound reports use of a proxy that was never bound.
func Unbound(phase Phase, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnbound,
		GoType: goType,
		Detail: "proxy is not bound to a foreign object",
	}
}

// Uninstantiable reports a proxy type the factory cannot construct.
func Uninstantiable(goType, reason string) *Error {
	return &Error{
		Phase:  PhaseConstruct,
		Kind:   KindUninstantiable,
		GoType: goType,
		Detail: reason,
	}
}

// NullPointer reports a null foreign pointer where one is required.
func NullPointer(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNullPointer,
		Detail: fmt.Sprintf("%s is null", what),
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size uintptr, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes", size),
		Cause:  cause,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// NotRegistered reports a type or contract missing from a registry.
func NotRegistered(phase Phase, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotRegistered,
		GoType: goType,
		Detail: "no capability id registered",
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
