// Package errors provides structured error types for the vtable runtime.
//
// Two classes of failure exist. Contract violations (using a disposed proxy, binding twice,
// constructing an abstract proxy type) are reported as *Error, categorized by Phase
// (where the error occurred) and Kind (error category). Failing status codes returned by
// foreign calls are reported as *StatusError carrying the code and a resolved message.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseConstruct, errors.KindUninstantiable).
//		GoType("proxy.Proxy").
//		Detail("type is abstract").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Disposed(errors.PhaseDispatch, "*sample.Value")
//	err := errors.Status("IValue.GetValue", code)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
