package bridge

import "github.com/wippyai/vtable-runtime/abi"

// Policy answers calls no handler acted on. It must never block: the foreign side
// is waiting on the result.
type Policy interface {
	Unhandled(c *Call) abi.Status
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(c *Call) abi.Status

func (f PolicyFunc) Unhandled(c *Call) abi.Status { return f(c) }

// Resume lets the foreign side continue as if the call succeeded.
var Resume Policy = PolicyFunc(func(*Call) abi.Status { return abi.OK })
