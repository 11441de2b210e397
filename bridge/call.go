package bridge

import (
	vtruntime "github.com/wippyai/vtable-runtime"
	"github.com/wippyai/vtable-runtime/abi"
	"github.com/wippyai/vtable-runtime/errors"
	"github.com/wippyai/vtable-runtime/proxy"
)

// Call is one incoming foreign call. It is valid only until the handler returns.
type Call struct {
	Bridge    *Bridge
	Interface *Interface
	Method    *Method
	Args      []uintptr
	host      *Host
	done      []func()
}

// Arg returns argument i, counting after the object pointer.
func (c *Call) Arg(i int) uintptr {
	if i < 0 || i >= len(c.Args) {
		return 0
	}
	return c.Args[i]
}

// Platform returns the platform the call arrived through.
func (c *Call) Platform() vtruntime.Platform {
	return c.host.p
}

// Factory returns the factory for wrapping object arguments.
func (c *Call) Factory() *proxy.Factory {
	return c.host.factory
}

// Default answers with the host policy. Handlers that decline to act return it.
func (c *Call) Default() abi.Status {
	return c.host.policy.Unhandled(c)
}

// Defer runs fn after the handler returns, in reverse order of registration.
func (c *Call) Defer(fn func()) {
	c.done = append(c.done, fn)
}

// SetOut writes v to the out parameter at argument i.
func (c *Call) SetOut(i int, v uintptr) abi.Status {
	ptr := c.Arg(i)
	if ptr == 0 {
		return abi.EPointer
	}
	c.host.p.WritePtr(ptr, v)
	return abi.OK
}

// SetOutU32 writes a 32-bit value to the out parameter at argument i.
func (c *Call) SetOutU32(i int, v uint32) abi.Status {
	ptr := c.Arg(i)
	if ptr == 0 {
		return abi.EPointer
	}
	c.host.p.WriteU32(ptr, v)
	return abi.OK
}

func (c *Call) finish() {
	for i := len(c.done) - 1; i >= 0; i-- {
		c.done[i]()
	}
	c.done = nil
}

// ProxyArg wraps object argument i as a T. The proxy holds its own reference and
// is closed when the handler returns; handlers that keep it must Dup it.
// A null argument yields the zero T.
func ProxyArg[T proxy.Proxy](c *Call, i int) (T, error) {
	ptr := c.Arg(i)
	v, err := proxy.Create[T](c.host.factory, ptr)
	if err != nil {
		var zero T
		return zero, err
	}
	if ptr != 0 {
		c.Defer(func() { _ = v.Close() })
	}
	return v, nil
}

// Text reads text argument i, scanning for its terminator within the host bound.
// A null or empty string reports ok=false.
func Text(c *Call, i int) (s string, ok bool, err error) {
	s, ok, err = abi.ReadTerminated(c.host.p, c.Arg(i), c.host.maxText)
	if err != nil {
		return "", false, errors.Wrap(errors.PhaseBridge, errors.KindInvalidData, err, "text argument")
	}
	return s, ok, nil
}
