package sample

import (
	"sync"
	"sync/atomic"

	"github.com/wippyai/vtable-runtime/abi"
	"github.com/wippyai/vtable-runtime/bridge"
	"github.com/wippyai/vtable-runtime/enum"
)

// NewValueServer publishes an IValue answering value and name.
func NewValueServer(h *bridge.Host, value int32, name string) (*bridge.Bridge, error) {
	return h.New(bridge.Interface{
		Name: "IValue",
		IID:  IIDValue,
		Methods: []bridge.Method{
			{Name: "GetValue", Arity: 1, Fn: func(c *bridge.Call) abi.Status {
				return c.SetOutU32(0, uint32(value))
			}},
			{Name: "GetName", Arity: 3, Fn: func(c *bridge.Call) abi.Status {
				return serveText(c, name)
			}},
		},
	})
}

// serveText answers a text getter (buffer, capacity, *needed).
func serveText(c *bridge.Call, s string) abi.Status {
	buf, capacity := c.Arg(0), uint32(c.Arg(1))
	needed, err := abi.WriteText(c.Platform(), buf, capacity, s)
	if err != nil {
		return abi.EInvalidArg
	}
	if st := c.SetOutU32(2, needed); st.Failed() {
		return st
	}
	if buf != 0 && capacity < needed {
		return abi.EInsufficientBuffer
	}
	return abi.OK
}

// ControllerServer is an IController counting how often it was resumed.
type ControllerServer struct {
	*bridge.Bridge
	continues atomic.Int32
}

// NewControllerServer publishes an IController.
func NewControllerServer(h *bridge.Host) (*ControllerServer, error) {
	s := &ControllerServer{}
	b, err := h.New(bridge.Interface{
		Name: "IController",
		IID:  IIDController,
		Methods: []bridge.Method{
			{Name: "Continue", Fn: func(*bridge.Call) abi.Status {
				s.continues.Add(1)
				return abi.OK
			}},
		},
	})
	if err != nil {
		return nil, err
	}
	s.Bridge = b
	return s, nil
}

// Continues returns how many times Continue was called.
func (s *ControllerServer) Continues() int32 {
	return s.continues.Load()
}

// NewEnumServer publishes an enumeration over item pointers. The caller keeps
// the items alive for as long as the enumeration or any clone of it exists.
func NewEnumServer(h *bridge.Host, items []uintptr) (*bridge.Bridge, error) {
	return newCursor(h, items, 0)
}

func newCursor(h *bridge.Host, items []uintptr, start int) (*bridge.Bridge, error) {
	var mu sync.Mutex
	pos := start
	d := h.Factory().Dispatcher()

	return h.New(bridge.Interface{
		Name:    "IValueEnum",
		IID:     IIDValueEnum,
		Aliases: []abi.GUID{enum.IIDCursor},
		Methods: []bridge.Method{
			{Name: "Skip", Arity: 1, Fn: func(c *bridge.Call) abi.Status {
				mu.Lock()
				defer mu.Unlock()
				pos += int(c.Arg(0))
				if pos > len(items) {
					pos = len(items)
					return abi.False
				}
				return abi.OK
			}},
			{Name: "Reset", Fn: func(*bridge.Call) abi.Status {
				mu.Lock()
				pos = 0
				mu.Unlock()
				return abi.OK
			}},
			{Name: "Clone", Arity: 1, Fn: func(c *bridge.Call) abi.Status {
				mu.Lock()
				at := pos
				mu.Unlock()
				clone, err := newCursor(h, items, at)
				if err != nil {
					return abi.EOutOfMemory
				}
				return c.SetOut(0, clone.Ptr())
			}},
			{Name: "GetCount", Arity: 1, Fn: func(c *bridge.Call) abi.Status {
				return c.SetOutU32(0, uint32(len(items)))
			}},
			{Name: "Next", Arity: 3, Fn: func(c *bridge.Call) abi.Status {
				want, buf := int(c.Arg(0)), c.Arg(1)
				if buf == 0 && want > 0 {
					return abi.EPointer
				}
				p := c.Platform()

				mu.Lock()
				n := 0
				for n < want && pos < len(items) {
					d.AddRef(items[pos])
					p.WritePtr(buf+uintptr(n)*p.PtrSize(), items[pos])
					pos++
					n++
				}
				mu.Unlock()

				if c.Arg(2) != 0 {
					c.SetOutU32(2, uint32(n))
				}
				if n < want {
					return abi.False
				}
				return abi.OK
			}},
		},
	})
}
