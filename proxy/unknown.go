package proxy

import "github.com/wippyai/vtable-runtime/abi"

// Unknown is a proxy speaking only the foundation slots.
type Unknown struct {
	Object
}

func init() {
	Register(abi.IIDUnknown, func() *Unknown { return &Unknown{} })
}
