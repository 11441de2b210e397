// Package sample holds a handful of illustrative contracts and host-side servers
// implementing them through the bridge. Tests and the probe CLI use the servers
// as stand-ins for a real foreign process.
package sample

import (
	"github.com/wippyai/vtable-runtime/abi"
	"github.com/wippyai/vtable-runtime/proxy"
)

var (
	IIDValue       = abi.MustGUID("{3F2A6C1E-9B0D-4E57-8A14-6D2C0B7E9F01}")
	IIDController  = abi.MustGUID("{3F2A6C1E-9B0D-4E57-8A14-6D2C0B7E9F02}")
	IIDValueEnum   = abi.MustGUID("{3F2A6C1E-9B0D-4E57-8A14-6D2C0B7E9F03}")
	IIDEventSink   = abi.MustGUID("{3F2A6C1E-9B0D-4E57-8A14-6D2C0B7E9F04}")
	IIDEventSink2  = abi.MustGUID("{3F2A6C1E-9B0D-4E57-8A14-6D2C0B7E9F05}")
	IIDEventSource = abi.MustGUID("{3F2A6C1E-9B0D-4E57-8A14-6D2C0B7E9F06}")
)

// IValue slots.
const (
	SlotGetValue = abi.FirstContractSlot + iota
	SlotGetName
)

// IController slots.
const (
	SlotContinue = abi.FirstContractSlot
)

// IEventSink and IEventSink2 slots. IEventSink2 extends IEventSink.
const (
	SlotOnMessage = abi.FirstContractSlot + iota
	SlotOnExit
	SlotOnLog
)

// IEventSource slots.
const (
	SlotAdvise = abi.FirstContractSlot + iota
	SlotUnadvise
)

func init() {
	proxy.Register(IIDValue, func() *Value { return &Value{} })
	proxy.Register(IIDController, func() *Controller { return &Controller{} })
	proxy.Register(IIDValueEnum, func() *ValueEnum { return &ValueEnum{} })
	proxy.Register(IIDEventSource, func() *EventSource { return &EventSource{} })
}
