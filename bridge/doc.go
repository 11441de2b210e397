// Package bridge publishes Go implementations as vtable objects foreign code can call.
//
// # Layout
//
// A bridge implementing K interfaces owns one native block:
//
//	[vtbl* 0][id] ... [vtbl* K-1][id]   interface records, one per contract
//	[QI][AddRef][Release][m0][m1]...    vtable 0
//	...                                 vtable K-1
//
// An interface pointer is the address of its record. Slot functions are shared
// trampolines owned by the Host; they route each call back to its bridge by the
// pointer it arrived on.
//
// # Usage
//
//	host := bridge.NewHost(factory)
//	b, err := host.New(bridge.Interface{
//	    Name: "IEventSink",
//	    IID:  iidEventSink,
//	    Methods: []bridge.Method{
//	        {Name: "OnExit", Arity: 2, Fn: func(c *bridge.Call) abi.Status {
//	            ctrl, err := bridge.ProxyArg[*Controller](c, 0)
//	            ...
//	            return abi.OK
//	        }},
//	    },
//	})
//	defer b.Release()
//	source.Subscribe(b.Ptr())
//
// # Concurrency
//
// Foreign code may call any slot on any thread at any time, including while the
// bridge is being disposed. A call that loses that race answers not-connected;
// the block is freed only after running calls have returned. Handler panics are
// recovered and answered with E_UNEXPECTED.
//
// # Unhandled calls
//
// A nil Method.Fn, a handler returning Call.Default, and a multicast notification
// no subscriber handled all answer through the host Policy. The default policy,
// Resume, returns OK so foreign code is never left waiting.
package bridge
