// Package vtruntime provides Go interop with reference-counted, vtable-based foreign objects.
//
// A foreign object is reachable only through a pointer to memory whose first word points
// at a table of function pointers. The first three slots of every table are the
// capability query, reference increment and reference decrement entries; the remaining
// slots follow the declaration order of the contract.
//
// # Architecture Overview
//
//	vtruntime/           Root package with Memory, Allocator, Invoker and Platform interfaces
//	├── abi/             Status codes, capability ids, vtable call dispatcher, UTF-16 text
//	├── platform/
//	│   ├── native/      In-process platform backed by purego (no cgo)
//	│   └── sim/         Simulated address space for tests and tooling
//	├── proxy/           Reference-holding proxies and the typed proxy factory
//	├── enum/            Enumeration contract adapter (slices and iterators)
//	├── marshal/         Scoped native pointer arrays for outgoing calls
//	├── bridge/          Native-callable vtables backed by Go handlers
//	├── resource/        Live reference table with lifecycle observers
//	├── errors/          Structured error types
//	└── sample/          Illustrative contracts used by tests and cmd/vtprobe
//
// # Quick Start
//
//	p, err := native.Open()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	f := proxy.NewFactory(p)
//
//	// ptr came back from a foreign call
//	v, err := proxy.Create[*sample.Value](f, ptr)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer v.Close()
//
//	n, err := v.GetValue()
//
// # Callbacks
//
// Foreign code calls back into Go through a bridge:
//
//	host := bridge.NewHost(f)
//	b, err := host.New(bridge.Interface{
//	    Name: "IEventSink",
//	    IID:  sinkIID,
//	    Methods: []bridge.Method{
//	        {Name: "OnExit", Arity: 2, Fn: onExit},
//	    },
//	})
//	defer b.Close()
//	registerSink(b.Ptr())
package vtruntime
