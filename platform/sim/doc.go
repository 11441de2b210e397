// Package sim provides a simulated foreign address space.
//
// Memory is carved from a bump allocator that never reuses addresses, and function
// pointers index a table of Go callbacks. Any access outside a live block, any call
// to an unknown address and any call with the wrong number of arguments panics with
// a *Fault, which makes lifetime and signature defects deterministic in tests.
//
//	p := sim.New()
//	fn, _ := p.NewCallback(1, func(args []uintptr) uintptr { return 42 })
//	p.Invoke(fn, this) // 42
//
// The platform also backs cmd/vtprobe when no native platform is available.
package sim
