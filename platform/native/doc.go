// Package native runs the vtable runtime against real in-process foreign code.
//
// Calls go through purego, so no C toolchain is needed. Memory handed to foreign
// code is pinned Go memory; callbacks are purego trampolines, which the process can
// create only a bounded number of and never frees. The bridge package shares one
// trampoline per (contract, slot) for that reason.
//
// Supported targets are darwin, windows, and linux on amd64 and arm64. Elsewhere
// Open reports an unsupported error and Available is false.
package native
