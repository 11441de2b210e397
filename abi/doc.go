// Package abi defines the binary boundary with foreign objects.
//
// # Vtable Layout
//
// A foreign object pointer addresses memory whose first word points at its vtable:
//
//	object:  [vtable*] [implementation data...]
//	vtable:  [QueryInterface] [AddRef] [Release] [contract slot 3] [contract slot 4] ...
//
// Slots must follow the contract's declaration order exactly; reordering corrupts
// every call made through the table.
//
// # Calls
//
// Dispatcher performs one indirect call per invocation, passing the object pointer as
// the first argument:
//
//	d := abi.NewDispatcher(platform)
//	st := d.Call(ptr, abi.FirstContractSlot, arg)
//	if err := st.Err("IThing.DoIt"); err != nil {
//	    return err
//	}
//
//	// getter form: an out cell is appended as the last argument
//	v, st := d.CallOut(ptr, abi.FirstContractSlot+1)
//
// # Status Codes
//
// Status is a 32-bit signed value: zero (OK) and small positives (False) are
// successes, negatives are failures. Status.Err converts failures into
// *errors.StatusError with a resolved message.
//
// # Capability Identifiers
//
// GUID holds a 128-bit contract id in native layout and compares with full-width
// equality:
//
//	iid := abi.MustGUID("{8BB7B5C3-5C8F-4B36-9E2C-4C6E6A2B1F10}")
//
// # Text
//
// Text parameters are UTF-16. Inbound text is scanned for its terminator with
// ReadTerminated; outbound text uses caller-provided capacity with WriteText.
package abi
