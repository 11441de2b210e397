package enum

import (
	"github.com/wippyai/vtable-runtime/abi"
	"github.com/wippyai/vtable-runtime/proxy"
)

// Slots of the enumeration contract.
const (
	SlotSkip = abi.FirstContractSlot + iota
	SlotReset
	SlotClone
	SlotGetCount
	SlotNext
)

// IIDCursor identifies the generic enumeration contract. Typed enumerations share
// its layout under their own ids.
var IIDCursor = abi.MustGUID("{5B3F0C2E-8E51-4D2A-A7C4-1E9D6F0B3A21}")

func init() {
	proxy.Register(IIDCursor, func() *Cursor { return &Cursor{} })
}

// Cursor is a proxy over one foreign enumerator position.
type Cursor struct {
	proxy.Object
}

// Skip advances the position by n items.
func (c *Cursor) Skip(n uint32) error {
	st, err := c.Call(SlotSkip, uintptr(n))
	if err != nil {
		return err
	}
	return st.Err("Enum.Skip")
}

// Reset moves back to the first item.
func (c *Cursor) Reset() error {
	st, err := c.Call(SlotReset)
	if err != nil {
		return err
	}
	return st.Err("Enum.Reset")
}

// Clone returns an independent cursor at the same position.
func (c *Cursor) Clone() (*Cursor, error) {
	out, st, err := c.CallOut(SlotClone)
	if err != nil {
		return nil, err
	}
	if err := st.Err("Enum.Clone"); err != nil {
		return nil, err
	}
	return proxy.Adopt[*Cursor](c.Factory(), out, st)
}

// Count returns the total number of items.
func (c *Cursor) Count() (uint32, error) {
	out, st, err := c.CallOut(SlotGetCount)
	if err != nil {
		return 0, err
	}
	if err := st.Err("Enum.GetCount"); err != nil {
		return 0, err
	}
	return uint32(out), nil
}

// Next fills buf with up to n item pointers, each carrying a reference the caller
// now owns. False with fewer items marks the end.
func (c *Cursor) Next(buf uintptr, n uint32) (uint32, abi.Status, error) {
	out, st, err := c.CallOut(SlotNext, uintptr(n), buf)
	if err != nil {
		return 0, st, err
	}
	if st.Failed() {
		return 0, st, st.Err("Enum.Next")
	}
	return min(uint32(out), n), st, nil
}
