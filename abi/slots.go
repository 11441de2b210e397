package abi

// Foundation slots shared by every contract, in vtable order.
const (
	SlotQueryInterface = 0
	SlotAddRef         = 1
	SlotRelease        = 2

	// FirstContractSlot is the index of the first contract-specific slot.
	FirstContractSlot = 3
)
