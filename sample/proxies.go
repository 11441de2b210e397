package sample

import (
	"github.com/wippyai/vtable-runtime/enum"
	"github.com/wippyai/vtable-runtime/proxy"
)

// Value is a proxy for IValue.
type Value struct {
	proxy.Object
}

func (v *Value) GetValue() (int32, error) {
	out, st, err := v.CallOut(SlotGetValue)
	if err != nil {
		return 0, err
	}
	if err := st.Err("IValue.GetValue"); err != nil {
		return 0, err
	}
	return int32(out), nil
}

func (v *Value) GetName() (string, error) {
	return v.CallText(SlotGetName)
}

// Controller is a proxy for IController.
type Controller struct {
	proxy.Object
}

// Continue resumes the paused foreign side.
func (c *Controller) Continue() error {
	st, err := c.Call(SlotContinue)
	if err != nil {
		return err
	}
	return st.Err("IController.Continue")
}

// ValueEnum is a proxy for an enumeration of IValue.
type ValueEnum struct {
	enum.Cursor
}

// Values returns an adapter over an independent reference to the enumeration.
func (e *ValueEnum) Values() (*enum.Adapter[*Value], error) {
	return enum.FromProxy[*Value](e)
}

// EventSource is a proxy for IEventSource.
type EventSource struct {
	proxy.Object
}

// Advise subscribes the sink object at ptr and returns a cookie for Unadvise.
func (s *EventSource) Advise(sink uintptr) (uint32, error) {
	out, st, err := s.CallOut(SlotAdvise, sink)
	if err != nil {
		return 0, err
	}
	if err := st.Err("IEventSource.Advise"); err != nil {
		return 0, err
	}
	return uint32(out), nil
}

func (s *EventSource) Unadvise(cookie uint32) error {
	st, err := s.Call(SlotUnadvise, uintptr(cookie))
	if err != nil {
		return err
	}
	return st.Err("IEventSource.Unadvise")
}
