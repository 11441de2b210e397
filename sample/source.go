package sample

import (
	"sort"
	"sync"

	"github.com/wippyai/vtable-runtime/abi"
	"github.com/wippyai/vtable-runtime/bridge"
	"github.com/wippyai/vtable-runtime/errors"
)

type advised struct {
	sink  uintptr
	sink2 uintptr // 0 when the sink lacks IEventSink2
}

// SourceServer is an IEventSource playing the foreign side: it keeps references
// to advised sinks and calls them when an event is raised.
type SourceServer struct {
	*bridge.Bridge
	host  *bridge.Host
	ctrl  *ControllerServer
	sinks map[uint32]advised
	next  uint32
	mu    sync.Mutex
}

// NewSourceServer publishes an IEventSource whose events carry ctrl.
func NewSourceServer(h *bridge.Host, ctrl *ControllerServer) (*SourceServer, error) {
	s := &SourceServer{host: h, ctrl: ctrl, sinks: make(map[uint32]advised)}
	b, err := h.New(bridge.Interface{
		Name: "IEventSource",
		IID:  IIDEventSource,
		Methods: []bridge.Method{
			{Name: "Advise", Arity: 2, Fn: s.advise},
			{Name: "Unadvise", Arity: 1, Fn: s.unadvise},
		},
	})
	if err != nil {
		return nil, err
	}
	s.Bridge = b
	return s, nil
}

func (s *SourceServer) advise(c *bridge.Call) abi.Status {
	if c.Arg(0) == 0 {
		return abi.EPointer
	}
	d := s.host.Factory().Dispatcher()
	sink, st := d.QueryInterface(c.Arg(0), IIDEventSink)
	if st.Failed() {
		return st
	}
	sink2, st2 := d.QueryInterface(c.Arg(0), IIDEventSink2)
	if st2.Failed() {
		sink2 = 0
	}

	s.mu.Lock()
	s.next++
	cookie := s.next
	s.sinks[cookie] = advised{sink: sink, sink2: sink2}
	s.mu.Unlock()

	return c.SetOutU32(1, cookie)
}

func (s *SourceServer) unadvise(c *bridge.Call) abi.Status {
	s.mu.Lock()
	a, ok := s.sinks[uint32(c.Arg(0))]
	delete(s.sinks, uint32(c.Arg(0)))
	s.mu.Unlock()
	if !ok {
		return abi.EInvalidArg
	}
	s.release(a)
	return abi.OK
}

func (s *SourceServer) release(a advised) {
	d := s.host.Factory().Dispatcher()
	d.Release(a.sink)
	if a.sink2 != 0 {
		d.Release(a.sink2)
	}
}

// Sinks returns the number of advised sinks.
func (s *SourceServer) Sinks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sinks)
}

func (s *SourceServer) snapshot() []advised {
	s.mu.Lock()
	defer s.mu.Unlock()
	cookies := make([]uint32, 0, len(s.sinks))
	for c := range s.sinks {
		cookies = append(cookies, c)
	}
	sort.Slice(cookies, func(i, j int) bool { return cookies[i] < cookies[j] })
	out := make([]advised, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, s.sinks[c])
	}
	return out
}

// RaiseMessage calls OnMessage on every sink, in advise order.
func (s *SourceServer) RaiseMessage(sender, text string) ([]abi.Status, error) {
	args, free, err := s.stageTexts(sender, text)
	if err != nil {
		return nil, err
	}
	defer free()
	return s.raise(SlotOnMessage, false, args...), nil
}

// RaiseExit calls OnExit on every sink.
func (s *SourceServer) RaiseExit(code uint32) []abi.Status {
	return s.raise(SlotOnExit, false, uintptr(code))
}

// RaiseLog calls OnLog on the sinks that implement IEventSink2.
func (s *SourceServer) RaiseLog(level uint32, text string) ([]abi.Status, error) {
	args, free, err := s.stageTexts(text)
	if err != nil {
		return nil, err
	}
	defer free()
	return s.raise(SlotOnLog, true, uintptr(level), args[0]), nil
}

func (s *SourceServer) raise(slot int, needSink2 bool, args ...uintptr) []abi.Status {
	d := s.host.Factory().Dispatcher()
	ctrl := s.ctrl.Ptr()
	var out []abi.Status
	for _, a := range s.snapshot() {
		target := a.sink
		if needSink2 {
			if a.sink2 == 0 {
				continue
			}
			target = a.sink2
		}
		out = append(out, d.Call(target, slot, append([]uintptr{ctrl}, args...)...))
	}
	return out
}

func (s *SourceServer) stageTexts(texts ...string) ([]uintptr, func(), error) {
	p := s.host.Factory().Platform()
	var ptrs []uintptr
	free := func() {
		for _, ptr := range ptrs {
			p.Free(ptr)
		}
	}
	for _, t := range texts {
		units, err := abi.EncodeUTF16(t)
		if err != nil {
			free()
			return nil, nil, err
		}
		ptr, err := p.Alloc(uintptr(len(units) + 2))
		if err != nil {
			free()
			return nil, nil, errors.AllocationFailed(errors.PhaseText, uintptr(len(units)+2), err)
		}
		p.Write(ptr, append(units, 0, 0))
		ptrs = append(ptrs, ptr)
	}
	return ptrs, free, nil
}

// Close drops every advised sink and disposes the source.
func (s *SourceServer) Close() error {
	s.mu.Lock()
	sinks := s.sinks
	s.sinks = make(map[uint32]advised)
	s.mu.Unlock()

	for _, a := range sinks {
		s.release(a)
	}
	return s.Bridge.Close()
}
