package resource

import (
	"sync"

	"github.com/wippyai/vtable-runtime/errors"
)

// store is the slot array behind a Table. Freed handles are recycled LIFO.
type store struct {
	entries  []slot
	freeList []Handle
	live     int
	mu       sync.RWMutex
	closed   bool
}

type slot struct {
	value any
	ptr   uintptr
	kind  Kind
	valid bool
}

func newStore() *store {
	return &store{
		entries:  make([]slot, 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

func (s *store) create(kind Kind, ptr uintptr, value any) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, errors.Disposed(errors.PhaseBind, "resource.Table")
	}

	e := slot{kind: kind, ptr: ptr, value: value, valid: true}
	s.live++

	if n := len(s.freeList); n > 0 {
		h := s.freeList[n-1]
		s.freeList = s.freeList[:n-1]
		s.entries[h-1] = e
		return h, nil
	}

	s.entries = append(s.entries, e)
	return Handle(len(s.entries)), nil
}

// at returns the slot for h. Caller holds mu.
func (s *store) at(h Handle) *slot {
	if h == 0 || int(h) > len(s.entries) {
		return nil
	}
	e := &s.entries[h-1]
	if !e.valid {
		return nil
	}
	return e
}

func (s *store) get(h Handle) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e := s.at(h)
	if e == nil {
		return Entry{}, false
	}
	return Entry{Handle: h, Kind: e.kind, Ptr: e.ptr, Value: e.value}, true
}

func (s *store) drop(h Handle) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.at(h)
	if e == nil {
		return Entry{}, false
	}
	out := Entry{Handle: h, Kind: e.kind, Ptr: e.ptr, Value: e.value}
	*e = slot{}
	s.freeList = append(s.freeList, h)
	s.live--
	return out, true
}

// drain marks the store closed and hands back everything still live.
func (s *store) drain() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var out []Entry
	for i, e := range s.entries {
		if e.valid {
			out = append(out, Entry{Handle: Handle(i + 1), Kind: e.kind, Ptr: e.ptr, Value: e.value})
		}
	}
	s.entries = nil
	s.freeList = nil
	s.live = 0
	return out
}

func (s *store) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live
}

func (s *store) each(fn func(Entry) bool) {
	s.mu.RLock()
	snapshot := make([]Entry, 0, s.live)
	for i, e := range s.entries {
		if e.valid {
			snapshot = append(snapshot, Entry{Handle: Handle(i + 1), Kind: e.kind, Ptr: e.ptr, Value: e.value})
		}
	}
	s.mu.RUnlock()

	for _, e := range snapshot {
		if !fn(e) {
			return
		}
	}
}
