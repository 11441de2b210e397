package resource

import (
	"sync"

	"go.uber.org/multierr"
)

// Table tracks live foreign references and publishes their lifecycle.
type Table struct {
	store     *store
	observers map[uint64]Observer
	nextObs   uint64
	obsMu     sync.RWMutex
	leaked    [KindStaged + 1]uint64
	leakMu    sync.Mutex
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		store:     newStore(),
		observers: make(map[uint64]Observer),
	}
}

// Insert tracks value and returns its handle, or 0 once the table is closed.
func (t *Table) Insert(kind Kind, ptr uintptr, value any) Handle {
	h, err := t.store.create(kind, ptr, value)
	if err != nil {
		return 0
	}
	t.notify(Event{
		Entry: Entry{Handle: h, Kind: kind, Ptr: ptr, Value: value},
		Type:  EventCreated,
	})
	return h
}

// Get returns the entry for h.
func (t *Table) Get(h Handle) (Entry, bool) {
	return t.store.get(h)
}

// Remove stops tracking h after an explicit release.
func (t *Table) Remove(h Handle) (Entry, bool) {
	return t.remove(h, EventDropped)
}

// Leak stops tracking h after the collector reclaimed it unreleased.
func (t *Table) Leak(h Handle) (Entry, bool) {
	e, ok := t.remove(h, EventLeaked)
	if ok {
		t.leakMu.Lock()
		t.leaked[e.Kind]++
		t.leakMu.Unlock()
	}
	return e, ok
}

func (t *Table) remove(h Handle, typ EventType) (Entry, bool) {
	e, ok := t.store.drop(h)
	if !ok {
		return Entry{}, false
	}
	t.notify(Event{Entry: e, Type: typ})
	return e, true
}

// Leaked returns how many references of kind were reclaimed without a release.
func (t *Table) Leaked(kind Kind) uint64 {
	if kind > KindStaged {
		return 0
	}
	t.leakMu.Lock()
	defer t.leakMu.Unlock()
	return t.leaked[kind]
}

// Len returns the number of tracked references.
func (t *Table) Len() int {
	return t.store.len()
}

// Count returns the number of tracked references of kind.
func (t *Table) Count(kind Kind) int {
	n := 0
	t.store.each(func(e Entry) bool {
		if e.Kind == kind {
			n++
		}
		return true
	})
	return n
}

// Each visits a snapshot of the tracked references until fn returns false.
func (t *Table) Each(fn func(Entry) bool) {
	t.store.each(fn)
}

// Subscribe registers o and returns a function that removes it.
func (t *Table) Subscribe(o Observer) (cancel func()) {
	t.obsMu.Lock()
	id := t.nextObs
	t.nextObs++
	t.observers[id] = o
	t.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.obsMu.Lock()
			delete(t.observers, id)
			t.obsMu.Unlock()
		})
	}
}

// Close stops accepting inserts and closes every tracked value implementing Closer.
// Errors from individual values are combined.
func (t *Table) Close() error {
	var err error
	for _, e := range t.store.drain() {
		if c, ok := e.Value.(Closer); ok {
			err = multierr.Append(err, c.Close())
		}
		t.notify(Event{Entry: e, Type: EventDropped})
	}
	return err
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	obs := make([]Observer, 0, len(t.observers))
	for _, o := range t.observers {
		obs = append(obs, o)
	}
	t.obsMu.RUnlock()

	for _, o := range obs {
		o.OnResourceEvent(e)
	}
}
