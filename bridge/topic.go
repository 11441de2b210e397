package bridge

import (
	"sync"
	"sync/atomic"

	"github.com/wippyai/vtable-runtime/abi"
)

// Notification is embedded in multicast events to track whether any subscriber acted.
type Notification struct {
	Call    *Call
	handled atomic.Bool
}

// NewNotification starts a notification for an incoming call.
func NewNotification(c *Call) *Notification {
	return &Notification{Call: c}
}

// Handle marks the notification as acted on, so the default policy is skipped.
func (n *Notification) Handle() {
	n.handled.Store(true)
}

func (n *Notification) Handled() bool {
	return n.handled.Load()
}

// Event is what a Topic carries.
type Event interface {
	Handled() bool
}

// Topic fans an incoming call out to independent subscribers.
// Subscribers run synchronously, in no particular order, on the calling thread.
type Topic[E Event] struct {
	subs map[uint64]func(E)
	next uint64
	mu   sync.RWMutex
}

// Subscribe adds fn and returns a function removing it.
func (t *Topic[E]) Subscribe(fn func(E)) (cancel func()) {
	t.mu.Lock()
	if t.subs == nil {
		t.subs = make(map[uint64]func(E))
	}
	id := t.next
	t.next++
	t.subs[id] = fn
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
		})
	}
}

// Len returns the number of subscribers.
func (t *Topic[E]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}

// Publish delivers e to every subscriber and returns how many there were.
func (t *Topic[E]) Publish(e E) int {
	t.mu.RLock()
	fns := make([]func(E), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.mu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
	return len(fns)
}

// Dispatch publishes e for c and falls back to the host policy when no
// subscriber handled it.
func Dispatch[E Event](c *Call, t *Topic[E], e E) abi.Status {
	t.Publish(e)
	if e.Handled() {
		return abi.OK
	}
	return c.Default()
}
