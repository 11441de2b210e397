package resource

// Handle identifies a live reference in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Kind classifies what a tracked reference is.
type Kind uint8

const (
	KindProxy Kind = iota + 1
	KindBridge
	KindStaged
)

func (k Kind) String() string {
	switch k {
	case KindProxy:
		return "proxy"
	case KindBridge:
		return "bridge"
	case KindStaged:
		return "staged"
	default:
		return "unknown"
	}
}

// EventType identifies a lifecycle transition.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
	// EventLeaked marks a reference reclaimed by the collector instead of an explicit release.
	EventLeaked
)

func (e EventType) String() string {
	switch e {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	case EventLeaked:
		return "leaked"
	default:
		return "unknown"
	}
}

// Entry is one tracked reference.
type Entry struct {
	Value  any
	Ptr    uintptr
	Handle Handle
	Kind   Kind
}

// Event is a lifecycle notification.
type Event struct {
	Entry
	Type EventType
}

// Observer receives lifecycle events. Observers run synchronously on the goroutine
// that caused the transition and must not call back into the table.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// Closer is implemented by tracked values that must be released when the table closes.
type Closer interface {
	Close() error
}
