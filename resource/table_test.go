package resource

import (
	"errors"
	"sync"
	"testing"
)

type recorder struct {
	events []Event
	mu     sync.Mutex
}

func (r *recorder) OnResourceEvent(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

type closer struct {
	err    error
	closed int
}

func (c *closer) Close() error {
	c.closed++
	return c.err
}

func TestTable_Basic(t *testing.T) {
	table := NewTable()

	h := table.Insert(KindProxy, 0x1000, "obj")
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}

	e, ok := table.Get(h)
	if !ok {
		t.Fatal("Get failed")
	}
	if e.Value != "obj" || e.Ptr != 0x1000 || e.Kind != KindProxy {
		t.Fatalf("Unexpected entry %+v", e)
	}

	if _, ok := table.Remove(h); !ok {
		t.Fatal("Remove failed")
	}
	if _, ok := table.Remove(h); ok {
		t.Fatal("Second Remove should fail")
	}
	if table.Len() != 0 {
		t.Fatalf("Expected Len() == 0, got %d", table.Len())
	}
}

func TestTable_InvalidHandles(t *testing.T) {
	table := NewTable()

	if _, ok := table.Get(0); ok {
		t.Error("Handle 0 should be invalid")
	}
	if _, ok := table.Get(99); ok {
		t.Error("Out of range handle should be invalid")
	}
	if _, ok := table.Remove(0); ok {
		t.Error("Remove(0) should fail")
	}
}

func TestTable_HandleReuse(t *testing.T) {
	table := NewTable()

	h1 := table.Insert(KindProxy, 1, nil)
	h2 := table.Insert(KindProxy, 2, nil)
	table.Remove(h1)

	h3 := table.Insert(KindBridge, 3, nil)
	if h3 != h1 {
		t.Fatalf("Expected freed handle %d to be reused, got %d", h1, h3)
	}
	if h2 == h3 {
		t.Fatal("Live handle reused")
	}
}

func TestTable_CountByKind(t *testing.T) {
	table := NewTable()
	table.Insert(KindProxy, 1, nil)
	table.Insert(KindProxy, 2, nil)
	table.Insert(KindBridge, 3, nil)

	if n := table.Count(KindProxy); n != 2 {
		t.Errorf("Expected 2 proxies, got %d", n)
	}
	if n := table.Count(KindBridge); n != 1 {
		t.Errorf("Expected 1 bridge, got %d", n)
	}
	if n := table.Count(KindStaged); n != 0 {
		t.Errorf("Expected 0 staged, got %d", n)
	}
}

func TestTable_Observer(t *testing.T) {
	table := NewTable()
	obs := &recorder{}
	cancel := table.Subscribe(obs)

	h := table.Insert(KindProxy, 0x10, nil)
	table.Remove(h)
	h = table.Insert(KindProxy, 0x20, nil)
	table.Leak(h)

	want := []EventType{EventCreated, EventDropped, EventCreated, EventLeaked}
	if len(obs.events) != len(want) {
		t.Fatalf("Expected %d events, got %d", len(want), len(obs.events))
	}
	for i, typ := range want {
		if obs.events[i].Type != typ {
			t.Errorf("event %d: expected %s, got %s", i, typ, obs.events[i].Type)
		}
	}
	if obs.events[3].Ptr != 0x20 {
		t.Errorf("Leak event carries wrong pointer 0x%x", obs.events[3].Ptr)
	}

	cancel()
	cancel()
	table.Insert(KindProxy, 0x30, nil)
	if len(obs.events) != len(want) {
		t.Fatal("Cancelled observer still notified")
	}
}

func TestTable_LeakCounters(t *testing.T) {
	table := NewTable()
	table.Leak(table.Insert(KindProxy, 1, nil))
	table.Leak(table.Insert(KindProxy, 2, nil))
	table.Remove(table.Insert(KindProxy, 3, nil))

	if n := table.Leaked(KindProxy); n != 2 {
		t.Errorf("Expected 2 leaks, got %d", n)
	}
	if n := table.Leaked(KindBridge); n != 0 {
		t.Errorf("Expected 0 bridge leaks, got %d", n)
	}
}

func TestTable_Close(t *testing.T) {
	table := NewTable()
	ok := &closer{}
	bad := &closer{err: errors.New("boom")}
	table.Insert(KindProxy, 1, ok)
	table.Insert(KindBridge, 2, bad)
	table.Insert(KindStaged, 3, "plain")

	err := table.Close()
	if err == nil || err.Error() != "boom" {
		t.Fatalf("Expected combined error boom, got %v", err)
	}
	if ok.closed != 1 || bad.closed != 1 {
		t.Fatal("Closers not called exactly once")
	}
	if table.Len() != 0 {
		t.Fatal("Table not empty after Close")
	}
	if h := table.Insert(KindProxy, 4, nil); h != 0 {
		t.Fatal("Insert after Close should return 0")
	}
	if err := table.Close(); err != nil {
		t.Fatalf("Second Close: %v", err)
	}
}

func TestTable_Each(t *testing.T) {
	table := NewTable()
	for i := range 5 {
		table.Insert(KindProxy, uintptr(i+1), i)
	}

	seen := 0
	table.Each(func(e Entry) bool {
		seen++
		return seen < 3
	})
	if seen != 3 {
		t.Fatalf("Expected early stop after 3, got %d", seen)
	}
}

func TestTable_Concurrent(t *testing.T) {
	table := NewTable()
	var wg sync.WaitGroup

	for i := range 50 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			h := table.Insert(KindProxy, uintptr(n+1), n)
			if h == 0 {
				t.Error("Insert failed")
				return
			}
			if _, ok := table.Get(h); !ok {
				t.Error("Get failed")
			}
			table.Remove(h)
		}(i)
	}
	wg.Wait()

	if table.Len() != 0 {
		t.Fatalf("Expected empty table, got %d", table.Len())
	}
}
