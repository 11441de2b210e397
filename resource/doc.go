// Package resource tracks live foreign references.
//
// Every proxy holding a reference, every bridge published to foreign code, and every
// staged array is recorded in a Table under a small integer handle. The table is
// bookkeeping only; it never calls foreign code itself.
//
//	table := resource.NewTable()
//	h := table.Insert(resource.KindProxy, ptr, obj)
//	defer table.Remove(h)
//
// # Observers
//
// Observers see every transition:
//
//	cancel := table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    log.Printf("%s %s 0x%x", e.Kind, e.Type, e.Ptr)
//	}))
//	defer cancel()
//
// EventLeaked is published when the collector reclaimed a reference its owner never
// released. Leaked counts those per kind.
//
// # Shutdown
//
// Close refuses further inserts and closes every tracked value implementing Closer,
// combining their errors.
package resource
