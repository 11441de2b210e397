package enum

import (
	"iter"

	"go.uber.org/multierr"

	"github.com/wippyai/vtable-runtime/errors"
	"github.com/wippyai/vtable-runtime/proxy"
)

// Adapter turns a foreign enumerator into Go sequences of typed proxies.
// Every proxy it produces is owned by the consumer, who must Close it.
type Adapter[T proxy.Proxy] struct {
	cursor *Cursor
}

// New wraps c. The adapter takes ownership of the cursor.
func New[T proxy.Proxy](c *Cursor) *Adapter[T] {
	return &Adapter[T]{cursor: c}
}

// FromPointer binds an enumerator pointer and wraps it. A null pointer is an error.
func FromPointer[T proxy.Proxy](f *proxy.Factory, ptr uintptr) (*Adapter[T], error) {
	if ptr == 0 {
		return nil, errors.NullPointer(errors.PhaseEnumerate, "enumerator")
	}
	c, err := proxy.Create[*Cursor](f, ptr)
	if err != nil {
		return nil, err
	}
	return New[T](c), nil
}

// FromProxy wraps the enumerator behind any proxy speaking the enumeration layout.
// The source proxy stays owned by the caller.
func FromProxy[T proxy.Proxy](src proxy.Proxy) (*Adapter[T], error) {
	ptr, err := src.Raw()
	if err != nil {
		return nil, err
	}
	o, ok := src.(interface{ Factory() *proxy.Factory })
	if !ok || o.Factory() == nil {
		return nil, errors.InvalidInput(errors.PhaseEnumerate, "source proxy has no factory")
	}
	return FromPointer[T](o.Factory(), ptr)
}

// Cursor returns the underlying cursor.
func (a *Adapter[T]) Cursor() *Cursor {
	return a.cursor
}

// Count reports the number of items the enumerator claims to hold.
func (a *Adapter[T]) Count() (int, error) {
	n, err := a.cursor.Count()
	return int(n), err
}

// ToSlice fetches everything with a single Next call sized by the count. The
// result is shrunk when the enumerator delivers fewer items than it counted.
func (a *Adapter[T]) ToSlice() ([]T, error) {
	n, err := a.cursor.Count()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []T{}, nil
	}

	c, err := a.cursor.Clone()
	if err != nil {
		return nil, err
	}
	defer c.Close()

	f := c.Factory()
	p := f.Platform()
	size := p.PtrSize()
	buf, err := p.Alloc(uintptr(n) * size)
	if err != nil {
		return nil, errors.AllocationFailed(errors.PhaseEnumerate, uintptr(n)*size, err)
	}
	defer p.Free(buf)

	fetched, st, err := c.Next(buf, n)
	if err != nil {
		return nil, err
	}

	items := make([]T, 0, fetched)
	var made []T
	for i := range fetched {
		ptr := p.ReadPtr(buf + uintptr(i)*size)
		v, err := proxy.Adopt[T](f, ptr, st)
		if err != nil {
			// the remaining pointers still carry transferred references
			for j := i + 1; j < fetched; j++ {
				if rest := p.ReadPtr(buf + uintptr(j)*size); rest != 0 {
					f.Dispatcher().Release(rest)
				}
			}
			return nil, multierr.Append(err, closeAll(made))
		}
		if ptr != 0 {
			made = append(made, v)
		}
		items = append(items, v)
	}
	return items, nil
}

// All yields items lazily. Each traversal clones the cursor, so traversals are
// independent of each other and a new traversal always starts from the position
// the adapter's cursor is at.
func (a *Adapter[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T

		c, err := a.cursor.Clone()
		if err != nil {
			yield(zero, err)
			return
		}
		defer c.Close()

		f := c.Factory()
		p := f.Platform()
		cell, err := p.Alloc(p.PtrSize())
		if err != nil {
			yield(zero, errors.AllocationFailed(errors.PhaseEnumerate, p.PtrSize(), err))
			return
		}
		defer p.Free(cell)

		for {
			p.WritePtr(cell, 0)
			fetched, st, err := c.Next(cell, 1)
			if err != nil {
				yield(zero, err)
				return
			}
			if fetched == 0 {
				return
			}
			v, err := proxy.Adopt[T](f, p.ReadPtr(cell), st)
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

// Close releases the adapter's cursor.
func (a *Adapter[T]) Close() error {
	return a.cursor.Close()
}

func closeAll[T proxy.Proxy](items []T) error {
	var err error
	for _, v := range items {
		err = multierr.Append(err, v.Close())
	}
	return err
}
