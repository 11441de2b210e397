package proxy

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/wippyai/vtable-runtime/abi"
	"github.com/wippyai/vtable-runtime/errors"
)

// strategy is how one proxy type is constructed: either a constructor or a fixed failure.
type strategy struct {
	ctor func() Proxy
	err  *errors.Error
	name string
	iid  abi.GUID
}

var (
	// registered holds what generated code declared in init.
	registered sync.Map // reflect.Type -> *strategy

	// resolved memoizes the strategy per requested type, first writer wins.
	resolved sync.Map // reflect.Type -> *strategy
)

// Register declares how to construct T and which capability id it speaks.
// It is meant for init functions; registering a type twice panics.
func Register[T Proxy](iid abi.GUID, ctor func() T) {
	t := reflect.TypeFor[T]()
	if ctor == nil {
		panic(fmt.Sprintf("proxy: nil constructor for %s", t))
	}
	s := &strategy{
		name: t.String(),
		iid:  iid,
		ctor: func() Proxy { return ctor() },
	}
	if _, loaded := registered.LoadOrStore(t, s); loaded {
		panic(fmt.Sprintf("proxy: %s registered twice", t))
	}
}

// IIDOf returns the capability id registered for T.
func IIDOf[T Proxy]() (abi.GUID, error) {
	s := resolve(reflect.TypeFor[T]())
	if s.err != nil {
		return abi.GUID{}, s.err
	}
	return s.iid, nil
}

func resolve(t reflect.Type) *strategy {
	if s, ok := resolved.Load(t); ok {
		return s.(*strategy)
	}
	s, _ := resolved.LoadOrStore(t, compute(t))
	return s.(*strategy)
}

func compute(t reflect.Type) *strategy {
	name := t.String()
	if t.Kind() == reflect.Interface {
		return &strategy{name: name, err: errors.Uninstantiable(name, "interface types have no bare constructor")}
	}
	s, ok := registered.Load(t)
	if !ok {
		return &strategy{name: name, err: errors.Uninstantiable(name, "no constructor registered")}
	}
	return s.(*strategy)
}
