package enum

import (
	"iter"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/vtable-runtime/abi"
	"github.com/wippyai/vtable-runtime/errors"
	"github.com/wippyai/vtable-runtime/platform/sim"
	"github.com/wippyai/vtable-runtime/proxy"
)

var iidItem = abi.MustGUID("{7A0B1C2D-3E4F-5061-7283-94A5B6C7D8E9}")

type item struct {
	proxy.Object
}

func (i *item) Index() int {
	out, _, err := i.CallOut(abi.FirstContractSlot)
	if err != nil {
		return -1
	}
	return int(out)
}

func init() {
	proxy.Register(iidItem, func() *item { return &item{} })
}

// fakeEnum is a foreign enumeration over simulated item objects.
type fakeEnum struct {
	p         *sim.Platform
	d         *abi.Dispatcher
	items     []*sim.Object
	cursors   []*sim.Object
	countBias int
	nextCalls atomic.Int32
}

func newFakeEnum(t *testing.T, n int) *fakeEnum {
	t.Helper()
	p := sim.New()
	e := &fakeEnum{p: p, d: abi.NewDispatcher(p)}
	for i := range n {
		obj, err := sim.NewObject(p, []abi.GUID{iidItem}, sim.Method{Arity: 2, Fn: func(args []uintptr) uintptr {
			p.WritePtr(args[1], uintptr(i))
			return abi.OK.Word()
		}})
		require.NoError(t, err)
		e.items = append(e.items, obj)
	}
	return e
}

func (e *fakeEnum) cursor(start int) *sim.Object {
	pos := start
	p := e.p
	obj, err := sim.NewObject(p, []abi.GUID{IIDCursor},
		sim.Method{Arity: 2, Fn: func(args []uintptr) uintptr { // Skip
			pos = min(pos+int(args[1]), len(e.items))
			return abi.OK.Word()
		}},
		sim.Method{Arity: 1, Fn: func([]uintptr) uintptr { // Reset
			pos = 0
			return abi.OK.Word()
		}},
		sim.Method{Arity: 2, Fn: func(args []uintptr) uintptr { // Clone
			p.WritePtr(args[1], e.cursor(pos).Ptr)
			return abi.OK.Word()
		}},
		sim.Method{Arity: 2, Fn: func(args []uintptr) uintptr { // GetCount
			p.WritePtr(args[1], uintptr(len(e.items)+e.countBias))
			return abi.OK.Word()
		}},
		sim.Method{Arity: 4, Fn: func(args []uintptr) uintptr { // Next
			e.nextCalls.Add(1)
			want, buf, fetched := int(args[1]), args[2], args[3]
			n := 0
			for n < want && pos < len(e.items) {
				ptr := e.items[pos].Ptr
				e.d.AddRef(ptr)
				p.WritePtr(buf+uintptr(n)*p.PtrSize(), ptr)
				pos++
				n++
			}
			p.WritePtr(fetched, uintptr(n))
			if n < want {
				return abi.False.Word()
			}
			return abi.OK.Word()
		}},
	)
	if err != nil {
		panic(err)
	}
	e.cursors = append(e.cursors, obj)
	return obj
}

func (e *fakeEnum) adapter(t *testing.T) (*Adapter[*item], *proxy.Factory, *sim.Object) {
	t.Helper()
	f := proxy.NewFactory(e.p)
	root := e.cursor(0)
	a, err := FromPointer[*item](f, root.Ptr)
	require.NoError(t, err)
	return a, f, root
}

func indexes(items []*item) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.Index()
	}
	return out
}

func TestToSliceEmptySkipsNext(t *testing.T) {
	e := newFakeEnum(t, 0)
	a, _, _ := e.adapter(t)
	defer a.Close()

	items, err := a.ToSlice()
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)
	assert.Equal(t, int32(0), e.nextCalls.Load())
}

func TestToSliceReturnsForeignOrder(t *testing.T) {
	e := newFakeEnum(t, 4)
	a, f, root := e.adapter(t)

	items, err := a.ToSlice()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, indexes(items))
	assert.Equal(t, int32(1), e.nextCalls.Load())
	for _, obj := range e.items {
		assert.Equal(t, int32(2), obj.Refs())
	}

	for _, it := range items {
		require.NoError(t, it.Close())
	}
	require.NoError(t, a.Close())

	for _, obj := range e.items {
		assert.Equal(t, int32(1), obj.Refs())
	}
	assert.Equal(t, int32(1), root.Refs())
	assert.Equal(t, 0, f.Live())
}

func TestToSliceShrinksToFetched(t *testing.T) {
	e := newFakeEnum(t, 3)
	e.countBias = 2
	a, _, _ := e.adapter(t)
	defer a.Close()

	n, err := a.Count()
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	items, err := a.ToSlice()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, indexes(items))
	for _, it := range items {
		it.Close()
	}
}

func TestAllIsLazyAndRestartable(t *testing.T) {
	e := newFakeEnum(t, 3)
	a, f, _ := e.adapter(t)
	defer a.Close()

	for range 2 {
		var got []int
		for it, err := range a.All() {
			require.NoError(t, err)
			got = append(got, it.Index())
			require.NoError(t, it.Close())
		}
		assert.Equal(t, []int{0, 1, 2}, got)
	}
	assert.Equal(t, 1, f.Live(), "only the adapter's own cursor stays live")

	for _, c := range e.cursors[1:] {
		assert.Equal(t, int32(0), c.Refs(), "traversal clones are released")
	}
}

func TestAllBreakReleasesClone(t *testing.T) {
	e := newFakeEnum(t, 5)
	a, _, _ := e.adapter(t)
	defer a.Close()

	for it, err := range a.All() {
		require.NoError(t, err)
		it.Close()
		break
	}
	require.Len(t, e.cursors, 2)
	assert.Equal(t, int32(0), e.cursors[1].Refs())
	assert.Equal(t, int32(1), e.nextCalls.Load())
}

func TestInterleavedTraversalsAreIndependent(t *testing.T) {
	e := newFakeEnum(t, 3)
	a, _, _ := e.adapter(t)
	defer a.Close()

	next1, stop1 := iter.Pull2(a.All())
	defer stop1()
	next2, stop2 := iter.Pull2(a.All())
	defer stop2()

	var got1, got2 []int
	for {
		it1, err1, ok1 := next1()
		it2, err2, ok2 := next2()
		require.Equal(t, ok1, ok2)
		if !ok1 {
			break
		}
		require.NoError(t, err1)
		require.NoError(t, err2)
		got1 = append(got1, it1.Index())
		got2 = append(got2, it2.Index())
		it1.Close()
		it2.Close()
	}
	assert.Equal(t, []int{0, 1, 2}, got1)
	assert.Equal(t, []int{0, 1, 2}, got2)
}

func TestCursorOperations(t *testing.T) {
	e := newFakeEnum(t, 4)
	a, _, _ := e.adapter(t)
	defer a.Close()

	c := a.Cursor()
	require.NoError(t, c.Skip(2))

	var got []int
	for it, err := range a.All() {
		require.NoError(t, err)
		got = append(got, it.Index())
		it.Close()
	}
	assert.Equal(t, []int{2, 3}, got, "traversals start at the cursor position")

	require.NoError(t, c.Reset())
	items, err := a.ToSlice()
	require.NoError(t, err)
	assert.Len(t, items, 4)
	for _, it := range items {
		it.Close()
	}
}

func TestFromPointerNull(t *testing.T) {
	f := proxy.NewFactory(sim.New())
	_, err := FromPointer[*item](f, 0)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseEnumerate, Kind: errors.KindNullPointer})
}

func TestUseAfterClose(t *testing.T) {
	e := newFakeEnum(t, 2)
	a, _, _ := e.adapter(t)
	require.NoError(t, a.Close())

	_, err := a.ToSlice()
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseDispatch, Kind: errors.KindDisposed})

	for _, err := range a.All() {
		assert.Error(t, err)
	}
}
