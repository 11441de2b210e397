package bridge

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/vtable-runtime/abi"
	"github.com/wippyai/vtable-runtime/platform/sim"
	"github.com/wippyai/vtable-runtime/proxy"
)

var (
	iidAnswer  = abi.MustGUID("{A1A2A3A4-B1B2-C1C2-D1D2-E1E2E3E4E5E6}")
	iidAnswer2 = abi.MustGUID("{A1A2A3A4-B1B2-C1C2-D1D2-E1E2E3E4E5E7}")
	iidExtra   = abi.MustGUID("{F0F1F2F3-0405-0607-0809-0A0B0C0D0E0F}")
	iidOther   = abi.MustGUID("{00112233-4455-6677-8899-AABBCCDDEEFF}")
	iidPeer    = abi.MustGUID("{0A0B0C0D-1111-2222-3333-444455556666}")
)

type peer struct {
	proxy.Object
}

func init() {
	proxy.Register(iidPeer, func() *peer { return &peer{} })
}

type fixture struct {
	p *sim.Platform
	f *proxy.Factory
	h *Host
	d *abi.Dispatcher
}

func newFixture(opts ...Option) *fixture {
	p := sim.New()
	f := proxy.NewFactory(p)
	return &fixture{p: p, f: f, h: NewHost(f, opts...), d: f.Dispatcher()}
}

func answer(methods ...Method) Interface {
	if len(methods) == 0 {
		methods = []Method{{Name: "Get", Arity: 1, Fn: func(c *Call) abi.Status {
			return c.SetOut(0, 42)
		}}}
	}
	return Interface{Name: "IAnswer", IID: iidAnswer, Aliases: []abi.GUID{iidAnswer2}, Methods: methods}
}

func (fx *fixture) query(t *testing.T, ptr uintptr, iid abi.GUID) (uintptr, abi.Status) {
	t.Helper()
	return fx.d.QueryInterface(ptr, iid)
}

func TestNewPublishesCallableObject(t *testing.T) {
	fx := newFixture()
	b, err := fx.h.New(answer())
	require.NoError(t, err)
	defer b.Release()

	assert.Equal(t, Active, b.State())
	require.NotZero(t, b.Ptr())

	v, st := fx.d.CallOut(b.Ptr(), abi.FirstContractSlot)
	assert.Equal(t, abi.OK, st)
	assert.Equal(t, uintptr(42), v)
	assert.Equal(t, 1, fx.h.Live())
}

func TestQueryInterface(t *testing.T) {
	fx := newFixture()
	b, err := fx.h.New(answer(), Interface{Name: "IExtra", IID: iidExtra})
	require.NoError(t, err)
	defer b.Close()

	tests := []struct {
		name string
		iid  abi.GUID
		want func() uintptr
		st   abi.Status
	}{
		{"own id", iidAnswer, b.Ptr, abi.OK},
		{"alias", iidAnswer2, b.Ptr, abi.OK},
		{"base id", abi.IIDUnknown, b.Ptr, abi.OK},
		{"second interface", iidExtra, func() uintptr { p, _ := b.PtrFor(iidExtra); return p }, abi.OK},
		{"unrelated", iidOther, func() uintptr { return 0 }, abi.ENoInterface},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := b.RefCount()
			got, st := fx.query(t, b.Ptr(), tt.iid)
			assert.Equal(t, tt.st, st)
			assert.Equal(t, tt.want(), got)
			if st == abi.OK {
				assert.Equal(t, before+1, b.RefCount())
				fx.d.Release(got)
			}
			assert.Equal(t, before, b.RefCount())
		})
	}

	extra, ok := b.PtrFor(iidExtra)
	require.True(t, ok)
	assert.NotEqual(t, b.Ptr(), extra)

	// every interface answers for the whole object
	got, st := fx.query(t, extra, iidAnswer)
	assert.Equal(t, abi.OK, st)
	assert.Equal(t, b.Ptr(), got)
	fx.d.Release(got)
}

func TestQueryInterfaceNullOut(t *testing.T) {
	fx := newFixture()
	b, err := fx.h.New(answer())
	require.NoError(t, err)
	defer b.Close()

	ref, release, err := fx.d.StageGUID(iidAnswer)
	require.NoError(t, err)
	defer release()

	st := fx.d.Call(b.Ptr(), abi.SlotQueryInterface, ref, 0)
	assert.Equal(t, abi.EPointer, st)
	assert.Equal(t, uint32(1), b.RefCount())
}

func TestFinalReleaseDisposes(t *testing.T) {
	fx := newFixture()
	live := fx.p.Stats().Live
	b, err := fx.h.New(answer())
	require.NoError(t, err)
	ptr := b.Ptr()

	assert.Equal(t, uint32(2), fx.d.AddRef(ptr))
	assert.Equal(t, uint32(1), fx.d.Release(ptr))
	assert.Equal(t, Active, b.State())

	fn := fx.d.Slot(ptr, abi.FirstContractSlot)
	assert.Equal(t, uint32(0), fx.d.Release(ptr))
	assert.Equal(t, Disposed, b.State())
	assert.Zero(t, b.Ptr())
	assert.Equal(t, live, fx.p.Stats().Live)
	assert.Equal(t, 0, fx.h.Live())

	// a late call through a cached slot must not reach the freed object
	assert.Equal(t, abi.ENotConnected, abi.StatusFromWord(fx.p.Invoke(fn, ptr, 0)))
	assert.Equal(t, uint32(0), b.Release())
	assert.Equal(t, uint32(0), b.AddRef())
}

func TestCloseIsIdempotent(t *testing.T) {
	fx := newFixture()
	b, err := fx.h.New(answer())
	require.NoError(t, err)
	fx.d.AddRef(b.Ptr())

	frees := fx.p.Stats().Frees
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.Equal(t, frees+1, fx.p.Stats().Frees)
	assert.Equal(t, Disposed, b.State())
}

func TestCloseWaitsForInflightCalls(t *testing.T) {
	fx := newFixture()
	entered := make(chan struct{})
	proceed := make(chan struct{})
	b, err := fx.h.New(answer(Method{Name: "Block", Fn: func(c *Call) abi.Status {
		close(entered)
		<-proceed
		return abi.OK
	}}))
	require.NoError(t, err)
	ptr := b.Ptr()

	done := make(chan abi.Status)
	go func() { done <- fx.d.Call(ptr, abi.FirstContractSlot) }()

	<-entered
	frees := fx.p.Stats().Frees
	require.NoError(t, b.Close())
	assert.Equal(t, Disposed, b.State())
	assert.Equal(t, frees, fx.p.Stats().Frees, "block must outlive the running call")

	close(proceed)
	assert.Equal(t, abi.OK, <-done)
	assert.Equal(t, frees+1, fx.p.Stats().Frees)
}

func TestHandlerPanicIsContained(t *testing.T) {
	fx := newFixture()
	b, err := fx.h.New(answer(Method{Name: "Boom", Fn: func(*Call) abi.Status {
		panic("handler bug")
	}}))
	require.NoError(t, err)
	defer b.Release()

	assert.Equal(t, abi.EUnexpected, fx.d.Call(b.Ptr(), abi.FirstContractSlot))
	assert.Equal(t, Active, b.State())
}

func TestUnhandledUsesPolicy(t *testing.T) {
	var calls atomic.Int32
	fx := newFixture(WithPolicy(PolicyFunc(func(c *Call) abi.Status {
		calls.Add(1)
		return abi.False
	})))
	b, err := fx.h.New(answer(
		Method{Name: "Nil"},
		Method{Name: "Declines", Fn: func(c *Call) abi.Status { return c.Default() }},
	))
	require.NoError(t, err)
	defer b.Release()

	assert.Equal(t, abi.False, fx.d.Call(b.Ptr(), abi.FirstContractSlot))
	assert.Equal(t, abi.False, fx.d.Call(b.Ptr(), abi.FirstContractSlot+1))
	assert.Equal(t, int32(2), calls.Load())
}

func TestDefaultPolicyResumes(t *testing.T) {
	fx := newFixture()
	b, err := fx.h.New(answer(Method{Name: "Nil", Arity: 2}))
	require.NoError(t, err)
	defer b.Release()

	assert.Equal(t, abi.OK, fx.d.Call(b.Ptr(), abi.FirstContractSlot, 1, 2))
}

func TestProxyArgIsReleasedAfterCall(t *testing.T) {
	fx := newFixture()
	obj, err := sim.NewObject(fx.p, []abi.GUID{iidPeer})
	require.NoError(t, err)

	var during int32
	b, err := fx.h.New(answer(Method{Name: "Take", Arity: 2, Fn: func(c *Call) abi.Status {
		pr, err := ProxyArg[*peer](c, 0)
		if err != nil {
			return abi.EFail
		}
		during = obj.Refs()
		raw, _ := pr.Raw()
		if raw != obj.Ptr {
			return abi.EFail
		}
		nothing, err := ProxyArg[*peer](c, 1)
		if err != nil || nothing != nil {
			return abi.EFail
		}
		return abi.OK
	}}))
	require.NoError(t, err)
	defer b.Release()

	assert.Equal(t, abi.OK, fx.d.Call(b.Ptr(), abi.FirstContractSlot, obj.Ptr, 0))
	assert.Equal(t, int32(2), during)
	assert.Equal(t, int32(1), obj.Refs())
	assert.Equal(t, 0, fx.f.Live())
}

func TestTextArgument(t *testing.T) {
	fx := newFixture(WithMaxText(16))
	var got []string
	var oks []bool
	b, err := fx.h.New(answer(Method{Name: "Say", Arity: 1, Fn: func(c *Call) abi.Status {
		s, ok, err := Text(c, 0)
		if err != nil {
			return abi.EInvalidArg
		}
		got = append(got, s)
		oks = append(oks, ok)
		return abi.OK
	}}))
	require.NoError(t, err)
	defer b.Release()

	stage := func(s string) uintptr {
		units, err := abi.EncodeUTF16(s)
		require.NoError(t, err)
		ptr, err := fx.p.Alloc(uintptr(len(units) + 2))
		require.NoError(t, err)
		fx.p.Write(ptr, append(units, 0, 0))
		return ptr
	}

	assert.Equal(t, abi.OK, fx.d.Call(b.Ptr(), abi.FirstContractSlot, stage("hello")))
	assert.Equal(t, abi.OK, fx.d.Call(b.Ptr(), abi.FirstContractSlot, stage("")))
	assert.Equal(t, abi.OK, fx.d.Call(b.Ptr(), abi.FirstContractSlot, 0))
	assert.Equal(t, abi.EInvalidArg, fx.d.Call(b.Ptr(), abi.FirstContractSlot, stage("this is far too long to accept")))

	assert.Equal(t, []string{"hello", "", ""}, got)
	assert.Equal(t, []bool{true, false, false}, oks)
}

func TestTrampolinesAreShared(t *testing.T) {
	fx := newFixture()
	b1, err := fx.h.New(answer())
	require.NoError(t, err)
	defer b1.Release()
	created := fx.p.Stats().Callbacks

	b2, err := fx.h.New(answer())
	require.NoError(t, err)
	defer b2.Release()
	assert.Equal(t, created, fx.p.Stats().Callbacks)
	assert.NotEqual(t, b1.Ptr(), b2.Ptr())

	v1, _ := fx.d.CallOut(b1.Ptr(), abi.FirstContractSlot)
	v2, _ := fx.d.CallOut(b2.Ptr(), abi.FirstContractSlot)
	assert.Equal(t, uintptr(42), v1)
	assert.Equal(t, uintptr(42), v2)
}

func TestRoutingAcrossBridges(t *testing.T) {
	fx := newFixture()
	mk := func(v uintptr) *Bridge {
		b, err := fx.h.New(answer(Method{Name: "Get", Arity: 1, Fn: func(c *Call) abi.Status {
			return c.SetOut(0, v)
		}}))
		require.NoError(t, err)
		return b
	}
	b1, b2 := mk(1), mk(2)
	defer b2.Release()

	require.NoError(t, b1.Close())
	v, st := fx.d.CallOut(b2.Ptr(), abi.FirstContractSlot)
	assert.Equal(t, abi.OK, st)
	assert.Equal(t, uintptr(2), v)
}

func TestConcurrentCalls(t *testing.T) {
	fx := newFixture()
	var n atomic.Int64
	b, err := fx.h.New(answer(Method{Name: "Inc", Fn: func(*Call) abi.Status {
		n.Add(1)
		return abi.OK
	}}))
	require.NoError(t, err)
	ptr := b.Ptr()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				fx.d.AddRef(ptr)
				fx.d.Call(ptr, abi.FirstContractSlot)
				fx.d.Release(ptr)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(800), n.Load())
	assert.Equal(t, uint32(1), b.RefCount())
	assert.Equal(t, uint32(0), b.Release())
}

func TestNewValidates(t *testing.T) {
	fx := newFixture()

	_, err := fx.h.New()
	assert.Error(t, err)

	_, err = fx.h.New(Interface{Name: "INoID"})
	assert.Error(t, err)

	_, err = fx.h.New(answer(Method{Name: "Bad", Arity: -1}))
	assert.Error(t, err)
	assert.Equal(t, 0, fx.h.Live())
}

func TestHostClose(t *testing.T) {
	fx := newFixture()
	b1, err := fx.h.New(answer())
	require.NoError(t, err)
	b2, err := fx.h.New(answer(), Interface{Name: "IExtra", IID: iidExtra})
	require.NoError(t, err)

	require.NoError(t, fx.h.Close())
	assert.Equal(t, Disposed, b1.State())
	assert.Equal(t, Disposed, b2.State())
	assert.Equal(t, 0, fx.h.Live())
}

type pinged struct {
	*Notification
	Value int
}

func TestTopicDispatch(t *testing.T) {
	var fallbacks atomic.Int32
	fx := newFixture(WithPolicy(PolicyFunc(func(*Call) abi.Status {
		fallbacks.Add(1)
		return abi.OK
	})))

	var topic Topic[*pinged]
	var seen []int
	b, err := fx.h.New(answer(Method{Name: "Ping", Arity: 1, Fn: func(c *Call) abi.Status {
		return Dispatch(c, &topic, &pinged{Notification: NewNotification(c), Value: int(c.Arg(0))})
	}}))
	require.NoError(t, err)
	defer b.Release()

	fx.d.Call(b.Ptr(), abi.FirstContractSlot, 1)
	assert.Equal(t, int32(1), fallbacks.Load(), "no subscribers falls back")

	cancelA := topic.Subscribe(func(e *pinged) { seen = append(seen, e.Value) })
	cancelB := topic.Subscribe(func(e *pinged) {
		seen = append(seen, e.Value*10)
		e.Handle()
	})
	assert.Equal(t, 2, topic.Len())

	fx.d.Call(b.Ptr(), abi.FirstContractSlot, 2)
	assert.ElementsMatch(t, []int{2, 20}, seen)
	assert.Equal(t, int32(1), fallbacks.Load(), "handled notification skips the policy")

	cancelB()
	cancelB()
	fx.d.Call(b.Ptr(), abi.FirstContractSlot, 3)
	assert.Equal(t, int32(2), fallbacks.Load(), "observed but unhandled falls back")

	cancelA()
	assert.Equal(t, 0, topic.Len())
}
