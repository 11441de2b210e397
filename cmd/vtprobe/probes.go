package main

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	vtruntime "github.com/wippyai/vtable-runtime"
	"github.com/wippyai/vtable-runtime/abi"
	"github.com/wippyai/vtable-runtime/bridge"
	"github.com/wippyai/vtable-runtime/platform/native"
	"github.com/wippyai/vtable-runtime/platform/sim"
	"github.com/wippyai/vtable-runtime/proxy"
	"github.com/wippyai/vtable-runtime/sample"
)

// session owns one platform with a factory and a callback host over it.
type session struct {
	p        vtruntime.Platform
	f        *proxy.Factory
	h        *bridge.Host
	logger   *zap.Logger
	platform string
}

func openSession(name string, logger *zap.Logger) (*session, error) {
	var p vtruntime.Platform
	switch name {
	case "native":
		if !native.Available {
			logger.Warn("native platform unavailable, using sim")
			name = "sim"
			p = sim.New()
			break
		}
		np, err := native.Open(native.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("open native platform: %w", err)
		}
		p = np
	case "sim":
		p = sim.New()
	default:
		return nil, fmt.Errorf("unknown platform %q", name)
	}

	f := proxy.NewFactory(p, proxy.WithLogger(logger))
	h := bridge.NewHost(f, bridge.WithLogger(logger), bridge.WithPolicy(sample.ContinuePolicy))
	return &session{p: p, f: f, h: h, logger: logger, platform: name}, nil
}

func (s *session) Close() error {
	return multierr.Append(s.h.Close(), s.f.Close())
}

func (s *session) stats() string {
	out := fmt.Sprintf("proxies=%d bridges=%d leaked=%d", s.f.Live(), s.h.Live(), s.f.Leaked())
	if sp, ok := s.p.(*sim.Platform); ok {
		st := sp.Stats()
		out += fmt.Sprintf(" allocs=%d frees=%d calls=%d callbacks=%d", st.Allocs, st.Frees, st.Calls, st.Callbacks)
	}
	return out
}

type param struct {
	name string
	hint string
	def  string
}

type probe struct {
	run    func(s *session, args []string) (string, error)
	name   string
	desc   string
	params []param
}

func (p probe) defaults() []string {
	out := make([]string, len(p.params))
	for i, pr := range p.params {
		out[i] = pr.def
	}
	return out
}

var probes = []probe{
	{
		name: "value",
		desc: "Call IValue getters through a proxy over a published object",
		params: []param{
			{name: "value", hint: "s32", def: "42"},
			{name: "name", hint: "string", def: "answer"},
		},
		run: probeValue,
	},
	{
		name:   "enum",
		desc:   "Enumerate IValue objects as a slice and as an iterator",
		params: []param{{name: "count", hint: "u32", def: "3"}},
		run:    probeEnum,
	},
	{
		name:   "events",
		desc:   "Advise a sink, raise events and count controller resumes",
		params: []param{{name: "message", hint: "string", def: "hello"}},
		run:    probeEvents,
	},
	{
		name:   "query",
		desc:   "Ask an IValue object for a capability id",
		params: []param{{name: "iid", hint: "guid", def: sample.IIDController.String()}},
		run:    probeQuery,
	},
}

func probeNames() []string {
	names := make([]string, len(probes))
	for i, p := range probes {
		names[i] = p.name
	}
	return names
}

func findProbe(name string) (probe, bool) {
	for _, p := range probes {
		if p.name == name {
			return p, true
		}
	}
	return probe{}, false
}

func probeValue(s *session, args []string) (string, error) {
	n, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil {
		return "", fmt.Errorf("value: %w", err)
	}
	srv, err := sample.NewValueServer(s.h, int32(n), args[1])
	if err != nil {
		return "", err
	}
	defer srv.Release()

	before := srv.RefCount()
	v, err := proxy.Create[*sample.Value](s.f, srv.Ptr())
	if err != nil {
		return "", err
	}
	got, err := v.GetValue()
	if err != nil {
		v.Close()
		return "", err
	}
	name, err := v.GetName()
	if err != nil {
		v.Close()
		return "", err
	}
	during := srv.RefCount()
	if err := v.Close(); err != nil {
		return "", err
	}
	return fmt.Sprintf("GetValue=%d GetName=%q refs %d -> %d -> %d", got, name, before, during, srv.RefCount()), nil
}

func probeEnum(s *session, args []string) (string, error) {
	n, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return "", fmt.Errorf("count: %w", err)
	}

	ptrs := make([]uintptr, 0, n)
	for i := range int(n) {
		srv, err := sample.NewValueServer(s.h, int32(i), "")
		if err != nil {
			return "", err
		}
		defer srv.Release()
		ptrs = append(ptrs, srv.Ptr())
	}

	es, err := sample.NewEnumServer(s.h, ptrs)
	if err != nil {
		return "", err
	}
	e, err := proxy.Create[*sample.ValueEnum](s.f, es.Ptr())
	es.Release()
	if err != nil {
		return "", err
	}
	defer e.Close()

	values, err := e.Values()
	if err != nil {
		return "", err
	}
	defer values.Close()

	items, err := values.ToSlice()
	if err != nil {
		return "", err
	}
	var slice []string
	for _, it := range items {
		v, err := it.GetValue()
		it.Close()
		if err != nil {
			return "", err
		}
		slice = append(slice, strconv.Itoa(int(v)))
	}

	var iterated []string
	for it, err := range values.All() {
		if err != nil {
			return "", err
		}
		v, err := it.GetValue()
		it.Close()
		if err != nil {
			return "", err
		}
		iterated = append(iterated, strconv.Itoa(int(v)))
	}

	return fmt.Sprintf("slice=[%s] iterated=[%s]", strings.Join(slice, " "), strings.Join(iterated, " ")), nil
}

func probeEvents(s *session, args []string) (string, error) {
	ctrl, err := sample.NewControllerServer(s.h)
	if err != nil {
		return "", err
	}
	defer ctrl.Release()

	src, err := sample.NewSourceServer(s.h, ctrl)
	if err != nil {
		return "", err
	}
	defer src.Close()

	var events sample.SinkEvents
	var seen []string
	events.Message.Subscribe(func(e *sample.MessageEvent) {
		seen = append(seen, e.Sender+": "+e.Text)
	})
	events.Exit.Subscribe(func(e *sample.ExitEvent) {
		seen = append(seen, fmt.Sprintf("exit %d", e.Code))
		e.Handle()
		if err := e.Controller.Continue(); err != nil {
			s.logger.Warn("continue failed", zap.Error(err))
		}
	})

	sink, err := events.Publish(s.h)
	if err != nil {
		return "", err
	}
	defer sink.Release()

	sp, err := proxy.Create[*sample.EventSource](s.f, src.Ptr())
	if err != nil {
		return "", err
	}
	defer sp.Close()

	cookie, err := sp.Advise(sink.Ptr())
	if err != nil {
		return "", err
	}
	if _, err := src.RaiseMessage("vtprobe", args[0]); err != nil {
		return "", err
	}
	src.RaiseExit(0)
	if _, err := src.RaiseLog(1, args[0]); err != nil {
		return "", err
	}
	if err := sp.Unadvise(cookie); err != nil {
		return "", err
	}
	return fmt.Sprintf("events=%q continues=%d", seen, ctrl.Continues()), nil
}

func probeQuery(s *session, args []string) (string, error) {
	iid, err := abi.ParseGUID(args[0])
	if err != nil {
		return "", err
	}
	srv, err := sample.NewValueServer(s.h, 0, "")
	if err != nil {
		return "", err
	}
	defer srv.Release()

	v, err := proxy.Create[*sample.Value](s.f, srv.Ptr())
	if err != nil {
		return "", err
	}
	defer v.Close()

	u, ok, err := proxy.QueryIID[*proxy.Unknown](v, iid)
	if err != nil {
		return "", err
	}
	if !ok {
		return fmt.Sprintf("%s: not supported", iid), nil
	}
	defer u.Close()
	return fmt.Sprintf("%s: supported", iid), nil
}
