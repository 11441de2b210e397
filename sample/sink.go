package sample

import (
	"go.uber.org/zap"

	"github.com/wippyai/vtable-runtime/abi"
	"github.com/wippyai/vtable-runtime/bridge"
)

// SinkHandler receives IEventSink2 callbacks with arguments already unwrapped.
// Embed BaseSink to inherit resume-on-unhandled for the methods you skip.
type SinkHandler interface {
	OnMessage(ctrl *Controller, sender, text string) abi.Status
	OnExit(ctrl *Controller, code uint32) abi.Status
	OnLog(ctrl *Controller, level uint32, text string) abi.Status
}

// BaseSink resumes the foreign side for every event.
type BaseSink struct{}

func (BaseSink) OnMessage(ctrl *Controller, _, _ string) abi.Status { return resume(ctrl) }

func (BaseSink) OnExit(ctrl *Controller, _ uint32) abi.Status { return resume(ctrl) }

func (BaseSink) OnLog(ctrl *Controller, _ uint32, _ string) abi.Status { return resume(ctrl) }

func resume(ctrl *Controller) abi.Status {
	if ctrl == nil {
		return abi.OK
	}
	if err := ctrl.Continue(); err != nil {
		return abi.EFail
	}
	return abi.OK
}

// ContinuePolicy resumes through the controller passed as the first argument,
// which every sink method receives. Hosts publishing sinks should use it.
var ContinuePolicy bridge.Policy = bridge.PolicyFunc(func(c *bridge.Call) abi.Status {
	ctrl, err := bridge.ProxyArg[*Controller](c, 0)
	if err != nil {
		return abi.OK
	}
	return resume(ctrl)
})

// sinkMethods builds the IEventSink2 slots over three translated callbacks.
func sinkMethods(
	onMessage func(c *bridge.Call, ctrl *Controller, sender, text string) abi.Status,
	onExit func(c *bridge.Call, ctrl *Controller, code uint32) abi.Status,
	onLog func(c *bridge.Call, ctrl *Controller, level uint32, text string) abi.Status,
) bridge.Interface {
	return bridge.Interface{
		Name:    "IEventSink2",
		IID:     IIDEventSink2,
		Aliases: []abi.GUID{IIDEventSink},
		Methods: []bridge.Method{
			{Name: "OnMessage", Arity: 3, Fn: func(c *bridge.Call) abi.Status {
				ctrl, err := bridge.ProxyArg[*Controller](c, 0)
				if err != nil {
					return invalid(c, err)
				}
				sender, _, err := bridge.Text(c, 1)
				if err != nil {
					return invalid(c, err)
				}
				text, _, err := bridge.Text(c, 2)
				if err != nil {
					return invalid(c, err)
				}
				return onMessage(c, ctrl, sender, text)
			}},
			{Name: "OnExit", Arity: 2, Fn: func(c *bridge.Call) abi.Status {
				ctrl, err := bridge.ProxyArg[*Controller](c, 0)
				if err != nil {
					return invalid(c, err)
				}
				return onExit(c, ctrl, uint32(c.Arg(1)))
			}},
			{Name: "OnLog", Arity: 3, Fn: func(c *bridge.Call) abi.Status {
				ctrl, err := bridge.ProxyArg[*Controller](c, 0)
				if err != nil {
					return invalid(c, err)
				}
				text, _, err := bridge.Text(c, 2)
				if err != nil {
					return invalid(c, err)
				}
				return onLog(c, ctrl, uint32(c.Arg(1)), text)
			}},
		},
	}
}

// invalid logs a malformed callback and still resumes, so a bad argument never
// leaves the foreign side paused.
func invalid(c *bridge.Call, err error) abi.Status {
	bridge.Logger().Warn("malformed sink callback",
		zap.String("method", c.Method.Name),
		zap.Error(err))
	c.Default()
	return abi.EInvalidArg
}

// NewSink publishes handler as an IEventSink2 (also answering IEventSink).
func NewSink(h *bridge.Host, handler SinkHandler) (*bridge.Bridge, error) {
	return h.New(sinkMethods(
		func(_ *bridge.Call, ctrl *Controller, sender, text string) abi.Status {
			return handler.OnMessage(ctrl, sender, text)
		},
		func(_ *bridge.Call, ctrl *Controller, code uint32) abi.Status {
			return handler.OnExit(ctrl, code)
		},
		func(_ *bridge.Call, ctrl *Controller, level uint32, text string) abi.Status {
			return handler.OnLog(ctrl, level, text)
		},
	))
}

// MessageEvent is published for OnMessage.
type MessageEvent struct {
	*bridge.Notification
	Controller *Controller
	Sender     string
	Text       string
}

// ExitEvent is published for OnExit.
type ExitEvent struct {
	*bridge.Notification
	Controller *Controller
	Code       uint32
}

// LogEvent is published for OnLog.
type LogEvent struct {
	*bridge.Notification
	Controller *Controller
	Text       string
	Level      uint32
}

// SinkEvents republishes sink callbacks to independent subscribers. An event no
// subscriber handles is answered by the host policy.
type SinkEvents struct {
	Message bridge.Topic[*MessageEvent]
	Exit    bridge.Topic[*ExitEvent]
	Log     bridge.Topic[*LogEvent]
}

// Publish exposes the topics as an IEventSink2 object.
func (s *SinkEvents) Publish(h *bridge.Host) (*bridge.Bridge, error) {
	return h.New(sinkMethods(
		func(c *bridge.Call, ctrl *Controller, sender, text string) abi.Status {
			return bridge.Dispatch(c, &s.Message, &MessageEvent{
				Notification: bridge.NewNotification(c),
				Controller:   ctrl,
				Sender:       sender,
				Text:         text,
			})
		},
		func(c *bridge.Call, ctrl *Controller, code uint32) abi.Status {
			return bridge.Dispatch(c, &s.Exit, &ExitEvent{
				Notification: bridge.NewNotification(c),
				Controller:   ctrl,
				Code:         code,
			})
		},
		func(c *bridge.Call, ctrl *Controller, level uint32, text string) abi.Status {
			return bridge.Dispatch(c, &s.Log, &LogEvent{
				Notification: bridge.NewNotification(c),
				Controller:   ctrl,
				Level:        level,
				Text:         text,
			})
		},
	))
}
