package timing

import (
	"reflect"

	"github.com/sarchlab/wbneuron/sim/hooking"
)

// DebugLogger is the part of a leveled logger the EventLogger writes to.
type DebugLogger interface {
	Debugf(format string, args ...interface{})
}

// EventLogger is an hook that prints the event information
type EventLogger struct {
	logger DebugLogger
}

// NewEventLogger returns a new EventLogger which will write in to the logger
func NewEventLogger(logger DebugLogger) *EventLogger {
	h := new(EventLogger)

	h.logger = logger

	return h
}

type named interface {
	Name() string
}

// Func writes the event information into the logger
func (h *EventLogger) Func(ctx hooking.HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(Event)
	if !ok {
		return
	}

	handlerName := reflect.TypeOf(evt.Handler()).String()
	if n, ok := evt.Handler().(named); ok {
		handlerName = n.Name()
	}

	h.logger.Debugf("%.10f, %s -> %s",
		evt.Time(), reflect.TypeOf(evt), handlerName)
}
