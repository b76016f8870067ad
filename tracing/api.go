// Package tracing records what a neuron runner emits on every tick.
package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/wbneuron/host"
	"github.com/sarchlab/wbneuron/sim/hooking"
)

// Sample is one traced tick. V is in volts.
type Sample struct {
	Count int64
	Time  float64
	V     float64
	H     float64
	N     float64
}

// SampleFromTick converts a runner tick detail into a sample.
func SampleFromTick(d host.TickDetail) Sample {
	return Sample{
		Count: d.Count,
		Time:  float64(d.Time),
		V:     d.Volts,
		H:     d.State.H,
		N:     d.State.N,
	}
}

// A Tracer receives the samples of a runner.
type Tracer interface {
	Record(s Sample)
}

// NamedHookable represent something both have a name and can be hooked
type NamedHookable interface {
	Name() string
	hooking.Hookable
}

// CollectTrace lets the tracer collect every tick of a domain.
func CollectTrace(domain NamedHookable, tracer Tracer) {
	CollectTraceInWindow(domain, tracer, 0, 0)
}

// CollectTraceInWindow lets the tracer collect the ticks that start in
// [start, end). An end of 0 means no end.
func CollectTraceInWindow(
	domain NamedHookable,
	tracer Tracer,
	start, end float64,
) {
	for _, hook := range domain.Hooks() {
		hook, ok := hook.(*traceHook)
		if ok && hook.t == tracer {
			panic(fmt.Sprintf(
				"domain %s already has tracer %s",
				domain.Name(), reflect.TypeOf(tracer)))
		}
	}

	domain.AcceptHook(&traceHook{t: tracer, start: start, end: end})
}

type traceHook struct {
	t          Tracer
	start, end float64
}

func (h *traceHook) Func(ctx hooking.HookCtx) {
	if ctx.Pos != host.HookPosTick {
		return
	}

	detail, ok := ctx.Detail.(host.TickDetail)
	if !ok {
		return
	}

	t := float64(detail.Time)
	if t < h.start || (h.end > 0 && t >= h.end) {
		return
	}

	h.t.Record(SampleFromTick(detail))
}
