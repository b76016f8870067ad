// Package host drives a neuron model from the discrete-event engine. It plays
// the part of the real-time scheduler: it owns the tick period, delivers
// ticks, and serializes period changes and reconfigurations with them.
package host

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sarchlab/wbneuron/log"
	"github.com/sarchlab/wbneuron/neuron"
	"github.com/sarchlab/wbneuron/sim/hooking"
	"github.com/sarchlab/wbneuron/sim/timing"
)

// Errors reported by the runner.
var (
	ErrNotRunning    = errors.New("runner is not running")
	ErrInvalidPeriod = errors.New("tick period must be positive")
)

// HookPosTick marks the end of a model tick. The hook item is the runner and
// the detail is a TickDetail.
var HookPosTick = &hooking.HookPos{Name: "Tick"}

// TickDetail describes a finished tick.
type TickDetail struct {
	Count   int64
	Time    timing.VTimeInSec
	SysTime float64
	Volts   float64
	State   neuron.State
}

// Runner ticks a neuron model at the host period.
type Runner struct {
	*timing.TickingComponent

	model    *neuron.Model
	settings neuron.SettingsStore
	duration timing.VTimeInSec
	periodNs atomic.Int64

	lock    sync.Mutex
	started bool
	stopped bool
}

// PeriodNs returns the tick period in nanoseconds.
func (r *Runner) PeriodNs() int64 {
	return r.periodNs.Load()
}

// Model returns the model being driven.
func (r *Runner) Model() *neuron.Model {
	return r.model
}

// Duration returns the virtual time after which ticking stops. Zero means
// ticking only stops on Stop.
func (r *Runner) Duration() timing.VTimeInSec {
	return r.duration
}

// Start schedules the first tick at the current engine time.
func (r *Runner) Start() {
	r.lock.Lock()
	r.started = true
	r.stopped = false
	r.lock.Unlock()

	r.TickNow()
}

// Running tells if the runner has been started and has not stopped yet.
func (r *Runner) Running() bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.started && !r.stopped
}

// Tick executes one model tick.
func (r *Runner) Tick() bool {
	now := r.Now()
	if r.shouldStop(now) {
		return false
	}

	r.model.Execute()
	r.model.PublishStates()

	r.InvokeHook(hooking.HookCtx{
		Domain: r,
		Pos:    HookPosTick,
		Item:   r,
		Detail: TickDetail{
			Count:   r.model.Count(),
			Time:    now,
			SysTime: r.model.SysTime(),
			Volts:   r.model.LastOutput(),
			State:   r.model.State(),
		},
	})

	return true
}

func (r *Runner) shouldStop(now timing.VTimeInSec) bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.duration > 0 && now >= r.duration {
		r.stopped = true
	}

	return r.stopped
}

// Handle processes the runner's control events. Tick events go to the
// embedded ticking component.
func (r *Runner) Handle(e timing.Event) error {
	switch e := e.(type) {
	case timing.TickEvent:
		return r.TickingComponent.Handle(e)
	case PeriodChangeEvent:
		r.applyPeriod(e.PeriodNs)
	case ReconfigureEvent:
		r.model.Update(neuron.UpdateModify)
	case StopEvent:
		r.lock.Lock()
		r.stopped = true
		r.lock.Unlock()
	default:
		return fmt.Errorf("runner %s cannot handle %T", r.Name(), e)
	}

	return nil
}

func (r *Runner) applyPeriod(periodNs int64) {
	r.periodNs.Store(periodNs)
	r.SetFreq(timing.FreqFromPeriodNs(periodNs))
	r.model.Update(neuron.UpdatePeriod)

	log.Infof("%s: tick period set to %dns, %d steps per tick",
		r.Name(), periodNs, r.model.Steps())
}

// SchedulePeriodChange delivers a new tick period at the current engine time.
func (r *Runner) SchedulePeriodChange(periodNs int64) error {
	if periodNs <= 0 {
		return fmt.Errorf("%d ns: %w", periodNs, ErrInvalidPeriod)
	}

	return r.scheduleControl(PeriodChangeEvent{
		EventBase: timing.MakeEventBase(r.Now(), r),
		PeriodNs:  periodNs,
	})
}

// ScheduleReconfigure makes the model re-read the settings store at the
// current engine time.
func (r *Runner) ScheduleReconfigure() error {
	return r.scheduleControl(ReconfigureEvent{
		EventBase: timing.MakeEventBase(r.Now(), r),
	})
}

// Stop ends ticking at the current engine time.
func (r *Runner) Stop() error {
	return r.scheduleControl(StopEvent{
		EventBase: timing.MakeEventBase(r.Now(), r),
	})
}

func (r *Runner) scheduleControl(e timing.Event) error {
	if !r.Running() {
		return ErrNotRunning
	}

	r.Engine.Schedule(e)

	return nil
}

// SetParameter writes a parameter into the settings store and schedules a
// reconfiguration so that the model picks it up. Nothing is written when the
// runner is not running.
func (r *Runner) SetParameter(name string, value float64) error {
	if r.settings == nil {
		return fmt.Errorf("runner %s has no settings store", r.Name())
	}

	if !r.Running() {
		return ErrNotRunning
	}

	r.settings.SetParameter(name, value)

	return r.ScheduleReconfigure()
}

// Pause notifies the model that the host paused.
func (r *Runner) Pause() {
	r.model.Update(neuron.UpdatePause)
}

// Unpause notifies the model that the host resumed.
func (r *Runner) Unpause() {
	r.model.Update(neuron.UpdateUnpause)
}
