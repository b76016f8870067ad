// Package neuron implements a single-compartment Wang-Buzsaki neuron that is
// advanced in real time.
//
// The model is driven by a periodic host tick. On every tick it integrates
// the membrane equations with a fixed number of explicit Euler sub-steps,
// chosen so that the integration rate stays at Params.Rate regardless of
// the tick period.
//
// A Model is not safe for concurrent use. The host must serialize Execute
// with Update, SetPeriod and Reconfigure.
package neuron

import (
	"math"

	"github.com/sarchlab/wbneuron/log"
)

// Model is the step controller. It owns the neuron state and the timing
// derived from the host period.
type Model struct {
	params   Params
	state    State
	settings SettingsStore
	input    InputPort
	output   OutputPort
	periods  PeriodSource

	period  float64 // s
	steps   int
	count   int64
	sysTime float64 // s
	lastOut float64 // V
}

func (m *Model) initParameters(periodNs int64) {
	m.state = State{V: m.params.V0, H: ResetH, N: ResetN}
	m.count = 0
	m.sysTime = 0
	m.period = float64(periodNs) * 1e-9
	m.steps = computeSteps(m.period, m.params.Rate)
}

// computeSteps returns ceil(period*rate), never negative.
func computeSteps(period, rate float64) int {
	steps := int(math.Ceil(period * rate))
	if steps < 0 {
		return 0
	}

	return steps
}

// Update handles a host lifecycle notification.
func (m *Model) Update(flag UpdateFlag) {
	switch flag {
	case UpdateInit:
		m.publishParameters()
		m.PublishStates()
	case UpdateModify:
		m.Reconfigure()
	case UpdatePeriod:
		if m.periods != nil {
			m.SetPeriod(m.periods.PeriodNs())
		}
	case UpdatePause, UpdateUnpause:
	}
}

func (m *Model) publishParameters() {
	if m.settings == nil {
		return
	}

	for _, name := range ParameterNames() {
		v, _ := m.params.Get(name)
		m.settings.SetParameter(name, v)
	}
}

// PublishStates writes the display states to the settings store.
func (m *Model) PublishStates() {
	if m.settings == nil {
		return
	}

	m.settings.SetState(StateH, m.state.H)
	m.settings.SetState(StateN, m.state.N)
	m.settings.SetState(StateTime, m.sysTime)
}

// Reconfigure re-reads every store-backed parameter and restarts the neuron
// from V0 with the gating variables at their reset values. The tick counter
// keeps running.
func (m *Model) Reconfigure() {
	if m.settings != nil {
		for _, name := range ParameterNames() {
			m.params.Set(name, m.settings.Parameter(name))
		}
	}

	m.steps = computeSteps(m.period, m.params.Rate)
	m.state = State{V: m.params.V0, H: ResetH, N: ResetN}

	log.Debugf("neuron reconfigured: rate=%gHz steps=%d %s",
		m.params.Rate, m.steps, m.state)
}

// SetPeriod sets the tick period, in nanoseconds, and recomputes the number
// of sub-steps per tick.
func (m *Model) SetPeriod(periodNs int64) {
	m.period = float64(periodNs) * 1e-9
	m.steps = computeSteps(m.period, m.params.Rate)

	log.Debugf("neuron period set: period=%gs steps=%d", m.period, m.steps)
}

// Execute advances the neuron by one tick. The stimulus is sampled once and
// held for all sub-steps. The potential is written to the output in volts.
func (m *Model) Execute() {
	m.sysTime = float64(m.count) * m.period

	iExt := m.input.Sample()

	if m.steps > 0 {
		dt := m.period / float64(m.steps) * 1000
		for i := 0; i < m.steps; i++ {
			m.Solve(dt, iExt)
		}
	}

	m.lastOut = m.state.V * 1e-3
	m.output.Write(m.lastOut)
	m.count++
}

// Solve takes one explicit Euler step of dt milliseconds.
func (m *Model) Solve(dt, iExt float64) {
	m.state = m.state.Euler(dt, Derivs(m.params, m.state, iExt))
}

// State returns the current neuron state.
func (m *Model) State() State {
	return m.state
}

// SetState overrides the neuron state. Hosts use it to restore a trajectory;
// it does not touch the parameters.
func (m *Model) SetState(s State) {
	m.state = s
}

// Params returns the parameters in use.
func (m *Model) Params() Params {
	return m.params
}

// Period returns the tick period in seconds.
func (m *Model) Period() float64 {
	return m.period
}

// Steps returns the number of sub-steps taken per tick.
func (m *Model) Steps() int {
	return m.steps
}

// StepSize returns the sub-step length in milliseconds, or 0 when idle.
func (m *Model) StepSize() float64 {
	if m.steps == 0 {
		return 0
	}

	return m.period / float64(m.steps) * 1000
}

// Count returns the number of ticks executed.
func (m *Model) Count() int64 {
	return m.count
}

// SysTime returns the display time in seconds: the start of the last tick.
func (m *Model) SysTime() float64 {
	return m.sysTime
}

// LastOutput returns the last value written to the output port, in volts.
func (m *Model) LastOutput() float64 {
	return m.lastOut
}
