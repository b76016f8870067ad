package host

import (
	"github.com/sarchlab/wbneuron/neuron"
	"github.com/sarchlab/wbneuron/sim/timing"
)

// DefaultPeriodNs is the tick period used when none is given: 50 us, two
// sub-steps per tick at the default integration rate.
const DefaultPeriodNs = 50000

// Builder can build runners.
type Builder struct {
	engine   timing.Engine
	periodNs int64
	duration timing.VTimeInSec
	settings neuron.SettingsStore
	input    neuron.InputPort
	output   neuron.OutputPort
	params   *neuron.Params
}

// MakeBuilder creates a builder with default settings.
func MakeBuilder() Builder {
	return Builder{
		periodNs: DefaultPeriodNs,
	}
}

// WithEngine sets the engine that delivers the ticks.
func (b Builder) WithEngine(engine timing.Engine) Builder {
	b.engine = engine
	return b
}

// WithPeriodNs sets the initial tick period.
func (b Builder) WithPeriodNs(periodNs int64) Builder {
	b.periodNs = periodNs
	return b
}

// WithDuration sets the virtual time at which ticking stops.
func (b Builder) WithDuration(d timing.VTimeInSec) Builder {
	b.duration = d
	return b
}

// WithSettings sets the settings store handed to the model.
func (b Builder) WithSettings(s neuron.SettingsStore) Builder {
	b.settings = s
	return b
}

// WithInput sets the stimulus port handed to the model.
func (b Builder) WithInput(in neuron.InputPort) Builder {
	b.input = in
	return b
}

// WithOutput sets the output port handed to the model.
func (b Builder) WithOutput(out neuron.OutputPort) Builder {
	b.output = out
	return b
}

// WithParams overrides the model's initial parameters.
func (b Builder) WithParams(p neuron.Params) Builder {
	b.params = &p
	return b
}

// Build creates a runner and the model it drives. A positive period is
// required.
func (b Builder) Build(name string) *Runner {
	if b.engine == nil {
		panic("runner requires an engine")
	}

	if b.periodNs <= 0 {
		panic(ErrInvalidPeriod)
	}

	r := &Runner{
		settings: b.settings,
		duration: b.duration,
	}
	r.periodNs.Store(b.periodNs)
	r.TickingComponent = timing.NewTickingComponent(
		name, b.engine, timing.FreqFromPeriodNs(b.periodNs), r)

	mb := neuron.MakeBuilder().
		WithSettings(b.settings).
		WithInput(b.input).
		WithOutput(b.output).
		WithPeriodSource(r)
	if b.params != nil {
		mb = mb.WithParams(*b.params)
	}

	r.model = mb.Build()

	return r
}
