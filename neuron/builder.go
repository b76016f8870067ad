package neuron

// Builder can build Wang-Buzsaki models.
type Builder struct {
	params   Params
	settings SettingsStore
	input    InputPort
	output   OutputPort
	periods  PeriodSource
	periodNs int64
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		params: DefaultParams(),
	}
}

// WithParams sets the initial parameters, including Phi.
func (b Builder) WithParams(p Params) Builder {
	b.params = p
	return b
}

// WithPhi sets the temperature factor. It cannot be changed after Build.
func (b Builder) WithPhi(phi float64) Builder {
	b.params.Phi = phi
	return b
}

// WithSettings sets the store that parameters are published to and re-read
// from.
func (b Builder) WithSettings(s SettingsStore) Builder {
	b.settings = s
	return b
}

// WithInput sets the stimulus port.
func (b Builder) WithInput(in InputPort) Builder {
	b.input = in
	return b
}

// WithOutput sets the membrane potential sink.
func (b Builder) WithOutput(out OutputPort) Builder {
	b.output = out
	return b
}

// WithPeriodNs sets the tick period the model starts with.
func (b Builder) WithPeriodNs(ns int64) Builder {
	b.periodNs = ns
	return b
}

// WithPeriodSource sets where UpdatePeriod reads the tick period from. When
// set, it also provides the initial period.
func (b Builder) WithPeriodSource(src PeriodSource) Builder {
	b.periods = src
	return b
}

// Build creates the model and publishes its parameters and states to the
// settings store.
func (b Builder) Build() *Model {
	m := &Model{
		params:   b.params,
		settings: b.settings,
		input:    b.input,
		output:   b.output,
		periods:  b.periods,
	}

	if m.input == nil {
		m.input = ZeroInput{}
	}

	if m.output == nil {
		m.output = DiscardOutput{}
	}

	periodNs := b.periodNs
	if b.periods != nil {
		periodNs = b.periods.PeriodNs()
	}

	m.initParameters(periodNs)
	m.Update(UpdateInit)

	return m
}
