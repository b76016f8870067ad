package tracing

import (
	"math"
	"sync"

	"github.com/sarchlab/wbneuron/neuron"
)

// MultiOutput fans one output out to several ports.
type MultiOutput []neuron.OutputPort

// Write writes to every port in order.
func (m MultiOutput) Write(volts float64) {
	for _, out := range m {
		out.Write(volts)
	}
}

// SpikeThreshold is the potential, in volts, that an upward crossing counts
// as a spike at.
const SpikeThreshold = 0.0

// VoltageRecorder is an output port that keeps the written potentials in
// memory and counts spikes.
type VoltageRecorder struct {
	lock     sync.Mutex
	keep     bool
	values   []float64
	count    int
	spikes   int
	min, max float64
	last     float64
}

// NewVoltageRecorder creates a recorder. When keep is false only the
// summary is kept.
func NewVoltageRecorder(keep bool) *VoltageRecorder {
	return &VoltageRecorder{
		keep: keep,
		min:  math.Inf(1),
		max:  math.Inf(-1),
	}
}

// Write records a potential in volts.
func (r *VoltageRecorder) Write(volts float64) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.count > 0 && r.last < SpikeThreshold && volts >= SpikeThreshold {
		r.spikes++
	}

	r.count++
	r.last = volts
	r.min = math.Min(r.min, volts)
	r.max = math.Max(r.max, volts)

	if r.keep {
		r.values = append(r.values, volts)
	}
}

// VoltageSummary describes the recorded trace.
type VoltageSummary struct {
	Samples int
	Spikes  int
	Min     float64
	Max     float64
	Last    float64
}

// Summary returns the trace summary.
func (r *VoltageRecorder) Summary() VoltageSummary {
	r.lock.Lock()
	defer r.lock.Unlock()

	return VoltageSummary{
		Samples: r.count,
		Spikes:  r.spikes,
		Min:     r.min,
		Max:     r.max,
		Last:    r.last,
	}
}

// Values returns a copy of the kept potentials.
func (r *VoltageRecorder) Values() []float64 {
	r.lock.Lock()
	defer r.lock.Unlock()

	values := make([]float64, len(r.values))
	copy(values, r.values)

	return values
}
