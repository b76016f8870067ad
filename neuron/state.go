package neuron

import "fmt"

// Reset values of the gating variables, applied at construction and on every
// reconfiguration.
const (
	ResetH = 0.9379
	ResetN = 0.1224
)

// State is the integrated state of the neuron. As a vector its slot order is
// [V, H, N].
type State struct {
	V float64 // membrane potential, mV
	H float64 // Na inactivation
	N float64 // K activation
}

// Vector returns the state as [V, H, N].
func (s State) Vector() [3]float64 {
	return [3]float64{s.V, s.H, s.N}
}

// StateFromVector builds a State from [V, H, N].
func StateFromVector(y [3]float64) State {
	return State{V: y[0], H: y[1], N: y[2]}
}

// Euler returns s advanced by one explicit Euler step of size dt along d.
func (s State) Euler(dt float64, d State) State {
	// The explicit conversions keep each product rounded on its own, so the
	// update never gets contracted into a fused multiply-add.
	return State{
		V: s.V + float64(dt*d.V),
		H: s.H + float64(dt*d.H),
		N: s.N + float64(dt*d.N),
	}
}

func (s State) String() string {
	return fmt.Sprintf("V=%.4fmV h=%.4f n=%.4f", s.V, s.H, s.N)
}
