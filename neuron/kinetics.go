package neuron

import "math"

// singularityThreshold bounds |x/y| below which the alpha_m and alpha_n
// quotients switch to their first-order expansion.
const singularityThreshold = 1e-6

// AlphaM is the Na activation opening rate (1/ms). It has a removable
// singularity at V = -35 mV.
func AlphaM(v float64) float64 {
	x := -(v + 35.0)
	y := 10.0

	if math.Abs(x/y) < singularityThreshold {
		return 0.1 * y * (1 - x/y/2.0)
	}

	return 0.1 * x / (math.Exp(x/y) - 1.0)
}

// BetaM is the Na activation closing rate (1/ms).
func BetaM(v float64) float64 {
	return 4 * math.Exp(-0.0556*(v+60))
}

// MInf is the instantaneous Na activation. It is not integrated.
func MInf(v float64) float64 {
	return AlphaM(v) / (AlphaM(v) + BetaM(v))
}

// AlphaH is the Na inactivation recovery rate (1/ms).
func AlphaH(v float64) float64 {
	return 0.07 * math.Exp(-0.05*(v+58.0))
}

// BetaH is the Na inactivation rate (1/ms).
func BetaH(v float64) float64 {
	return 1.0 / (1.0 + math.Exp(-0.1*(v+28)))
}

// HInf is the steady-state Na inactivation at a fixed potential.
func HInf(v float64) float64 {
	return AlphaH(v) / (AlphaH(v) + BetaH(v))
}

// AlphaN is the K activation opening rate (1/ms). It has a removable
// singularity at V = -34 mV.
func AlphaN(v float64) float64 {
	x := -(v + 34)
	y := 10.0

	if math.Abs(x/y) < singularityThreshold {
		return 0.01 * y * (1 - x/y/2.0)
	}

	return 0.01 * x / (math.Exp(x/y) - 1.0)
}

// BetaN is the K activation closing rate (1/ms).
func BetaN(v float64) float64 {
	return 0.125 * math.Exp(-0.0125*(v+44))
}

// NInf is the steady-state K activation at a fixed potential.
func NInf(v float64) float64 {
	return AlphaN(v) / (AlphaN(v) + BetaN(v))
}
