package neuron

// Derivs evaluates (dV/dt, dh/dt, dn/dt) for state s. iExt is the external
// stimulus in amps. Time derivatives are per millisecond. The gating
// variables are not clamped.
func Derivs(p Params, s State, iExt float64) State {
	mInf := MInf(s.V)
	gNa := p.GNaMax * mInf * mInf * mInf * s.H
	gK := p.GKMax * s.N * s.N * s.N * s.N

	return State{
		V: (p.Iapp + iExt*1e9 -
			gNa*(s.V-p.ENa) -
			gK*(s.V-p.EK) -
			p.GL*(s.V-p.EL)) / p.Cm,
		H: p.Phi * (AlphaH(s.V)*(1-s.H) - BetaH(s.V)*s.H),
		N: p.Phi * (AlphaN(s.V)*(1-s.N) - BetaN(s.V)*s.N),
	}
}
