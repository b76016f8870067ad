package neuron

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// settle integrates s for durationMs with fixed Euler steps of dt ms.
func settle(p Params, s State, iExt, dt, durationMs float64) State {
	n := int(durationMs / dt)
	for i := 0; i < n; i++ {
		s = s.Euler(dt, Derivs(p, s, iExt))
	}

	return s
}

var _ = Describe("Derivs", func() {
	var p Params

	BeforeEach(func() {
		p = DefaultParams()
	})

	It("should not move gates sitting at their steady state", func() {
		for _, phi := range []float64{0.5, 1, 5, 20} {
			p.Phi = phi
			for _, v := range []float64{-80, -65, -55.0456, -34, -20} {
				s := State{V: v, H: HInf(v), N: NInf(v)}
				d := Derivs(p, s, 0)

				Expect(d.H).To(BeNumerically("~", 0, 1e-12))
				Expect(d.N).To(BeNumerically("~", 0, 1e-12))
			}
		}
	})

	It("should scale gate velocity with phi", func() {
		s := State{V: -55.0456, H: ResetH, N: ResetN}

		p.Phi = 1
		d1 := Derivs(p, s, 0)
		p.Phi = 5
		d5 := Derivs(p, s, 0)

		Expect(d5.H).To(BeNumerically("~", 5*d1.H, 1e-12))
		Expect(d5.N).To(BeNumerically("~", 5*d1.N, 1e-12))
		Expect(d5.V).To(Equal(d1.V))
	})

	It("should treat the stimulus in amps and Iapp in nA", func() {
		s := State{V: -60, H: 0.6, N: 0.3}

		p.Iapp = 0
		withStim := Derivs(p, s, 2e-9)

		p.Iapp = 2
		withIapp := Derivs(p, s, 0)

		Expect(withStim.V).To(BeNumerically("~", withIapp.V, 1e-12))
	})

	It("should divide the membrane current by Cm", func() {
		s := State{V: -60, H: 0.6, N: 0.3}
		d1 := Derivs(p, s, 0)

		p.Cm = 2
		d2 := Derivs(p, s, 0)

		Expect(d2.V).To(BeNumerically("~", d1.V/2, 1e-12))
	})

	It("should not be at equilibrium at the default initial state", func() {
		p.Iapp = 0
		d := Derivs(p, State{V: p.V0, H: ResetH, N: ResetN}, 0)

		Expect(d.V).To(BeNumerically("~", 1.8577, 1e-4))
		Expect(d.H).To(BeNumerically("~", -0.2753, 1e-4))
		Expect(d.N).To(BeNumerically("~", 0.0404, 1e-4))
	})

	It("should relax the gates monotonically at a clamped potential", func() {
		for _, phi := range []float64{1, 5} {
			p.Phi = phi
			for _, v := range []float64{-30, -55, -80} {
				hInf, nInf := HInf(v), NInf(v)
				s := State{V: v, H: ResetH, N: ResetN}
				hGap := math.Abs(s.H - hInf)
				nGap := math.Abs(s.N - nInf)
				grew := 0

				for i := 0; i < 40000; i++ {
					s = s.Euler(0.025, Derivs(p, s, 0))
					s.V = v

					h, n := math.Abs(s.H-hInf), math.Abs(s.N-nInf)
					if h > hGap+1e-12 || n > nGap+1e-12 {
						grew++
					}

					hGap, nGap = h, n
				}

				Expect(grew).To(BeZero(), "V=%g phi=%g", v, phi)
				Expect(hGap).To(BeNumerically("<", 1e-9))
				Expect(nGap).To(BeNumerically("<", 1e-9))
			}
		}
	})

	It("should settle to a resting equilibrium without input", func() {
		p.Iapp = 0
		rest := settle(p, State{V: p.V0, H: ResetH, N: ResetN}, 0, 0.025, 1000)

		Expect(rest.V).To(BeNumerically("~", -64.018, 1e-2))
		Expect(rest.H).To(BeNumerically("~", 0.7808, 1e-3))
		Expect(rest.N).To(BeNumerically("~", 0.0891, 1e-3))

		d := Derivs(p, rest, 0)
		Expect(d.V).To(BeNumerically("~", 0, 1e-9))
		Expect(d.H).To(BeNumerically("~", 0, 1e-9))
		Expect(d.N).To(BeNumerically("~", 0, 1e-9))

		Expect(rest.H).To(BeNumerically("~", HInf(rest.V), 1e-9))
		Expect(rest.N).To(BeNumerically("~", NInf(rest.V), 1e-9))
	})
})

var _ = Describe("State", func() {
	It("should order the vector as V, H, N", func() {
		s := State{V: -60, H: 0.5, N: 0.25}

		Expect(s.Vector()).To(Equal([3]float64{-60, 0.5, 0.25}))
		Expect(StateFromVector(s.Vector())).To(Equal(s))
	})

	It("should step every component from the same derivative", func() {
		s := State{V: -55.0456, H: ResetH, N: ResetN}
		d := Derivs(DefaultParams(), s, 0)
		dt := 0.025

		next := s.Euler(dt, d)

		Expect(next.V).To(Equal(s.V + float64(dt*d.V)))
		Expect(next.H).To(Equal(s.H + float64(dt*d.H)))
		Expect(next.N).To(Equal(s.N + float64(dt*d.N)))
	})
})
