package neuron

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

type fakeStore struct {
	params map[string]float64
	states map[string]float64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		params: map[string]float64{},
		states: map[string]float64{},
	}
}

func (s *fakeStore) Parameter(name string) float64 { return s.params[name] }

func (s *fakeStore) SetParameter(name string, v float64) { s.params[name] = v }

func (s *fakeStore) SetState(name string, v float64) { s.states[name] = v }

type recordingOutput struct {
	values []float64
}

func (o *recordingOutput) Write(v float64) { o.values = append(o.values, v) }

var _ = Describe("Model", func() {
	var (
		mockCtrl *gomock.Controller
		input    *MockInputPort
		output   *MockOutputPort
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		input = NewMockInputPort(mockCtrl)
		output = NewMockOutputPort(mockCtrl)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("when built", func() {
		It("should start from the reset state", func() {
			m := MakeBuilder().WithPeriodNs(50000).Build()

			Expect(m.State()).To(Equal(State{V: -55.0456, H: 0.9379, N: 0.1224}))
			Expect(m.Count()).To(Equal(int64(0)))
			Expect(m.SysTime()).To(Equal(0.0))
			Expect(m.Params().Phi).To(Equal(5.0))
		})

		It("should publish parameters and states to the store", func() {
			store := newFakeStore()

			MakeBuilder().WithSettings(store).WithPeriodNs(50000).Build()

			Expect(store.params).To(HaveLen(10))
			Expect(store.params[ParamV0]).To(Equal(-55.0456))
			Expect(store.params[ParamCm]).To(Equal(1.0))
			Expect(store.params[ParamGNaMax]).To(Equal(35.0))
			Expect(store.params[ParamENa]).To(Equal(55.0))
			Expect(store.params[ParamGKMax]).To(Equal(9.0))
			Expect(store.params[ParamEK]).To(Equal(-90.0))
			Expect(store.params[ParamGL]).To(Equal(0.1))
			Expect(store.params[ParamEL]).To(Equal(-65.0))
			Expect(store.params[ParamIapp]).To(Equal(1.0))
			Expect(store.params[ParamRate]).To(Equal(40000.0))
			Expect(store.states).To(Equal(map[string]float64{
				StateH: 0.9379, StateN: 0.1224, StateTime: 0,
			}))
		})

		It("should take the initial period from the period source", func() {
			src := NewMockPeriodSource(mockCtrl)
			src.EXPECT().PeriodNs().Return(int64(100000))

			m := MakeBuilder().WithPeriodSource(src).Build()

			Expect(m.Period()).To(BeNumerically("~", 1e-4, 1e-18))
			Expect(m.Steps()).To(Equal(4))
		})
	})

	Context("step count", func() {
		It("should take ceil(period * rate) sub-steps", func() {
			m := MakeBuilder().WithPeriodNs(50000).Build()

			Expect(m.Steps()).To(Equal(2))
			Expect(m.StepSize()).To(BeNumerically("~", 0.025, 1e-15))
		})

		It("should round partial steps up", func() {
			m := MakeBuilder().WithPeriodNs(60000).Build()

			Expect(m.Steps()).To(Equal(3))
		})

		It("should recompute steps when the period changes", func() {
			m := MakeBuilder().WithPeriodNs(50000).Build()

			m.SetPeriod(1000000)

			Expect(m.Steps()).To(Equal(40))
			Expect(m.Period()).To(BeNumerically("~", 1e-3, 1e-18))
		})

		It("should follow the period source on a period update", func() {
			src := NewMockPeriodSource(mockCtrl)
			src.EXPECT().PeriodNs().Return(int64(50000))
			src.EXPECT().PeriodNs().Return(int64(25000))

			m := MakeBuilder().WithPeriodSource(src).Build()
			m.Update(UpdatePeriod)

			Expect(m.Steps()).To(Equal(1))
		})

		It("should idle with a zero rate", func() {
			p := DefaultParams()
			p.Rate = 0
			m := MakeBuilder().
				WithParams(p).
				WithPeriodNs(50000).
				WithInput(input).
				WithOutput(output).
				Build()
			before := m.State()

			input.EXPECT().Sample().Return(1e-9).Times(3)
			output.EXPECT().Write(before.V * 1e-3).Times(3)

			m.Execute()
			m.Execute()
			m.Execute()

			Expect(m.Steps()).To(Equal(0))
			Expect(m.StepSize()).To(Equal(0.0))
			Expect(m.State()).To(Equal(before))
			Expect(m.Count()).To(Equal(int64(3)))
		})

		It("should idle with a zero period", func() {
			m := MakeBuilder().WithInput(input).WithOutput(output).Build()
			before := m.State()

			input.EXPECT().Sample().Return(0.0)
			output.EXPECT().Write(before.V * 1e-3)

			m.Execute()

			Expect(m.Steps()).To(Equal(0))
			Expect(m.State()).To(Equal(before))
			Expect(m.SysTime()).To(Equal(0.0))
		})

		It("should never go negative", func() {
			m := MakeBuilder().WithPeriodNs(-50000).Build()

			Expect(m.Steps()).To(Equal(0))
		})
	})

	Context("execute", func() {
		It("should sample once and write the potential in volts once", func() {
			m := MakeBuilder().
				WithPeriodNs(50000).
				WithInput(input).
				WithOutput(output).
				Build()

			var written float64
			input.EXPECT().Sample().Return(0.0).Times(1)
			output.EXPECT().Write(gomock.Any()).
				Do(func(v float64) { written = v }).
				Times(1)

			m.Execute()

			Expect(written).To(Equal(m.State().V * 1e-3))
			Expect(m.LastOutput()).To(Equal(written))
		})

		It("should hold the input sample for every sub-step", func() {
			m := MakeBuilder().
				WithPeriodNs(50000).
				WithInput(input).
				WithOutput(output).
				Build()

			input.EXPECT().Sample().Return(3e-9)
			output.EXPECT().Write(gomock.Any())

			p := m.Params()
			expected := m.State()
			for i := 0; i < 2; i++ {
				expected = expected.Euler(0.025, Derivs(p, expected, 3e-9))
			}

			m.Execute()

			Expect(m.State().V).To(BeNumerically("~", expected.V, 1e-12))
			Expect(m.State().H).To(BeNumerically("~", expected.H, 1e-12))
			Expect(m.State().N).To(BeNumerically("~", expected.N, 1e-12))
		})

		It("should report the start of the tick as system time", func() {
			out := &recordingOutput{}
			m := MakeBuilder().WithPeriodNs(50000).WithOutput(out).Build()

			m.Execute()
			Expect(m.SysTime()).To(Equal(0.0))

			m.Execute()
			m.Execute()
			Expect(m.SysTime()).To(BeNumerically("~", 2*50e-6, 1e-15))
			Expect(m.Count()).To(Equal(int64(3)))
			Expect(out.values).To(HaveLen(3))
		})

		It("should spike under the default applied current", func() {
			out := &recordingOutput{}
			m := MakeBuilder().WithPeriodNs(50000).WithOutput(out).Build()

			for i := 0; i < 4000; i++ {
				m.Execute()
			}

			spikes := 0
			for i := 1; i < len(out.values); i++ {
				if out.values[i-1] < 0 && out.values[i] >= 0 {
					spikes++
				}
			}

			Expect(spikes).To(BeNumerically(">=", 5))
			for _, v := range out.values {
				Expect(math.IsNaN(v)).To(BeFalse())
				Expect(v).To(BeNumerically("<", 0.06))
				Expect(v).To(BeNumerically(">", -0.1))
			}
		})

		It("should make Solve a single Euler step", func() {
			m := MakeBuilder().Build()
			s := m.State()
			d := Derivs(m.Params(), s, 1e-9)

			m.Solve(0.025, 1e-9)

			Expect(m.State()).To(Equal(s.Euler(0.025, d)))
		})
	})

	Context("reconfigure", func() {
		var (
			store *fakeStore
			m     *Model
		)

		BeforeEach(func() {
			store = newFakeStore()
			m = MakeBuilder().
				WithSettings(store).
				WithPeriodNs(50000).
				Build()
		})

		It("should restore the reset state after running", func() {
			for i := 0; i < 500; i++ {
				m.Execute()
			}
			Expect(m.State()).NotTo(Equal(State{V: -55.0456, H: 0.9379, N: 0.1224}))

			m.Update(UpdateModify)

			Expect(m.State()).To(Equal(State{V: -55.0456, H: 0.9379, N: 0.1224}))
		})

		It("should keep counting ticks", func() {
			for i := 0; i < 10; i++ {
				m.Execute()
			}

			m.Reconfigure()

			Expect(m.Count()).To(Equal(int64(10)))
		})

		It("should pick up edited parameters", func() {
			store.SetParameter(ParamV0, -70)
			store.SetParameter(ParamRate, 80000)
			store.SetParameter(ParamIapp, 0)

			m.Reconfigure()

			Expect(m.State().V).To(Equal(-70.0))
			Expect(m.Params().Iapp).To(Equal(0.0))
			Expect(m.Steps()).To(Equal(4))
		})

		It("should keep phi fixed", func() {
			store.SetParameter("Phi", 1)

			m.Reconfigure()

			Expect(m.Params().Phi).To(Equal(5.0))
		})

		It("should reset even when only an unrelated parameter changed", func() {
			m.Execute()
			store.SetParameter(ParamEL, -66)

			m.Reconfigure()

			Expect(m.State().H).To(Equal(ResetH))
			Expect(m.State().N).To(Equal(ResetN))
		})

		It("should read every parameter from the store", func() {
			mockStore := NewMockSettingsStore(mockCtrl)
			mockStore.EXPECT().SetParameter(gomock.Any(), gomock.Any()).Times(10)
			mockStore.EXPECT().SetState(gomock.Any(), gomock.Any()).Times(3)

			model := MakeBuilder().WithSettings(mockStore).Build()

			for _, name := range ParameterNames() {
				mockStore.EXPECT().Parameter(name).Return(1.0)
			}

			model.Update(UpdateModify)

			Expect(model.Params().Cm).To(Equal(1.0))
			Expect(model.State().V).To(Equal(1.0))
		})
	})

	It("should accept pause and unpause without side effects", func() {
		m := MakeBuilder().WithPeriodNs(50000).Build()
		before := m.State()

		m.Update(UpdatePause)
		m.Update(UpdateUnpause)

		Expect(m.State()).To(Equal(before))
		Expect(m.Steps()).To(Equal(2))
	})

	It("should publish the display states on request", func() {
		store := newFakeStore()
		m := MakeBuilder().WithSettings(store).WithPeriodNs(50000).Build()

		m.Execute()
		m.Execute()
		m.PublishStates()

		Expect(store.states[StateH]).To(Equal(m.State().H))
		Expect(store.states[StateN]).To(Equal(m.State().N))
		Expect(store.states[StateTime]).To(Equal(m.SysTime()))
	})
})
