package neuron

// Names under which parameters and display states live in a SettingsStore.
const (
	ParamV0     = "V0 (mV)"
	ParamCm     = "Cm (nF)"
	ParamGNaMax = "G_Na_max (uS)"
	ParamENa    = "E_Na (mV)"
	ParamGKMax  = "G_K_max (uS)"
	ParamEK     = "E_K (mV)"
	ParamGL     = "G_L (uS)"
	ParamEL     = "E_L (mV)"
	ParamIapp   = "Iapp (nA)"
	ParamRate   = "Rate (Hz)"

	StateH    = "h"
	StateN    = "n"
	StateTime = "Time (s)"

	InputIstim = "Istim"
	OutputVm   = "Vm"
)

// Params are the physical constants of the model. Phi is fixed when the model
// is built; every other field can be re-read from the settings store.
type Params struct {
	V0     float64 `desc:"initial membrane potential (mV)"`
	Cm     float64 `desc:"membrane capacitance (nF)"`
	Iapp   float64 `desc:"constant applied current (nA)"`
	Phi    float64 `desc:"temperature factor on gating kinetics"`
	GNaMax float64 `desc:"maximum Na conductance (uS)"`
	GKMax  float64 `desc:"maximum delayed rectifier K conductance (uS)"`
	GL     float64 `desc:"leak conductance (uS)"`
	ENa    float64 `desc:"Na reversal potential (mV)"`
	EK     float64 `desc:"K reversal potential (mV)"`
	EL     float64 `desc:"leak reversal potential (mV)"`
	Rate   float64 `desc:"integration rate (Hz)"`
}

// Defaults sets the scaled Wang-Buzsaki values: Cm of 1 nF, conductances in
// uS, currents in nA.
func (p *Params) Defaults() {
	p.V0 = -55.0456
	p.Cm = 1
	p.Iapp = 1
	p.Phi = 5
	p.GNaMax = 35
	p.GKMax = 9
	p.GL = 0.1
	p.ENa = 55.0
	p.EK = -90.0
	p.EL = -65.0
	p.Rate = 40000
}

// DefaultParams returns Params with Defaults applied.
func DefaultParams() Params {
	p := Params{}
	p.Defaults()

	return p
}

// VariableKind tells how the host should expose a variable.
type VariableKind int

// Kinds of host-visible variables.
const (
	KindInput VariableKind = iota
	KindOutput
	KindParameter
	KindState
)

func (k VariableKind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindOutput:
		return "output"
	case KindParameter:
		return "parameter"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

// Variable describes one named value the model exposes to its host.
type Variable struct {
	Name        string
	Description string
	Kind        VariableKind
}

// Variables lists the model's ports, parameters and display states in the
// order a host should present them.
func Variables() []Variable {
	return []Variable{
		{OutputVm, "Membrane Potential (V)", KindOutput},
		{InputIstim, "Input current (A)", KindInput},
		{ParamIapp, "Applied Current (nA)", KindParameter},
		{ParamV0, "Initial membrane potential (mV)", KindParameter},
		{ParamCm, "Specific membrane capacitance (nF)", KindParameter},
		{ParamGNaMax, "Maximum Na+ conductance density (uS)", KindParameter},
		{ParamENa, "Sodium reversal potential (mV)", KindParameter},
		{ParamGKMax, "Maximum delayed rectifier conductance density (uS)", KindParameter},
		{ParamEK, "K+ reversal potential (mV)", KindParameter},
		{ParamGL, "Maximum leak conductance density uS", KindParameter},
		{ParamEL, "Leak reversal potential (mV)", KindParameter},
		{ParamRate, "Rate of integration (Hz)", KindParameter},
		{StateH, "Sodium Inactivation", KindState},
		{StateN, "Potassium Activation", KindState},
		{StateTime, "Time (s)", KindState},
	}
}

// ParameterNames returns the names of the store-backed parameters.
func ParameterNames() []string {
	names := []string{}
	for _, v := range Variables() {
		if v.Kind == KindParameter {
			names = append(names, v.Name)
		}
	}

	return names
}

// fields pairs each store name with the Params field it controls.
func (p *Params) fields() map[string]*float64 {
	return map[string]*float64{
		ParamV0:     &p.V0,
		ParamCm:     &p.Cm,
		ParamGNaMax: &p.GNaMax,
		ParamENa:    &p.ENa,
		ParamGKMax:  &p.GKMax,
		ParamEK:     &p.EK,
		ParamGL:     &p.GL,
		ParamEL:     &p.EL,
		ParamIapp:   &p.Iapp,
		ParamRate:   &p.Rate,
	}
}

// Get returns the parameter stored under a settings name.
func (p Params) Get(name string) (float64, bool) {
	ptr, ok := p.fields()[name]
	if !ok {
		return 0, false
	}

	return *ptr, true
}

// Set assigns the parameter stored under a settings name. It reports false
// for names that are not store-backed, including Phi.
func (p *Params) Set(name string, value float64) bool {
	ptr, ok := p.fields()[name]
	if !ok {
		return false
	}

	*ptr = value

	return true
}
