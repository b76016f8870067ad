package neuron

// SettingsStore holds the named scalar parameters and display states a host
// exposes for editing.
type SettingsStore interface {
	Parameter(name string) float64
	SetParameter(name string, value float64)
	SetState(name string, value float64)
}

// InputPort supplies the external stimulus current, in amps.
type InputPort interface {
	Sample() float64
}

// OutputPort receives the membrane potential, in volts.
type OutputPort interface {
	Write(volts float64)
}

// PeriodSource reports the scheduler's current tick period in nanoseconds.
type PeriodSource interface {
	PeriodNs() int64
}

// ZeroInput is an InputPort that never injects current.
type ZeroInput struct{}

// Sample returns 0.
func (ZeroInput) Sample() float64 { return 0 }

// DiscardOutput is an OutputPort that drops every sample.
type DiscardOutput struct{}

// Write does nothing.
func (DiscardOutput) Write(float64) {}

// UpdateFlag names a host lifecycle notification.
type UpdateFlag int

// Lifecycle notifications accepted by Model.Update.
const (
	UpdateInit UpdateFlag = iota
	UpdateModify
	UpdatePeriod
	UpdatePause
	UpdateUnpause
)

func (f UpdateFlag) String() string {
	switch f {
	case UpdateInit:
		return "INIT"
	case UpdateModify:
		return "MODIFY"
	case UpdatePeriod:
		return "PERIOD"
	case UpdatePause:
		return "PAUSE"
	case UpdateUnpause:
		return "UNPAUSE"
	default:
		return "UNKNOWN"
	}
}
