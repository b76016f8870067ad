package host

import "github.com/sarchlab/wbneuron/sim/timing"

// PeriodChangeEvent asks the runner to switch to a new tick period.
type PeriodChangeEvent struct {
	timing.EventBase
	PeriodNs int64
}

// ReconfigureEvent asks the runner to re-read the settings store.
type ReconfigureEvent struct {
	timing.EventBase
}

// StopEvent asks the runner to stop ticking.
type StopEvent struct {
	timing.EventBase
}
