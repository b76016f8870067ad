// Package stimulus provides input ports that inject a current, in amps, as a
// function of engine time.
package stimulus

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/sarchlab/wbneuron/neuron"
	"github.com/sarchlab/wbneuron/sim/timing"
)

// ErrUnknownKind is returned for a stimulus kind that is not registered.
var ErrUnknownKind = errors.New("unknown stimulus kind")

// Config describes a stimulus. Amplitude and Offset are in amps, times in
// seconds, Frequency in Hz.
type Config struct {
	Kind      string  `mapstructure:"kind" validate:"oneof=none constant pulse sine"`
	Amplitude float64 `mapstructure:"amplitude"`
	Offset    float64 `mapstructure:"offset"`
	Start     float64 `mapstructure:"start" validate:"gte=0"`
	Width     float64 `mapstructure:"width" validate:"gte=0"`
	Frequency float64 `mapstructure:"frequency" validate:"gte=0"`
}

// Constant injects the same current at all times.
type Constant struct {
	Amps float64
}

// Sample returns the constant current.
func (c Constant) Sample() float64 {
	return c.Amps
}

// Pulse injects Amplitude during [Start, Start+Width). With a positive
// Frequency the pulse repeats every 1/Frequency seconds after Start.
type Pulse struct {
	Clock     timing.TimeTeller
	Amplitude float64
	Start     float64
	Width     float64
	Frequency float64
}

// Sample returns the pulse current at the clock's time.
func (p Pulse) Sample() float64 {
	t := float64(p.Clock.Now()) - p.Start
	if t < 0 {
		return 0
	}

	if p.Frequency > 0 {
		t = math.Mod(t, 1/p.Frequency)
	}

	if t < p.Width {
		return p.Amplitude
	}

	return 0
}

// Sine injects Offset + Amplitude*sin(2*pi*Frequency*t).
type Sine struct {
	Clock     timing.TimeTeller
	Amplitude float64
	Offset    float64
	Frequency float64
}

// Sample returns the sinusoidal current at the clock's time.
func (s Sine) Sample() float64 {
	t := float64(s.Clock.Now())

	return s.Offset + s.Amplitude*math.Sin(2*math.Pi*s.Frequency*t)
}

type factory func(c Config, clock timing.TimeTeller) neuron.InputPort

var factories = map[string]factory{
	"none": func(Config, timing.TimeTeller) neuron.InputPort {
		return neuron.ZeroInput{}
	},
	"constant": func(c Config, _ timing.TimeTeller) neuron.InputPort {
		return Constant{Amps: c.Amplitude}
	},
	"pulse": func(c Config, clock timing.TimeTeller) neuron.InputPort {
		return Pulse{
			Clock:     clock,
			Amplitude: c.Amplitude,
			Start:     c.Start,
			Width:     c.Width,
			Frequency: c.Frequency,
		}
	},
	"sine": func(c Config, clock timing.TimeTeller) neuron.InputPort {
		return Sine{
			Clock:     clock,
			Amplitude: c.Amplitude,
			Offset:    c.Offset,
			Frequency: c.Frequency,
		}
	},
}

// Kinds lists the registered stimulus kinds.
func Kinds() []string {
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}

	sort.Strings(kinds)

	return kinds
}

// New creates the input port a config describes. An empty kind means none.
func New(c Config, clock timing.TimeTeller) (neuron.InputPort, error) {
	kind := c.Kind
	if kind == "" {
		kind = "none"
	}

	f, ok := factories[kind]
	if !ok {
		return nil, fmt.Errorf("%q: %w", c.Kind, ErrUnknownKind)
	}

	return f(c, clock), nil
}
