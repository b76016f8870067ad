// Package config reads the simulation settings from a file, the environment
// and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	validator "gopkg.in/go-playground/validator.v9"

	"github.com/sarchlab/wbneuron/host"
	"github.com/sarchlab/wbneuron/log"
	"github.com/sarchlab/wbneuron/neuron"
	"github.com/sarchlab/wbneuron/stimulus"
)

// ErrInvalidParams is returned when a loaded config fails validation.
var ErrInvalidParams = errors.New("invalid parameters")

// EnvPrefix is the prefix of the environment variables that override config
// keys. neuron.rate is read from WB_NEURON_RATE.
const EnvPrefix = "WB"

var validate = validator.New()

// Neuron holds the model parameters, in the units of the settings store.
type Neuron struct {
	V0     float64 `mapstructure:"v0"`
	Cm     float64 `mapstructure:"cm" validate:"gt=0"`
	Iapp   float64 `mapstructure:"iapp"`
	Phi    float64 `mapstructure:"phi" validate:"gt=0"`
	GNaMax float64 `mapstructure:"gna_max" validate:"gte=0"`
	ENa    float64 `mapstructure:"ena"`
	GKMax  float64 `mapstructure:"gk_max" validate:"gte=0"`
	EK     float64 `mapstructure:"ek"`
	GL     float64 `mapstructure:"gl" validate:"gte=0"`
	EL     float64 `mapstructure:"el"`
	Rate   float64 `mapstructure:"rate" validate:"gte=0"`
}

// Run controls the host loop.
type Run struct {
	PeriodNs int64   `mapstructure:"period_ns" validate:"gt=0"`
	Duration float64 `mapstructure:"duration" validate:"gte=0"`
	Realtime bool    `mapstructure:"realtime"`
	Speed    float64 `mapstructure:"speed" validate:"gt=0"`
}

// Output selects where traces go. Empty paths disable an output.
type Output struct {
	CSV      string `mapstructure:"csv"`
	DB       string `mapstructure:"db"`
	Decimate int64  `mapstructure:"decimate" validate:"gte=1"`
}

// Monitor configures the monitoring server.
type Monitor struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port" validate:"gte=0,lte=65535"`
	Open    bool `mapstructure:"open"`
}

// Log configures logging.
type Log struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warning error"`
}

// Config is the complete simulation configuration.
type Config struct {
	Neuron   Neuron          `mapstructure:"neuron"`
	Run      Run             `mapstructure:"run"`
	Stimulus stimulus.Config `mapstructure:"stimulus"`
	Output   Output          `mapstructure:"output"`
	Monitor  Monitor         `mapstructure:"monitor"`
	Log      Log             `mapstructure:"log"`
}

// SetDefaults sets the default value of every key.
func SetDefaults(v *viper.Viper) {
	p := neuron.DefaultParams()

	keys := map[string]interface{}{
		"neuron.v0":          p.V0,
		"neuron.cm":          p.Cm,
		"neuron.iapp":        p.Iapp,
		"neuron.phi":         p.Phi,
		"neuron.gna_max":     p.GNaMax,
		"neuron.ena":         p.ENa,
		"neuron.gk_max":      p.GKMax,
		"neuron.ek":          p.EK,
		"neuron.gl":          p.GL,
		"neuron.el":          p.EL,
		"neuron.rate":        p.Rate,
		"run.period_ns":      host.DefaultPeriodNs,
		"run.duration":       1.0,
		"run.realtime":       false,
		"run.speed":          1.0,
		"stimulus.kind":      "none",
		"stimulus.amplitude": 0.0,
		"stimulus.offset":    0.0,
		"stimulus.start":     0.0,
		"stimulus.width":     0.0,
		"stimulus.frequency": 0.0,
		"output.csv":         "",
		"output.db":          "",
		"output.decimate":    1,
		"monitor.enabled":    false,
		"monitor.port":       0,
		"monitor.open":       false,
		"log.level":          "info",
	}

	for k, value := range keys {
		v.SetDefault(k, value)
	}
}

// NewViper creates a viper instance with defaults and WB_* environment
// overrides.
func NewViper() *viper.Viper {
	v := viper.New()

	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// LoadDotEnv loads environment variables from the given files, or from .env
// when none is given. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}

		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("loading %s: %w", f, err)
		}

		log.Debugf("Loaded environment from %s", f)
	}

	return nil
}

// Load reads file, if not empty, into v and returns the validated config.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", file, err)
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		log.Debugf("Unmarshaling config failed: %v", err)
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Default returns the validated default config.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)

	c, err := Load(v, "")
	if err != nil {
		panic(err)
	}

	return c
}

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	return nil
}

// Params converts the neuron section into model parameters.
func (n Neuron) Params() neuron.Params {
	return neuron.Params{
		V0:     n.V0,
		Cm:     n.Cm,
		Iapp:   n.Iapp,
		Phi:    n.Phi,
		GNaMax: n.GNaMax,
		GKMax:  n.GKMax,
		GL:     n.GL,
		ENa:    n.ENa,
		EK:     n.EK,
		EL:     n.EL,
		Rate:   n.Rate,
	}
}

// Store returns a settings store filled with the neuron section, under the
// names the model reads.
func (c *Config) Store() *host.MapStore {
	s := host.NewMapStore()

	p := c.Neuron.Params()
	for _, name := range neuron.ParameterNames() {
		value, _ := p.Get(name)
		s.SetParameter(name, value)
	}

	return s
}
