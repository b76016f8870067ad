package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sarchlab/wbneuron/config"
	"github.com/sarchlab/wbneuron/datarecording"
	"github.com/sarchlab/wbneuron/host"
	"github.com/sarchlab/wbneuron/log"
	"github.com/sarchlab/wbneuron/monitoring"
	"github.com/sarchlab/wbneuron/neuron"
	"github.com/sarchlab/wbneuron/sim/timing"
	"github.com/sarchlab/wbneuron/stimulus"
	"github.com/sarchlab/wbneuron/tracing"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the neuron.",
	Long: "`run` builds the neuron from the config file, WB_* environment " +
		"variables and flags, runs it for the configured duration and " +
		"prints a summary.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := loadConfig(cmd.Flags())
		if err != nil {
			return err
		}

		s, err := runSimulation(c)
		if err != nil {
			return err
		}

		s.Print(cmd.OutOrStdout())

		return nil
	},
}

// flagKeys maps run flags to config keys.
var flagKeys = map[string]string{
	"period-ns":      "run.period_ns",
	"duration":       "run.duration",
	"realtime":       "run.realtime",
	"speed":          "run.speed",
	"v0":             "neuron.v0",
	"iapp":           "neuron.iapp",
	"rate":           "neuron.rate",
	"phi":            "neuron.phi",
	"stim-kind":      "stimulus.kind",
	"stim-amplitude": "stimulus.amplitude",
	"stim-offset":    "stimulus.offset",
	"stim-start":     "stimulus.start",
	"stim-width":     "stimulus.width",
	"stim-frequency": "stimulus.frequency",
	"csv":            "output.csv",
	"db":             "output.db",
	"decimate":       "output.decimate",
	"monitor":        "monitor.enabled",
	"monitor-port":   "monitor.port",
	"open":           "monitor.open",
	"log-level":      "log.level",
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd.Flags())
}

func addRunFlags(f *pflag.FlagSet) {
	p := neuron.DefaultParams()

	f.String("config", "", "Config file (yaml, toml or json)")
	f.String("env-file", "", "File to load WB_* variables from (default .env)")
	f.Int64("period-ns", host.DefaultPeriodNs, "Host tick period in ns")
	f.Float64("duration", 1, "Virtual run time in seconds, 0 to run until stopped")
	f.Bool("realtime", false, "Pace ticks against the wall clock")
	f.Float64("speed", 1, "Real-time speed factor")
	f.Float64("v0", p.V0, "Initial membrane potential (mV)")
	f.Float64("iapp", p.Iapp, "Applied current (nA)")
	f.Float64("rate", p.Rate, "Integration rate (Hz)")
	f.Float64("phi", p.Phi, "Gating temperature factor")
	f.String("stim-kind", "none", "Stimulus: none, constant, pulse or sine")
	f.Float64("stim-amplitude", 0, "Stimulus amplitude (A)")
	f.Float64("stim-offset", 0, "Sine stimulus offset (A)")
	f.Float64("stim-start", 0, "Pulse start (s)")
	f.Float64("stim-width", 0, "Pulse width (s)")
	f.Float64("stim-frequency", 0, "Pulse train or sine frequency (Hz)")
	f.String("csv", "", "Write the trace to this CSV file, without extension")
	f.String("db", "", "Record the trace into this SQLite file, without extension")
	f.Int64("decimate", 1, "Keep every nth tick in the CSV trace")
	f.Bool("monitor", false, "Start the monitoring server")
	f.Int("monitor-port", 0, "Monitoring server port, 0 for random")
	f.Bool("open", false, "Open the monitor in a browser")
	f.String("log-level", "info", "Log level: debug, info, warning or error")
}

func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	log.Default()

	envFile, _ := flags.GetString("env-file")
	if envFile != "" {
		if err := config.LoadDotEnv(envFile); err != nil {
			return nil, err
		}
	} else if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	v := config.NewViper()
	if err := bindFlags(v, flags); err != nil {
		return nil, err
	}

	file, _ := flags.GetString("config")

	c, err := config.Load(v, file)
	if err != nil {
		return nil, err
	}

	if err := applyLogLevel(c.Log.Level); err != nil {
		return nil, err
	}

	return c, nil
}

func applyLogLevel(name string) error {
	level, err := log.ParseLevel(name)
	if err != nil {
		return err
	}

	if err := log.SetLevel(level); err != nil {
		return fmt.Errorf("setting log level %s: %w", name, err)
	}

	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}

		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}

	return nil
}

// Summary describes a finished run.
type Summary struct {
	Ticks    int64
	Steps    int
	StepMs   float64
	SimTime  float64
	Voltage  tracing.VoltageSummary
	Final    neuron.State
	Overruns uint64
	Realtime bool
	CSVRows  int
	DBErrors int
}

// Print writes the summary in a human readable form.
func (s Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "Ticks:          %d\n", s.Ticks)
	fmt.Fprintf(w, "Steps per tick: %d (dt %.6g ms)\n", s.Steps, s.StepMs)
	fmt.Fprintf(w, "Virtual time:   %.6f s\n", s.SimTime)
	fmt.Fprintf(w, "Spikes:         %d\n", s.Voltage.Spikes)

	if s.Voltage.Samples > 0 {
		fmt.Fprintf(w, "Vm range:       [%.4f, %.4f] V\n",
			s.Voltage.Min, s.Voltage.Max)
	}

	fmt.Fprintf(w, "Final state:    %s\n", s.Final)

	if s.Realtime {
		fmt.Fprintf(w, "Overruns:       %d\n", s.Overruns)
	}

	if s.CSVRows > 0 {
		fmt.Fprintf(w, "CSV rows:       %d\n", s.CSVRows)
	}

	if s.DBErrors > 0 {
		fmt.Fprintf(w, "DB errors:      %d\n", s.DBErrors)
	}
}

type simulation struct {
	engine   *timing.SerialEngine
	store    *host.MapStore
	runner   *host.Runner
	voltages *tracing.VoltageRecorder
	pacer    *host.RealTimePacer
	csv      *tracing.CSVTracer
	recorder datarecording.Recorder
	db       *tracing.DBTracer
	run      *datarecording.RunRecorder
	monitor  *monitoring.Monitor
}

func runSimulation(c *config.Config) (Summary, error) {
	if c.Run.Duration == 0 && !c.Monitor.Enabled {
		return Summary{}, errors.New(
			"a zero duration runs until stopped and needs the monitor")
	}

	s, err := buildSimulation(c)
	if err != nil {
		return Summary{}, err
	}

	if s.monitor != nil {
		defer func() {
			if err := s.monitor.Shutdown(context.Background()); err != nil {
				log.Warningf("stopping monitor: %v", err)
			}
		}()
	}

	s.runner.Start()

	if err := s.engine.Run(); err != nil {
		return Summary{}, err
	}

	if err := s.finish(); err != nil {
		return Summary{}, err
	}

	return s.summary(c), nil
}

func buildSimulation(c *config.Config) (*simulation, error) {
	s := &simulation{
		engine:   timing.NewSerialEngine(),
		store:    c.Store(),
		voltages: tracing.NewVoltageRecorder(false),
	}

	if log.Level() == log.LDEBUG {
		s.engine.AcceptHook(timing.NewEventLogger(log.Debug))
	}

	input, err := stimulus.New(c.Stimulus, s.engine)
	if err != nil {
		return nil, err
	}

	outputs := tracing.MultiOutput{s.voltages}

	if c.Monitor.Enabled {
		s.monitor = monitoring.NewMonitor().
			WithPortNumber(c.Monitor.Port).
			WithBrowser(c.Monitor.Open)
		outputs = append(outputs, s.monitor)
	}

	s.runner = host.MakeBuilder().
		WithEngine(s.engine).
		WithPeriodNs(c.Run.PeriodNs).
		WithDuration(timing.VTimeInSec(c.Run.Duration)).
		WithSettings(s.store).
		WithParams(c.Neuron.Params()).
		WithInput(input).
		WithOutput(outputs).
		Build("Neuron")

	if err := s.attachOutputs(c); err != nil {
		return nil, err
	}

	if c.Run.Realtime {
		s.pacer = host.NewRealTimePacer(c.Run.Speed)
		s.engine.AcceptHook(s.pacer)
	}

	if s.monitor != nil {
		if err := s.startMonitor(c); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *simulation) attachOutputs(c *config.Config) error {
	if c.Output.CSV != "" {
		csv, err := tracing.NewCSVTracer(c.Output.CSV)
		if err != nil {
			return err
		}

		csv.Decimate(c.Output.Decimate)
		tracing.CollectTrace(s.runner, csv)
		s.csv = csv
	}

	if c.Output.DB == "" {
		return nil
	}

	recorder, err := datarecording.New(c.Output.DB)
	if err != nil {
		return err
	}

	s.recorder = recorder

	s.db, err = tracing.NewDBTracer(recorder)
	if err != nil {
		return err
	}

	tracing.CollectTrace(s.runner, s.db)

	s.run, err = datarecording.NewRunRecorder(recorder)
	if err != nil {
		return err
	}

	s.run.Start()
	for _, e := range s.store.Parameters() {
		s.run.SetFloat(e.Name, e.Value)
	}
	s.run.SetFloat("Phi", c.Neuron.Phi)
	s.run.SetFloat("Period (ns)", float64(c.Run.PeriodNs))
	s.run.Set("Stimulus", c.Stimulus.Kind)

	return nil
}

func (s *simulation) startMonitor(c *config.Config) error {
	s.monitor.RegisterEngine(s.engine)
	s.monitor.RegisterRunner(s.runner, s.store)

	if s.pacer != nil {
		s.monitor.RegisterPacer(s.pacer)
	}

	if c.Run.Duration > 0 {
		total := uint64(math.Ceil(c.Run.Duration * 1e9 / float64(c.Run.PeriodNs)))
		s.monitor.TrackProgress(s.runner, host.HookPosTick, "Neuron", total)
	}

	_, err := s.monitor.StartServer()

	return err
}

func (s *simulation) finish() error {
	if s.csv != nil {
		if err := s.csv.Close(); err != nil {
			return err
		}
	}

	if s.run != nil {
		if err := s.run.End(); err != nil {
			return err
		}
	}

	if s.recorder != nil {
		if err := s.recorder.Close(); err != nil {
			return err
		}
	}

	return nil
}

func (s *simulation) summary(c *config.Config) Summary {
	m := s.runner.Model()

	sum := Summary{
		Ticks:    m.Count(),
		Steps:    m.Steps(),
		StepMs:   m.StepSize(),
		SimTime:  float64(m.Count()) * m.Period(),
		Voltage:  s.voltages.Summary(),
		Final:    m.State(),
		Realtime: c.Run.Realtime,
	}

	if s.pacer != nil {
		sum.Overruns = s.pacer.Overruns()
	}

	if s.csv != nil {
		sum.CSVRows = s.csv.Written()
	}

	if s.db != nil {
		sum.DBErrors = s.db.Errors()
	}

	return sum
}
