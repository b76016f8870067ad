package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	unilogger "github.com/neuronlabs/uni-logger"
	. "github.com/onsi/gomega"
	"github.com/spf13/pflag"

	"github.com/sarchlab/wbneuron/config"
	"github.com/sarchlab/wbneuron/datarecording"
	"github.com/sarchlab/wbneuron/log"
	"github.com/sarchlab/wbneuron/tracing"
)

func newRunFlags(args ...string) *pflag.FlagSet {
	f := pflag.NewFlagSet("run", pflag.ContinueOnError)
	addRunFlags(f)
	Expect(f.Parse(args)).To(Succeed())

	return f
}

// fixedLevelLogger hides the level setter of the wrapped logger.
type fixedLevelLogger struct {
	unilogger.LeveledLogger
}

func shortConfig() *config.Config {
	c := config.Default()
	c.Run.Duration = 0.01

	return c
}

var _ = Describe("Params command", func() {
	It("should list every variable with its default", func() {
		buf := &bytes.Buffer{}

		Expect(printVariables(buf)).To(Succeed())

		out := buf.String()
		Expect(out).To(HavePrefix("NAME"))
		Expect(out).To(ContainSubstring("Iapp (nA)"))
		Expect(out).To(ContainSubstring("40000"))
		Expect(out).To(ContainSubstring("Vm"))
		Expect(out).To(ContainSubstring("Phi"))
	})
})

var _ = Describe("Loading the run config", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("should use defaults when nothing is set", func() {
		c, err := loadConfig(newRunFlags())

		Expect(err).NotTo(HaveOccurred())
		Expect(c.Run.PeriodNs).To(Equal(int64(50000)))
		Expect(c.Neuron.Rate).To(Equal(40000.0))
		Expect(c.Stimulus.Kind).To(Equal("none"))
	})

	It("should take changed flags", func() {
		c, err := loadConfig(newRunFlags(
			"--period-ns=100000", "--iapp=2", "--stim-kind=sine"))

		Expect(err).NotTo(HaveOccurred())
		Expect(c.Run.PeriodNs).To(Equal(int64(100000)))
		Expect(c.Neuron.Iapp).To(Equal(2.0))
		Expect(c.Stimulus.Kind).To(Equal("sine"))
	})

	It("should prefer the config file over unchanged flags", func() {
		file := filepath.Join(dir, "wb.yaml")
		Expect(os.WriteFile(file,
			[]byte("neuron:\n  rate: 60000\nrun:\n  duration: 0.5\n"),
			0o644)).To(Succeed())

		c, err := loadConfig(newRunFlags("--config=" + file))

		Expect(err).NotTo(HaveOccurred())
		Expect(c.Neuron.Rate).To(Equal(60000.0))
		Expect(c.Run.Duration).To(Equal(0.5))
	})

	It("should prefer changed flags over the config file", func() {
		file := filepath.Join(dir, "wb.yaml")
		Expect(os.WriteFile(file, []byte("neuron:\n  rate: 60000\n"),
			0o644)).To(Succeed())

		c, err := loadConfig(newRunFlags("--config="+file, "--rate=20000"))

		Expect(err).NotTo(HaveOccurred())
		Expect(c.Neuron.Rate).To(Equal(20000.0))
	})

	It("should read WB variables from an env file", func() {
		file := filepath.Join(dir, "wb.env")
		Expect(os.WriteFile(file, []byte("WB_RUN_SPEED=2.5\n"), 0o644)).
			To(Succeed())
		DeferCleanup(os.Unsetenv, "WB_RUN_SPEED")

		c, err := loadConfig(newRunFlags("--env-file=" + file))

		Expect(err).NotTo(HaveOccurred())
		Expect(c.Run.Speed).To(Equal(2.5))
	})

	It("should reject invalid values", func() {
		_, err := loadConfig(newRunFlags("--period-ns=0"))

		Expect(err).To(MatchError(config.ErrInvalidParams))
	})

	It("should reject an unknown log level", func() {
		_, err := loadConfig(newRunFlags("--log-level=verbose"))

		Expect(err).To(HaveOccurred())
	})

	It("should apply the configured log level", func() {
		DeferCleanup(log.SetLevel, log.LINFO)

		_, err := loadConfig(newRunFlags("--log-level=warning"))

		Expect(err).NotTo(HaveOccurred())
		Expect(log.Level()).To(Equal(log.LWARNING))
	})

	It("should report a logger that cannot change level", func() {
		log.Default()
		DeferCleanup(log.SetLevel, log.LINFO)
		log.SetLogger(fixedLevelLogger{LeveledLogger: log.Logger()})
		DeferCleanup(log.Default)

		Expect(applyLogLevel("debug")).To(MatchError(ContainSubstring("LevelSetter")))
	})
})

var _ = Describe("Running a simulation", func() {
	It("should tick for the configured duration", func() {
		s, err := runSimulation(shortConfig())

		Expect(err).NotTo(HaveOccurred())
		Expect(s.Ticks).To(Equal(int64(200)))
		Expect(s.Steps).To(Equal(2))
		Expect(s.StepMs).To(BeNumerically("~", 0.025, 1e-12))
		Expect(s.SimTime).To(BeNumerically("~", 0.01, 1e-12))
		Expect(s.Voltage.Samples).To(Equal(200))
		Expect(s.Voltage.Min).To(BeNumerically("<", s.Voltage.Max))
	})

	It("should refuse to run forever without the monitor", func() {
		c := shortConfig()
		c.Run.Duration = 0

		_, err := runSimulation(c)

		Expect(err).To(HaveOccurred())
	})

	It("should reject an unknown stimulus", func() {
		c := shortConfig()
		c.Stimulus.Kind = "ramp"

		_, err := runSimulation(c)

		Expect(err).To(HaveOccurred())
	})

	It("should write a decimated CSV trace", func() {
		path := filepath.Join(GinkgoT().TempDir(), "trace")
		c := shortConfig()
		c.Output.CSV = path
		c.Output.Decimate = 10

		s, err := runSimulation(c)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.CSVRows).To(Equal(20))

		data, err := os.ReadFile(path + ".csv")
		Expect(err).NotTo(HaveOccurred())

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		Expect(lines).To(HaveLen(21))
		Expect(lines[0]).To(Equal("Time, V, h, n"))
	})

	It("should record the trace and the run info in SQLite", func() {
		path := filepath.Join(GinkgoT().TempDir(), "run")
		c := shortConfig()
		c.Output.DB = path

		s, err := runSimulation(c)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.DBErrors).To(BeZero())

		reader, err := datarecording.NewReader(path + ".sqlite3")
		Expect(err).NotTo(HaveOccurred())
		defer reader.Close()

		ctx := context.Background()

		n, err := reader.Count(ctx, tracing.VoltageTable)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(200))

		n, err = reader.Count(ctx, datarecording.RunInfoTable)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeNumerically(">", 10))
	})

	It("should feed the monitor from the model output", func() {
		c := shortConfig()
		c.Monitor.Enabled = true

		s, err := buildSimulation(c)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(s.monitor.Shutdown, context.Background())

		s.runner.Start()
		Expect(s.engine.Run()).To(Succeed())

		rec := httptest.NewRecorder()
		s.monitor.Router().ServeHTTP(rec,
			httptest.NewRequest(http.MethodGet, "/api/vm", nil))

		var vm struct {
			Vm      float64 `json:"vm"`
			Samples int64   `json:"samples"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &vm)).To(Succeed())
		Expect(vm.Samples).To(Equal(int64(200)))
		Expect(vm.Vm).To(Equal(s.voltages.Summary().Last))
	})

	It("should drive a pulse stimulus", func() {
		quiet := shortConfig()
		quiet.Run.Duration = 0.05
		quiet.Neuron.Iapp = 0

		driven := shortConfig()
		driven.Run.Duration = 0.05
		driven.Neuron.Iapp = 0
		driven.Stimulus.Kind = "pulse"
		driven.Stimulus.Amplitude = 5e-9
		driven.Stimulus.Width = 0.05

		q, err := runSimulation(quiet)
		Expect(err).NotTo(HaveOccurred())

		d, err := runSimulation(driven)
		Expect(err).NotTo(HaveOccurred())

		Expect(d.Voltage.Spikes).To(BeNumerically(">", q.Voltage.Spikes+3))
	})
})

var _ = Describe("Summary", func() {
	It("should print the run figures", func() {
		s, err := runSimulation(shortConfig())
		Expect(err).NotTo(HaveOccurred())

		buf := &bytes.Buffer{}
		s.Print(buf)

		Expect(buf.String()).To(ContainSubstring("Ticks:          200"))
		Expect(buf.String()).To(ContainSubstring("Steps per tick: 2"))
		Expect(buf.String()).NotTo(ContainSubstring("Overruns"))
	})
})

var _ = Describe("Root command", func() {
	It("should run the run subcommand", func() {
		buf := &bytes.Buffer{}
		rootCmd.SetOut(buf)
		rootCmd.SetArgs([]string{"run", "--duration=0.005"})
		DeferCleanup(func() {
			rootCmd.SetOut(nil)
			rootCmd.SetArgs(nil)
		})

		Expect(rootCmd.Execute()).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("Ticks:          100"))
	})
})
