// Package monitoring turns a running simulation into a web server that shows
// and edits the neuron's parameters.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"math"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/wbneuron/host"
	"github.com/sarchlab/wbneuron/log"
	"github.com/sarchlab/wbneuron/monitoring/web"
	"github.com/sarchlab/wbneuron/sim/hooking"
	"github.com/sarchlab/wbneuron/sim/timing"
)

// Monitor can turn a simulation into a server and allows external monitoring
// controlling of the simulation.
type Monitor struct {
	engine      timing.Engine
	runner      *host.Runner
	store       *host.MapStore
	pacer       *host.RealTimePacer
	portNumber  int
	openBrowser bool

	vmBits  atomic.Uint64
	vmCount atomic.Int64

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	server *http.Server
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor. Ports below 1000 pick a
// random port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		log.Warningf("Port number %d is assigned to the monitoring server, "+
			"which is not allowed. Using a random port instead.", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser makes StartServer open the monitor page in a browser.
func (m *Monitor) WithBrowser(open bool) *Monitor {
	m.openBrowser = open
	return m
}

// RegisterEngine registers the engine that is used in the simulation.
func (m *Monitor) RegisterEngine(e timing.Engine) {
	m.engine = e
}

// RegisterRunner registers the runner whose model is monitored, together with
// the store its parameters live in.
func (m *Monitor) RegisterRunner(r *host.Runner, store *host.MapStore) {
	m.runner = r
	m.store = store
}

// RegisterPacer registers the real-time pacer. Continue resets it so that the
// paused time is not taken as lag.
func (m *Monitor) RegisterPacer(p *host.RealTimePacer) {
	m.pacer = p
}

// Write records the latest membrane potential, in volts. It lets the monitor
// sit on the model's output next to other sinks.
func (m *Monitor) Write(volts float64) {
	m.vmBits.Store(math.Float64bits(volts))
	m.vmCount.Add(1)
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := newProgressBar(name, total)

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// TrackProgress creates a bar that advances on every hook invocation at pos.
func (m *Monitor) TrackProgress(
	domain hooking.Hookable,
	pos *hooking.HookPos,
	name string,
	total uint64,
) *ProgressBar {
	bar := m.CreateProgressBar(name, total)
	domain.AcceptHook(progressHook{bar: bar, pos: pos})

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the HTTP routes of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseEngine).Methods(http.MethodPost)
	r.HandleFunc("/api/continue", m.continueEngine).Methods(http.MethodPost)
	r.HandleFunc("/api/now", m.now).Methods(http.MethodGet)
	r.HandleFunc("/api/params", m.listParams).Methods(http.MethodGet)
	r.HandleFunc("/api/params/{name}", m.getParam).Methods(http.MethodGet)
	r.HandleFunc("/api/params/{name}", m.setParam).Methods(http.MethodPut)
	r.HandleFunc("/api/states", m.listStates).Methods(http.MethodGet)
	r.HandleFunc("/api/vm", m.membranePotential).Methods(http.MethodGet)
	r.HandleFunc("/api/period", m.getPeriod).Methods(http.MethodGet)
	r.HandleFunc("/api/period", m.setPeriod).Methods(http.MethodPut)
	r.HandleFunc("/api/pacer", m.pacerStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/component", m.componentDetails).Methods(http.MethodGet)
	r.HandleFunc("/api/progress", m.listProgressBars).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", fmt.Errorf("starting monitor: %w", err)
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("monitor stopped: %v", err)
		}
	}()

	if m.openBrowser {
		if err := browser.OpenURL(url); err != nil {
			log.Warningf("cannot open browser: %v", err)
		}
	}

	return url, nil
}

// Shutdown stops the web server.
func (m *Monitor) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("writing monitor response: %v", err)
	}
}

func httpError(w http.ResponseWriter, code int, err error) {
	http.Error(w, err.Error(), code)
}

func (m *Monitor) pauseEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Pause()

	if m.runner != nil {
		m.runner.Pause()
	}

	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) continueEngine(w http.ResponseWriter, _ *http.Request) {
	if m.runner != nil {
		m.runner.Unpause()
	}

	if m.pacer != nil {
		m.pacer.Reset()
	}

	m.engine.Continue()

	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]float64{"now": float64(m.engine.Now())})
}

func (m *Monitor) listParams(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, m.store.Parameters())
}

func (m *Monitor) listStates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, m.store.States())
}

func (m *Monitor) getParam(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	value, ok := m.store.LookupParameter(name)
	if !ok {
		httpError(w, http.StatusNotFound,
			fmt.Errorf("parameter %q not found", name))
		return
	}

	writeJSON(w, host.Entry{Name: name, Value: value})
}

type valueReq struct {
	Value *float64 `json:"value"`
}

func (m *Monitor) setParam(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if _, ok := m.store.LookupParameter(name); !ok {
		httpError(w, http.StatusNotFound,
			fmt.Errorf("parameter %q not found", name))
		return
	}

	req := valueReq{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Value == nil {
		httpError(w, http.StatusBadRequest,
			errors.New(`body must be {"value": <number>}`))
		return
	}

	err := m.whilePaused(func() error {
		return m.runner.SetParameter(name, *req.Value)
	})
	if err != nil {
		m.controlError(w, err)
		return
	}

	writeJSON(w, host.Entry{Name: name, Value: *req.Value})
}

type vmRsp struct {
	Vm      float64 `json:"vm"`
	Samples int64   `json:"samples"`
}

func (m *Monitor) membranePotential(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, vmRsp{
		Vm:      math.Float64frombits(m.vmBits.Load()),
		Samples: m.vmCount.Load(),
	})
}

type periodRsp struct {
	PeriodNs  int64   `json:"period_ns"`
	PeriodSec float64 `json:"period_sec"`
}

func (m *Monitor) getPeriod(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, periodRsp{
		PeriodNs:  m.runner.PeriodNs(),
		PeriodSec: float64(m.runner.Freq().Period()),
	})
}

type periodReq struct {
	PeriodNs int64 `json:"period_ns"`
}

func (m *Monitor) setPeriod(w http.ResponseWriter, r *http.Request) {
	req := periodReq{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}

	err := m.whilePaused(func() error {
		return m.runner.SchedulePeriodChange(req.PeriodNs)
	})
	if err != nil {
		m.controlError(w, err)
		return
	}

	writeJSON(w, req)
}

func (m *Monitor) controlError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, host.ErrNotRunning):
		httpError(w, http.StatusConflict, err)
	case errors.Is(err, host.ErrInvalidPeriod):
		httpError(w, http.StatusBadRequest, err)
	default:
		httpError(w, http.StatusInternalServerError, err)
	}
}

type pausable interface {
	IsPaused() bool
}

// whilePaused holds the engine between events while fn runs, unless the user
// already paused it.
func (m *Monitor) whilePaused(fn func() error) error {
	if p, ok := m.engine.(pausable); ok && p.IsPaused() {
		return fn()
	}

	m.engine.Pause()
	defer m.engine.Continue()

	return fn()
}

type pacerRsp struct {
	Enabled  bool    `json:"enabled"`
	Overruns uint64  `json:"overruns"`
	SleptSec float64 `json:"slept_sec"`
}

func (m *Monitor) pacerStatus(w http.ResponseWriter, _ *http.Request) {
	rsp := pacerRsp{}

	if m.pacer != nil {
		rsp.Enabled = true
		rsp.Overruns = m.pacer.Overruns()
		rsp.SleptSec = m.pacer.Slept().Seconds()
	}

	writeJSON(w, rsp)
}

func (m *Monitor) componentDetails(w http.ResponseWriter, _ *http.Request) {
	if m.runner == nil {
		httpError(w, http.StatusNotFound, errors.New("no runner registered"))
		return
	}

	buf := bytes.NewBuffer(nil)

	err := m.whilePaused(func() error {
		serializer := goseth.NewSerializer()
		serializer.SetRoot(m.runner.Model())
		serializer.SetMaxDepth(1)

		return serializer.Serialize(buf)
	})
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Errorf("writing model: %v", err)
	}
}

type progressRsp struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Total    uint64  `json:"total"`
	Finished uint64  `json:"finished"`
	Progress float64 `json:"progress"`
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]*ProgressBar, len(m.progressBars))
	copy(bars, m.progressBars)
	m.progressBarsLock.Unlock()

	rsp := make([]progressRsp, 0, len(bars))
	for _, b := range bars {
		progress := b.Progress()

		b.Lock()
		rsp = append(rsp, progressRsp{
			ID:       b.ID,
			Name:     b.Name,
			Total:    b.Total,
			Finished: b.Finished,
			Progress: progress,
		})
		b.Unlock()
	}

	writeJSON(w, rsp)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}

	memory, err := proc.MemoryInfo()
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memory.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, r *http.Request) {
	duration := time.Second
	if s := r.URL.Query().Get("seconds"); s != "" {
		if d, err := strconv.ParseFloat(s, 64); err == nil && d > 0 {
			duration = time.Duration(d * float64(time.Second))
		}
	}

	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		httpError(w, http.StatusConflict, err)
		return
	}

	time.Sleep(duration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, prof)
}
