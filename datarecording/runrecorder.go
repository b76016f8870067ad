package datarecording

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// RunInfoTable is the table that run metadata is written to.
const RunInfoTable = "run_info"

const runTimeFormat = "2006-01-02 15:04:05.000000000"

// RunInfo is one property of a simulation run.
type RunInfo struct {
	Property string
	Value    string
}

// RunRecorder records when and how a simulation ran, together with any
// properties the caller adds, such as the parameters in use.
type RunRecorder struct {
	recorder Recorder
	entries  []RunInfo
	now      func() time.Time
}

// NewRunRecorder creates the run_info table on the recorder.
func NewRunRecorder(recorder Recorder) (*RunRecorder, error) {
	if err := recorder.CreateTable(RunInfoTable, RunInfo{}); err != nil {
		return nil, err
	}

	return &RunRecorder{
		recorder: recorder,
		now:      time.Now,
	}, nil
}

// Start records the start time, the command line and the working directory.
func (r *RunRecorder) Start() {
	r.Set("Start Time", r.now().Format(runTimeFormat))
	r.Set("Command", strings.Join(os.Args, " "))

	if cwd, err := os.Getwd(); err == nil {
		r.Set("Working Directory", cwd)
	}
}

// Set adds a property.
func (r *RunRecorder) Set(property, value string) {
	r.entries = append(r.entries, RunInfo{Property: property, Value: value})
}

// SetFloat adds a numeric property.
func (r *RunRecorder) SetFloat(property string, value float64) {
	r.Set(property, fmt.Sprintf("%g", value))
}

// End writes every property and the end time, then flushes.
func (r *RunRecorder) End() error {
	r.Set("End Time", r.now().Format(runTimeFormat))

	for _, entry := range r.entries {
		if err := r.recorder.InsertData(RunInfoTable, entry); err != nil {
			return err
		}
	}

	r.entries = nil

	return r.recorder.Flush()
}
