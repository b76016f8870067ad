package tracing

import (
	"github.com/sarchlab/wbneuron/datarecording"
	"github.com/sarchlab/wbneuron/log"
)

// VoltageTable is the table that DBTracer writes samples to.
const VoltageTable = "voltage_trace"

type sampleEntry struct {
	Tick int64
	Time float64
	V    float64
	H    float64
	N    float64
}

// DBTracer stores samples in a data recorder.
type DBTracer struct {
	backend datarecording.Recorder
	errs    int
}

// NewDBTracer creates the voltage table on the recorder.
func NewDBTracer(backend datarecording.Recorder) (*DBTracer, error) {
	if err := backend.CreateTable(VoltageTable, sampleEntry{}); err != nil {
		return nil, err
	}

	return &DBTracer{backend: backend}, nil
}

// Record buffers a sample in the recorder.
func (t *DBTracer) Record(s Sample) {
	err := t.backend.InsertData(VoltageTable, sampleEntry{
		Tick: s.Count,
		Time: s.Time,
		V:    s.V,
		H:    s.H,
		N:    s.N,
	})
	if err != nil {
		t.errs++
		if t.errs == 1 {
			log.Errorf("recording voltage sample: %v", err)
		}
	}
}

// Errors returns the number of samples that could not be recorded.
func (t *DBTracer) Errors() int {
	return t.errs
}

// Flush writes buffered samples.
func (t *DBTracer) Flush() error {
	return t.backend.Flush()
}
