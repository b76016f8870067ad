package tracing

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/wbneuron/log"
	"github.com/sarchlab/wbneuron/sim/id"
)

// CSVTracer writes samples as CSV rows of time, V, h and n.
type CSVTracer struct {
	w       *bufio.Writer
	closer  io.Closer
	every   int64
	written int
}

// NewCSVTracer creates path + ".csv" and writes the header. An empty path
// picks a unique name. The file is flushed and closed when the program exits
// through atexit.
func NewCSVTracer(path string) (*CSVTracer, error) {
	if path == "" {
		path = "wbneuron_trace_" + id.NewParallelIDGenerator().Generate()
	}

	filename := path + ".csv"

	_, err := os.Stat(filename)
	if err == nil {
		return nil, fmt.Errorf("file %s already exists", filename)
	}

	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("creating trace file: %w", err)
	}

	t := NewCSVTracerWithWriter(file)
	t.closer = file

	atexit.Register(func() {
		if err := t.Close(); err != nil {
			log.Errorf("closing %s: %v", filename, err)
		}
	})

	return t, nil
}

// NewCSVTracerWithWriter creates a tracer on a writer.
func NewCSVTracerWithWriter(w io.Writer) *CSVTracer {
	t := &CSVTracer{
		w:     bufio.NewWriter(w),
		every: 1,
	}

	fmt.Fprintf(t.w, "Time, V, h, n\n")

	return t
}

// Decimate keeps only every nth tick.
func (t *CSVTracer) Decimate(n int64) {
	if n < 1 {
		n = 1
	}

	t.every = n
}

// Record writes a sample.
func (t *CSVTracer) Record(s Sample) {
	if (s.Count-1)%t.every != 0 {
		return
	}

	fmt.Fprintf(t.w, "%.10f, %.10g, %.10g, %.10g\n", s.Time, s.V, s.H, s.N)
	t.written++
}

// Written returns the number of rows written.
func (t *CSVTracer) Written() int {
	return t.written
}

// Flush pushes buffered rows to the underlying writer.
func (t *CSVTracer) Flush() error {
	return t.w.Flush()
}

// Close flushes and closes the file, if the tracer owns one.
func (t *CSVTracer) Close() error {
	if err := t.Flush(); err != nil {
		return err
	}

	if t.closer == nil {
		return nil
	}

	c := t.closer
	t.closer = nil

	return c.Close()
}
