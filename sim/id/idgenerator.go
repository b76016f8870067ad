// Package id generates identifiers for events and simulation runs.
package id

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

// IDGenerator can generate IDs.
type IDGenerator interface {
	Generate() string
}

var (
	generatorLock sync.Mutex
	generator     IDGenerator
)

// NewIDGenerator returns a generator that produces sequential numeric IDs.
func NewIDGenerator() IDGenerator {
	return &sequentialIDGenerator{}
}

// NewParallelIDGenerator returns a generator that produces globally unique,
// non-deterministic IDs.
func NewParallelIDGenerator() IDGenerator {
	return parallelIDGenerator{}
}

// Generate returns a new ID from the package-level generator.
func Generate() string {
	generatorLock.Lock()
	if generator == nil {
		generator = NewIDGenerator()
	}
	g := generator
	generatorLock.Unlock()

	return g.Generate()
}

type sequentialIDGenerator struct {
	nextID uint64
}

func (g *sequentialIDGenerator) Generate() string {
	idNumber := atomic.AddUint64(&g.nextID, 1)

	return strconv.FormatUint(idNumber, 10)
}

type parallelIDGenerator struct{}

func (g parallelIDGenerator) Generate() string {
	return xid.New().String()
}
