package monitoring

import (
	"sync"
	"time"

	"github.com/sarchlab/wbneuron/sim/hooking"
	"github.com/sarchlab/wbneuron/sim/id"
)

// A ProgressBar is a tracker of the progress
type ProgressBar struct {
	sync.Mutex
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
}

func newProgressBar(name string, total uint64) *ProgressBar {
	return &ProgressBar{
		ID:        id.Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}
}

// IncrementFinished add a certain amount to finished element.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished += amount
}

// Progress returns the finished fraction, or 0 when the total is unknown.
func (b *ProgressBar) Progress() float64 {
	b.Lock()
	defer b.Unlock()

	if b.Total == 0 {
		return 0
	}

	return float64(b.Finished) / float64(b.Total)
}

// progressHook advances a bar on every hook invocation at a position.
type progressHook struct {
	bar *ProgressBar
	pos *hooking.HookPos
}

func (h progressHook) Func(ctx hooking.HookCtx) {
	if ctx.Pos == h.pos {
		h.bar.IncrementFinished(1)
	}
}
