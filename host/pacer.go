package host

import (
	"sync"
	"time"

	"github.com/sarchlab/wbneuron/log"
	"github.com/sarchlab/wbneuron/sim/hooking"
	"github.com/sarchlab/wbneuron/sim/timing"
)

// Clock is the wall clock the pacer waits on.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type wallClock struct{}

func (wallClock) Now() time.Time        { return time.Now() }
func (wallClock) Sleep(d time.Duration) { time.Sleep(d) }

// DefaultMaxLag is how far behind the wall clock the engine may fall before
// the pacer gives up catching up and re-anchors.
const DefaultMaxLag = 100 * time.Millisecond

// RealTimePacer is an engine hook that holds every event back until the wall
// clock reaches the event's virtual time, divided by the speed factor. It
// never speeds the engine up. Events that start late are counted as
// overruns and only reported.
type RealTimePacer struct {
	clock  Clock
	speed  float64
	maxLag time.Duration

	lock      sync.Mutex
	anchored  bool
	wallStart time.Time
	simStart  timing.VTimeInSec
	overruns  uint64
	slept     time.Duration
}

// NewRealTimePacer creates a pacer. A speed of 1 runs in real time, 2 runs
// twice as fast as real time.
func NewRealTimePacer(speed float64) *RealTimePacer {
	return NewRealTimePacerWithClock(speed, wallClock{})
}

// NewRealTimePacerWithClock creates a pacer on a given clock.
func NewRealTimePacerWithClock(speed float64, clock Clock) *RealTimePacer {
	if speed <= 0 {
		speed = 1
	}

	return &RealTimePacer{
		clock:  clock,
		speed:  speed,
		maxLag: DefaultMaxLag,
	}
}

// SetMaxLag changes how much lag triggers a re-anchor.
func (p *RealTimePacer) SetMaxLag(d time.Duration) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.maxLag = d
}

// Func paces the engine before each event.
func (p *RealTimePacer) Func(ctx hooking.HookCtx) {
	if ctx.Pos != timing.HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(timing.Event)
	if !ok {
		return
	}

	p.pace(evt.Time())
}

func (p *RealTimePacer) pace(t timing.VTimeInSec) {
	p.lock.Lock()
	defer p.lock.Unlock()

	now := p.clock.Now()
	if !p.anchored {
		p.anchor(now, t)
		return
	}

	elapsed := float64(t-p.simStart) / p.speed
	target := p.wallStart.Add(time.Duration(elapsed * float64(time.Second)))

	wait := target.Sub(now)
	if wait > 0 {
		p.clock.Sleep(wait)
		p.slept += wait

		return
	}

	if wait < 0 {
		p.overruns++
	}

	if -wait > p.maxLag {
		log.Warningf("real-time pacer: %v behind at %.6fs, re-anchoring",
			-wait, t)
		p.anchor(now, t)
	}
}

func (p *RealTimePacer) anchor(now time.Time, t timing.VTimeInSec) {
	p.anchored = true
	p.wallStart = now
	p.simStart = t
}

// Reset forgets the anchor. The next event is taken as on time. Hosts call
// it after a pause so that the paused wall time is not counted as lag.
func (p *RealTimePacer) Reset() {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.anchored = false
}

// Overruns returns the number of events that started after their deadline.
func (p *RealTimePacer) Overruns() uint64 {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.overruns
}

// Slept returns the total time spent waiting for the wall clock.
func (p *RealTimePacer) Slept() time.Duration {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.slept
}
