package engine

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultInterval is the real time between clock-face steps.
const DefaultInterval = 500 * time.Millisecond

// Driver schedules clock steps. Start replaces any step previously armed;
// Stop is idempotent and does not wait for a step already delivered.
type Driver interface {
	Start(step func())
	Stop()
}

// RealtimeDriver steps the clock on a fixed real-time interval.
type RealtimeDriver struct {
	clock    clockwork.Clock
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
}

// NewRealtimeDriver creates a driver ticking every interval on clk.
// A nil clk uses the wall clock.
func NewRealtimeDriver(clk clockwork.Clock, interval time.Duration) *RealtimeDriver {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &RealtimeDriver{clock: clk, interval: interval}
}

// Interval returns the real time between steps.
func (d *RealtimeDriver) Interval() time.Duration {
	return d.interval
}

// Start launches the ticker goroutine.
func (d *RealtimeDriver) Start(step func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stop != nil {
		close(d.stop)
	}
	stop := make(chan struct{})
	d.stop = stop

	// The ticker is created here rather than in the goroutine so a fake
	// clock sees it registered as soon as Start returns.
	ticker := d.clock.NewTicker(d.interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.Chan():
				select {
				case <-stop:
					return
				default:
				}
				step()
			}
		}
	}()
}

// Stop halts the ticker goroutine.
func (d *RealtimeDriver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stop == nil {
		return
	}
	close(d.stop)
	d.stop = nil
}

// ManualDriver steps the clock only when told to. Used by tests and headless
// replays in place of a real-time timer.
type ManualDriver struct {
	ticksPerHour int

	mu   sync.Mutex
	step func()
}

// NewManualDriver creates a manual driver for a clock with ticksPerHour steps.
func NewManualDriver(ticksPerHour int) *ManualDriver {
	if ticksPerHour <= 0 {
		ticksPerHour = DefaultTicksPerHour
	}
	return &ManualDriver{ticksPerHour: ticksPerHour}
}

// Start arms step.
func (d *ManualDriver) Start(step func()) {
	d.mu.Lock()
	d.step = step
	d.mu.Unlock()
}

// Stop disarms the driver.
func (d *ManualDriver) Stop() {
	d.mu.Lock()
	d.step = nil
	d.mu.Unlock()
}

// Armed reports whether a step is armed.
func (d *ManualDriver) Armed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.step != nil
}

// Step runs n clock-face steps, stopping early if the driver is disarmed
// along the way.
func (d *ManualDriver) Step(n int) {
	for i := 0; i < n; i++ {
		d.mu.Lock()
		step := d.step
		d.mu.Unlock()
		if step == nil {
			return
		}
		step()
	}
}

// AdvanceBy runs enough steps to move the clock forward by hours.
func (d *ManualDriver) AdvanceBy(hours int) {
	d.Step(hours * d.ticksPerHour)
}
