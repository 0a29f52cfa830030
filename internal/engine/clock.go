// Package engine provides the simulated clock that drives the game.
// A Clock only knows about time; hour and day effects are wired in by the
// owner through Handlers.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// HoursPerDay is the length of a simulated day.
const HoursPerDay = 24

// DefaultTicksPerHour is how many clock-face steps make one simulated hour.
const DefaultTicksPerHour = 6

// ErrClockRunning is returned when time is re-seated on a running clock.
var ErrClockRunning = errors.New("clock is running")

// Time is a point on the simulated calendar.
type Time struct {
	Day    int `json:"day"`
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// String renders the clock face, e.g. "Day 2, 09:30".
func (t Time) String() string {
	return fmt.Sprintf("Day %d, %02d:%02d", t.Day+1, t.Hour, t.Minute)
}

// Handlers are the callbacks a running Clock invokes. Any may be nil.
type Handlers struct {
	OnTick func(now Time)      // Every clock-face step
	OnHour func(day, hour int) // Once per simulated hour, with the new hour
	OnDay  func(day int)       // Once per simulated day, after OnHour for hour 0
}

// Clock holds simulated time and arms a Driver to advance it.
//
// Start, Stop and Restore are called by the owner from inside the execution
// lane. Driver steps take the lane themselves, so no two steps ever overlap
// and no step runs concurrently with owner code.
type Clock struct {
	lane         sync.Locker
	driver       Driver
	ticksPerHour int

	day     int
	hour    int
	step    int
	running bool

	// generation increments on every Start. Steps carry the generation they
	// were armed with and are dropped if it is stale.
	generation uint64
	handlers   Handlers
}

// NewClock creates a stopped clock at day 0, startHour:00.
func NewClock(driver Driver, lane sync.Locker, ticksPerHour, startHour int) *Clock {
	if ticksPerHour <= 0 {
		ticksPerHour = DefaultTicksPerHour
	}
	return &Clock{
		lane:         lane,
		driver:       driver,
		ticksPerHour: ticksPerHour,
		hour:         ((startHour % HoursPerDay) + HoursPerDay) % HoursPerDay,
	}
}

// Start arms the driver. A clock that is already running has its driver torn
// down first so two drivers never coexist.
func (c *Clock) Start(h Handlers) {
	if c.running {
		c.driver.Stop()
		slog.Warn("clock restarted while running, previous driver torn down",
			"time", c.Now().String(), "generation", c.generation)
	}

	c.generation++
	gen := c.generation
	c.handlers = h
	c.running = true

	c.driver.Start(func() {
		c.lane.Lock()
		defer c.lane.Unlock()
		c.advance(gen)
	})

	slog.Info("clock started", "time", c.Now().String(), "generation", gen)
}

// Stop disarms the driver without touching the time. Stopping a stopped
// clock is a no-op.
func (c *Clock) Stop() {
	if !c.running {
		return
	}
	c.running = false
	c.driver.Stop()
	slog.Info("clock stopped", "time", c.Now().String())
}

// Running reports whether the driver is armed.
func (c *Clock) Running() bool {
	return c.running
}

// Now returns the current simulated time.
func (c *Clock) Now() Time {
	return Time{Day: c.day, Hour: c.hour, Minute: c.step * 60 / c.ticksPerHour}
}

// Day returns the current day index.
func (c *Clock) Day() int { return c.day }

// Hour returns the current hour of day.
func (c *Clock) Hour() int { return c.hour }

// TicksPerHour returns the number of clock-face steps per simulated hour.
func (c *Clock) TicksPerHour() int { return c.ticksPerHour }

// Restore re-seats the clock at a saved time. The clock must be stopped.
func (c *Clock) Restore(t Time) error {
	if c.running {
		return ErrClockRunning
	}
	if t.Day < 0 || t.Hour < 0 || t.Hour >= HoursPerDay || t.Minute < 0 || t.Minute >= 60 {
		return fmt.Errorf("restore clock: time out of range: %+v", t)
	}
	c.day = t.Day
	c.hour = t.Hour
	c.step = t.Minute * c.ticksPerHour / 60
	return nil
}

// advance moves the clock face one step. Called with the lane held.
func (c *Clock) advance(gen uint64) {
	if !c.running || gen != c.generation {
		return
	}

	hourCrossed := false
	c.step++
	if c.step >= c.ticksPerHour {
		c.step = 0
		c.hour++
		hourCrossed = true
		if c.hour >= HoursPerDay {
			c.hour = 0
			c.day++
		}
	}

	h := c.handlers
	if h.OnTick != nil {
		h.OnTick(c.Now())
	}
	if !hourCrossed {
		return
	}

	// Hour effects always land before day effects for the same crossing.
	if h.OnHour != nil {
		h.OnHour(c.day, c.hour)
	}
	if c.hour == 0 && h.OnDay != nil {
		h.OnDay(c.day)
	}
}
