// Package simclock implements the discrete simulation clock: monotonic
// stepping plus a real-time -> sim-time lookup, ported from
// aerosim-world's sim_clock.rs onto Go's sync.RWMutex, in the style the
// teacher uses for its own clock types (packages/core/clock.LamportClock).
package simclock

import (
	"sort"
	"sync"
	"time"

	"github.com/edufford/aerosim/internal/logging"
	"github.com/edufford/aerosim/internal/timestamp"
)

// tick records one (wall-time, sim-time) correspondence.
type tick struct {
	wall time.Time
	sim  timestamp.Timestamp
}

// Clock is a monotonic discrete-step clock with a growing real->sim map.
// Single-writer (the orchestrator goroutine calling Start/Step/Stop),
// many-reader (transport callbacks calling SimTimeFromReal), matching the
// concurrency discipline in spec §5.
type Clock struct {
	mu        sync.RWMutex
	stepSize  time.Duration
	startWall time.Time
	simTime   timestamp.Timestamp
	ticks     []tick

	warnEmptyMap *logging.RateLimiter
}

// New constructs a Clock with the given step size.
func New(stepSize time.Duration) *Clock {
	return &Clock{
		stepSize:     stepSize,
		simTime:      timestamp.Unset(),
		warnEmptyMap: logging.NewRateLimiter(time.Second),
	}
}

// Start stamps sim-start wall time, resets sim-time to zero, and returns
// the start wall time.
func (c *Clock) Start() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startWall = time.Now()
	c.simTime = timestamp.Timestamp{}
	c.ticks = c.ticks[:0]
	return c.startWall
}

// Step advances sim-time by step_size, appends a (wall-now, new-sim-time)
// entry to the real->sim map, and returns the new sim-time.
func (c *Clock) Step() timestamp.Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.simTime = c.simTime.Add(c.stepSize)
	c.ticks = append(c.ticks, tick{wall: time.Now(), sim: c.simTime})
	return c.simTime
}

// Stop returns the current sim-time.
func (c *Clock) Stop() timestamp.Timestamp {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.simTime
}

// StepSize returns the configured step duration.
func (c *Clock) StepSize() time.Duration {
	return c.stepSize
}

// SimTimeFromReal returns the sim-time recorded at the latest tick whose
// wall timestamp is <= wallTime, via binary search on the ordered map. If
// wallTime precedes the first tick, or the map is empty, returns zero (the
// empty-map case also logs a rate-limited warning).
func (c *Clock) SimTimeFromReal(wallTime time.Time) timestamp.Timestamp {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.ticks) == 0 {
		c.warnEmptyMap.Warn("sim_time_from_real called with empty real->sim map")
		return timestamp.Timestamp{}
	}

	// sort.Search finds the first index whose wall time is > wallTime;
	// the tick just before it is the latest whose wall time is <= wallTime.
	idx := sort.Search(len(c.ticks), func(i int) bool {
		return c.ticks[i].wall.After(wallTime)
	})
	if idx == 0 {
		return timestamp.Timestamp{}
	}
	return c.ticks[idx-1].sim
}
