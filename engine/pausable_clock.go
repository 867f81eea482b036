package engine

import (
	"sync"
	"sync/atomic"
	"time"
)

// PausableClock provides animation time that stands still while paused
type PausableClock struct {
	mu sync.RWMutex

	realStartTime time.Time

	isPaused        atomic.Bool
	pauseStartTime  time.Time
	totalPausedTime time.Duration

	now func() time.Time
}

// NewPausableClock creates a running clock on wall time
func NewPausableClock() *PausableClock {
	return newPausableClock(time.Now)
}

func newPausableClock(now func() time.Time) *PausableClock {
	return &PausableClock{
		realStartTime: now(),
		now:           now,
	}
}

// Elapsed returns animation time since creation, excluding pauses
func (pc *PausableClock) Elapsed() time.Duration {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	if pc.isPaused.Load() {
		// Frozen at the pause point
		return pc.pauseStartTime.Sub(pc.realStartTime) - pc.totalPausedTime
	}
	return pc.now().Sub(pc.realStartTime) - pc.totalPausedTime
}

// Pause stops time advancement, no-op when already paused
func (pc *PausableClock) Pause() bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if !pc.isPaused.CompareAndSwap(false, true) {
		return false
	}
	pc.pauseStartTime = pc.now()
	return true
}

// Resume continues time advancement, no-op when running
func (pc *PausableClock) Resume() bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if !pc.isPaused.CompareAndSwap(true, false) {
		return false
	}
	pc.totalPausedTime += pc.now().Sub(pc.pauseStartTime)
	pc.pauseStartTime = time.Time{}
	return true
}

// IsPaused returns current pause state
func (pc *PausableClock) IsPaused() bool {
	return pc.isPaused.Load()
}

// TotalPauseDuration returns cumulative pause time including the current pause
func (pc *PausableClock) TotalPauseDuration() time.Duration {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	total := pc.totalPausedTime
	if pc.isPaused.Load() && !pc.pauseStartTime.IsZero() {
		total += pc.now().Sub(pc.pauseStartTime)
	}
	return total
}
