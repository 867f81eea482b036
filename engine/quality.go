package engine

import (
	"math"
	"time"

	"github.com/lixenwraith/warpfield/parameter"
)

// Action is the quality controller's decision for one observed frame
type Action uint8

const (
	ActionNone Action = iota
	ActionDegrade
	ActionSkip
	ActionRestore
)

func (a Action) String() string {
	switch a {
	case ActionDegrade:
		return "degrade"
	case ActionSkip:
		return "skip"
	case ActionRestore:
		return "restore"
	}
	return "none"
}

// Quality tracks frame time against the frame budget and scales the star budget
// Over budget it sheds stars down to a floor, then skips frames; sustained health restores stars
type Quality struct {
	frameBudget time.Duration
	ema         float64 // nanoseconds
	sampled     bool

	full, floor  int
	step, refill int
	target       int

	healthy  int
	skipNext bool

	degrades uint64
	restores uint64
	skips    uint64
}

// NewQuality creates a controller for the given frame budget and full star count
func NewQuality(frameBudget time.Duration, starCount int) *Quality {
	frac := func(f float64) int { return max(int(math.Ceil(f*float64(starCount)-1e-9)), 1) }
	return &Quality{
		frameBudget: frameBudget,
		full:        starCount,
		floor:       min(frac(parameter.QualityBudgetFloor), starCount),
		step:        frac(parameter.QualityBudgetStep),
		refill:      frac(parameter.QualityRestoreStep),
		target:      starCount,
	}
}

// Observe records one frame time and returns the resulting action
func (q *Quality) Observe(frameTime time.Duration) Action {
	sample := float64(frameTime)
	if !q.sampled {
		q.ema, q.sampled = sample, true
	} else {
		q.ema = parameter.QualityEMAWeight*sample + (1-parameter.QualityEMAWeight)*q.ema
	}

	if q.ema > parameter.QualityDegradeRatio*float64(q.frameBudget) {
		q.healthy = 0
		// Start the average over so one action is judged before the next
		q.ema = float64(q.frameBudget)
		if q.target > q.floor {
			q.target = max(q.target-q.step, q.floor)
			q.degrades++
			return ActionDegrade
		}
		q.skipNext = true
		q.skips++
		return ActionSkip
	}

	q.healthy++
	if q.healthy >= parameter.QualityRecoverFrames && q.target < q.full {
		q.healthy = 0
		q.target = min(q.target+q.refill, q.full)
		q.restores++
		return ActionRestore
	}
	return ActionNone
}

// ShouldSkip consumes a pending frame skip
func (q *Quality) ShouldSkip() bool {
	if q.skipNext {
		q.skipNext = false
		return true
	}
	return false
}

// Target returns the current star budget
func (q *Quality) Target() int {
	return q.target
}

// FrameTime returns the smoothed frame time
func (q *Quality) FrameTime() time.Duration {
	return time.Duration(q.ema)
}

// Degraded reports whether the budget is below the full star count
func (q *Quality) Degraded() bool {
	return q.target < q.full
}
