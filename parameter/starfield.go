package parameter

import (
	"time"
)

// Population
const (
	// StarCount is the default target number of simultaneously active stars
	StarCount = 300
	// StarCapacity is the default pre-allocated pool size, headroom above StarCount for budget restores
	StarCapacity = 400
)

// Depth
const (
	// StarMaxDepth is the far clipping plane in world units
	StarMaxDepth = 32.0
	// StarNearPlane is the depth below which a star has passed the viewer and is recycled
	StarNearPlane = 0.1
	// StarFarMin is the lower bound of the respawn depth range as a fraction of max depth
	StarFarMin = 0.75
)

// Speed
const (
	// StarBaseSpeed is depth units travelled per reference frame at cruise
	StarBaseSpeed = 0.15
	// StarBoostSpeed is depth units travelled per reference frame while boosted
	StarBoostSpeed = 0.9
	// StarFrameReference is the frame duration the speeds are expressed against
	StarFrameReference = time.Second / 60
	// StarMaxDeltaScale caps a single step after a stall (6 reference frames)
	StarMaxDeltaScale = 6.0
)

// StarLayerSpeed is the per-layer parallax multiplier, far layers drift slower
var StarLayerSpeed = [...]float64{0.6, 1.0, 1.4}

// Visuals
const (
	StarMinSize  = 0.5
	StarMaxSize  = 3.0
	StarMinAlpha = 0.15
	StarMaxAlpha = 1.0
	// StarColorSteps is the depth resolution of each palette lookup table
	StarColorSteps = 64
)

// Projection and streaks
const (
	// ProjectionAspect compensates for 1:2 terminal cells on the x axis
	ProjectionAspect = 2.0
	// StreakScale converts speed over depth into a tail length in cells
	StreakScale = 6.0
	StreakMin   = 0.0
	StreakMax   = 12.0
	// ViewMargin is the off-screen slack in cells before a star is skipped for drawing
	ViewMargin = 2
	// TrailFadeAlpha is the per-frame blend toward background when trails are enabled
	TrailFadeAlpha = 0.35
	// GlowAlpha is the screen-blend strength of the halo around near stars
	GlowAlpha = 0.25
	// GlowMinSize is the smallest derived size that gets a halo
	GlowMinSize = 2.0
)

// Host loop
const (
	FrameRate = 60
	// QualityDegradeRatio is the frame-time EMA over budget ratio that triggers degradation
	QualityDegradeRatio = 1.5
	// QualityRecoverFrames is the count of healthy frames before one restore step
	QualityRecoverFrames = 60
	// QualityBudgetStep is the fraction of star count removed per degradation
	QualityBudgetStep = 0.25
	// QualityRestoreStep is the fraction of star count given back per restore
	QualityRestoreStep = 0.10
	// QualityBudgetFloor is the minimum budget as a fraction of star count
	QualityBudgetFloor = 0.25
	// QualityEMAWeight is the weight of the newest sample in the frame-time average
	QualityEMAWeight = 0.1
)

// Audio cues
const (
	BoostSoundDuration   = 450 * time.Millisecond
	BoostSoundAttack     = 40 * time.Millisecond
	BoostSoundRelease    = 200 * time.Millisecond
	UnboostSoundDuration = 300 * time.Millisecond
	UnboostSoundAttack   = 10 * time.Millisecond
	UnboostSoundRelease  = 220 * time.Millisecond
	BoostSweepLow        = 110.0
	BoostSweepHigh       = 660.0
)
