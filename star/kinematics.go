package star

import (
	"math/rand/v2"
	"time"

	"github.com/lixenwraith/warpfield/parameter"
)

// Outcome is the per-step result for one star
type Outcome uint8

const (
	Advancing Outcome = iota
	Passed            // crossed the near plane
	Expired           // exceeded its lifetime cap
)

// Bounds describes the spawn volume
type Bounds struct {
	// SpreadX, SpreadY are world half-extents, sized so the far plane fills the viewport
	SpreadX, SpreadY float64
	MaxDepth         float64
	NearPlane        float64
	// FarMin is the respawn range lower bound as a fraction of MaxDepth
	FarMin float64
	// DriftMax bounds lateral drift speed, zero disables drift
	DriftMax float64
}

// LayerSpeed returns the parallax multiplier of a layer
func LayerSpeed(layer uint8) float64 {
	if int(layer) >= len(parameter.StarLayerSpeed) {
		return 1.0
	}
	return parameter.StarLayerSpeed[layer]
}

// LayerCount returns the number of parallax layers
func LayerCount() int {
	return len(parameter.StarLayerSpeed)
}

// Step returns the depth after one step
func Step(z, speed float64, layer uint8, deltaScale float64) float64 {
	return z - speed*LayerSpeed(layer)*deltaScale
}

// Classify decides whether a star keeps advancing, passed the viewer, or expired
// Passing takes precedence over expiry
func Classify(z, nearPlane float64, age, maxAge time.Duration) Outcome {
	if z < nearPlane {
		return Passed
	}
	if maxAge > 0 && age >= maxAge {
		return Expired
	}
	return Advancing
}

// DeltaScale converts elapsed time into reference frames, clamped against stalls
func DeltaScale(dt time.Duration) float64 {
	if dt <= 0 {
		return 0
	}
	scale := float64(dt) / float64(parameter.StarFrameReference)
	return min(scale, parameter.StarMaxDeltaScale)
}

// Position draws a spawn position; farOnly restricts depth to [FarMin*MaxDepth, MaxDepth]
// Depth is always in (NearPlane, MaxDepth]
func Position(rng *rand.Rand, b Bounds, farOnly bool) (x, y, z float64) {
	lo := b.NearPlane
	if farOnly {
		lo = max(b.FarMin*b.MaxDepth, b.NearPlane)
	}
	// Float64 is [0,1) so depth lands in (lo, MaxDepth]
	z = b.MaxDepth - rng.Float64()*(b.MaxDepth-lo)
	x = (rng.Float64()*2 - 1) * b.SpreadX
	y = (rng.Float64()*2 - 1) * b.SpreadY
	return x, y, z
}

// Drift draws a lateral drift velocity
func Drift(rng *rand.Rand, b Bounds) (vx, vy float64) {
	if b.DriftMax <= 0 {
		return 0, 0
	}
	return (rng.Float64()*2 - 1) * b.DriftMax, (rng.Float64()*2 - 1) * b.DriftMax
}

// RandomLayer picks a parallax layer uniformly
func RandomLayer(rng *rand.Rand) uint8 {
	return uint8(rng.IntN(LayerCount()))
}

// RandomPalette picks a palette with the cool palette dominant
func RandomPalette(rng *rand.Rand) uint8 {
	r := rng.IntN(10)
	switch {
	case r < 6:
		return PaletteCool
	case r < 8:
		return PaletteWarm
	default:
		return PaletteViolet
	}
}
