// Package star holds the particle record and the canonical star physics shared by the
// object-backed field and the flat-buffer worker: spawn placement, depth advance,
// recycling thresholds and depth-derived visuals.
package star

import (
	"math/rand/v2"
	"time"

	"github.com/lixenwraith/warpfield/terminal"
)

// Star is one simulated point travelling toward the viewer
// X/Y are world-space, Z is depth with 0 < Z <= MaxDepth after every completed step
type Star struct {
	X, Y         float64
	Z            float64
	PrevX, PrevY float64
	VX, VY       float64 // lateral drift, world units per reference frame

	Layer   uint8
	Palette uint8

	Size  float64
	Alpha float64
	Color terminal.RGB

	Age    time.Duration
	MaxAge time.Duration
}

// New returns a zeroed star, used as pool factory
func New() *Star {
	return &Star{}
}

// Reset clears every simulation field back to its neutral default
func Reset(s *Star) {
	*s = Star{}
}

// Spawn places a star anywhere in the depth range, used for initial population
func (s *Star) Spawn(rng *rand.Rand, b Bounds, maxAge time.Duration) {
	s.place(rng, b, false, maxAge)
}

// Respawn recycles a star in place to the far depth range
func (s *Star) Respawn(rng *rand.Rand, b Bounds, maxAge time.Duration) {
	s.place(rng, b, true, maxAge)
}

func (s *Star) place(rng *rand.Rand, b Bounds, farOnly bool, maxAge time.Duration) {
	s.X, s.Y, s.Z = Position(rng, b, farOnly)
	s.PrevX, s.PrevY = s.X, s.Y
	s.VX, s.VY = Drift(rng, b)
	s.Layer = RandomLayer(rng)
	s.Palette = RandomPalette(rng)
	s.Age = 0
	s.MaxAge = maxAge
	s.Derive(b.MaxDepth)
}

// Advance moves the star one step: saves previous position, drifts, and decreases depth
// Returns the outcome so callers can recycle or count expirations
func (s *Star) Advance(speed, deltaScale float64, dt time.Duration, nearPlane float64) Outcome {
	s.PrevX, s.PrevY = s.X, s.Y
	s.X += s.VX * deltaScale
	s.Y += s.VY * deltaScale
	s.Z = Step(s.Z, speed, s.Layer, deltaScale)
	s.Age += dt
	return Classify(s.Z, nearPlane, s.Age, s.MaxAge)
}

// Derive recomputes size, alpha and color from current depth
func (s *Star) Derive(maxDepth float64) {
	v := DeriveVisual(s.Z, maxDepth, s.Palette)
	s.Size, s.Alpha, s.Color = v.Size, v.Alpha, v.Color
}
