package starfield

import (
	"time"

	"github.com/pkg/errors"

	"github.com/lixenwraith/warpfield/parameter"
	"github.com/lixenwraith/warpfield/star"
)

// Config holds the tunables of one starfield instance
type Config struct {
	StarCount   int           `mapstructure:"star_count" yaml:"star_count" json:"star_count"`
	Capacity    int           `mapstructure:"capacity" yaml:"capacity" json:"capacity"`
	AllowGrowth bool          `mapstructure:"allow_growth" yaml:"allow_growth" json:"allow_growth"`
	MaxDepth    float64       `mapstructure:"max_depth" yaml:"max_depth" json:"max_depth"`
	NearPlane   float64       `mapstructure:"near_plane" yaml:"near_plane" json:"near_plane"`
	FarMin      float64       `mapstructure:"far_min" yaml:"far_min" json:"far_min"`
	BaseSpeed   float64       `mapstructure:"base_speed" yaml:"base_speed" json:"base_speed"`
	BoostSpeed  float64       `mapstructure:"boost_speed" yaml:"boost_speed" json:"boost_speed"`
	Drift       float64       `mapstructure:"drift" yaml:"drift" json:"drift"`
	MaxAge      time.Duration `mapstructure:"max_age" yaml:"max_age" json:"max_age"`

	// FOV is the projection scale in cells, zero derives it from the viewport height
	FOV    float64 `mapstructure:"fov" yaml:"fov" json:"fov"`
	Aspect float64 `mapstructure:"aspect" yaml:"aspect" json:"aspect"`

	EnableGlow   bool `mapstructure:"enable_glow" yaml:"enable_glow" json:"enable_glow"`
	EnableTrails bool `mapstructure:"enable_trails" yaml:"enable_trails" json:"enable_trails"`

	Width  int `mapstructure:"width" yaml:"width" json:"width"`
	Height int `mapstructure:"height" yaml:"height" json:"height"`

	// Seed fixes the random sequence, zero seeds from the clock
	Seed uint64 `mapstructure:"seed" yaml:"seed" json:"seed"`
}

// DefaultConfig returns sensible defaults for an 80x24 terminal
func DefaultConfig() Config {
	return Config{
		StarCount:    parameter.StarCount,
		Capacity:     parameter.StarCapacity,
		MaxDepth:     parameter.StarMaxDepth,
		NearPlane:    parameter.StarNearPlane,
		FarMin:       parameter.StarFarMin,
		BaseSpeed:    parameter.StarBaseSpeed,
		BoostSpeed:   parameter.StarBoostSpeed,
		Drift:        0.01,
		Aspect:       parameter.ProjectionAspect,
		EnableGlow:   true,
		EnableTrails: true,
		Width:        80,
		Height:       24,
	}
}

// Validate rejects configurations the simulation cannot honor
func (c Config) Validate() error {
	switch {
	case c.StarCount <= 0:
		return errors.Errorf("[starfield] star count must be positive, got %d", c.StarCount)
	case c.Capacity < 0:
		return errors.Errorf("[starfield] capacity must not be negative, got %d", c.Capacity)
	case c.MaxDepth <= 0:
		return errors.Errorf("[starfield] max depth must be positive, got %g", c.MaxDepth)
	case c.NearPlane <= 0 || c.NearPlane >= c.MaxDepth:
		return errors.Errorf("[starfield] near plane must be in (0, %g), got %g", c.MaxDepth, c.NearPlane)
	case c.FarMin < 0 || c.FarMin > 1:
		return errors.Errorf("[starfield] far min must be a fraction in [0, 1], got %g", c.FarMin)
	case c.BaseSpeed < 0 || c.BoostSpeed < 0:
		return errors.New("[starfield] speeds must not be negative")
	case c.MaxAge < 0:
		return errors.New("[starfield] max age must not be negative")
	case c.Width < 0 || c.Height < 0:
		return errors.Errorf("[starfield] invalid dimensions %dx%d", c.Width, c.Height)
	}
	return nil
}

// FieldOfView returns the configured FOV or one derived from the viewport
func (c Config) FieldOfView() float64 {
	if c.FOV > 0 {
		return c.FOV
	}
	return max(float64(c.Height)/2, 1)
}

// AspectRatio returns the x stretch, defaulting to square pixels
func (c Config) AspectRatio() float64 {
	if c.Aspect > 0 {
		return c.Aspect
	}
	return 1
}

// Bounds sizes the spawn volume so stars at the far plane cover the viewport
func (c Config) Bounds() star.Bounds {
	fov := c.FieldOfView()
	cx, cy := max(float64(c.Width)/2, 1), max(float64(c.Height)/2, 1)
	return star.Bounds{
		SpreadX:   cx * c.MaxDepth / (fov * c.AspectRatio()),
		SpreadY:   cy * c.MaxDepth / fov,
		MaxDepth:  c.MaxDepth,
		NearPlane: c.NearPlane,
		FarMin:    c.FarMin,
		DriftMax:  c.Drift,
	}
}

// PoolCapacity returns the pre-allocation size, zero capacity means exactly the star count
// A capacity below the star count without growth leaves the surplus to per-frame fallbacks
func (c Config) PoolCapacity() int {
	if c.Capacity > 0 {
		return c.Capacity
	}
	return c.StarCount
}
