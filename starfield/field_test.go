package starfield

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/warpfield/parameter"
	"github.com/lixenwraith/warpfield/star"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Seed = 42
	return cfg
}

func newTestField(t *testing.T, cfg Config) *Field {
	t.Helper()
	f, err := New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(f.Destroy)
	return f
}

const frame = parameter.StarFrameReference

// 400-capacity pool, 300 stars, 1000 ticks at speed 0.5 and depth 32
func TestField_LongRunScenario(t *testing.T) {
	cfg := testConfig()
	cfg.Capacity = 400
	cfg.StarCount = 300
	cfg.BaseSpeed = 0.5
	cfg.MaxDepth = 32
	f := newTestField(t, cfg)

	for tick := range 1000 {
		f.Step(frame)

		stats := f.Stats()
		require.Equal(t, 300, stats.Active, "tick %d", tick)
		require.Equal(t, 300, stats.Pool.Active, "tick %d", tick)
		require.Zero(t, stats.Fallbacks)

		for _, s := range f.Stars() {
			require.Greater(t, s.Z, 0.0, "tick %d", tick)
			require.LessOrEqual(t, s.Z, cfg.MaxDepth, "tick %d", tick)
		}
	}

	stats := f.Stats()
	// Recycling happens in place, so the only acquires are the initial population
	assert.Equal(t, uint64(300), stats.Pool.Acquires())
	assert.Equal(t, uint64(300), stats.Pool.Created)
	assert.Equal(t, 400, stats.Pool.Capacity)
	assert.Greater(t, stats.Recycled, uint64(0))
	assert.Equal(t, uint64(1000), stats.Ticks)
}

func TestField_DepthMonotonicUnlessRecycled(t *testing.T) {
	cfg := testConfig()
	cfg.BaseSpeed = 0.3
	f := newTestField(t, cfg)

	prev := make(map[*star.Star]float64)
	for _, s := range f.Stars() {
		prev[s] = s.Z
	}

	recycledBefore := f.Stats().Recycled
	f.Step(frame)
	recycled := f.Stats().Recycled - recycledBefore

	decreased, jumped := 0, 0
	for _, s := range f.Stars() {
		z0, ok := prev[s]
		require.True(t, ok, "population changed without exhaustion")
		if s.Z < z0 {
			decreased++
		} else {
			jumped++
			assert.GreaterOrEqual(t, s.Z, cfg.FarMin*cfg.MaxDepth)
		}
	}
	assert.Equal(t, int(recycled), jumped)
	assert.Equal(t, cfg.StarCount-int(recycled), decreased)
}

func TestField_RecycleReturnsToFarRange(t *testing.T) {
	cfg := testConfig()
	f := newTestField(t, cfg)

	s := f.Stars()[0]
	s.Z = cfg.NearPlane + 0.001

	f.Step(frame)

	assert.GreaterOrEqual(t, s.Z, cfg.FarMin*cfg.MaxDepth)
	assert.LessOrEqual(t, s.Z, cfg.MaxDepth)
	assert.GreaterOrEqual(t, f.Stats().Recycled, uint64(1))
}

func TestField_OffscreenStarsAreNotRecycled(t *testing.T) {
	cfg := testConfig()
	f := newTestField(t, cfg)

	s := f.Stars()[0]
	s.X, s.Y, s.Z = 1e6, -1e6, 10

	f.Step(frame)

	// Other stars may pass the viewer in the same step, so check this one only
	assert.Contains(t, f.Stars(), s)
	assert.Less(t, s.Z, 10.0)
	assert.Greater(t, s.Z, cfg.NearPlane)
	assert.Less(t, s.Z, cfg.FarMin*cfg.MaxDepth, "not respawned")
	assert.InDelta(t, 1e6, s.X, 1)
	assert.InDelta(t, 1e6, s.PrevX, 1)
	assert.InDelta(t, -1e6, s.PrevY, 1)
}

func TestField_ExpiresByAge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAge = 3 * frame
	cfg.BaseSpeed = 0.01
	f := newTestField(t, cfg)

	for range 3 {
		f.Step(frame)
	}

	// Stars spawned right at the near plane may pass before they expire
	stats := f.Stats()
	assert.Equal(t, uint64(cfg.StarCount), stats.Expired+stats.Recycled)
	assert.Greater(t, stats.Expired, stats.Recycled)
	for _, s := range f.Stars() {
		assert.Less(t, s.Age, cfg.MaxAge)
	}
}

func TestField_ExhaustionFallsBackToTransientStars(t *testing.T) {
	cfg := testConfig()
	cfg.StarCount = 50
	cfg.Capacity = 30
	f := newTestField(t, cfg)

	stats := f.Stats()
	assert.Equal(t, 50, stats.Active)
	assert.Equal(t, 30, stats.Pool.Active)
	assert.Equal(t, uint64(20), stats.Fallbacks)

	f.Step(frame)
	stats = f.Stats()
	assert.Equal(t, 50, stats.Active)
	assert.Equal(t, uint64(40), stats.Fallbacks, "transients live one frame")
	assert.Len(t, f.Stars(), 50)
}

func TestField_GrowthAvoidsFallback(t *testing.T) {
	cfg := testConfig()
	cfg.StarCount = 50
	cfg.Capacity = 30
	cfg.AllowGrowth = true
	f := newTestField(t, cfg)

	stats := f.Stats()
	assert.Equal(t, 50, stats.Pool.Active)
	assert.Equal(t, 50, stats.Pool.Capacity)
	assert.Zero(t, stats.Fallbacks)
}

func TestField_BudgetShrinksAndRestores(t *testing.T) {
	cfg := testConfig()
	f := newTestField(t, cfg)

	f.SetBudget(100)
	stats := f.Stats()
	assert.Equal(t, 100, stats.Active)
	assert.Equal(t, 100, stats.Pool.Active)

	f.Step(frame)
	assert.Equal(t, 100, f.Stats().Active)

	f.SetBudget(cfg.StarCount * 10)
	stats = f.Stats()
	assert.Equal(t, cfg.StarCount, stats.Target, "budget is capped at star count")
	assert.Equal(t, cfg.StarCount, stats.Active)
	assert.Greater(t, stats.Pool.Reused, uint64(0))
	assert.Equal(t, stats.Pool.Acquires(), uint64(cfg.StarCount+cfg.StarCount-100))
}

func TestField_BoostChangesSpeed(t *testing.T) {
	cfg := testConfig()
	f := newTestField(t, cfg)

	assert.Equal(t, cfg.BaseSpeed, f.Speed())
	f.SetBoost(true)
	assert.True(t, f.Boosted())
	assert.Equal(t, cfg.BoostSpeed, f.Speed())
	f.SetBoost(false)
	assert.Equal(t, cfg.BaseSpeed, f.Speed())
}

func TestField_ResetRestoresPopulation(t *testing.T) {
	cfg := testConfig()
	f := newTestField(t, cfg)
	f.SetBudget(10)

	f.Reset()
	assert.Equal(t, 10, f.Stats().Active, "reset keeps the current budget")

	f.SetBudget(cfg.StarCount)
	f.Reset()
	assert.Equal(t, cfg.StarCount, f.Stats().Active)
	assert.Equal(t, cfg.StarCount, f.Stats().Pool.Active)
}

func TestField_DestroyIsIdempotent(t *testing.T) {
	f, err := New(testConfig(), nil)
	require.NoError(t, err)

	f.Destroy()
	f.Destroy()
	f.Step(frame)
	f.Reset()
	f.SetBudget(5)

	stats := f.Stats()
	assert.Zero(t, stats.Active)
	assert.Zero(t, stats.Pool.Capacity)
	assert.Empty(t, f.Stars())
}

func TestField_SetDimensionsWidensSpread(t *testing.T) {
	f := newTestField(t, testConfig())
	narrow := f.bounds.SpreadX

	f.SetDimensions(200, 24)

	assert.Greater(t, f.bounds.SpreadX, narrow)
	assert.Equal(t, 200, f.Config().Width)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero stars", func(c *Config) { c.StarCount = 0 }},
		{"negative capacity", func(c *Config) { c.Capacity = -1 }},
		{"zero depth", func(c *Config) { c.MaxDepth = 0 }},
		{"near beyond far", func(c *Config) { c.NearPlane = c.MaxDepth }},
		{"zero near", func(c *Config) { c.NearPlane = 0 }},
		{"far min above one", func(c *Config) { c.FarMin = 1.5 }},
		{"negative speed", func(c *Config) { c.BoostSpeed = -1 }},
		{"negative age", func(c *Config) { c.MaxAge = -time.Second }},
		{"negative width", func(c *Config) { c.Width = -1 }},
	}
	require.NoError(t, DefaultConfig().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
			_, err := New(cfg, nil)
			assert.Error(t, err)
		})
	}
}

func TestConfig_DerivedValues(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 12.0, cfg.FieldOfView())
	cfg.FOV = 30
	assert.Equal(t, 30.0, cfg.FieldOfView())

	cfg.Aspect = 0
	assert.Equal(t, 1.0, cfg.AspectRatio())

	cfg.Capacity = 0
	assert.Equal(t, cfg.StarCount, cfg.PoolCapacity())
}
