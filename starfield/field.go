// Package starfield runs the pool-backed star simulation: per-step depth advance,
// in-place recycling of stars that passed the viewer or expired, and population
// maintenance toward a target count.
//
// A Field is not safe for concurrent use; its owner drives Step once per frame.
package starfield

import (
	"math/rand/v2"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/lixenwraith/warpfield/pool"
	"github.com/lixenwraith/warpfield/star"
)

// Stats is a snapshot of field and pool counters
type Stats struct {
	Pool      pool.Stats `json:"pool"`
	Target    int        `json:"target"`
	Active    int        `json:"active"`
	Recycled  uint64     `json:"recycled"`
	Expired   uint64     `json:"expired"`
	Fallbacks uint64     `json:"fallbacks"`
	Ticks     uint64     `json:"ticks"`
}

// Field owns a star pool and the population borrowed from it
type Field struct {
	cfg    Config
	bounds star.Bounds
	rng    *rand.Rand

	pool   *pool.Pool[*star.Star]
	active []*star.Star
	// transient holds non-pooled stars created on exhaustion, they live for one frame
	transient []*star.Star
	view      []*star.Star

	boosted   bool
	target    int
	destroyed bool

	stats  Stats
	logger *zap.Logger
}

// New validates cfg, pre-allocates the pool and spawns the initial population
func New(cfg Config, logger *zap.Logger) (*Field, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p, err := pool.New(pool.Options[*star.Star]{
		Capacity: cfg.PoolCapacity(),
		Grow:     cfg.AllowGrowth,
		New:      star.New,
		Reset:    star.Reset,
		Logger:   logger.Named("pool"),
	})
	if err != nil {
		return nil, errors.Wrap(err, "[starfield] failed to create pool")
	}

	f := &Field{
		cfg:    cfg,
		bounds: cfg.Bounds(),
		rng:    NewRand(cfg.Seed),
		pool:   p,
		active: make([]*star.Star, 0, cfg.PoolCapacity()),
		view:   make([]*star.Star, 0, cfg.StarCount),
		target: cfg.StarCount,
		logger: logger,
	}
	f.maintain()

	logger.Debug("starfield created",
		zap.Int("stars", cfg.StarCount),
		zap.Int("capacity", p.Cap()),
		zap.Bool("growth", cfg.AllowGrowth))
	return f, nil
}

// NewRand returns a PCG generator, seed zero draws from the clock
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Step advances every active star by dt, recycles passed or expired stars in place,
// then tops the population back up to the target
func (f *Field) Step(dt time.Duration) {
	if f.destroyed {
		return
	}

	clear(f.transient)
	f.transient = f.transient[:0]

	scale := star.DeltaScale(dt)
	speed := f.Speed()
	for _, s := range f.active {
		switch s.Advance(speed, scale, dt, f.cfg.NearPlane) {
		case star.Passed:
			s.Respawn(f.rng, f.bounds, f.cfg.MaxAge)
			f.stats.Recycled++
		case star.Expired:
			s.Respawn(f.rng, f.bounds, f.cfg.MaxAge)
			f.stats.Expired++
		default:
			s.Derive(f.cfg.MaxDepth)
		}
	}

	f.maintain()
	f.stats.Ticks++
}

// maintain acquires stars until the population reaches the target
// On exhaustion the shortfall is covered by transient stars for this frame only
func (f *Field) maintain() {
	for f.population() < f.target {
		s, ok := f.pool.Acquire()
		if !ok {
			f.fallback(f.target - f.population())
			return
		}
		s.Spawn(f.rng, f.bounds, f.cfg.MaxAge)
		f.active = append(f.active, s)
	}
}

func (f *Field) fallback(n int) {
	for range n {
		s := star.New()
		s.Spawn(f.rng, f.bounds, f.cfg.MaxAge)
		f.transient = append(f.transient, s)
	}
	f.stats.Fallbacks += uint64(n)
	f.logger.Debug("pool exhausted, using transient stars", zap.Int("count", n))
}

func (f *Field) population() int {
	return len(f.active) + len(f.transient)
}

// Stars returns the stars to draw this frame, valid until the next mutating call
func (f *Field) Stars() []*star.Star {
	f.view = append(f.view[:0], f.active...)
	f.view = append(f.view, f.transient...)
	return f.view
}

// Speed returns the current preset speed
func (f *Field) Speed() float64 {
	if f.boosted {
		return f.cfg.BoostSpeed
	}
	return f.cfg.BaseSpeed
}

// SetBoost toggles between the base and boost speed presets
func (f *Field) SetBoost(on bool) {
	f.boosted = on
}

// Boosted reports whether the boost preset is active
func (f *Field) Boosted() bool {
	return f.boosted
}

// SetDimensions updates the viewport; only future spawns use the new spread
func (f *Field) SetDimensions(width, height int) {
	f.cfg.Width, f.cfg.Height = width, height
	f.bounds = f.cfg.Bounds()
}

// SetBudget changes the target population, clamped to [0, StarCount]
// Surplus stars go back to the pool in one batch
func (f *Field) SetBudget(n int) {
	if f.destroyed {
		return
	}
	n = min(max(n, 0), f.cfg.StarCount)
	f.target = n

	if surplus := len(f.active) - n; surplus > 0 {
		tail := f.active[n:]
		f.pool.ReleaseAll(tail)
		clear(tail)
		f.active = f.active[:n]
	}
	if len(f.transient) > 0 && f.population() > n {
		clear(f.transient)
		f.transient = f.transient[:0]
	}
	f.maintain()
}

// Target returns the current population target
func (f *Field) Target() int {
	return f.target
}

// Reset returns every star to the pool and respawns the target population
func (f *Field) Reset() {
	if f.destroyed {
		return
	}
	f.releaseActive()
	f.maintain()
}

func (f *Field) releaseActive() {
	f.pool.ReleaseAll(f.active)
	clear(f.active)
	f.active = f.active[:0]
	clear(f.transient)
	f.transient = f.transient[:0]
}

// Destroy releases all stars and frees the pool, safe to call repeatedly
func (f *Field) Destroy() {
	if f.destroyed {
		return
	}
	f.releaseActive()
	f.pool.Destroy()
	f.destroyed = true
	clear(f.view)
	f.view = f.view[:0]
}

// Config returns the effective configuration including current dimensions
func (f *Field) Config() Config {
	return f.cfg
}

// Stats returns a snapshot of field and pool counters
func (f *Field) Stats() Stats {
	s := f.stats
	s.Pool = f.pool.Stats()
	s.Target = f.target
	s.Active = f.population()
	return s
}
