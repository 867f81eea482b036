// Package engine hosts the starfield: a frame loop driving either the main-thread field
// or the offload worker, a pausable clock, adaptive quality and the user-facing controls.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/lixenwraith/warpfield/core"
	"github.com/lixenwraith/warpfield/offload"
	"github.com/lixenwraith/warpfield/parameter"
	"github.com/lixenwraith/warpfield/render"
	"github.com/lixenwraith/warpfield/starfield"
	"github.com/lixenwraith/warpfield/terminal"
)

// Surface receives finished frames, *terminal.Screen implements it
type Surface interface {
	Size() (width, height int)
	Flush(cells []terminal.Cell, width, height int)
}

// Cues plays the boost transition sounds
type Cues interface {
	PlayBoost()
	PlayUnboost()
}

// Options configures an Animator
type Options struct {
	Config    starfield.Config
	Render    render.Options
	FrameRate int
	// Offload runs the simulation on a worker goroutine, falling back to the main loop on failure
	Offload bool
	// Adaptive enables the quality controller
	Adaptive bool

	Cues Cues
	// OnFrame observes the compute and draw time of every rendered frame
	OnFrame func(time.Duration)
	Logger  *zap.Logger
}

// Stats is a snapshot of the animator for status lines and metrics
type Stats struct {
	ID        string          `json:"id"`
	Field     starfield.Stats `json:"field"`
	Offloaded bool            `json:"offloaded"`
	Active    int             `json:"active"`
	Budget    int             `json:"budget"`
	Frames    uint64          `json:"frames"`
	Dropped   uint64          `json:"dropped"`
	FrameTime time.Duration   `json:"frame_time"`
	Paused    bool            `json:"paused"`
	Boosted   bool            `json:"boosted"`
}

// Animator owns the frame loop and everything it draws
// Controls may be called from any goroutine; the loop holds mu for one frame at a time
type Animator struct {
	mu sync.Mutex

	id     string
	opts   Options
	cfg    starfield.Config
	logger *zap.Logger

	field    *starfield.Field
	client   *offload.Client
	renderer *render.Renderer
	buf      *render.Buffer
	view     render.View
	points   []render.Point
	surface  Surface

	clock   *PausableClock
	quality *Quality
	last    time.Duration

	boosted  bool
	active   int
	frames   uint64
	dropped  uint64
	torndown bool

	running  atomic.Bool
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates an animator drawing into surface, which may be nil for headless runs
// The viewport follows the surface size when one is given
func New(surface Surface, opts Options) (*Animator, error) {
	cfg := opts.Config
	if surface != nil {
		if w, h := surface.Size(); w > 0 && h > 0 {
			cfg.Width, cfg.Height = w, h
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "[engine] invalid starfield config")
	}
	if opts.FrameRate <= 0 {
		opts.FrameRate = parameter.FrameRate
	}

	id := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("instance", id))

	a := &Animator{
		id:       id,
		opts:     opts,
		cfg:      cfg,
		logger:   logger,
		renderer: render.NewRenderer(opts.Render),
		buf:      render.NewBuffer(cfg.Width, cfg.Height),
		view:     render.NewView(cfg.Width, cfg.Height, cfg.FieldOfView(), cfg.AspectRatio(), parameter.ViewMargin),
		points:   make([]render.Point, 0, cfg.StarCount),
		surface:  surface,
		clock:    NewPausableClock(),
		quality:  NewQuality(time.Second/time.Duration(opts.FrameRate), cfg.StarCount),
		stopChan: make(chan struct{}),
	}
	return a, nil
}

// ID returns the instance id used in logs and metric labels
func (a *Animator) ID() string {
	return a.id
}

// Start prepares the simulation and launches the frame loop
// The loop ends when ctx is cancelled or Stop is called
func (a *Animator) Start(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return errors.New("[engine] animator already started")
	}

	a.mu.Lock()
	err := a.prepare(ctx)
	a.last = a.clock.Elapsed()
	a.mu.Unlock()
	if err != nil {
		a.running.Store(false)
		return err
	}

	a.wg.Add(1)
	core.Go(func() { a.loop(ctx) })
	return nil
}

// prepare picks the simulation path, caller holds mu
func (a *Animator) prepare(ctx context.Context) error {
	if a.torndown {
		return errors.New("[engine] animator stopped")
	}
	if a.opts.Offload {
		client := offload.NewClient(a.logger.Named("offload"))
		if err := client.Start(ctx, a.cfg); err != nil {
			a.logger.Warn("offload unavailable, running on main loop", zap.Error(err))
		} else {
			a.client = client
			a.applyBoost()
			return nil
		}
	}
	return a.useField()
}

// useField switches to the main-thread simulation, caller holds mu
func (a *Animator) useField() error {
	if a.field != nil {
		return nil
	}
	field, err := starfield.New(a.cfg, a.logger.Named("starfield"))
	if err != nil {
		return errors.Wrap(err, "[engine] failed to create starfield")
	}
	a.field = field
	a.field.SetBudget(a.quality.Target())
	a.applyBoost()
	return nil
}

func (a *Animator) loop(ctx context.Context) {
	defer a.wg.Done()

	ticker := time.NewTicker(time.Second / time.Duration(a.opts.FrameRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.stopChan:
			return
		case <-ticker.C:
			a.tick(ctx)
		}
	}
}

// tick runs one frame under the animator lock
func (a *Animator) tick(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.torndown || a.clock.IsPaused() {
		return
	}
	now := a.clock.Elapsed()
	dt := now - a.last
	a.last = now

	if a.quality.ShouldSkip() {
		a.dropped++
		return
	}

	start := time.Now()
	points, ok := a.simulate(ctx, dt)
	if !ok {
		return
	}
	a.renderer.Draw(a.buf, points)
	if a.surface != nil {
		w, h := a.buf.Size()
		a.surface.Flush(a.buf.Cells(), w, h)
	}
	elapsed := time.Since(start)
	a.frames++

	if a.opts.Adaptive {
		switch action := a.quality.Observe(elapsed); action {
		case ActionDegrade, ActionRestore:
			if a.field != nil {
				a.field.SetBudget(a.quality.Target())
			}
			a.logger.Debug("quality adjusted",
				zap.Stringer("action", action),
				zap.Int("budget", a.quality.Target()),
				zap.Duration("frame_time", a.quality.FrameTime()))
		}
	}
	if a.opts.OnFrame != nil {
		a.opts.OnFrame(elapsed)
	}
}

// simulate advances one step on the active path and returns the points to draw
// false means there is nothing new to draw this frame
func (a *Animator) simulate(ctx context.Context, dt time.Duration) ([]render.Point, bool) {
	if a.client != nil {
		f, err := a.client.Frame(ctx, dt)
		if err == nil {
			if !f.Stepped {
				a.dropped++
				return nil, false
			}
			a.active = f.Active
			return f.Points, true
		}
		if ctx.Err() != nil {
			return nil, false
		}
		a.logger.Warn("offload worker failed, running on main loop", zap.Error(err))
		a.client.Close()
		a.client = nil
		if err := a.useField(); err != nil {
			a.logger.Error("main loop fallback failed", zap.Error(err))
			return nil, false
		}
	}

	a.field.Step(dt)
	a.active = a.field.Stats().Active
	a.points = render.ProjectStars(a.field.Stars(), a.view, a.field.Speed(), a.points)
	return a.points, true
}

// Stop ends the loop and releases the simulation, safe to call repeatedly
func (a *Animator) Stop() {
	a.stopOnce.Do(func() {
		close(a.stopChan)
		a.wg.Wait()
		a.running.Store(false)

		a.mu.Lock()
		defer a.mu.Unlock()
		a.teardown()
	})
}

// teardown releases the worker or field, caller holds mu
func (a *Animator) teardown() {
	if a.torndown {
		return
	}
	a.torndown = true
	if a.client != nil {
		_ = a.client.Cleanup()
		a.client.Close()
		a.client = nil
	}
	if a.field != nil {
		a.field.Destroy()
	}
	a.logger.Debug("animator stopped", zap.Uint64("frames", a.frames), zap.Uint64("dropped", a.dropped))
}

// Wait blocks until the frame loop exits
func (a *Animator) Wait() {
	a.wg.Wait()
}

// Pause freezes animation time, frames stop until Resume
func (a *Animator) Pause() {
	if a.clock.Pause() {
		a.logger.Debug("animator paused")
	}
}

// Resume continues after Pause without a catch-up jump
func (a *Animator) Resume() {
	if a.clock.Resume() {
		a.logger.Debug("animator resumed")
	}
}

// Boost switches to warp speed
func (a *Animator) Boost() {
	a.setBoost(true)
}

// Unboost returns to cruise speed
func (a *Animator) Unboost() {
	a.setBoost(false)
}

// ToggleBoost flips between cruise and warp speed
func (a *Animator) ToggleBoost() {
	a.mu.Lock()
	on := !a.boosted
	a.mu.Unlock()
	a.setBoost(on)
}

func (a *Animator) setBoost(on bool) {
	a.mu.Lock()
	if a.boosted == on || a.torndown {
		a.mu.Unlock()
		return
	}
	a.boosted = on
	a.applyBoost()
	a.mu.Unlock()

	if a.opts.Cues == nil {
		return
	}
	if on {
		a.opts.Cues.PlayBoost()
	} else {
		a.opts.Cues.PlayUnboost()
	}
}

// applyBoost pushes the boost state to the active path, caller holds mu
func (a *Animator) applyBoost() {
	if a.field != nil {
		a.field.SetBoost(a.boosted)
	}
	if a.client != nil {
		if err := a.client.SetBoost(a.boosted); err != nil {
			a.logger.Warn("offload boost failed", zap.Error(err))
		}
	}
}

// Reset respawns the whole population
func (a *Animator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.buf.Clear()
	if a.field != nil {
		a.field.Reset()
	}
	if a.client != nil {
		if err := a.client.Reset(); err != nil {
			a.logger.Warn("offload reset failed", zap.Error(err))
		}
	}
}

// ResizeCanvas adapts the buffer, projection and spawn volume to a new viewport
// Existing stars keep their positions
func (a *Animator) ResizeCanvas(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cfg.Width, a.cfg.Height = width, height
	a.buf.Resize(width, height)
	a.view = render.NewView(width, height, a.cfg.FieldOfView(), a.cfg.AspectRatio(), parameter.ViewMargin)
	if a.field != nil {
		a.field.SetDimensions(width, height)
	}
	if a.client != nil {
		if err := a.client.SetDimensions(width, height); err != nil {
			a.logger.Warn("offload resize failed", zap.Error(err))
		}
	}
}

// PoolStats returns a snapshot of pool, field and loop counters
func (a *Animator) PoolStats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Stats{
		ID:        a.id,
		Offloaded: a.client != nil,
		Active:    a.active,
		Budget:    a.quality.Target(),
		Frames:    a.frames,
		Dropped:   a.dropped,
		FrameTime: a.quality.FrameTime(),
		Paused:    a.clock.IsPaused(),
		Boosted:   a.boosted,
	}
	if a.field != nil {
		s.Field = a.field.Stats()
		s.Active = s.Field.Active
	}
	return s
}
