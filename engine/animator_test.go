package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/warpfield/render"
	"github.com/lixenwraith/warpfield/starfield"
	"github.com/lixenwraith/warpfield/terminal"
)

type fakeSurface struct {
	mu            sync.Mutex
	width, height int
	flushes       int
	lastCells     int
}

func (s *fakeSurface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

func (s *fakeSurface) Flush(cells []terminal.Cell, width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	s.lastCells = len(cells)
}

func (s *fakeSurface) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushes
}

type fakeCues struct {
	boosts, unboosts atomic.Int32
}

func (c *fakeCues) PlayBoost()   { c.boosts.Add(1) }
func (c *fakeCues) PlayUnboost() { c.unboosts.Add(1) }

func testOptions() Options {
	cfg := starfield.DefaultConfig()
	cfg.Seed = 99
	return Options{
		Config:    cfg,
		Render:    render.DefaultOptions(),
		FrameRate: 120,
	}
}

// prepared returns an animator ready for manual ticks, without the background loop
func prepared(t *testing.T, surface Surface, opts Options) *Animator {
	t.Helper()
	a, err := New(surface, opts)
	require.NoError(t, err)
	a.mu.Lock()
	err = a.prepare(context.Background())
	a.mu.Unlock()
	require.NoError(t, err)
	t.Cleanup(a.Stop)
	return a
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	opts := testOptions()
	opts.Config.StarCount = 0
	_, err := New(nil, opts)
	assert.Error(t, err)
}

func TestNew_FollowsSurfaceSize(t *testing.T) {
	surface := &fakeSurface{width: 100, height: 30}
	a, err := New(surface, testOptions())
	require.NoError(t, err)

	w, h := a.buf.Size()
	assert.Equal(t, 100, w)
	assert.Equal(t, 30, h)
	assert.Equal(t, 50.0, a.view.CX)
	assert.NotEmpty(t, a.ID())
}

func TestTick_DrawsAndFlushes(t *testing.T) {
	surface := &fakeSurface{width: 80, height: 24}
	a := prepared(t, surface, testOptions())
	ctx := context.Background()

	for range 5 {
		a.tick(ctx)
	}

	assert.Equal(t, 5, surface.count())
	assert.Equal(t, 80*24, surface.lastCells)

	stats := a.PoolStats()
	assert.Equal(t, uint64(5), stats.Frames)
	assert.Equal(t, 300, stats.Active)
	assert.Equal(t, 300, stats.Field.Pool.Active)
	assert.False(t, stats.Offloaded)
}

func TestTick_HeadlessWithoutSurface(t *testing.T) {
	a := prepared(t, nil, testOptions())
	assert.NotPanics(t, func() { a.tick(context.Background()) })
	assert.Equal(t, uint64(1), a.PoolStats().Frames)
}

func TestPause_StopsFrames(t *testing.T) {
	a := prepared(t, nil, testOptions())
	ctx := context.Background()

	a.tick(ctx)
	a.Pause()
	a.Pause()
	a.tick(ctx)
	a.tick(ctx)

	stats := a.PoolStats()
	assert.True(t, stats.Paused)
	assert.Equal(t, uint64(1), stats.Frames)

	a.Resume()
	a.tick(ctx)
	assert.Equal(t, uint64(2), a.PoolStats().Frames)
	assert.False(t, a.PoolStats().Paused)
}

func TestBoost_PlaysCueOncePerTransition(t *testing.T) {
	opts := testOptions()
	cues := &fakeCues{}
	opts.Cues = cues
	a := prepared(t, nil, opts)

	a.Boost()
	a.Boost()
	assert.Equal(t, int32(1), cues.boosts.Load())
	assert.True(t, a.PoolStats().Boosted)
	assert.Equal(t, opts.Config.BoostSpeed, a.field.Speed())

	a.ToggleBoost()
	assert.Equal(t, int32(1), cues.unboosts.Load())
	assert.Equal(t, opts.Config.BaseSpeed, a.field.Speed())

	a.Unboost()
	assert.Equal(t, int32(1), cues.unboosts.Load())
}

func TestResizeCanvas(t *testing.T) {
	a := prepared(t, nil, testOptions())

	a.ResizeCanvas(120, 40)
	a.ResizeCanvas(0, 10)

	w, h := a.buf.Size()
	assert.Equal(t, 120, w)
	assert.Equal(t, 40, h)
	assert.Equal(t, 120, a.field.Config().Width)
	assert.Equal(t, 60.0, a.view.CX)
}

func TestReset_KeepsPopulation(t *testing.T) {
	a := prepared(t, nil, testOptions())
	a.tick(context.Background())
	a.Reset()
	assert.Equal(t, 300, a.PoolStats().Field.Active)
}

func TestOffload_RendersFromWorker(t *testing.T) {
	opts := testOptions()
	opts.Offload = true
	surface := &fakeSurface{width: 80, height: 24}
	a := prepared(t, surface, opts)
	ctx := context.Background()

	require.True(t, a.PoolStats().Offloaded)
	a.Boost()
	a.ResizeCanvas(90, 30)
	for range 3 {
		a.tick(ctx)
	}

	stats := a.PoolStats()
	assert.True(t, stats.Offloaded)
	assert.Equal(t, uint64(3), stats.Frames)
	assert.Equal(t, 300, stats.Active)
	assert.Equal(t, 3, surface.count())
}

func TestOffload_FallsBackWhenWorkerDies(t *testing.T) {
	opts := testOptions()
	opts.Offload = true
	a := prepared(t, nil, opts)
	ctx := context.Background()

	a.tick(ctx)
	a.mu.Lock()
	a.client.Close()
	a.mu.Unlock()

	a.tick(ctx)
	stats := a.PoolStats()
	assert.False(t, stats.Offloaded)
	assert.Equal(t, uint64(2), stats.Frames)
	assert.Equal(t, 300, stats.Field.Active)
}

func TestAdaptive_ShrinksFieldBudget(t *testing.T) {
	opts := testOptions()
	opts.Adaptive = true
	a := prepared(t, nil, opts)

	a.mu.Lock()
	a.quality = NewQuality(time.Nanosecond, opts.Config.StarCount)
	a.mu.Unlock()

	a.tick(context.Background())
	stats := a.PoolStats()
	assert.Equal(t, 225, stats.Budget)
	assert.Equal(t, 225, stats.Field.Active)
}

func TestStartStop_Loop(t *testing.T) {
	surface := &fakeSurface{width: 40, height: 12}
	a, err := New(surface, testOptions())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx))
	assert.Error(t, a.Start(ctx), "double start")

	require.Eventually(t, func() bool { return surface.count() >= 3 }, 2*time.Second, 5*time.Millisecond)

	a.Stop()
	a.Stop()
	flushed := surface.count()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, flushed, surface.count(), "no frames after Stop")
	assert.Equal(t, 0, a.PoolStats().Field.Pool.Capacity, "pool destroyed")

	assert.Error(t, a.Start(ctx), "start after stop")
}

func TestStop_WithoutStart(t *testing.T) {
	a, err := New(nil, testOptions())
	require.NoError(t, err)
	assert.NotPanics(t, a.Stop)
}
