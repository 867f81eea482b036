package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/warpfield/parameter"
)

const budget = time.Second / 60

func TestQuality_DegradesToFloorThenSkips(t *testing.T) {
	q := NewQuality(budget, 300)
	assert.Equal(t, 300, q.Target())

	degrades := 0
	for i := 0; i < 200 && q.Target() > 75; i++ {
		if q.Observe(40*time.Millisecond) == ActionDegrade {
			degrades++
		}
	}
	assert.Equal(t, 75, q.Target(), "floor is a quarter of the star count")
	assert.Equal(t, 3, degrades)
	assert.True(t, q.Degraded())

	var action Action
	for i := 0; i < 50 && action != ActionSkip; i++ {
		action = q.Observe(40 * time.Millisecond)
	}
	require.Equal(t, ActionSkip, action)
	assert.Equal(t, 75, q.Target())
	assert.True(t, q.ShouldSkip())
	assert.False(t, q.ShouldSkip(), "a skip is consumed once")
}

func TestQuality_RestoresAfterHealthyFrames(t *testing.T) {
	q := NewQuality(budget, 300)
	for i := 0; i < 50 && q.Target() == 300; i++ {
		q.Observe(40 * time.Millisecond)
	}
	require.Equal(t, 225, q.Target())

	for i := 1; i < parameter.QualityRecoverFrames; i++ {
		require.Equal(t, ActionNone, q.Observe(time.Millisecond), "frame %d", i)
	}
	assert.Equal(t, ActionRestore, q.Observe(time.Millisecond))
	assert.Equal(t, 255, q.Target())

	for range 10 * parameter.QualityRecoverFrames {
		q.Observe(time.Millisecond)
	}
	assert.Equal(t, 300, q.Target(), "restores stop at the full count")
	assert.False(t, q.Degraded())
}

func TestQuality_SingleSpikeIsSmoothed(t *testing.T) {
	q := NewQuality(budget, 300)
	q.Observe(10 * time.Millisecond)
	assert.Equal(t, ActionNone, q.Observe(100*time.Millisecond))
	assert.Equal(t, 300, q.Target())
	assert.Greater(t, q.FrameTime(), 10*time.Millisecond)
}

func TestPausableClock_FreezesWhilePaused(t *testing.T) {
	now := time.Unix(1000, 0)
	clock := newPausableClock(func() time.Time { return now })

	now = now.Add(2 * time.Second)
	assert.Equal(t, 2*time.Second, clock.Elapsed())

	require.True(t, clock.Pause())
	assert.False(t, clock.Pause())
	now = now.Add(5 * time.Second)
	assert.Equal(t, 2*time.Second, clock.Elapsed())
	assert.Equal(t, 5*time.Second, clock.TotalPauseDuration())
	assert.True(t, clock.IsPaused())

	require.True(t, clock.Resume())
	assert.False(t, clock.Resume())
	now = now.Add(time.Second)
	assert.Equal(t, 3*time.Second, clock.Elapsed())
	assert.Equal(t, 5*time.Second, clock.TotalPauseDuration())
}
