package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/warpfield/engine"
	"github.com/lixenwraith/warpfield/terminal"
)

type fakeControls struct {
	boosts, resets int
	paused         bool
	width, height  int
}

func (f *fakeControls) ToggleBoost()          { f.boosts++ }
func (f *fakeControls) Pause()                { f.paused = true }
func (f *fakeControls) Resume()               { f.paused = false }
func (f *fakeControls) Reset()                { f.resets++ }
func (f *fakeControls) ResizeCanvas(w, h int) { f.width, f.height = w, h }
func (f *fakeControls) PoolStats() engine.Stats {
	return engine.Stats{Paused: f.paused}
}

func key(r rune) terminal.Event {
	return terminal.Event{Type: terminal.EventKey, Key: terminal.KeyRune, Rune: r}
}

func TestHandleEvent(t *testing.T) {
	c := &fakeControls{}

	assert.True(t, handleEvent(key(' '), c))
	assert.Equal(t, 1, c.boosts)

	assert.True(t, handleEvent(key('p'), c))
	assert.True(t, c.paused)
	assert.True(t, handleEvent(key('p'), c))
	assert.False(t, c.paused)

	assert.True(t, handleEvent(key('r'), c))
	assert.Equal(t, 1, c.resets)

	assert.True(t, handleEvent(terminal.Event{Type: terminal.EventResize, Width: 100, Height: 40}, c))
	assert.Equal(t, 100, c.width)
	assert.Equal(t, 40, c.height)

	assert.True(t, handleEvent(key('x'), c), "unbound keys are ignored")
	assert.True(t, handleEvent(terminal.Event{Type: terminal.EventOther}, c))
}

func TestHandleEvent_Quit(t *testing.T) {
	quits := []terminal.Event{
		key('q'),
		{Type: terminal.EventKey, Key: terminal.KeyEscape},
		{Type: terminal.EventKey, Key: terminal.KeyCtrlC},
		{Type: terminal.EventClosed},
	}
	for _, ev := range quits {
		assert.False(t, handleEvent(ev, &fakeControls{}), "%+v", ev)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warpfield.yaml")
	_, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	return path
}

func TestBench_JSON(t *testing.T) {
	path := writeConfig(t)
	out, err := execute(t, "bench", "--config", path, "--ticks", "120", "--stars", "50", "--seed", "3", "--json")
	require.NoError(t, err)

	var res BenchResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "field", res.Path)
	assert.Equal(t, 120, res.Ticks)
	assert.Equal(t, 50, res.Stars)
	require.NotNil(t, res.Pool)
	assert.Equal(t, 50, res.Pool.Active)
	assert.Positive(t, res.Elapsed)
}

func TestBench_ViaOffload(t *testing.T) {
	path := writeConfig(t)
	out, err := execute(t, "bench", "--config", path, "--ticks", "30", "--via-offload")
	require.NoError(t, err)
	assert.Contains(t, out, "path:      offload")
	assert.Contains(t, out, "stars:     300")
}

func TestBench_RejectsZeroTicks(t *testing.T) {
	path := writeConfig(t)
	_, err := execute(t, "bench", "--config", path, "--ticks", "0")
	assert.Error(t, err)
}

func TestConfigInit_RefusesOverwrite(t *testing.T) {
	path := writeConfig(t)
	_, err := os.Stat(path)
	require.NoError(t, err)

	_, err = execute(t, "config", "init", path)
	assert.ErrorContains(t, err, "already exists")

	out, err := execute(t, "config", "init", "--force", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Warpfield v"+version)
}
