package terminal

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSimScreen(t *testing.T, w, h int) (*Screen, tcell.SimulationScreen) {
	t.Helper()
	sim := tcell.NewSimulationScreen("UTF-8")
	s, err := NewWithScreen(sim)
	require.NoError(t, err)
	sim.SetSize(w, h)
	t.Cleanup(s.Fini)
	return s, sim
}

func TestScreen_FlushWritesCells(t *testing.T) {
	s, sim := newSimScreen(t, 6, 3)

	w, h := s.Size()
	require.Equal(t, 6, w)
	require.Equal(t, 3, h)

	cells := make([]Cell, w*h)
	cells[1*w+2] = Cell{Rune: '*', Fg: RGB{255, 255, 255}, Attrs: AttrBold}
	cells[0] = Cell{Rune: '.', Fg: RGB{40, 40, 90}}
	s.Flush(cells, w, h)

	contents, cw, _ := sim.GetContents()
	require.Equal(t, w, cw)
	assert.Equal(t, []rune{'*'}, contents[1*w+2].Runes)
	assert.Equal(t, []rune{'.'}, contents[0].Runes)
	assert.Equal(t, []rune{' '}, contents[w*h-1].Runes, "zero rune must render as blank")
}

func TestScreen_PollEventDecodesKeys(t *testing.T) {
	s, sim := newSimScreen(t, 10, 4)

	sim.InjectKey(tcell.KeyRune, 'b', tcell.ModNone)

	var got Event
	for range 4 {
		got = s.PollEvent()
		if got.Type == EventKey {
			break
		}
	}
	assert.Equal(t, Event{Type: EventKey, Key: KeyRune, Rune: 'b'}, got)
}

func TestScreen_FiniIsIdempotent(t *testing.T) {
	s, _ := newSimScreen(t, 4, 4)

	s.Fini()
	s.Fini()

	assert.Equal(t, EventClosed, s.PollEvent().Type)
	w, h := s.Size()
	assert.Zero(t, w)
	assert.Zero(t, h)

	// Flush after Fini is a no-op rather than a panic
	s.Flush(make([]Cell, 16), 4, 4)
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		in   tcell.Event
		want Event
	}{
		{"closed", nil, Event{Type: EventClosed}},
		{"rune", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone), Event{Type: EventKey, Key: KeyRune, Rune: 'q'}},
		{"arrow", tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone), Event{Type: EventKey, Key: KeyUp}},
		{"escape", tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), Event{Type: EventKey, Key: KeyEscape}},
		{"unmapped", tcell.NewEventKey(tcell.KeyF5, 0, tcell.ModNone), Event{Type: EventKey, Key: KeyUnknown}},
		{"resize", tcell.NewEventResize(120, 40), Event{Type: EventResize, Width: 120, Height: 40}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.in == nil {
				assert.Equal(t, tt.want, translate(nil))
				return
			}
			assert.Equal(t, tt.want, translate(tt.in))
		})
	}
}
