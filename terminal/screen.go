package terminal

import (
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/pkg/errors"
)

// Screen is a cell surface backed by a tcell screen
// Flush and PollEvent may be called from different goroutines
type Screen struct {
	mu       sync.Mutex
	screen   tcell.Screen
	finiOnce sync.Once
	closed   bool
}

// New creates and initializes a screen on the controlling terminal
func New() (*Screen, error) {
	ts, err := tcell.NewScreen()
	if err != nil {
		return nil, errors.Wrap(err, "[terminal] failed to create screen")
	}
	return NewWithScreen(ts)
}

// NewWithScreen initializes the given tcell screen, used with tcell.NewSimulationScreen in tests
func NewWithScreen(ts tcell.Screen) (*Screen, error) {
	if err := ts.Init(); err != nil {
		return nil, errors.Wrap(err, "[terminal] failed to initialize screen")
	}
	ts.HideCursor()
	ts.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack))
	ts.Clear()
	return &Screen{screen: ts}, nil
}

// Size returns current terminal dimensions
func (s *Screen) Size() (width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, 0
	}
	return s.screen.Size()
}

// Flush writes a row-major cell buffer and shows it
// Cells outside the current screen are clipped by tcell
func (s *Screen) Flush(cells []Cell, width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	for y := range height {
		row := y * width
		for x := range width {
			c := cells[row+x]
			r := c.Rune
			if r == 0 {
				r = ' '
			}
			s.screen.SetContent(x, y, r, nil, styleOf(c))
		}
	}
	s.screen.Show()
}

// styleOf maps a cell to a tcell style
func styleOf(c Cell) tcell.Style {
	st := tcell.StyleDefault.
		Foreground(tcell.NewRGBColor(int32(c.Fg.R), int32(c.Fg.G), int32(c.Fg.B))).
		Background(tcell.NewRGBColor(int32(c.Bg.R), int32(c.Bg.G), int32(c.Bg.B)))
	if c.Attrs&AttrBold != 0 {
		st = st.Bold(true)
	}
	if c.Attrs&AttrDim != 0 {
		st = st.Dim(true)
	}
	return st
}

// PollEvent blocks until the next input event, EventClosed after Fini
func (s *Screen) PollEvent() Event {
	s.mu.Lock()
	ts := s.screen
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return Event{Type: EventClosed}
	}
	return translate(ts.PollEvent())
}

// Fini restores the terminal, safe to call multiple times and from crash handlers
func (s *Screen) Fini() {
	s.finiOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.screen.Fini()
	})
}
