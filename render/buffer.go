package render

import (
	"github.com/lixenwraith/warpfield/terminal"
)

// Buffer is a cell compositor backed by a row-major terminal.Cell array
// Uses []terminal.Cell directly so the screen flush needs no copy
type Buffer struct {
	cells  []terminal.Cell
	width  int
	height int
}

var emptyCell = terminal.Cell{Fg: Background, Bg: Background}

// NewBuffer creates a cleared buffer with the specified dimensions
func NewBuffer(width, height int) *Buffer {
	b := &Buffer{}
	b.Resize(width, height)
	return b
}

// Resize adjusts dimensions and clears, reallocates only if capacity is insufficient
func (b *Buffer) Resize(width, height int) {
	width, height = max(width, 0), max(height, 0)
	size := width * height
	if cap(b.cells) < size {
		b.cells = make([]terminal.Cell, size)
	} else {
		b.cells = b.cells[:size]
	}
	b.width = width
	b.height = height
	b.Clear()
}

// Clear resets all cells to empty space using exponential copy
func (b *Buffer) Clear() {
	if len(b.cells) == 0 {
		return
	}
	b.cells[0] = emptyCell
	for filled := 1; filled < len(b.cells); filled *= 2 {
		copy(b.cells[filled:], b.cells[:filled])
	}
}

// Fade moves every cell toward the background by alpha
// Glyphs whose foreground has converged are dropped so trails end cleanly
func (b *Buffer) Fade(alpha float64) {
	for i := range b.cells {
		c := &b.cells[i]
		c.Fg = Blend(c.Fg, Background, alpha)
		c.Bg = Blend(c.Bg, Background, alpha)
		if c.Rune != 0 && nearBackground(c.Fg) {
			c.Rune = 0
			c.Attrs = terminal.AttrNone
		}
	}
}

// nearBackground allows a small tolerance since truncating blends stall short of the target
func nearBackground(c RGB) bool {
	const tol = 6
	return absDiff(c.R, Background.R) <= tol &&
		absDiff(c.G, Background.G) <= tol &&
		absDiff(c.B, Background.B) <= tol
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

func (b *Buffer) inBounds(x, y int) bool {
	return x >= 0 && x < b.width && y >= 0 && y < b.height
}

// Set composites a cell with the given blend mode, out of bounds writes are ignored
// A zero rune keeps the existing glyph
func (b *Buffer) Set(x, y int, r rune, fg, bg RGB, mode BlendMode, alpha float64, attrs terminal.Attr) {
	if !b.inBounds(x, y) {
		return
	}
	dst := &b.cells[y*b.width+x]

	if r != 0 {
		dst.Rune = r
		dst.Attrs = attrs
	}
	if mode.affects(flagBg) {
		dst.Bg = mode.apply(dst.Bg, bg, alpha)
	}
	if mode.affects(flagFg) {
		dst.Fg = mode.apply(dst.Fg, fg, alpha)
	}
}

// Get returns the cell at x, y and false when out of bounds
func (b *Buffer) Get(x, y int) (terminal.Cell, bool) {
	if !b.inBounds(x, y) {
		return terminal.Cell{}, false
	}
	return b.cells[y*b.width+x], true
}

// Cells returns the backing row-major slice, valid until the next Resize
func (b *Buffer) Cells() []terminal.Cell {
	return b.cells
}

// Size returns the buffer dimensions
func (b *Buffer) Size() (width, height int) {
	return b.width, b.height
}
