package render

import (
	"math"

	"github.com/lixenwraith/warpfield/parameter"
	"github.com/lixenwraith/warpfield/terminal"
)

// headGlyphs are indexed by derived size, smallest first
var headGlyphs = [...]rune{'.', '·', '+', '*', '✦'}

// Options toggles the optional passes
type Options struct {
	Glow      bool
	Trails    bool
	FadeAlpha float64
	GlowAlpha float64
}

// DefaultOptions returns glow and trails enabled with parameter defaults
func DefaultOptions() Options {
	return Options{
		Glow:      true,
		Trails:    true,
		FadeAlpha: parameter.TrailFadeAlpha,
		GlowAlpha: parameter.GlowAlpha,
	}
}

// Renderer draws projected points into a Buffer
// Stateless apart from its options; the buffer carries the trail history
type Renderer struct {
	opts Options
}

// NewRenderer creates a renderer with the given options
func NewRenderer(opts Options) *Renderer {
	return &Renderer{opts: opts}
}

// SetOptions replaces the pass toggles
func (r *Renderer) SetOptions(opts Options) {
	r.opts = opts
}

// Options returns the current pass toggles
func (r *Renderer) Options() Options {
	return r.opts
}

// Draw composes one frame: fade or clear, then streaks, heads and glow in a single pass
// A nil buffer means the surface is unavailable and the frame is dropped
func (r *Renderer) Draw(buf *Buffer, points []Point) {
	if buf == nil {
		return
	}
	if r.opts.Trails {
		buf.Fade(r.opts.FadeAlpha)
	} else {
		buf.Clear()
	}

	for i := range points {
		p := &points[i]
		r.drawStreak(buf, p)
		r.drawHead(buf, p)
		if r.opts.Glow && p.Size >= parameter.GlowMinSize {
			r.drawGlow(buf, p)
		}
	}
}

// HeadGlyph picks the glyph for a star head by its derived size
func HeadGlyph(size float32) rune {
	span := parameter.StarMaxSize - parameter.StarMinSize
	t := (float64(size) - parameter.StarMinSize) / span
	i := int(t * float64(len(headGlyphs)))
	return headGlyphs[min(max(i, 0), len(headGlyphs)-1)]
}

// streakGlyph picks a line glyph by the dominant direction, y grows downward
func streakGlyph(dx, dy int) rune {
	ax, ay := abs(dx), abs(dy)
	switch {
	case ax > 2*ay:
		return '-'
	case ay > 2*ax:
		return '|'
	case (dx > 0) == (dy > 0):
		return '\\'
	default:
		return '/'
	}
}

func (r *Renderer) drawHead(buf *Buffer, p *Point) {
	x, y := cellOf(p.X), cellOf(p.Y)
	attrs := terminal.AttrNone
	if p.Size >= parameter.GlowMinSize {
		attrs = terminal.AttrBold
	}
	buf.Set(x, y, HeadGlyph(p.Size), p.Color, RGBBlack, BlendMaxFg, float64(p.Alpha), attrs)
}

// drawStreak walks a Bresenham line from tail to head, excluding the head cell
// Segment alpha ramps up toward the head
func (r *Renderer) drawStreak(buf *Buffer, p *Point) {
	x0, y0 := cellOf(p.TailX), cellOf(p.TailY)
	x1, y1 := cellOf(p.X), cellOf(p.Y)
	if x0 == x1 && y0 == y1 {
		return
	}

	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	err := dx + dy
	steps := max(dx, -dy)
	glyph := streakGlyph(x1-x0, y1-y0)

	for i := 0; x0 != x1 || y0 != y1; i++ {
		t := float64(i+1) / float64(steps+1)
		alpha := float64(p.Alpha) * (0.2 + 0.6*t)
		buf.Set(x0, y0, glyph, p.Color, RGBBlack, BlendAlphaFg, alpha, terminal.AttrDim)

		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// drawGlow screen-blends the backgrounds of the 8 neighbors toward the star color
func (r *Renderer) drawGlow(buf *Buffer, p *Point) {
	x, y := cellOf(p.X), cellOf(p.Y)
	alpha := r.opts.GlowAlpha * float64(p.Alpha)
	for oy := -1; oy <= 1; oy++ {
		for ox := -1; ox <= 1; ox++ {
			if ox == 0 && oy == 0 {
				continue
			}
			buf.Set(x+ox, y+oy, 0, RGBBlack, p.Color, BlendScreenBg, alpha, terminal.AttrNone)
		}
	}
}

func cellOf(v float32) int {
	return int(math.Floor(float64(v)))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// RGBBlack is the zero color, used as the unused side of single-layer writes
var RGBBlack = terminal.RGBBlack
