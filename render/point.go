package render

import (
	"github.com/lixenwraith/warpfield/star"
	"github.com/lixenwraith/warpfield/terminal"
)

// Point is one pre-projected draw instruction
// Produced by the main thread or by the offload worker, consumed by Renderer.Draw
type Point struct {
	X, Y         float32
	TailX, TailY float32
	Size, Alpha  float32
	Color        terminal.RGB
}

// View bundles projection with the viewport it draws into
type View struct {
	Projector
	Width, Height int
	Margin        float64
}

// NewView builds a view for a width x height viewport
func NewView(width, height int, fov, aspect, margin float64) View {
	return View{
		Projector: NewProjector(width, height, fov, aspect),
		Width:     width,
		Height:    height,
		Margin:    margin,
	}
}

// PointAt projects one star from raw kinematic values, false when behind the viewer or off-screen
// speed is the effective depth speed of the star (preset times layer multiplier)
func (v View) PointAt(x, y, z, prevX, prevY, speed float64, vis star.Visual) (Point, bool) {
	sx, sy, ok := v.Project(x, y, z)
	if !ok || !InView(sx, sy, v.Width, v.Height, v.Margin) {
		return Point{}, false
	}
	tx, ty := v.tail(sx, sy, prevX, prevY, z, speed)
	return Point{
		X:     float32(sx),
		Y:     float32(sy),
		TailX: float32(tx),
		TailY: float32(ty),
		Size:  float32(vis.Size),
		Alpha: float32(vis.Alpha),
		Color: vis.Color,
	}, true
}

// ProjectStars appends the visible stars to out[:0] and returns it
// Off-screen stars are skipped for drawing only, the simulation keeps them
func ProjectStars(stars []*star.Star, v View, speed float64, out []Point) []Point {
	out = out[:0]
	for _, s := range stars {
		vis := star.Visual{Size: s.Size, Alpha: s.Alpha, Color: s.Color}
		if p, ok := v.PointAt(s.X, s.Y, s.Z, s.PrevX, s.PrevY, speed*star.LayerSpeed(s.Layer), vis); ok {
			out = append(out, p)
		}
	}
	return out
}
