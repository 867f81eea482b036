package render

import (
	"math"

	"github.com/lixenwraith/warpfield/parameter"
)

// Projector maps world space to cell space with a pinhole perspective
// Pure value type, safe to copy into the offload worker
type Projector struct {
	CX, CY float64 // viewport center in cells
	FOV    float64 // focal scale in cells
	Aspect float64 // x stretch, 2 for 1:2 terminal cells
}

// NewProjector centers a projector on a width x height viewport
func NewProjector(width, height int, fov, aspect float64) Projector {
	if aspect <= 0 {
		aspect = 1
	}
	return Projector{
		CX:     float64(width) / 2,
		CY:     float64(height) / 2,
		FOV:    fov,
		Aspect: aspect,
	}
}

// Project returns screen coordinates for a world point
// ok is false at or behind the viewer, callers skip the point
func (p Projector) Project(x, y, z float64) (sx, sy float64, ok bool) {
	if z <= 0 {
		return 0, 0, false
	}
	inv := p.FOV / z
	return p.CX + x*inv*p.Aspect, p.CY + y*inv, true
}

// StreakLength is the tail length in cells for a star moving at speed at depth z
func StreakLength(speed, z float64) float64 {
	if z <= 0 {
		return parameter.StreakMax
	}
	l := speed * parameter.StreakScale / z
	return min(max(l, parameter.StreakMin), parameter.StreakMax)
}

// InView reports whether a screen point lies within the viewport grown by margin cells
func InView(sx, sy float64, width, height int, margin float64) bool {
	return sx >= -margin && sx < float64(width)+margin &&
		sy >= -margin && sy < float64(height)+margin
}

// tail places the streak end opposite the direction of travel
// Direction comes from the previous position projected one streak deeper, length from StreakLength
func (p Projector) tail(sx, sy, prevX, prevY, z, speed float64) (tx, ty float64) {
	length := StreakLength(speed, z)
	if length <= 0 {
		return sx, sy
	}
	px, py, _ := p.Project(prevX, prevY, z+speed*parameter.StreakScale)
	dx, dy := sx-px, sy-py
	d := math.Hypot(dx, dy)
	if d < 1e-9 {
		// Dead center, streak radially has no direction
		return sx, sy
	}
	return sx - dx/d*length, sy - dy/d*length
}
