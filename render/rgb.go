package render

import (
	"github.com/lixenwraith/warpfield/terminal"
)

// RGB is an alias to terminal.RGB so blend helpers read naturally in this package
type RGB = terminal.RGB

// Background is the space color every faded cell converges to
var Background = RGB{R: 2, G: 2, B: 8}

// Blend is linear alpha compositing of src over c
// Alpha at or outside the unit range returns early
func Blend(c, src RGB, alpha float64) RGB {
	if alpha >= 1.0 {
		return src
	}
	if alpha <= 0.0 {
		return c
	}

	inv := 1.0 - alpha
	return RGB{
		R: uint8(float64(src.R)*alpha + float64(c.R)*inv),
		G: uint8(float64(src.G)*alpha + float64(c.G)*inv),
		B: uint8(float64(src.B)*alpha + float64(c.B)*inv),
	}
}

// Max returns the per-channel maximum mixed in by alpha
func Max(c, src RGB, alpha float64) RGB {
	if alpha <= 0.0 {
		return c
	}
	maxed := RGB{
		R: max(c.R, src.R),
		G: max(c.G, src.G),
		B: max(c.B, src.B),
	}
	if alpha >= 1.0 {
		return maxed
	}
	return Blend(c, maxed, alpha)
}

// fastDiv255 approximates x / 255 as (x + (x >> 8) + 1) >> 8
func fastDiv255(x int) int {
	return (x + (x >> 8) + 1) >> 8
}

// Screen is 1 - (1-dst)*(1-src) mixed in by alpha, it only ever lightens
func Screen(c, src RGB, alpha float64) RGB {
	if alpha <= 0.0 {
		return c
	}
	screened := RGB{
		R: uint8(255 - fastDiv255((255-int(c.R))*(255-int(src.R)))),
		G: uint8(255 - fastDiv255((255-int(c.G))*(255-int(src.G)))),
		B: uint8(255 - fastDiv255((255-int(c.B))*(255-int(src.B)))),
	}
	if alpha >= 1.0 {
		return screened
	}
	return Blend(c, screened, alpha)
}
