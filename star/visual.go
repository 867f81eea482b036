package star

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/lixenwraith/warpfield/parameter"
	"github.com/lixenwraith/warpfield/terminal"
)

// Palette indices
const (
	PaletteCool uint8 = iota
	PaletteWarm
	PaletteViolet
	paletteCount
)

// paletteEnds holds far and near colors, blended in HCL so hue rotates evenly across depth
var paletteEnds = [paletteCount][2]colorful.Color{
	PaletteCool:   {rgb(30, 50, 120), rgb(235, 245, 255)},
	PaletteWarm:   {rgb(110, 60, 20), rgb(255, 240, 200)},
	PaletteViolet: {rgb(70, 30, 110), rgb(225, 210, 255)},
}

// paletteLUT avoids per-frame color-space math in the simulation loop
var paletteLUT [paletteCount][parameter.StarColorSteps]terminal.RGB

func init() {
	for p := range paletteEnds {
		far, near := paletteEnds[p][0], paletteEnds[p][1]
		for i := range parameter.StarColorSteps {
			t := float64(i) / float64(parameter.StarColorSteps-1)
			r, g, b := far.BlendHcl(near, t).Clamped().RGB255()
			paletteLUT[p][i] = terminal.RGB{R: r, G: g, B: b}
		}
	}
}

func rgb(r, g, b uint8) colorful.Color {
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}

// Visual is the depth-derived appearance of a star
type Visual struct {
	Size  float64
	Alpha float64
	Color terminal.RGB
}

// Nearness maps depth to [0,1], 0 at the far plane and 1 at the viewer
func Nearness(z, maxDepth float64) float64 {
	if maxDepth <= 0 {
		return 0
	}
	t := 1 - z/maxDepth
	return min(max(t, 0), 1)
}

// DeriveVisual is a pure function of depth and palette: nearer is larger and brighter
func DeriveVisual(z, maxDepth float64, palette uint8) Visual {
	t := Nearness(z, maxDepth)
	if palette >= paletteCount {
		palette = PaletteCool
	}
	step := int(t * float64(parameter.StarColorSteps-1))
	return Visual{
		// Quadratic growth keeps distant stars as points until they get close
		Size:  parameter.StarMinSize + (parameter.StarMaxSize-parameter.StarMinSize)*t*t,
		Alpha: parameter.StarMinAlpha + (parameter.StarMaxAlpha-parameter.StarMinAlpha)*t,
		Color: paletteLUT[palette][step],
	}
}
