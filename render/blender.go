package render

// BlendMode defines compositing operations using a bitmask (Flags | Op)
type BlendMode uint8

// Blend operations (0-15)
const (
	opAlpha  uint8 = 0x01
	opMax    uint8 = 0x03
	opScreen uint8 = 0x04
)

// Blend flags
const (
	flagBg uint8 = 0x10
	flagFg uint8 = 0x20
)

// Pre-defined blend modes
const (
	BlendAlphaFg  = BlendMode(opAlpha | flagFg) // streak segments over existing background
	BlendMaxFg    = BlendMode(opMax | flagFg)
	BlendScreenBg = BlendMode(opScreen | flagBg) // glow, keeps the glyph intact
)

func (m BlendMode) op() uint8 {
	return uint8(m) & 0x0F
}

func (m BlendMode) affects(flag uint8) bool {
	return uint8(m)&flag != 0
}

// apply runs the mode's operation on one channel pair
func (m BlendMode) apply(dst, src RGB, alpha float64) RGB {
	switch m.op() {
	case opAlpha:
		return Blend(dst, src, alpha)
	case opMax:
		return Max(dst, src, alpha)
	case opScreen:
		return Screen(dst, src, alpha)
	}
	return dst
}
