// Package offload runs the star simulation on a background goroutine.
//
// The worker owns a flat []float32 particle buffer and lends it to the host once per
// frame together with the projected draw points. Ownership moves with every message:
// whoever sent a slice must drop its reference. The worker never touches the screen.
package offload

// Flat buffer layout, one record of Stride float32 values per slot
const (
	OffX = iota
	OffY
	OffZ
	OffPrevX
	OffPrevY
	OffInUse
	Stride
)

// NewBuffer allocates a zeroed buffer for the given number of slots
func NewBuffer(slots int) []float32 {
	return make([]float32, max(slots, 0)*Stride)
}

// Slots returns the number of records in buf
func Slots(buf []float32) int {
	return len(buf) / Stride
}

// Active counts slots with the in-use flag set
func Active(buf []float32) int {
	n := 0
	for i := OffInUse; i < len(buf); i += Stride {
		if buf[i] != 0 {
			n++
		}
	}
	return n
}
