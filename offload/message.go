package offload

import (
	"time"

	"github.com/lixenwraith/warpfield/render"
	"github.com/lixenwraith/warpfield/starfield"
)

// Command is a host to worker message, the set is closed
type Command interface {
	commandKind() string
}

// Reply is a worker to host message, the set is closed
type Reply interface {
	replyKind() string
}

// Init configures the worker and spawns the initial population
type Init struct {
	Config starfield.Config `json:"config"`
}

// RequestFrame asks for one simulation step
// Buffer and Points carry back the slices lent by the previous FrameUpdate, nil on the first frame
type RequestFrame struct {
	Seq    uint64         `json:"seq"`
	Delta  time.Duration  `json:"delta"`
	Buffer []float32      `json:"-"`
	Points []render.Point `json:"-"`
}

type SetBoost struct {
	On bool `json:"on"`
}

type SetDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Reset respawns the full population and resumes a stopped animation
// Deferred to the next frame while the buffer is on loan
type Reset struct{}

// StopAnimation makes frame requests answer with StatsUpdate until the next Reset or Init
type StopAnimation struct{}

// Cleanup drops the buffer and counters, safe to send repeatedly
type Cleanup struct{}

func (Init) commandKind() string { return "init" }
func (RequestFrame) commandKind() string { return "requestFrame" }
func (SetBoost) commandKind() string { return "setBoost" }
func (SetDimensions) commandKind() string { return "setDimensions" }
func (Reset) commandKind() string { return "reset" }
func (StopAnimation) commandKind() string { return "stopAnimation" }
func (Cleanup) commandKind() string { return "cleanup" }

// Initialized answers Init
type Initialized struct {
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	Capacity int    `json:"capacity"`
}

// FrameUpdate lends the stepped buffer and projected points to the host
type FrameUpdate struct {
	Seq    uint64         `json:"seq"`
	Frame  uint64         `json:"frame"`
	Active int            `json:"active"`
	Buffer []float32      `json:"-"`
	Points []render.Point `json:"-"`
}

// StatsUpdate answers a frame request that produced no frame
// Running is false when the animation is stopped or the worker is not initialized
type StatsUpdate struct {
	Seq      uint64 `json:"seq"`
	Active   int    `json:"active"`
	Recycled uint64 `json:"recycled"`
	Expired  uint64 `json:"expired"`
	Frames   uint64 `json:"frames"`
	Skipped  uint64 `json:"skipped"`
	Running  bool   `json:"running"`
}

func (Initialized) replyKind() string { return "initialized" }
func (FrameUpdate) replyKind() string { return "frameUpdate" }
func (StatsUpdate) replyKind() string { return "statsUpdate" }
