package offload

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/lixenwraith/warpfield/parameter"
	"github.com/lixenwraith/warpfield/render"
	"github.com/lixenwraith/warpfield/star"
	"github.com/lixenwraith/warpfield/starfield"
)

// slotMeta is per-slot state that never leaves the worker
type slotMeta struct {
	vx, vy  float64
	age     time.Duration
	layer   uint8
	palette uint8
}

// worker steps the flat buffer with the same kinematics as starfield.Field
// All state is confined to the goroutine running run
type worker struct {
	cmds    <-chan Command
	replies chan<- Reply
	logger  *zap.Logger

	cfg    starfield.Config
	bounds star.Bounds
	view   render.View
	rng    *rand.Rand

	// buf is nil while lent to the host
	buf    []float32
	points []render.Point
	meta   []slotMeta
	loaned bool

	initialized  bool
	running      bool
	boosted      bool
	pendingReset bool

	frames   uint64
	recycled uint64
	expired  uint64
	skipped  uint64
	active   int
}

func newWorker(cmds <-chan Command, replies chan<- Reply, logger *zap.Logger) *worker {
	return &worker{cmds: cmds, replies: replies, logger: logger}
}

// run processes commands until ctx is done or the command channel closes
func (w *worker) run(ctx context.Context) {
	w.logger.Debug("offload worker started")
	defer w.logger.Debug("offload worker stopped", zap.Uint64("frames", w.frames))

	for {
		select {
		case <-ctx.Done():
			w.cleanup()
			return
		case cmd, ok := <-w.cmds:
			if !ok {
				w.cleanup()
				return
			}
			if reply := w.handle(cmd); reply != nil {
				select {
				case w.replies <- reply:
				case <-ctx.Done():
					w.cleanup()
					return
				}
			}
		}
	}
}

// handle applies one command and returns the reply, nil for fire-and-forget commands
func (w *worker) handle(cmd Command) Reply {
	switch c := cmd.(type) {
	case Init:
		return w.init(c.Config)
	case RequestFrame:
		return w.frame(c)
	case SetBoost:
		w.boosted = c.On
	case SetDimensions:
		w.resize(c.Width, c.Height)
	case Reset:
		if !w.initialized {
			return nil
		}
		w.running = true
		if w.loaned {
			w.pendingReset = true
			return nil
		}
		w.reset()
	case StopAnimation:
		w.running = false
	case Cleanup:
		w.cleanup()
	default:
		w.logger.Warn("unknown offload command", zap.String("type", typeName(cmd)))
	}
	return nil
}

func (w *worker) init(cfg starfield.Config) Reply {
	w.cleanup()
	if err := cfg.Validate(); err != nil {
		w.logger.Warn("offload init rejected", zap.Error(err))
		return Initialized{Success: false, Error: err.Error()}
	}

	w.cfg = cfg
	w.rng = starfield.NewRand(cfg.Seed)
	w.resize(cfg.Width, cfg.Height)

	slots := max(cfg.PoolCapacity(), cfg.StarCount)
	w.buf = NewBuffer(slots)
	w.meta = make([]slotMeta, slots)
	w.points = make([]render.Point, 0, slots)
	w.initialized = true
	w.running = true
	w.reset()

	w.logger.Debug("offload worker initialized", zap.Int("slots", slots), zap.Int("stars", cfg.StarCount))
	return Initialized{Success: true, Capacity: slots}
}

func (w *worker) resize(width, height int) {
	w.cfg.Width, w.cfg.Height = width, height
	w.bounds = w.cfg.Bounds()
	w.view = render.NewView(width, height, w.cfg.FieldOfView(), w.cfg.AspectRatio(), parameter.ViewMargin)
}

func (w *worker) frame(req RequestFrame) Reply {
	if !w.initialized {
		return StatsUpdate{Seq: req.Seq}
	}

	// Reclaim what the host sent back
	if req.Buffer != nil {
		if w.loaned && len(req.Buffer) == len(w.meta)*Stride {
			w.buf = req.Buffer
			w.loaned = false
		} else {
			// Left over from before a re-init
			w.logger.Warn("unexpected offload buffer dropped",
				zap.Int("got", len(req.Buffer)), zap.Int("want", len(w.meta)*Stride))
		}
	}
	if req.Points != nil {
		w.points = req.Points[:0]
	}

	if w.loaned {
		if !w.pendingReset {
			w.skipped++
			return w.stats(req.Seq)
		}
		// The lent buffer never came back, reset repopulates a fresh one
		w.logger.Debug("offload buffer reclaimed on reset")
		w.buf = NewBuffer(len(w.meta))
		w.points = make([]render.Point, 0, len(w.meta))
		w.loaned = false
	}
	if w.pendingReset {
		w.reset()
	}
	if !w.running {
		return w.stats(req.Seq)
	}

	w.step(req.Delta)
	w.frames++

	reply := FrameUpdate{
		Seq:    req.Seq,
		Frame:  w.frames,
		Active: w.active,
		Buffer: w.buf,
		Points: w.points,
	}
	w.buf, w.points = nil, nil
	w.loaned = true
	return reply
}

func (w *worker) stats(seq uint64) StatsUpdate {
	return StatsUpdate{
		Seq:      seq,
		Active:   w.active,
		Recycled: w.recycled,
		Expired:  w.expired,
		Frames:   w.frames,
		Skipped:  w.skipped,
		Running:  w.running && w.initialized,
	}
}

// step advances every in-use slot and projects it into w.points
func (w *worker) step(dt time.Duration) {
	scale := star.DeltaScale(dt)
	speed := w.speed()
	maxDepth := w.cfg.MaxDepth
	points := w.points[:0]
	active := 0

	for i := range w.meta {
		rec := w.buf[i*Stride : (i+1)*Stride]
		if rec[OffInUse] == 0 {
			continue
		}
		active++
		m := &w.meta[i]

		x, y, z := float64(rec[OffX]), float64(rec[OffY]), float64(rec[OffZ])
		px, py := x, y
		x += m.vx * scale
		y += m.vy * scale
		z = star.Step(z, speed, m.layer, scale)
		m.age += dt

		switch star.Classify(z, w.cfg.NearPlane, m.age, w.cfg.MaxAge) {
		case star.Passed:
			w.respawn(i, true)
			w.recycled++
		case star.Expired:
			w.respawn(i, true)
			w.expired++
		default:
			rec[OffX], rec[OffY], rec[OffZ] = float32(x), float32(y), float32(z)
			rec[OffPrevX], rec[OffPrevY] = float32(px), float32(py)
		}

		vis := star.DeriveVisual(float64(rec[OffZ]), maxDepth, m.palette)
		p, ok := w.view.PointAt(
			float64(rec[OffX]), float64(rec[OffY]), float64(rec[OffZ]),
			float64(rec[OffPrevX]), float64(rec[OffPrevY]),
			speed*star.LayerSpeed(m.layer), vis)
		if ok {
			points = append(points, p)
		}
	}

	w.points = points
	w.active = active
}

// reset repopulates the buffer: the first StarCount slots in use across the full depth range
func (w *worker) reset() {
	w.pendingReset = false
	slots := len(w.meta)
	for i := range slots {
		rec := w.buf[i*Stride : (i+1)*Stride]
		if i < w.cfg.StarCount {
			w.respawn(i, false)
			rec[OffInUse] = 1
		} else {
			clear(rec)
			w.meta[i] = slotMeta{}
		}
	}
	w.active = min(w.cfg.StarCount, slots)
}

// respawn places slot i with the same draw order as star.Star.Spawn
func (w *worker) respawn(i int, farOnly bool) {
	x, y, z := star.Position(w.rng, w.bounds, farOnly)
	vx, vy := star.Drift(w.rng, w.bounds)
	w.meta[i] = slotMeta{
		vx:      vx,
		vy:      vy,
		layer:   star.RandomLayer(w.rng),
		palette: star.RandomPalette(w.rng),
	}

	rec := w.buf[i*Stride : (i+1)*Stride]
	rec[OffX], rec[OffY], rec[OffZ] = float32(x), float32(y), float32(z)
	rec[OffPrevX], rec[OffPrevY] = float32(x), float32(y)
}

func (w *worker) speed() float64 {
	if w.boosted {
		return w.cfg.BoostSpeed
	}
	return w.cfg.BaseSpeed
}

// cleanup clears in-use flags and drops all state, safe to call repeatedly
func (w *worker) cleanup() {
	for i := OffInUse; i < len(w.buf); i += Stride {
		w.buf[i] = 0
	}
	w.buf, w.points, w.meta = nil, nil, nil
	w.loaned = false
	w.initialized = false
	w.running = false
	w.pendingReset = false
	w.frames, w.recycled, w.expired, w.skipped = 0, 0, 0, 0
	w.active = 0
}
