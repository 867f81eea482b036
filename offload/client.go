package offload

import (
	"context"
	"time"

	"github.com/eapache/queue"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/lixenwraith/warpfield/core"
	"github.com/lixenwraith/warpfield/render"
	"github.com/lixenwraith/warpfield/starfield"
)

var (
	// ErrInitFailed means the worker rejected Init, callers fall back to the main-thread field
	ErrInitFailed = errors.New("offload worker init failed")
	ErrNotStarted = errors.New("offload client not started")
	ErrClosed     = errors.New("offload client closed")
)

const (
	commandQueueSize = 16
	replyQueueSize   = 4
)

// Frame is one worker result as seen by the host
// Points stay valid until the next Frame call, which lends them back to the worker
type Frame struct {
	Points  []render.Point
	Active  int
	Frame   uint64
	Skipped uint64
	// Stepped is false when the worker answered with stats only (skipped or stopped)
	Stepped bool
	Running bool
}

// Client is the host side of the worker protocol
// Not safe for concurrent use, the animator loop owns it
type Client struct {
	cmds    chan Command
	replies chan Reply
	done    chan struct{}
	cancel  context.CancelFunc
	logger  *zap.Logger

	// held buffers replies drained while a send waited, in arrival order
	held *queue.Queue

	// Slices currently owned by the host
	buf    []float32
	points []render.Point

	seq      uint64
	frame    Frame
	capacity int
	started  bool
	closed   bool
}

// NewClient creates an idle client, Start launches the worker
func NewClient(logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{logger: logger, held: queue.New()}
}

// Start launches the worker goroutine and performs the init handshake
// A rejected init returns an error wrapping ErrInitFailed and leaves the client closed
func (c *Client) Start(ctx context.Context, cfg starfield.Config) error {
	if c.closed {
		return ErrClosed
	}
	if c.started {
		return errors.New("[offload] client already started")
	}

	c.cmds = make(chan Command, commandQueueSize)
	c.replies = make(chan Reply, replyQueueSize)
	c.done = make(chan struct{})

	wctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	w := newWorker(c.cmds, c.replies, c.logger.Named("worker"))
	done := c.done
	core.Go(func() {
		defer close(done)
		w.run(wctx)
	})
	c.started = true

	if err := c.send(ctx, Init{Config: cfg}); err != nil {
		c.Close()
		return err
	}
	for {
		reply, err := c.receive(ctx)
		if err != nil {
			c.Close()
			return errors.Wrap(err, "[offload] init handshake")
		}
		ack, ok := reply.(Initialized)
		if !ok {
			continue
		}
		if !ack.Success {
			c.Close()
			return errors.Wrapf(ErrInitFailed, "[offload] %s", ack.Error)
		}
		c.capacity = ack.Capacity
		return nil
	}
}

// Frame requests one simulation step of dt and waits for the result
// On cancellation the late reply is absorbed by the next call
func (c *Client) Frame(ctx context.Context, dt time.Duration) (*Frame, error) {
	if !c.started {
		return nil, ErrNotStarted
	}

	c.seq++
	req := RequestFrame{Seq: c.seq, Delta: dt, Buffer: c.buf, Points: c.points}
	if err := c.send(ctx, req); err != nil {
		// Never delivered, the host keeps ownership
		return nil, err
	}
	// Ownership moved with the request
	c.buf, c.points = nil, nil
	c.frame.Points = nil

	for {
		reply, err := c.receive(ctx)
		if err != nil {
			return nil, err
		}

		switch r := reply.(type) {
		case FrameUpdate:
			c.buf, c.points = r.Buffer, r.Points
			if r.Seq != c.seq {
				continue
			}
			c.frame = Frame{Points: r.Points, Active: r.Active, Frame: r.Frame, Stepped: true, Running: true}
			return &c.frame, nil
		case StatsUpdate:
			if r.Seq != c.seq {
				continue
			}
			c.frame = Frame{Active: r.Active, Frame: r.Frames, Skipped: r.Skipped, Running: r.Running}
			return &c.frame, nil
		case Initialized:
			continue
		}
	}
}

// SetBoost switches the worker between base and boost speed
func (c *Client) SetBoost(on bool) error {
	return c.send(context.Background(), SetBoost{On: on})
}

// SetDimensions updates the worker viewport
func (c *Client) SetDimensions(width, height int) error {
	return c.send(context.Background(), SetDimensions{Width: width, Height: height})
}

// Reset respawns the population and resumes a stopped animation
func (c *Client) Reset() error {
	return c.send(context.Background(), Reset{})
}

// Stop pauses frame production until the next Reset
func (c *Client) Stop() error {
	return c.send(context.Background(), StopAnimation{})
}

// Cleanup tells the worker to drop its state and releases host-side slices
func (c *Client) Cleanup() error {
	c.buf, c.points = nil, nil
	c.frame = Frame{}
	if !c.started || c.closed {
		return nil
	}
	return c.send(context.Background(), Cleanup{})
}

// Capacity returns the slot count reported by the worker at init
func (c *Client) Capacity() int {
	return c.capacity
}

// Close stops the worker and waits for it to exit, safe to call repeatedly
func (c *Client) Close() {
	if c.closed {
		return
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
	c.held = queue.New()
	c.buf, c.points = nil, nil
	c.frame = Frame{}
}

func (c *Client) send(ctx context.Context, cmd Command) error {
	if c.closed {
		return ErrClosed
	}
	if !c.started {
		return ErrNotStarted
	}
	c.trace("offload command", cmd)

	for {
		select {
		case c.cmds <- cmd:
			return nil
		case r := <-c.replies:
			// Keeps the worker from blocking on a full reply queue
			c.held.Add(r)
		case <-c.done:
			return ErrClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) receive(ctx context.Context) (Reply, error) {
	if c.held.Length() > 0 {
		r := c.held.Remove().(Reply)
		c.trace("offload reply", r)
		return r, nil
	}
	select {
	case r := <-c.replies:
		c.trace("offload reply", r)
		return r, nil
	case <-c.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// trace writes the JSON envelope of a message at debug level
func (c *Client) trace(msg string, v any) {
	ce := c.logger.Check(zap.DebugLevel, msg)
	if ce == nil {
		return
	}
	var data []byte
	var err error
	switch m := v.(type) {
	case Command:
		data, err = EncodeCommand(m)
	case Reply:
		data, err = EncodeReply(m)
	}
	if err != nil {
		ce.Write(zap.String("type", typeName(v)), zap.Error(err))
		return
	}
	ce.Write(zap.ByteString("envelope", data))
}
