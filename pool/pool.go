// Package pool provides a pre-allocated, optionally growable object pool with explicit
// in-use tracking and allocation statistics.
//
// A Pool hands out borrowed values and owns every value it ever created. Values are never
// destroyed individually: Release resets a value and queues it for the next Acquire.
//
// A Pool performs no locking and must be owned by a single goroutine, the one running the
// simulation step that borrows from it.
package pool

import (
	"time"

	"github.com/eapache/queue"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	ErrForeign       = errors.New("value not owned by pool")
	ErrDoubleRelease = errors.New("value already released")
	ErrDestroyed     = errors.New("pool destroyed")
	ErrNoFactory     = errors.New("pool requires a factory")
	ErrDuplicate     = errors.New("factory returned a value already owned by pool")
)

// Options configures a Pool
type Options[T comparable] struct {
	// Capacity is the number of values pre-allocated at construction
	Capacity int
	// Grow allows Acquire to allocate past Capacity instead of failing
	Grow bool
	// New creates a value; each call must return a distinct value (typically a pointer)
	New func() T
	// Reset clears simulation state on release, nil skips resetting
	Reset func(T)
	Logger *zap.Logger
}

// slot is the pool-side record of one owned value
type slot[T comparable] struct {
	value      T
	index      int
	inUse      bool
	handedOut  bool // separates first hand-out (created) from reuse
	lastAccess time.Time
}

// Pool is a free-list allocator over a fixed or growable backing store
type Pool[T comparable] struct {
	slots  []*slot[T]
	lookup map[T]*slot[T]
	free   *queue.Queue // FIFO of *slot[T]

	newFn   func() T
	resetFn func(T)
	grow    bool

	destroyed bool
	stats     Stats
	logger    *zap.Logger
}

// New creates a pool and pre-allocates opts.Capacity values
func New[T comparable](opts Options[T]) (*Pool[T], error) {
	if opts.New == nil {
		return nil, ErrNoFactory
	}
	if opts.Capacity < 0 {
		return nil, errors.Errorf("[pool] negative capacity: %d", opts.Capacity)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pool[T]{
		slots:   make([]*slot[T], 0, opts.Capacity),
		lookup:  make(map[T]*slot[T], opts.Capacity),
		free:    queue.New(),
		newFn:   opts.New,
		resetFn: opts.Reset,
		grow:    opts.Grow,
		logger:  logger,
	}

	for range opts.Capacity {
		s, err := p.allocate()
		if err != nil {
			return nil, errors.Wrap(err, "[pool] pre-allocation failed")
		}
		p.free.Add(s)
	}

	return p, nil
}

// allocate creates one slot through the factory and takes ownership of its value
func (p *Pool[T]) allocate() (*slot[T], error) {
	v := p.newFn()
	if _, exists := p.lookup[v]; exists {
		return nil, ErrDuplicate
	}
	s := &slot[T]{value: v, index: len(p.slots)}
	p.slots = append(p.slots, s)
	p.lookup[v] = s
	return s, nil
}

// Acquire hands out a free value with its in-use flag set
// Returns false when the pool is exhausted and cannot grow, or was destroyed
func (p *Pool[T]) Acquire() (T, bool) {
	var zero T
	if p.destroyed {
		return zero, false
	}

	var s *slot[T]
	switch {
	case p.free.Length() > 0:
		s = p.free.Remove().(*slot[T])
	case p.grow:
		var err error
		if s, err = p.allocate(); err != nil {
			p.stats.Exhausted++
			p.logger.Warn("pool growth failed", zap.Error(err), zap.Int("capacity", len(p.slots)))
			return zero, false
		}
	default:
		p.stats.Exhausted++
		return zero, false
	}

	if s.handedOut {
		p.stats.Reused++
	} else {
		s.handedOut = true
		p.stats.Created++
	}
	s.inUse = true
	s.lastAccess = time.Now()
	p.stats.Active++

	return s.value, true
}

// Release resets v and makes it eligible for the next Acquire
// Foreign values, double releases and releases after Destroy are logged and ignored
func (p *Pool[T]) Release(v T) error {
	if err := p.release(v); err != nil {
		p.stats.InvalidReleases++
		p.logger.Warn("invalid release ignored", zap.Error(err))
		return err
	}
	p.stats.Active--
	return nil
}

// ReleaseAll releases a batch, updating statistics once for the whole batch
// Returns the number of values actually released
func (p *Pool[T]) ReleaseAll(vs []T) int {
	released, invalid := 0, 0
	var firstErr error
	for _, v := range vs {
		if err := p.release(v); err != nil {
			invalid++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		released++
	}

	p.stats.Active -= released
	if invalid > 0 {
		p.stats.InvalidReleases += uint64(invalid)
		p.logger.Warn("invalid batch release entries ignored",
			zap.Int("invalid", invalid),
			zap.Int("released", released),
			zap.Error(firstErr))
	}
	return released
}

func (p *Pool[T]) release(v T) error {
	if p.destroyed {
		return ErrDestroyed
	}
	s, ok := p.lookup[v]
	if !ok {
		return ErrForeign
	}
	if !s.inUse {
		return ErrDoubleRelease
	}

	if p.resetFn != nil {
		p.resetFn(s.value)
	}
	s.inUse = false
	s.lastAccess = time.Now()
	p.free.Add(s)
	return nil
}

// InUse reports whether v is currently handed out
func (p *Pool[T]) InUse(v T) bool {
	if p.destroyed {
		return false
	}
	s, ok := p.lookup[v]
	return ok && s.inUse
}

// Len returns the number of values currently handed out
func (p *Pool[T]) Len() int {
	return p.stats.Active
}

// Cap returns the size of the backing store
func (p *Pool[T]) Cap() int {
	return len(p.slots)
}

// Idle returns how long v has been in its current state, zero for foreign values
func (p *Pool[T]) Idle(v T) time.Duration {
	if p.destroyed {
		return 0
	}
	s, ok := p.lookup[v]
	if !ok {
		return 0
	}
	return time.Since(s.lastAccess)
}

// Destroyed reports whether Destroy was called
func (p *Pool[T]) Destroyed() bool {
	return p.destroyed
}

// Destroy frees the backing store; further Acquire calls fail and releases are rejected
// Counters stay readable through Stats
func (p *Pool[T]) Destroy() {
	if p.destroyed {
		return
	}
	p.destroyed = true

	for _, s := range p.slots {
		var zero T
		s.value = zero
	}
	p.slots = nil
	p.lookup = nil
	p.free = queue.New()
	p.stats.Active = 0

	p.logger.Debug("pool destroyed",
		zap.Uint64("created", p.stats.Created),
		zap.Uint64("reused", p.stats.Reused))
}
