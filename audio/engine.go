// Package audio plays the boost and unboost cues through the system speaker.
// Every failure degrades to silence; the animation never depends on sound.
package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"go.uber.org/zap"
)

// Config selects whether cues play and how loud
type Config struct {
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Volume     float64 `mapstructure:"volume" yaml:"volume" json:"volume"`
	SampleRate int     `mapstructure:"sample_rate" yaml:"sample_rate" json:"sample_rate"`
}

// DefaultConfig returns audio off at a moderate volume
func DefaultConfig() Config {
	return Config{
		Enabled:    false,
		Volume:     0.5,
		SampleRate: 44100,
	}
}

// output is the speaker seam, replaced in tests
type output struct {
	init   func(rate beep.SampleRate, bufferSize int) error
	play   func(s ...beep.Streamer)
	lock   func()
	unlock func()
	close  func()
}

var speakerOutput = output{
	init:   speaker.Init,
	play:   speaker.Play,
	lock:   speaker.Lock,
	unlock: speaker.Unlock,
	close:  speaker.Close,
}

// Engine mixes cue streams into a single speaker stream
type Engine struct {
	mu     sync.Mutex
	cfg    Config
	rate   beep.SampleRate
	mixer  *beep.Mixer
	out    output
	logger *zap.Logger

	started bool
	silent  bool
	played  uint64
}

// NewEngine creates an engine, nothing touches the speaker until Start
func NewEngine(cfg Config, logger *zap.Logger) *Engine {
	return newEngine(cfg, logger, speakerOutput)
}

func newEngine(cfg Config, logger *zap.Logger, out output) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultConfig().SampleRate
	}
	cfg.Volume = max(0, min(cfg.Volume, 1))
	return &Engine{
		cfg:    cfg,
		rate:   beep.SampleRate(cfg.SampleRate),
		mixer:  &beep.Mixer{},
		out:    out,
		logger: logger,
		silent: true,
	}
}

// Start opens the speaker, a disabled config or a missing device leaves the engine silent
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started || !e.cfg.Enabled {
		return
	}
	e.started = true

	if err := e.out.init(e.rate, e.rate.N(100*time.Millisecond)); err != nil {
		e.logger.Warn("audio unavailable, cues disabled", zap.Error(err))
		return
	}
	e.out.play(e.mixer)
	e.silent = false
	e.logger.Debug("audio started", zap.Int("sample_rate", int(e.rate)))
}

// PlayBoost plays the warp-up cue
func (e *Engine) PlayBoost() {
	e.play(BoostSound(e.rate, e.cfg.Volume))
}

// PlayUnboost plays the warp-down cue
func (e *Engine) PlayUnboost() {
	e.play(UnboostSound(e.rate, e.cfg.Volume))
}

func (e *Engine) play(s beep.Streamer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.silent {
		return
	}
	e.out.lock()
	e.mixer.Add(s)
	e.out.unlock()
	e.played++
}

// Enabled reports whether cues actually reach a speaker
func (e *Engine) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.silent
}

// Played returns the number of cues queued
func (e *Engine) Played() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.played
}

// Close drops queued cues and releases the speaker
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.silent {
		return
	}
	e.out.lock()
	e.mixer.Clear()
	e.out.unlock()
	e.out.close()
	e.silent = true
}
