package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lixenwraith/warpfield/audio"
	"github.com/lixenwraith/warpfield/config"
	"github.com/lixenwraith/warpfield/core"
	"github.com/lixenwraith/warpfield/engine"
	"github.com/lixenwraith/warpfield/metrics"
	"github.com/lixenwraith/warpfield/terminal"
)

var errQuit = errors.New("quit requested")

// controls is the part of the animator driven by keyboard input
type controls interface {
	ToggleBoost()
	Pause()
	Resume()
	Reset()
	ResizeCanvas(width, height int)
	PoolStats() engine.Stats
}

// handleEvent applies one input event, false means quit
func handleEvent(ev terminal.Event, a controls) bool {
	switch ev.Type {
	case terminal.EventClosed:
		return false
	case terminal.EventResize:
		a.ResizeCanvas(ev.Width, ev.Height)
	case terminal.EventKey:
		switch ev.Key {
		case terminal.KeyEscape, terminal.KeyCtrlC:
			return false
		case terminal.KeyRune:
			switch ev.Rune {
			case 'q', 'Q':
				return false
			case ' ':
				a.ToggleBoost()
			case 'p', 'P':
				if a.PoolStats().Paused {
					a.Resume()
				} else {
					a.Pause()
				}
			case 'r', 'R':
				a.Reset()
			}
		}
	}
	return true
}

// guarded runs fn under the crash handler so a panic restores the terminal
func guarded(fn func() error) func() error {
	return func() error {
		defer func() {
			if r := recover(); r != nil {
				core.HandleCrash(r)
			}
		}()
		return fn()
	}
}

func runAnimation(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}

	logger, closeLog, err := core.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()
	core.SetCrashLogger(logger)

	screen, err := terminal.New()
	if err != nil {
		return errors.Wrap(err, "[cmd] failed to initialize terminal")
	}
	core.RegisterCrashCleanup(screen.Fini)
	defer screen.Fini()

	cues := audio.NewEngine(cfg.Audio, logger.Named("audio"))
	cues.Start()
	defer cues.Close()

	var collector *metrics.Collector
	opts := cfg.EngineOptions()
	opts.Cues = cues
	opts.Logger = logger
	opts.OnFrame = func(d time.Duration) { collector.ObserveFrame(d) }

	anim, err := engine.New(screen, opts)
	if err != nil {
		return err
	}
	if cfg.MetricsAddr != "" {
		collector = metrics.New(anim.ID(), anim.PoolStats)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	if err := anim.Start(gctx); err != nil {
		return err
	}
	defer anim.Stop()
	logger.Info("animation started",
		zap.String("instance", anim.ID()),
		zap.Int("stars", cfg.Starfield.StarCount),
		zap.Bool("offload", cfg.Offload))

	g.Go(guarded(func() error {
		for {
			if !handleEvent(screen.PollEvent(), anim) {
				return errQuit
			}
		}
	}))
	// PollEvent only returns once the screen is finalized
	g.Go(func() error {
		<-gctx.Done()
		screen.Fini()
		return nil
	})
	if collector != nil {
		g.Go(guarded(func() error {
			return metrics.Serve(gctx, cfg.MetricsAddr, collector, logger.Named("metrics"))
		}))
	}

	err = g.Wait()
	stats := anim.PoolStats()
	logger.Info("animation stopped",
		zap.Uint64("frames", stats.Frames),
		zap.Uint64("dropped", stats.Dropped),
		zap.Uint64("recycled", stats.Field.Recycled))
	if errors.Is(err, errQuit) {
		return nil
	}
	return err
}
