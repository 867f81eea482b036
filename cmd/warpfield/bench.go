package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lixenwraith/warpfield/config"
	"github.com/lixenwraith/warpfield/offload"
	"github.com/lixenwraith/warpfield/parameter"
	"github.com/lixenwraith/warpfield/pool"
	"github.com/lixenwraith/warpfield/render"
	"github.com/lixenwraith/warpfield/starfield"
)

// BenchResult summarizes a headless run at the reference frame step
type BenchResult struct {
	Path     string        `json:"path"`
	Ticks    int           `json:"ticks"`
	Stars    int           `json:"stars"`
	Width    int           `json:"width"`
	Height   int           `json:"height"`
	Elapsed  time.Duration `json:"elapsed_ns"`
	PerTick  time.Duration `json:"per_tick_ns"`
	Drawn    int           `json:"drawn_last"`
	Skipped  uint64        `json:"skipped"`
	Recycled uint64        `json:"recycled"`
	Expired  uint64        `json:"expired"`
	Pool     *pool.Stats   `json:"pool,omitempty"`
}

func newBenchCommand(configPath *string) *cobra.Command {
	var ticks int
	var asJSON, viaOffload bool

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Simulate and render headless, reporting per-tick cost",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath, cmd.Flags())
			if err != nil {
				return err
			}
			if ticks <= 0 {
				return fmt.Errorf("ticks must be positive, got %d", ticks)
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			var res BenchResult
			if viaOffload {
				res, err = benchOffload(ctx, cfg, ticks)
			} else {
				res, err = benchField(cfg, ticks)
			}
			if err != nil {
				return err
			}
			return writeBench(cmd.OutOrStdout(), res, asJSON)
		},
	}
	config.RegisterFlags(cmd.Flags())
	cmd.Flags().IntVar(&ticks, "ticks", 1000, "Number of frames to simulate")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&viaOffload, "via-offload", false, "Step through the worker protocol instead of the main loop")
	return cmd
}

func benchField(cfg config.Config, ticks int) (BenchResult, error) {
	sc := cfg.Starfield
	field, err := starfield.New(sc, zap.NewNop())
	if err != nil {
		return BenchResult{}, err
	}
	defer field.Destroy()

	renderer := render.NewRenderer(cfg.RenderOptions())
	buf := render.NewBuffer(sc.Width, sc.Height)
	view := render.NewView(sc.Width, sc.Height, sc.FieldOfView(), sc.AspectRatio(), parameter.ViewMargin)
	points := make([]render.Point, 0, sc.StarCount)

	start := time.Now()
	for range ticks {
		field.Step(parameter.StarFrameReference)
		points = render.ProjectStars(field.Stars(), view, field.Speed(), points)
		renderer.Draw(buf, points)
	}
	elapsed := time.Since(start)

	stats := field.Stats()
	return BenchResult{
		Path:     "field",
		Ticks:    ticks,
		Stars:    stats.Active,
		Width:    sc.Width,
		Height:   sc.Height,
		Elapsed:  elapsed,
		PerTick:  elapsed / time.Duration(ticks),
		Drawn:    len(points),
		Recycled: stats.Recycled,
		Expired:  stats.Expired,
		Pool:     &stats.Pool,
	}, nil
}

func benchOffload(ctx context.Context, cfg config.Config, ticks int) (BenchResult, error) {
	sc := cfg.Starfield
	client := offload.NewClient(zap.NewNop())
	if err := client.Start(ctx, sc); err != nil {
		return BenchResult{}, err
	}
	defer client.Close()

	renderer := render.NewRenderer(cfg.RenderOptions())
	buf := render.NewBuffer(sc.Width, sc.Height)

	res := BenchResult{Path: "offload", Ticks: ticks, Width: sc.Width, Height: sc.Height}
	start := time.Now()
	for range ticks {
		f, err := client.Frame(ctx, parameter.StarFrameReference)
		if err != nil {
			return BenchResult{}, err
		}
		if !f.Stepped {
			res.Skipped++
			continue
		}
		renderer.Draw(buf, f.Points)
		res.Stars = f.Active
		res.Drawn = len(f.Points)
	}
	res.Elapsed = time.Since(start)
	res.PerTick = res.Elapsed / time.Duration(ticks)
	return res, client.Cleanup()
}

func writeBench(w io.Writer, res BenchResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Fprintf(w, "path:      %s\n", res.Path)
	fmt.Fprintf(w, "viewport:  %dx%d\n", res.Width, res.Height)
	fmt.Fprintf(w, "stars:     %d (%d drawn last frame)\n", res.Stars, res.Drawn)
	fmt.Fprintf(w, "ticks:     %d in %v (%v per tick)\n", res.Ticks, res.Elapsed, res.PerTick)
	if res.Path == "field" {
		fmt.Fprintf(w, "respawned: %d recycled, %d expired\n", res.Recycled, res.Expired)
	} else {
		fmt.Fprintf(w, "skipped:   %d\n", res.Skipped)
	}
	return nil
}
