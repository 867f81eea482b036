// Package metrics exports animator and pool statistics in Prometheus format.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lixenwraith/warpfield/core"
	"github.com/lixenwraith/warpfield/engine"
)

const namespace = "warpfield"

// Source returns the current animator snapshot, engine.Animator.PoolStats fits
type Source func() engine.Stats

type desc struct {
	d     *prometheus.Desc
	kind  prometheus.ValueType
	value func(engine.Stats) float64
}

// Collector reads one snapshot per scrape and owns a private registry
type Collector struct {
	registry  *prometheus.Registry
	source    Source
	descs     []desc
	frameTime prometheus.Histogram
}

func gauge(name, help string, labels prometheus.Labels, v func(engine.Stats) float64) desc {
	return desc{
		d:     prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, labels),
		kind:  prometheus.GaugeValue,
		value: v,
	}
}

func counter(name, help string, labels prometheus.Labels, v func(engine.Stats) float64) desc {
	return desc{
		d:     prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, labels),
		kind:  prometheus.CounterValue,
		value: v,
	}
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// New creates a collector labelled with the animator instance id
func New(instance string, source Source) *Collector {
	labels := prometheus.Labels{"instance": instance}
	c := &Collector{
		registry: prometheus.NewRegistry(),
		source:   source,
		frameTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "frame_duration_seconds",
			Help:        "Simulation and draw time per rendered frame",
			ConstLabels: labels,
			Buckets:     []float64{0.0005, 0.001, 0.002, 0.004, 0.008, 0.016, 0.033, 0.066},
		}),
	}

	c.descs = []desc{
		gauge("stars_active", "Stars currently simulated", labels,
			func(s engine.Stats) float64 { return float64(s.Active) }),
		gauge("star_budget", "Star budget set by the quality controller", labels,
			func(s engine.Stats) float64 { return float64(s.Budget) }),
		gauge("pool_capacity", "Pre-allocated star slots", labels,
			func(s engine.Stats) float64 { return float64(s.Field.Pool.Capacity) }),
		gauge("pool_in_use", "Star slots currently acquired", labels,
			func(s engine.Stats) float64 { return float64(s.Field.Pool.Active) }),
		gauge("frame_time_smoothed_seconds", "Moving average of frame time", labels,
			func(s engine.Stats) float64 { return s.FrameTime.Seconds() }),
		gauge("offloaded", "1 while the simulation runs on the worker", labels,
			func(s engine.Stats) float64 { return flag(s.Offloaded) }),
		gauge("paused", "1 while animation time is frozen", labels,
			func(s engine.Stats) float64 { return flag(s.Paused) }),
		gauge("boosted", "1 while at warp speed", labels,
			func(s engine.Stats) float64 { return flag(s.Boosted) }),
		counter("frames_total", "Frames rendered", labels,
			func(s engine.Stats) float64 { return float64(s.Frames) }),
		counter("frames_dropped_total", "Frames skipped by the quality controller or a busy worker", labels,
			func(s engine.Stats) float64 { return float64(s.Dropped) }),
		counter("pool_acquires_total", "Successful pool acquisitions", labels,
			func(s engine.Stats) float64 { return float64(s.Field.Pool.Acquires()) }),
		counter("pool_exhausted_total", "Acquire calls refused by a full pool", labels,
			func(s engine.Stats) float64 { return float64(s.Field.Pool.Exhausted) }),
		counter("pool_invalid_releases_total", "Release calls for values the pool does not own", labels,
			func(s engine.Stats) float64 { return float64(s.Field.Pool.InvalidReleases) }),
		counter("stars_recycled_total", "Stars respawned after passing the viewer", labels,
			func(s engine.Stats) float64 { return float64(s.Field.Recycled) }),
		counter("stars_expired_total", "Stars respawned after reaching their age limit", labels,
			func(s engine.Stats) float64 { return float64(s.Field.Expired) }),
		counter("stars_transient_total", "Unpooled stars created while the pool was exhausted", labels,
			func(s engine.Stats) float64 { return float64(s.Field.Fallbacks) }),
	}

	c.registry.MustRegister(c, c.frameTime)
	c.registry.MustRegister(collectors.NewGoCollector())
	return c
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs {
		ch <- d.d
	}
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.source()
	for _, d := range c.descs {
		ch <- prometheus.MustNewConstMetric(d.d, d.kind, d.value(s))
	}
}

// ObserveFrame records one frame duration, safe on a nil collector
func (c *Collector) ObserveFrame(d time.Duration) {
	if c == nil {
		return
	}
	c.frameTime.Observe(d.Seconds())
}

// Registry exposes the private registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled
func Serve(ctx context.Context, addr string, c *Collector, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	logger.Info("metrics endpoint listening", zap.String("addr", addr))
	core.Go(func() {
		errCh <- srv.ListenAndServe()
	})

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "[metrics] server failed")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "[metrics] shutdown failed")
		}
		return nil
	}
}
