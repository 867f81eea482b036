// Package config loads the application configuration from defaults, a YAML file,
// WARPFIELD_* environment variables and command-line flags, in increasing priority.
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/warpfield/audio"
	"github.com/lixenwraith/warpfield/core"
	"github.com/lixenwraith/warpfield/engine"
	"github.com/lixenwraith/warpfield/parameter"
	"github.com/lixenwraith/warpfield/render"
	"github.com/lixenwraith/warpfield/starfield"
)

const (
	envPrefix = "WARPFIELD"
	fileName  = "warpfield"
)

// RenderConfig holds blend strengths; glow and trails are toggled in the starfield section
type RenderConfig struct {
	FadeAlpha float64 `mapstructure:"fade_alpha" yaml:"fade_alpha" json:"fade_alpha"`
	GlowAlpha float64 `mapstructure:"glow_alpha" yaml:"glow_alpha" json:"glow_alpha"`
}

// Config is the complete application configuration
type Config struct {
	Starfield   starfield.Config `mapstructure:"starfield" yaml:"starfield" json:"starfield"`
	Render      RenderConfig     `mapstructure:"render" yaml:"render" json:"render"`
	FrameRate   int              `mapstructure:"frame_rate" yaml:"frame_rate" json:"frame_rate"`
	Offload     bool             `mapstructure:"offload" yaml:"offload" json:"offload"`
	Adaptive    bool             `mapstructure:"adaptive" yaml:"adaptive" json:"adaptive"`
	Audio       audio.Config     `mapstructure:"audio" yaml:"audio" json:"audio"`
	Log         core.LogConfig   `mapstructure:"log" yaml:"log" json:"log"`
	MetricsAddr string           `mapstructure:"metrics_addr" yaml:"metrics_addr" json:"metrics_addr"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Starfield: starfield.DefaultConfig(),
		Render: RenderConfig{
			FadeAlpha: parameter.TrailFadeAlpha,
			GlowAlpha: parameter.GlowAlpha,
		},
		FrameRate: parameter.FrameRate,
		Offload:   false,
		Adaptive:  true,
		Audio:     audio.DefaultConfig(),
		Log: core.LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// flagKeys maps command-line flags to configuration keys
var flagKeys = map[string]string{
	"stars":        "starfield.star_count",
	"capacity":     "starfield.capacity",
	"seed":         "starfield.seed",
	"glow":         "starfield.enable_glow",
	"trails":       "starfield.enable_trails",
	"base-speed":   "starfield.base_speed",
	"boost-speed":  "starfield.boost_speed",
	"fps":          "frame_rate",
	"offload":      "offload",
	"adaptive":     "adaptive",
	"audio":        "audio.enabled",
	"volume":       "audio.volume",
	"log-file":     "log.file",
	"debug":        "log.debug",
	"metrics-addr": "metrics_addr",
}

// RegisterFlags defines the overridable settings on fs with built-in defaults
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.Int("stars", d.Starfield.StarCount, "Number of simultaneously active stars")
	fs.Int("capacity", d.Starfield.Capacity, "Pre-allocated pool slots, 0 sizes the pool to the star count")
	fs.Uint64("seed", d.Starfield.Seed, "Random seed, 0 seeds from the clock")
	fs.Bool("glow", d.Starfield.EnableGlow, "Draw halos around near stars")
	fs.Bool("trails", d.Starfield.EnableTrails, "Fade previous frames instead of clearing")
	fs.Float64("base-speed", d.Starfield.BaseSpeed, "Cruise speed in depth units per reference frame")
	fs.Float64("boost-speed", d.Starfield.BoostSpeed, "Warp speed in depth units per reference frame")
	fs.Int("fps", d.FrameRate, "Target frame rate")
	fs.Bool("offload", d.Offload, "Simulate on a worker goroutine")
	fs.Bool("adaptive", d.Adaptive, "Shed stars when frames run over budget")
	fs.Bool("audio", d.Audio.Enabled, "Play boost cues")
	fs.Float64("volume", d.Audio.Volume, "Cue volume in [0, 1]")
	fs.String("log-file", d.Log.File, "Log file path, logging is off when empty")
	fs.Bool("debug", d.Log.Debug, "Enable debug logging to logs/warpfield.log")
	fs.String("metrics-addr", d.MetricsAddr, "Serve Prometheus metrics on this address, e.g. :9090")
}

// Load resolves the configuration
// An explicit path must exist; otherwise warpfield.yaml is looked up in the working
// directory and $HOME/.config/warpfield and skipped when absent. fs may be nil.
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	base, err := yaml.Marshal(Default())
	if err != nil {
		return Config{}, errors.Wrap(err, "[config] failed to encode defaults")
	}
	if err := v.ReadConfig(bytes.NewReader(base)); err != nil {
		return Config{}, errors.Wrap(err, "[config] failed to load defaults")
	}

	if path == "" {
		path = findConfig()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "[config] failed to read %s", path)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, errors.Wrapf(err, "[config] failed to bind flag %s", name)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "[config] failed to decode")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// findConfig returns the first existing default config file, or ""
// The binary shares the base name, so only the .yaml file is considered
func findConfig() string {
	candidates := []string{fileName + ".yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", fileName, fileName+".yaml"))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

// Save writes cfg as YAML, creating parent directories
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "[config] failed to encode")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "[config] failed to create %s", dir)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "[config] failed to write %s", path)
	}
	return nil
}

// Validate checks the sections the starfield does not validate itself
func (c Config) Validate() error {
	if err := c.Starfield.Validate(); err != nil {
		return err
	}
	switch {
	case c.FrameRate <= 0 || c.FrameRate > 240:
		return errors.Errorf("[config] frame rate must be in [1, 240], got %d", c.FrameRate)
	case c.Render.FadeAlpha < 0 || c.Render.FadeAlpha > 1:
		return errors.Errorf("[config] fade alpha must be in [0, 1], got %g", c.Render.FadeAlpha)
	case c.Render.GlowAlpha < 0 || c.Render.GlowAlpha > 1:
		return errors.Errorf("[config] glow alpha must be in [0, 1], got %g", c.Render.GlowAlpha)
	case c.Audio.Volume < 0 || c.Audio.Volume > 1:
		return errors.Errorf("[config] audio volume must be in [0, 1], got %g", c.Audio.Volume)
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		return errors.Errorf("[config] unknown log format %q", c.Log.Format)
	}
	return nil
}

// RenderOptions combines the starfield toggles with the blend strengths
func (c Config) RenderOptions() render.Options {
	return render.Options{
		Glow:      c.Starfield.EnableGlow,
		Trails:    c.Starfield.EnableTrails,
		FadeAlpha: c.Render.FadeAlpha,
		GlowAlpha: c.Render.GlowAlpha,
	}
}

// EngineOptions returns animator options without the runtime hooks (cues, logger, frame observer)
func (c Config) EngineOptions() engine.Options {
	return engine.Options{
		Config:    c.Starfield,
		Render:    c.RenderOptions(),
		FrameRate: c.FrameRate,
		Offload:   c.Offload,
		Adaptive:  c.Adaptive,
	}
}
