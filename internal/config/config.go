// Package config provides unified configuration loading for cemhyd.
// It supports loading from YAML files, environment variables and flag-style
// key=value overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"cemhyd/internal/hydration"
	"cemhyd/internal/microstructure"
	"cemhyd/internal/phase"
)

// Config contains all cemhyd settings.
type Config struct {
	// Input selects the starting microstructure and the property tables.
	Input InputConfig `yaml:"input"`

	// Model holds the hydration run settings.
	Model hydration.Config `yaml:"model"`

	// Output configures where cycle reports go besides the log.
	Output OutputConfig `yaml:"output"`

	// Logging contains settings for operational logging.
	Logging LoggingConfig `yaml:"logging"`
}

// InputConfig names the raster files and tables read at start-up. With no
// phase raster a microstructure is generated from Generate.
type InputConfig struct {
	// Size is the lattice side length.
	Size int `yaml:"size"`

	// Phases and Particles are raster files of Size^3 ids in x-outer order.
	// Particles is optional when Phases is given.
	Phases    string `yaml:"phases,omitempty"`
	Particles string `yaml:"particles,omitempty"`

	// Slag and Alkali override the default property tables.
	Slag   string `yaml:"slag,omitempty"`
	Alkali string `yaml:"alkali,omitempty"`

	// Schedule is a programmed temperature history file. It replaces any
	// schedule given inline under model.temperature.
	Schedule string `yaml:"schedule,omitempty"`

	Generate GenerateConfig `yaml:"generate"`

	// Additions sprinkles single voxels of a solid phase at random pore
	// sites once the microstructure is built. CACO3 and INERT only go where
	// every neighbor is pore.
	Additions map[string]int `yaml:"additions,omitempty"`
}

// ParseAdditions resolves the phase names of Additions.
func (in InputConfig) ParseAdditions() (map[phase.Phase]int, error) {
	adds := make(map[phase.Phase]int, len(in.Additions))
	for name, n := range in.Additions {
		p, err := phase.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("additions: %w", err)
		}
		if !p.IsSolid() {
			return nil, fmt.Errorf("additions: %s is not a solid phase", p)
		}
		if n < 0 {
			return nil, fmt.Errorf("additions: negative count %d for %s", n, p)
		}
		adds[p] += n
	}
	return adds, nil
}

// GenerateConfig shapes the random packing used without a phase raster.
type GenerateConfig struct {
	SolidFraction float64 `yaml:"solid_fraction"`
	RadiusMin     int     `yaml:"radius_min"`
	RadiusMax     int     `yaml:"radius_max"`
	// Fractions maps phase names to relative volume shares.
	Fractions map[string]float64 `yaml:"fractions,omitempty"`
}

// Options converts the packing settings for a lattice of side n. Empty
// fractions keep the default portland cement shares.
func (g GenerateConfig) Options(n int) (microstructure.GenerateOptions, error) {
	opts := microstructure.DefaultGenerateOptions(n)
	opts.SolidFraction = g.SolidFraction
	opts.RadiusMin, opts.RadiusMax = g.RadiusMin, g.RadiusMax
	if len(g.Fractions) == 0 {
		return opts, nil
	}
	opts.Fractions = make(map[phase.Phase]float64, len(g.Fractions))
	for name, f := range g.Fractions {
		p, err := phase.Parse(name)
		if err != nil {
			return opts, fmt.Errorf("generate fractions: %w", err)
		}
		if !p.IsSolid() {
			return opts, fmt.Errorf("generate fractions: %s is not a solid phase", p)
		}
		opts.Fractions[p] = f
	}
	return opts, nil
}

// OutputConfig configures report sinks. Empty values disable a sink.
type OutputConfig struct {
	// Database is the sqlite file receiving cycle reports.
	Database string `yaml:"database,omitempty"`

	// MetricsAddr serves Prometheus metrics, e.g. ":9090".
	MetricsAddr string `yaml:"metrics_addr,omitempty"`

	// StreamAddr serves the websocket cycle stream.
	StreamAddr string `yaml:"stream_addr,omitempty"`

	// StreamRate caps stream frames per second; 0 sends every cycle. The
	// final measurement is always sent.
	StreamRate int `yaml:"stream_rate,omitempty"`

	// EventDir receives events.jsonl with run milestones.
	EventDir string `yaml:"event_dir,omitempty"`

	// Raster writes the final microstructure as an id raster.
	Raster string `yaml:"raster,omitempty"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "error", "warn", "info" (default),
	// "debug" or "trace".
	Level string `yaml:"level"`
}

// Default returns a Config with the standard paste and run settings.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Size: 100,
			Generate: GenerateConfig{
				SolidFraction: 0.42,
				RadiusMin:     0,
				RadiusMax:     4,
			},
		},
		Model: hydration.DefaultConfig(),
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load returns the defaults, overlaid by the YAML file at path when path is
// not empty, then by environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}
	applyEnvOverrides(cfg)
	if err := cfg.loadSchedule(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadSchedule reads Input.Schedule into the model's temperature history.
func (c *Config) loadSchedule() error {
	if c.Input.Schedule == "" {
		return nil
	}
	f, err := os.Open(c.Input.Schedule)
	if err != nil {
		return fmt.Errorf("opening temperature schedule: %w", err)
	}
	defer f.Close()
	segs, err := hydration.ReadSchedule(f)
	if err != nil {
		return err
	}
	c.Model.Thermal.Schedule = segs
	return nil
}

// LoadFromFile loads configuration from a specific YAML file. Keys absent
// from the file keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Apply overrides settings from key=value pairs. Keys are the model's
// flag-style names plus size and log_level.
func (c *Config) Apply(pairs []string) error {
	kv := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return fmt.Errorf("override %q: want key=value", p)
		}
		kv[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	if v, ok := kv["size"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("override size: %w", err)
		}
		c.Input.Size = n
	}
	if v, ok := kv["log_level"]; ok {
		c.Logging.Level = v
	}
	c.Model.Apply(kv)
	return nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Input.Size <= 0 {
		return fmt.Errorf("input size must be positive, got %d", c.Input.Size)
	}
	if c.Input.Particles != "" && c.Input.Phases == "" {
		return errors.New("input particles given without a phase raster")
	}
	if c.Input.Phases == "" {
		g := c.Input.Generate
		if g.SolidFraction <= 0 || g.SolidFraction >= 1 {
			return fmt.Errorf("generate solid_fraction must be in (0, 1), got %v", g.SolidFraction)
		}
		if g.RadiusMin < 0 || g.RadiusMax < g.RadiusMin {
			return fmt.Errorf("generate radius range [%d, %d] is invalid", g.RadiusMin, g.RadiusMax)
		}
		if _, err := g.Options(c.Input.Size); err != nil {
			return err
		}
	}

	if _, err := c.Input.ParseAdditions(); err != nil {
		return err
	}
	if c.Output.StreamRate < 0 {
		return fmt.Errorf("output stream_rate must not be negative, got %d", c.Output.StreamRate)
	}

	validLevels := map[string]bool{"error": true, "warn": true, "info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: error, warn, info, debug, trace)", c.Logging.Level)
	}

	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CEMHYD_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Model.Seed = n
		}
	}

	if v := os.Getenv("CEMHYD_CYCLES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Model.Cycles = n
		}
	}

	if v := os.Getenv("CEMHYD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("CEMHYD_DB"); v != "" {
		cfg.Output.Database = v
	}
}
