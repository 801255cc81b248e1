package app

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// Config holds the viewer settings.
type Config struct {
	Sim      string
	Scale    int
	TPS      int
	Seed     int64
	HUDWidth int
	// Set carries key=value settings handed to the sim factory.
	Set []string
}

// NewConfig returns a Config populated with viewer defaults.
func NewConfig() *Config {
	return &Config{Sim: "cemhyd", Scale: 8, TPS: 10, Seed: -2794, HUDWidth: 240}
}

// Bind attaches the configuration to fs.
func (c *Config) Bind(fs *pflag.FlagSet) {
	fs.StringVar(&c.Sim, "sim", c.Sim, "simulation to run")
	fs.IntVar(&c.Scale, "scale", c.Scale, "pixel scale multiplier")
	fs.IntVar(&c.TPS, "tps", c.TPS, "ticks (hydration cycles) per second")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "seed for packing and reset")
	fs.IntVar(&c.HUDWidth, "hud-width", c.HUDWidth, "width of the side panel in pixels, 0 hides it")
	fs.StringArrayVar(&c.Set, "set", nil, "sim setting as key=value, e.g. size=40 or curing=sealed (repeatable)")
}

// SimConfig converts Set into the factory map.
func (c *Config) SimConfig() (map[string]string, error) {
	cfg := make(map[string]string, len(c.Set)+1)
	for _, p := range c.Set {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("setting %q: want key=value", p)
		}
		cfg[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	if _, ok := cfg["seed"]; !ok {
		cfg["seed"] = fmt.Sprint(c.Seed)
	}
	return cfg, nil
}
