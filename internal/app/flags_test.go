package app

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestBindAndSimConfig(t *testing.T) {
	cfg := NewConfig()
	fs := pflag.NewFlagSet("view", pflag.ContinueOnError)
	cfg.Bind(fs)
	if err := fs.Parse([]string{"--scale", "4", "--seed", "9", "--set", "size=20", "--set", "curing=sealed"}); err != nil {
		t.Fatal(err)
	}
	if cfg.Scale != 4 || cfg.Seed != 9 {
		t.Fatalf("config %+v", cfg)
	}
	m, err := cfg.SimConfig()
	if err != nil {
		t.Fatal(err)
	}
	if m["size"] != "20" || m["curing"] != "sealed" || m["seed"] != "9" {
		t.Fatalf("sim config %v", m)
	}
}

func TestSimConfigRejectsBarePair(t *testing.T) {
	cfg := NewConfig()
	cfg.Set = []string{"size"}
	if _, err := cfg.SimConfig(); err == nil {
		t.Fatal("expected an error")
	}
}
