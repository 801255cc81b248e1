package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"cemhyd/internal/config"
	"cemhyd/internal/microstructure"
	"cemhyd/internal/phase"
	prng "cemhyd/pkg/core"
)

// buildStore reads the phase and particle rasters, or packs a random paste
// from the generator settings when no phase raster is configured, then
// applies the configured single-voxel additions.
func buildStore(cfg *config.Config, log *slog.Logger) (*microstructure.Store, error) {
	store, err := loadStore(cfg, log)
	if err != nil {
		return nil, err
	}
	adds, err := cfg.Input.ParseAdditions()
	if err != nil {
		return nil, err
	}
	rng := prng.NewRNG(cfg.Model.Seed)
	for _, p := range phase.All {
		n := adds[p]
		if n == 0 {
			continue
		}
		isolated := p == phase.CaCO3 || p == phase.Inert
		if got := store.Sprinkle(p, n, isolated, rng); got < n {
			log.Warn("fewer voxels added than requested", "phase", p, "want", n, "placed", got)
		}
	}
	return store, nil
}

func loadStore(cfg *config.Config, log *slog.Logger) (*microstructure.Store, error) {
	in := cfg.Input
	n := in.Size
	if in.Phases == "" {
		opts, err := in.Generate.Options(n)
		if err != nil {
			return nil, err
		}
		store, err := microstructure.Generate(opts, prng.NewRNG(cfg.Model.Seed))
		if err != nil {
			return nil, fmt.Errorf("generating microstructure: %w", err)
		}
		log.Info("generated microstructure", "size", n, "solid_fraction", opts.SolidFraction, "seed", cfg.Model.Seed)
		return store, nil
	}

	var phases []phase.Phase
	err := readFile(in.Phases, func(r io.Reader) (err error) {
		phases, err = microstructure.ReadPhases(r, n)
		return err
	})
	if err != nil {
		return nil, err
	}
	var particles []int32
	if in.Particles != "" {
		err := readFile(in.Particles, func(r io.Reader) (err error) {
			particles, err = microstructure.ReadParticles(r, n)
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	store, err := microstructure.FromGrid(n, phases, particles)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", in.Phases, err)
	}
	log.Info("loaded microstructure", "size", n, "phases", in.Phases, "particles", in.Particles)
	return store, nil
}

// buildRegistry returns the default phase tables with the configured slag
// and alkali property files applied.
func buildRegistry(cfg *config.Config) (*phase.Registry, error) {
	reg := phase.NewRegistry()
	if path := cfg.Input.Slag; path != "" {
		err := readFile(path, func(r io.Reader) error {
			s, err := phase.ReadSlag(r)
			if err == nil {
				reg.SetSlag(s)
			}
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	if path := cfg.Input.Alkali; path != "" {
		err := readFile(path, func(r io.Reader) error {
			a, err := phase.ReadAlkali(r)
			if err == nil {
				reg.SetAlkali(a)
			}
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func readFile(path string, read func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := read(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func writeRaster(path string, store *microstructure.Store) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := store.WriteRaster(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
