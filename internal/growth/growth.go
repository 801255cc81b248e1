// Package growth places product voxels next to a reaction site, falling back
// to random pore voxels when the neighborhood is full.
package growth

import (
	"context"
	"errors"
	"log/slog"

	"cemhyd/internal/core"
	"cemhyd/internal/logging"
	"cemhyd/internal/microstructure"
	"cemhyd/internal/phase"
	prng "cemhyd/pkg/core"
)

// ErrPlacementExhausted is returned when the grid holds no pore voxel at all.
var ErrPlacementExhausted = errors.New("no pore voxel left for placement")

// ContactTries is the number of random draws during which a fallback
// placement must touch a preferred phase. After that any pore is accepted.
const ContactTries = 5000

// Placer bundles the grid and the shared random stream for placements.
type Placer struct {
	store *microstructure.Store
	rng   *prng.RNG
	log   *slog.Logger

	// Fallbacks counts random placements made under a contact preference.
	Fallbacks int
	// Scans counts placements that needed a linear scan for a pore.
	Scans int
}

// New returns a placer over store drawing from rng.
func New(store *microstructure.Store, rng *prng.RNG, log *slog.Logger) *Placer {
	return &Placer{store: store, rng: rng, log: logging.OrDiscard(log)}
}

// RNG returns the shared random stream.
func (p *Placer) RNG() *prng.RNG { return p.rng }

// Direction draws one of the six face directions.
func (p *Placer) Direction() core.Direction {
	return core.Directions[p.rng.IntN(6)]
}

// Local draws up to maxTries random directions from origin and returns the
// first neighbor accepted. With stopWhenFull set the search also ends once
// every direction was drawn at least once.
func (p *Placer) Local(origin, maxTries int, stopWhenFull bool, accept func(d core.Direction, j int) bool) (int, core.Direction, bool) {
	var tried core.DirectionSet
	for try := 0; try < maxTries; try++ {
		if stopWhenFull && tried.Full() {
			break
		}
		d := p.Direction()
		tried.Add(d)
		j := p.store.Step(origin, d)
		if accept(d, j) {
			return j, d, true
		}
	}
	return 0, 0, false
}

// LocalPore is Local accepting the first pore neighbor.
func (p *Placer) LocalPore(origin, maxTries int, stopWhenFull bool) (int, core.Direction, bool) {
	return p.Local(origin, maxTries, stopWhenFull, func(_ core.Direction, j int) bool {
		return p.store.Phase(j) == phase.Porosity
	})
}

// RandomPore draws random voxels until it finds a pore voxel for which
// accept holds; accept receives the number of draws so far. Once
// ContactTries draws were spent any pore is taken. A nil accept takes the
// first pore. If the grid has no pore the draw loop gives up after a bound
// proportional to the volume and scans linearly.
func (p *Placer) RandomPore(accept func(i, tries int) bool) (int, error) {
	vol := p.store.Volume()
	limit := ContactTries + 4*vol
	for tries := 1; tries <= limit; tries++ {
		i := p.rng.IntN(vol)
		if p.store.Phase(i) != phase.Porosity {
			continue
		}
		if accept == nil || tries > ContactTries || accept(i, tries) {
			if accept != nil {
				p.Fallbacks++
			}
			return i, nil
		}
	}
	p.Scans++
	start := p.rng.IntN(vol)
	for k := 0; k < vol; k++ {
		i := (start + k) % vol
		if p.store.Phase(i) == phase.Porosity {
			p.log.Log(context.Background(), logging.LevelTrace, "placement fell back to scan", "voxel", i)
			return i, nil
		}
	}
	return 0, ErrPlacementExhausted
}

// Touching returns an accept function for RandomPore that requires one of
// a, b, c among the 26 neighbors.
func (p *Placer) Touching(a, b, c phase.Phase) func(i, tries int) bool {
	return func(i, _ int) bool { return p.store.EdgeCount(i, a, b, c) < 26 }
}

// PlaceRandom puts solid at a random pore touching one of a, b, c.
func (p *Placer) PlaceRandom(solid, a, b, c phase.Phase) (int, error) {
	i, err := p.RandomPore(p.Touching(a, b, c))
	if err != nil {
		return 0, err
	}
	p.store.Place(i, solid)
	return i, nil
}
