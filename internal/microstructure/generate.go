package microstructure

import (
	"fmt"
	"sort"

	"cemhyd/internal/phase"
	prng "cemhyd/pkg/core"
)

// GenerateOptions controls the random particle packing used for demos,
// sweeps and tests when no raster is supplied.
type GenerateOptions struct {
	N int
	// SolidFraction is the target volume fraction of particles.
	SolidFraction float64
	RadiusMin     int
	RadiusMax     int
	// Fractions gives the relative volume share of each solid phase. Every
	// particle voxel draws its phase independently so that grains are
	// polymineralic.
	Fractions map[phase.Phase]float64
	// MaxAttempts caps particle placement attempts.
	MaxAttempts int
}

// FirstParticleID is the id given to the first generated particle.
const FirstParticleID = 100

// DefaultGenerateOptions returns a w/c ~0.45 portland cement paste.
func DefaultGenerateOptions(n int) GenerateOptions {
	return GenerateOptions{
		N:             n,
		SolidFraction: 0.42,
		RadiusMin:     0,
		RadiusMax:     4,
		Fractions: map[phase.Phase]float64{
			phase.C3S:    0.60,
			phase.C2S:    0.17,
			phase.C3A:    0.08,
			phase.C4AF:   0.10,
			phase.Gypsum: 0.05,
		},
		MaxAttempts: 200000,
	}
}

// Generate packs non-overlapping digitized spheres into an all-pore grid.
func Generate(opts GenerateOptions, rng *prng.RNG) (*Store, error) {
	if opts.N <= 0 {
		return nil, fmt.Errorf("generate: size %d must be positive", opts.N)
	}
	if opts.RadiusMax < opts.RadiusMin || opts.RadiusMin < 0 {
		return nil, fmt.Errorf("generate: bad radius range [%d, %d]", opts.RadiusMin, opts.RadiusMax)
	}
	kinds, cumulative, err := fractionTable(opts.Fractions)
	if err != nil {
		return nil, err
	}
	s := New(opts.N)
	target := int(opts.SolidFraction * float64(s.Volume()))
	placed := 0
	id := int32(FirstParticleID)
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 100000
	}
	var voxels []int
	for a := 0; a < attempts && placed < target; a++ {
		r := opts.RadiusMin + rng.IntN(opts.RadiusMax-opts.RadiusMin+1)
		if 2*r+1 > opts.N {
			r = (opts.N - 1) / 2
		}
		center := s.RandomIndex(rng)
		voxels = s.sphere(center, r, voxels[:0])
		if voxels == nil {
			continue
		}
		for _, v := range voxels {
			s.Set(v, pick(kinds, cumulative, rng.Float64()))
			s.particles[v] = id
		}
		id++
		placed += len(voxels)
	}
	return s, nil
}

// sphere collects the voxels of a digitized sphere, returning nil when any of
// them is already occupied.
func (s *Store) sphere(center, r int, dst []int) []int {
	cx, cy, cz := s.lat.Coords(center)
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			for dz := -r; dz <= r; dz++ {
				if dx*dx+dy*dy+dz*dz > r*r {
					continue
				}
				i := s.lat.At(cx+dx, cy+dy, cz+dz)
				if s.phases[i] != phase.Porosity {
					return nil
				}
				dst = append(dst, i)
			}
		}
	}
	return dst
}

func fractionTable(fr map[phase.Phase]float64) ([]phase.Phase, []float64, error) {
	kinds := make([]phase.Phase, 0, len(fr))
	for p, f := range fr {
		if !p.IsSolid() {
			return nil, nil, fmt.Errorf("generate: %s is not a solid phase", p)
		}
		if f < 0 {
			return nil, nil, fmt.Errorf("generate: negative fraction for %s", p)
		}
		if f > 0 {
			kinds = append(kinds, p)
		}
	}
	if len(kinds) == 0 {
		return nil, nil, fmt.Errorf("generate: no phase fractions given")
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	cumulative := make([]float64, len(kinds))
	sum := 0.0
	for i, p := range kinds {
		sum += fr[p]
		cumulative[i] = sum
	}
	for i := range cumulative {
		cumulative[i] /= sum
	}
	return kinds, cumulative, nil
}

func pick(kinds []phase.Phase, cumulative []float64, u float64) phase.Phase {
	for i, c := range cumulative {
		if u < c {
			return kinds[i]
		}
	}
	return kinds[len(kinds)-1]
}

// Sprinkle converts n randomly chosen pore voxels to p as single-voxel
// additions. With isolated set, a site qualifies only when all 26 of its
// neighbors are pore. It returns the number placed, which is below n only
// when the attempt cap was reached.
func (s *Store) Sprinkle(p phase.Phase, n int, isolated bool, rng *prng.RNG) int {
	placed := 0
	for tries := 0; placed < n && tries < 100*s.Volume(); tries++ {
		i := s.RandomIndex(rng)
		if s.phases[i] != phase.Porosity {
			continue
		}
		if isolated && s.EdgeCount(i, phase.Porosity, phase.Porosity, phase.Porosity) != 0 {
			continue
		}
		s.Set(i, p)
		placed++
	}
	return placed
}
