package dissolution

import (
	"slices"

	"cemhyd/internal/phase"
)

const (
	cubeMax = 7
	cubeMin = 3
)

type poreSite struct {
	i, open int
}

// makeInert empties the n saturated pore voxels lying in the most open
// neighborhoods, emulating water leaving the largest pores first under
// self-desiccation. It returns the number of voxels emptied.
func (e *Engine) makeInert(n int) int {
	s := e.store
	sites := make([]poreSite, 0, s.Count(phase.Porosity))
	most := 0
	for i := 0; i < s.Volume(); i++ {
		if s.Phase(i) != phase.Porosity {
			continue
		}
		open := s.CountBox(i, e.cubeSize, phase.Phase.IsPoreLike)
		most = max(most, open)
		sites = append(sites, poreSite{i, open})
	}
	slices.SortStableFunc(sites, func(a, b poreSite) int { return b.open - a.open })
	if n > len(sites) {
		n = len(sites)
	}
	for _, site := range sites[:n] {
		s.Set(site.i, phase.EmptyPore)
	}
	if e.cubeSize > cubeMin && 2*most < e.cubeSize*e.cubeSize*e.cubeSize {
		e.cubeSize -= 2
		e.log.Debug("desiccation cube shrunk", "size", e.cubeSize)
	}
	return n
}
