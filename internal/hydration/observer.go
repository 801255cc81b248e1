package hydration

import (
	"context"

	"cemhyd/internal/dissolution"
	"cemhyd/internal/microstructure"
	"cemhyd/internal/percolation"
	"cemhyd/internal/ph"
	"cemhyd/internal/reaction"
)

// CycleReport is everything a cycle produced for the reporting layers.
// Pores, Set and Particles are nil on cycles where the analysis did not run.
type CycleReport struct {
	State       CycleState
	Counts      microstructure.Counts
	Dissolution dissolution.Stats
	Reaction    reaction.Stats
	Solution    ph.Result

	Pores     []percolation.Result
	Set       []percolation.SetResult
	Particles []ParticleRecord
	// Final marks the closing measurement after the last cycle.
	Final bool
}

// Observer receives cycle reports in order. An error aborts the run.
type Observer interface {
	ObserveCycle(ctx context.Context, r CycleReport) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, r CycleReport) error

// ObserveCycle implements Observer.
func (f ObserverFunc) ObserveCycle(ctx context.Context, r CycleReport) error { return f(ctx, r) }
