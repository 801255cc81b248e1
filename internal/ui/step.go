// Package ui draws the viewer side panel and overlays.
package ui

import (
	"math"

	"cemhyd/internal/core"
)

// step returns the value one step from v, clamped to the control bounds.
// ok is false when the value would not change.
func step(spec core.ParameterControl, v, direction int) (int, bool) {
	inc := int(math.Round(spec.Step))
	if inc <= 0 {
		inc = 1
	}
	target := v + direction*inc
	if spec.HasMin {
		target = max(target, int(math.Round(spec.Min)))
	}
	if spec.HasMax {
		target = min(target, int(math.Round(spec.Max)))
	}
	return target, target != v
}
