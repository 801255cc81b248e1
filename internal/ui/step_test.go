package ui

import (
	"testing"

	"cemhyd/internal/core"
)

func TestStep(t *testing.T) {
	spec := core.ParameterControl{Key: "slice", Type: core.ParamTypeInt, Step: 1, Min: 0, Max: 9, HasMin: true, HasMax: true}
	tests := []struct {
		v, dir int
		want   int
		ok     bool
	}{
		{4, 1, 5, true},
		{4, -1, 3, true},
		{9, 1, 9, false},
		{0, -1, 0, false},
	}
	for _, tt := range tests {
		got, ok := step(spec, tt.v, tt.dir)
		if got != tt.want || ok != tt.ok {
			t.Errorf("step(%d, %d) = %d, %v; want %d, %v", tt.v, tt.dir, got, ok, tt.want, tt.ok)
		}
	}

	spec.Step = 0
	spec.HasMax = false
	if got, _ := step(spec, 100, 1); got != 101 {
		t.Fatalf("zero step moved to %d", got)
	}
}
