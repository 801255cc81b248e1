package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"cemhyd/internal/hydration"
	"cemhyd/internal/phase"
)

func report(cycle int) hydration.CycleReport {
	var rep hydration.CycleReport
	rep.State.Cycle = cycle
	rep.State.Time = 1.5
	rep.State.Temperature = 31
	rep.State.AlphaMass = 0.2
	rep.State.PH = 13.4
	rep.State.Curing = hydration.SelfDesiccating
	rep.State.PoreConnected = [3]bool{true, false, true}
	rep.Counts[phase.Porosity] = 600
	rep.Counts[phase.C3S] = 400
	rep.Dissolution.Dissolved[phase.C3S] = 12
	rep.Reaction.Reacted[phase.DiffCH] = 5
	rep.Reaction.Placed = 3
	rep.Reaction.Fallbacks = 2
	rep.Reaction.Scans = 1
	rep.Reaction.Substeps = 8
	return rep
}

func TestObserveCycleSetsGauges(t *testing.T) {
	r := New()
	if err := r.ObserveCycle(context.Background(), report(4)); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(r.cycle); got != 4 {
		t.Fatalf("cycle gauge %v", got)
	}
	if got := testutil.ToFloat64(r.temperature); got != 31 {
		t.Fatalf("temperature gauge %v", got)
	}
	if got := testutil.ToFloat64(r.alpha.WithLabelValues("mass")); got != 0.2 {
		t.Fatalf("alpha gauge %v", got)
	}
	if got := testutil.ToFloat64(r.desiccating); got != 1 {
		t.Fatal("curing gauge not set")
	}
	if got := testutil.ToFloat64(r.connected.WithLabelValues("y")); got != 0 {
		t.Fatal("y axis reported connected")
	}
	if got := testutil.ToFloat64(r.voxels.WithLabelValues("C3S")); got != 400 {
		t.Fatalf("C3S voxels %v", got)
	}
	if n := testutil.CollectAndCount(r.voxels); n != len(phase.All) {
		t.Fatalf("%d phase series, want %d", n, len(phase.All))
	}
}

func TestCountersAccumulate(t *testing.T) {
	r := New()
	ctx := context.Background()
	for c := 1; c <= 3; c++ {
		if err := r.ObserveCycle(ctx, report(c)); err != nil {
			t.Fatal(err)
		}
	}
	if got := testutil.ToFloat64(r.dissolved.WithLabelValues("C3S")); got != 36 {
		t.Fatalf("dissolved C3S %v, want 36", got)
	}
	if got := testutil.ToFloat64(r.reacted.WithLabelValues("DIFFCH")); got != 15 {
		t.Fatalf("reacted DIFFCH %v, want 15", got)
	}
	if got := testutil.ToFloat64(r.placements.WithLabelValues("placed")); got != 9 {
		t.Fatalf("placements %v", got)
	}
	if got := testutil.ToFloat64(r.placements.WithLabelValues("random")); got != 6 {
		t.Fatalf("random placements %v, want 6", got)
	}
	if got := testutil.ToFloat64(r.placements.WithLabelValues("scan")); got != 3 {
		t.Fatalf("scanned placements %v, want 3", got)
	}

	final := report(3)
	final.Final = true
	if err := r.ObserveCycle(ctx, final); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(r.dissolved.WithLabelValues("C3S")); got != 36 {
		t.Fatal("final measurement counted as a cycle")
	}
}

func TestHandlerServesExposition(t *testing.T) {
	r := New()
	if err := r.ObserveCycle(context.Background(), report(2)); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"cemhyd_cycle 2", `cemhyd_phase_voxels{phase="POROSITY"} 600`, "go_goroutines"} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("exposition lacks %q", want)
		}
	}
}
