package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cemhyd/internal/config"
	"cemhyd/internal/core"
	"cemhyd/internal/dissolution"
	"cemhyd/internal/hydration"
	"cemhyd/internal/logging"
	"cemhyd/internal/microstructure"
	"cemhyd/internal/percolation"
	"cemhyd/internal/phase"
	"cemhyd/internal/report"
)

const smallPaste = `input:
  size: 10
  generate:
    solid_fraction: 0.42
    radius_min: 0
    radius_max: 2
model:
  seed: 11
  cycles: 2
  max_substeps: 10
  cadence:
    burn: 1
    set: 1
    particle: 0
logging:
  level: error
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cemhyd.yaml")
	if err := os.WriteFile(path, []byte(smallPaste), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"plain error", errors.New("boom"), 1},
		{"water exhausted", fmt.Errorf("cycle 3: %w", dissolution.ErrWaterExhausted), exitWaterExhausted},
		{"invariant", microstructure.InvariantError{Msg: "bad"}, exitInvariant},
		{"wrapped invariant", fmt.Errorf("run: %w", microstructure.InvariantError{Msg: "bad"}), exitInvariant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestGuardRecoversInvariantPanic(t *testing.T) {
	err := guard(func() error {
		panic(microstructure.InvariantError{Msg: "count drift"})
	})
	if exitCode(err) != exitInvariant || !strings.Contains(err.Error(), "count drift") {
		t.Fatalf("got %v", err)
	}
}

func TestGuardRepanicsOtherValues(t *testing.T) {
	defer func() {
		if r := recover(); r != "other" {
			t.Fatalf("recovered %v", r)
		}
	}()
	_ = guard(func() error { panic("other") })
	t.Fatal("guard swallowed the panic")
}

func TestVersionJSON(t *testing.T) {
	out, err := execute(t, "version", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var v map[string]string
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatal(err)
	}
	if v["version"] != version {
		t.Fatalf("version %q", v["version"])
	}
}

func TestRunWritesOutputs(t *testing.T) {
	cfg := writeConfig(t)
	dir := t.TempDir()
	db := filepath.Join(dir, "report.db")
	raster := filepath.Join(dir, "final.img")
	events := filepath.Join(dir, "events")

	out, err := execute(t, "run", "--config", cfg, "--json",
		"--db", db, "--out", raster, "--events", events)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	var sum runSummary
	if err := json.Unmarshal([]byte(out), &sum); err != nil {
		t.Fatalf("summary %q: %v", out, err)
	}
	if sum.Cycles != 2 || sum.RunID != 1 || sum.Raster != raster {
		t.Fatalf("summary %+v", sum)
	}

	f, err := os.Open(raster)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := microstructure.ReadPhases(f, 10); err != nil {
		t.Fatalf("final raster unreadable: %v", err)
	}

	store, err := report.Open(context.Background(), db)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	rows, err := store.Cycles(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d cycle rows, want 2 and the final one", len(rows))
	}

	data, err := os.ReadFile(filepath.Join(events, "events.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"event":"start"`) || !strings.Contains(string(data), `"event":"finished"`) {
		t.Fatalf("events:\n%s", data)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	_, err := execute(t, "run", "--config", writeConfig(t), "--set", "size=0")
	if err == nil {
		t.Fatal("expected an error")
	}
	if exitCode(err) != 1 {
		t.Fatalf("exit code %d", exitCode(err))
	}
}

func TestRunReadsRaster(t *testing.T) {
	cfg := writeConfig(t)
	raster := filepath.Join(t.TempDir(), "start.img")
	if _, err := execute(t, "run", "--config", cfg, "--set", "cycles=0", "--out", raster); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "raster.yaml")
	yml := strings.Replace(smallPaste, "  size: 10\n", "  size: 10\n  phases: "+raster+"\n", 1)
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "run", "--config", path, "--json", "--set", "cycles=1", "--log-level", "error")
	if err != nil {
		t.Fatalf("run from raster: %v", err)
	}
	if !strings.Contains(out, `"cycles": 1`) {
		t.Fatalf("summary %s", out)
	}
}

func TestPercolateJSON(t *testing.T) {
	out, err := execute(t, "percolate", "--config", writeConfig(t), "--json")
	if err != nil {
		t.Fatal(err)
	}
	var rows []burnRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 6 {
		t.Fatalf("got %d rows", len(rows))
	}
	for k, r := range rows {
		want := "pore"
		if k >= 3 {
			want = "set"
		}
		if r.Kind != want || r.Total == 0 {
			t.Fatalf("row %d: %+v", k, r)
		}
	}
	// A fresh paste has connected capillary porosity.
	if !rows[0].Percolates {
		t.Fatalf("pores do not percolate: %+v", rows[0])
	}
}

func TestPhasesTable(t *testing.T) {
	out, err := execute(t, "phases")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"POROSITY", "C3S", "CSH", "DIFFCH", "mobile"} {
		if !strings.Contains(out, want) {
			t.Fatalf("phase table lacks %q:\n%s", want, out)
		}
	}
}

func TestParamsReflectOverrides(t *testing.T) {
	out, err := execute(t, "params", "--config", writeConfig(t), "--set", "cycles=7", "--set", "curing=sealed")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"cycles: 7", "curing: sealed", "size: 10"} {
		if !strings.Contains(out, want) {
			t.Fatalf("params lack %q:\n%s", want, out)
		}
	}
}

func TestMilestones(t *testing.T) {
	dir := t.TempDir()
	ms := &milestones{events: logging.NewEventLog(dir)}
	ctx := context.Background()

	var r hydration.CycleReport
	r.State.Cycle = 1
	r.State.PoreConnected = [3]bool{true, true, true}
	r.Pores = make([]percolation.Result, 3)
	if err := ms.ObserveCycle(ctx, r); err != nil {
		t.Fatal(err)
	}
	r.State.Cycle = 2
	r.State.Set, r.State.SetCycle = true, 2
	r.State.Curing = hydration.SelfDesiccating
	r.State.PoreConnected = [3]bool{true, false, true}
	if err := ms.ObserveCycle(ctx, r); err != nil {
		t.Fatal(err)
	}
	r.Final = true
	r.Pores = nil
	if err := ms.ObserveCycle(ctx, r); err != nil {
		t.Fatal(err)
	}
	ms.events.Close()

	data, err := os.ReadFile(filepath.Join(dir, "events.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	var kinds []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var ev map[string]any
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatal(err)
		}
		kinds = append(kinds, ev["event"].(string))
	}
	want := []string{"start", "set", "curing", "depercolated", "finished"}
	if strings.Join(kinds, ",") != strings.Join(want, ",") {
		t.Fatalf("events %v, want %v", kinds, want)
	}
}

func TestThrottledPassesFinal(t *testing.T) {
	var got []bool
	next := hydration.ObserverFunc(func(_ context.Context, r hydration.CycleReport) error {
		got = append(got, r.Final)
		return nil
	})
	obs := &throttled{next: next, th: core.NewThrottle(1)}
	ctx := context.Background()
	for k := 0; k < 3; k++ {
		if err := obs.ObserveCycle(ctx, hydration.CycleReport{}); err != nil {
			t.Fatal(err)
		}
	}
	if err := obs.ObserveCycle(ctx, hydration.CycleReport{Final: true}); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] || !got[1] {
		t.Fatalf("forwarded %v, want the first cycle and the final report", got)
	}
}

func TestBuildStoreAddsVoxels(t *testing.T) {
	cfg := config.Default()
	cfg.Input.Size = 10
	cfg.Input.Generate.RadiusMax = 2
	cfg.Input.Additions = map[string]int{"INERT": 3, "CH": 5}
	store, err := buildStore(cfg, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if got := store.Count(phase.CH); got != 5 {
		t.Fatalf("%d CH voxels, want 5", got)
	}
	if got := store.Count(phase.Inert); got == 0 || got > 3 {
		t.Fatalf("%d INERT voxels", got)
	}
}
