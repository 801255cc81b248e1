package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"cemhyd/internal/config"
	"cemhyd/internal/hydration"
	"cemhyd/internal/logging"
)

// runSummary is printed when a run ends.
type runSummary struct {
	RunID       int64   `json:"runId,omitempty"`
	Cycles      int     `json:"cycles"`
	TimeHours   float64 `json:"timeHours"`
	Alpha       float64 `json:"alpha"`
	AlphaMass   float64 `json:"alphaMass"`
	Heat        float64 `json:"heat"`
	Temperature float64 `json:"temperature"`
	PH          float64 `json:"ph"`
	Curing      string  `json:"curing"`
	Set         bool    `json:"set"`
	SetCycle    int     `json:"setCycle,omitempty"`
	Raster      string  `json:"raster,omitempty"`
	Interrupted bool    `json:"interrupted,omitempty"`
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Hydrate a microstructure",
		Long: `Load or generate a microstructure and run the configured number of
hydration cycles followed by a final measurement.

Exit status is 2 when a sealed paste runs out of water and 3 when the
lattice bookkeeping breaks an invariant.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyOutputFlags(cmd, &cfg.Output)

			log := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
			store, err := buildStore(cfg, log)
			if err != nil {
				return err
			}
			reg, err := buildRegistry(cfg)
			if err != nil {
				return err
			}
			model, err := hydration.New(store, reg, cfg.Model, log)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			out, err := attachSinks(ctx, model, cfg, log)
			if err != nil {
				return err
			}
			defer out.Close()

			runErr := guard(func() error { return model.Run(ctx) })
			interrupted := errors.Is(runErr, context.Canceled)
			if runErr != nil && !interrupted {
				return fmt.Errorf("cycle %d: %w", model.State().Cycle+1, runErr)
			}
			if interrupted {
				log.Warn("run interrupted", "cycle", model.State().Cycle)
			}

			if path := cfg.Output.Raster; path != "" {
				if err := writeRaster(path, model.Store()); err != nil {
					return err
				}
				log.Info("wrote microstructure", "path", path)
			}
			sum := summarize(model, cfg)
			sum.RunID = out.runID
			sum.Interrupted = interrupted
			if err := printSummary(cmd, sum); err != nil {
				return err
			}
			if interrupted {
				return fmt.Errorf("interrupted after cycle %d", sum.Cycles)
			}
			return nil
		},
	}
	cmd.Flags().String("db", "", "Record cycle reports in this sqlite file")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().String("stream-addr", "", "Serve the websocket cycle stream on this address")
	cmd.Flags().Int("stream-rate", 0, "Cap stream frames per second (0 sends every cycle)")
	cmd.Flags().String("events", "", "Write run milestones to events.jsonl in this directory")
	cmd.Flags().String("out", "", "Write the final microstructure raster to this file")
	return cmd
}

// applyOutputFlags lets command-line flags win over the configured sinks.
func applyOutputFlags(cmd *cobra.Command, out *config.OutputConfig) {
	flags := map[string]*string{
		"db":           &out.Database,
		"metrics-addr": &out.MetricsAddr,
		"stream-addr":  &out.StreamAddr,
		"events":       &out.EventDir,
		"out":          &out.Raster,
	}
	for name, dst := range flags {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
	if cmd.Flags().Changed("stream-rate") {
		out.StreamRate, _ = cmd.Flags().GetInt("stream-rate")
	}
}

func summarize(m *hydration.Model, cfg *config.Config) runSummary {
	st := m.State()
	return runSummary{
		Cycles:      st.Cycle,
		TimeHours:   st.Time,
		Alpha:       st.Alpha,
		AlphaMass:   st.AlphaMass,
		Heat:        st.Heat,
		Temperature: st.Temperature,
		PH:          st.PH,
		Curing:      st.Curing.String(),
		Set:         st.Set,
		SetCycle:    st.SetCycle,
		Raster:      cfg.Output.Raster,
	}
}

func printSummary(cmd *cobra.Command, s runSummary) error {
	out := cmd.OutOrStdout()
	if jsonOutput(cmd) {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	fmt.Fprintf(out, "Cycles:        %d (%.2f h)\n", s.Cycles, s.TimeHours)
	fmt.Fprintf(out, "Hydration:     %.4f (mass %.4f)\n", s.Alpha, s.AlphaMass)
	fmt.Fprintf(out, "Heat:          %.2f kJ/kg\n", s.Heat)
	fmt.Fprintf(out, "Temperature:   %.2f C\n", s.Temperature)
	fmt.Fprintf(out, "Pore pH:       %.3f\n", s.PH)
	fmt.Fprintf(out, "Curing:        %s\n", s.Curing)
	if s.Set {
		fmt.Fprintf(out, "Set at cycle:  %d\n", s.SetCycle)
	} else {
		fmt.Fprintln(out, "Set:           not reached")
	}
	if s.RunID != 0 {
		fmt.Fprintf(out, "Run id:        %d\n", s.RunID)
	}
	return nil
}
