package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"cemhyd/internal/phase"
)

type phaseRow struct {
	ID              int     `json:"id"`
	Name            string  `json:"name"`
	Kind            string  `json:"kind"`
	MolarVolume     float64 `json:"molarVolume"`
	SpecificGravity float64 `json:"specificGravity"`
	Heat            float64 `json:"heatOfFormation"`
	Water           float64 `json:"water"`
}

func newPhasesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "phases",
		Short: "List the phase table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			reg, err := buildRegistry(cfg)
			if err != nil {
				return err
			}
			rows := make([]phaseRow, 0, len(phase.All))
			for _, p := range phase.All {
				props := reg.Props(p)
				rows = append(rows, phaseRow{
					ID:              int(p),
					Name:            p.String(),
					Kind:            phaseKind(p),
					MolarVolume:     props.MolarVolume,
					SpecificGravity: props.SpecificGravity,
					Heat:            props.HeatOfFormation,
					Water:           props.Water,
				})
			}
			out := cmd.OutOrStdout()
			if jsonOutput(cmd) {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			fmt.Fprintf(out, "%3s %-10s %-7s %9s %7s %10s %7s\n", "ID", "NAME", "KIND", "VM", "SG", "HEAT", "WATER")
			for _, r := range rows {
				fmt.Fprintf(out, "%3d %-10s %-7s %9.2f %7.3f %10.2f %7.2f\n",
					r.ID, r.Name, r.Kind, r.MolarVolume, r.SpecificGravity, r.Heat, r.Water)
			}
			return nil
		},
	}
}

func phaseKind(p phase.Phase) string {
	switch {
	case p.IsSolid():
		return "solid"
	case p.IsMobile():
		return "mobile"
	default:
		return "pore"
	}
}

func newParamsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "params",
		Short: "Print the effective configuration",
		Long: `Resolve the configuration file, environment and --set overrides and
print the result. The YAML output can be fed back through --config.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput(cmd) {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			}
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
