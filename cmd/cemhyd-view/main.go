//go:build ebiten

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/cobra"

	"cemhyd/internal/app"
	"cemhyd/internal/core"
	_ "cemhyd/internal/hydration"
)

func main() {
	cfg := app.NewConfig()
	cmd := &cobra.Command{
		Use:   "cemhyd-view",
		Short: "Watch a paste hydrate one z slice at a time",
		Long: `cemhyd-view runs a generated paste and shows one z slice per frame.

Keys: space pauses, n steps once, up and down change the slice, h cycles
the highlighted phase, x clears it, l toggles the legend, r resets, s
reseeds, q quits.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			factory, ok := core.Sims()[cfg.Sim]
			if !ok {
				return fmt.Errorf("unknown sim %q (have %v)", cfg.Sim, core.SimNames())
			}
			simCfg, err := cfg.SimConfig()
			if err != nil {
				return err
			}
			sim := factory(simCfg)
			game := app.New(sim, cfg.Scale, cfg.HUDWidth, cfg.Seed)
			size := sim.Size()

			ebiten.SetWindowTitle("cemhyd - " + sim.Name())
			ebiten.SetTPS(cfg.TPS)
			ebiten.SetWindowSize(size.W*cfg.Scale+cfg.HUDWidth, size.H*cfg.Scale)

			if err := ebiten.RunGame(game); err != nil && !errors.Is(err, ebiten.Termination) {
				return err
			}
			return nil
		},
	}
	cfg.Bind(cmd.Flags())
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
