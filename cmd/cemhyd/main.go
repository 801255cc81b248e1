package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"cemhyd/internal/config"
	"cemhyd/internal/dissolution"
	"cemhyd/internal/microstructure"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

// Process exit statuses besides 0 and the generic 1.
const (
	exitWaterExhausted = 2
	exitInvariant      = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cemhyd",
		Short: "Cement paste hydration on a voxel lattice",
		Long: `cemhyd hydrates a 3-D cement paste microstructure cycle by cycle.

Each cycle dissolves clinker into diffusing species, lets them random-walk
and react into hydration products, and tracks heat, temperature, pore
connectivity and the set point.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringArray("set", nil, "Override a setting as key=value (repeatable)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: error, warn, info, debug, trace")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newPercolateCmd(),
		newPhasesCmd(),
		newParamsCmd(),
	)
	return rootCmd
}

// loadConfig resolves the configuration from the file, the environment and
// the --set and --log-level flags, in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	pairs, _ := cmd.Flags().GetStringArray("set")
	if err := cfg.Apply(pairs); err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// exitCode maps a command error to the process status.
func exitCode(err error) int {
	var inv microstructure.InvariantError
	switch {
	case err == nil:
		return 0
	case errors.Is(err, dissolution.ErrWaterExhausted):
		return exitWaterExhausted
	case errors.As(err, &inv):
		return exitInvariant
	default:
		return 1
	}
}

// guard runs fn and turns an invariant panic into an error. Other panics
// propagate.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			inv, ok := r.(microstructure.InvariantError)
			if !ok {
				panic(r)
			}
			err = inv
		}
	}()
	return fn()
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}
