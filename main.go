package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Running the root command with no
// subcommand runs the benchmark.
func newRootCmd() *cobra.Command {
	cfg := DefaultBenchConfig()

	runBench := func(cmd *cobra.Command, args []string) error {
		_, err := RunBenchCommand(cmd.Context(), cfg, cmd.OutOrStdout())
		return err
	}

	root := &cobra.Command{
		Use:   "mttkrp-bench",
		Short: "Scaling benchmark for sparse and dense MTTKRP",
		Long: `mttkrp-bench times the three factor updates of CP-ALS
(matricized tensor times Khatri-Rao product) on random order-3 tensors
of growing size, keeping the number of nonzeros fixed at s_start^3.`,
		Example: `  mttkrp-bench --num_iter=10 --s_start=64 --s_end=512 --R=16
  mttkrp-bench --sp=false --s_start=32 --s_end=128 --chart=ascii
  mttkrp-bench --ranks=4 --json=run.json --metrics=mttkrp.prom`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(cmd, cfg.LogLevel)
		},
		RunE: runBench,
	}
	cfg.bindFlags(root.PersistentFlags())

	root.AddCommand(
		&cobra.Command{
			Use:   "bench",
			Short: "Run the scaling sweep (same as the root command)",
			Args:  cobra.NoArgs,
			RunE:  runBench,
		},
		&cobra.Command{
			Use:   "hardware",
			Short: "Print the detected platform and exit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				PrintHardware(cmd.OutOrStdout(), DetectHardware())
				return nil
			},
		},
		newCompareCmd(),
	)

	return root
}

// newCompareCmd builds "compare", which tabulates saved JSON suites.
func newCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare FILE.json [FILE.json...]",
		Short: "Compare mean times across saved JSON suites",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := make([]string, len(args))
			suites := make([]*BenchmarkSuite, len(args))
			for i, path := range args {
				suite, err := LoadSuiteJSON(path)
				if err != nil {
					return err
				}
				names[i] = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
				suites[i] = suite
			}
			CompareSuites(cmd.OutOrStdout(), names, suites)
			return nil
		},
	}
}

// setupLogging installs a text slog handler on stderr at the given level.
func setupLogging(cmd *cobra.Command, level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("%w: log level %q", ErrInvalidConfig, level)
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
	return nil
}
