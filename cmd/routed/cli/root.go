// Package cli implements the routed command line, following the
// cobra-based Run()/ExitCode idiom used across this repository's other
// CLIs (e.g. the e2e devnet tool and the telemetry data-cli).
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

// ExitCode is the process exit status Run returns.
type ExitCode int

const (
	exitCodeSuccess ExitCode = 0
	exitCodeError   ExitCode = 1
)

// set by LDFLAGS
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Run builds and executes the routed root command.
func Run() ExitCode {
	rootCmd := &cobra.Command{
		Use:   "routed",
		Short: "Distance-vector mesh routing daemon.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Help(); err != nil {
				return fmt.Errorf("failed to show help: %w", err)
			}
			return nil
		},
	}

	var verbose bool
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "set debug logging level")

	rootCmd.AddCommand(
		newServeCmd(&verbose),
		newRoutesCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		return exitCodeError
	}
	return exitCodeSuccess
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build version.",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("version: %s\n", version)
			fmt.Printf("commit: %s\n", commit)
			fmt.Printf("date: %s\n", date)
			return nil
		},
	}
}
