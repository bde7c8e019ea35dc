// recoverkit is the command-line front end of the failure-recovery engine.
//
// The hook subcommand is wired into the host's post-tool hook; the other
// subcommands inspect and maintain a project's retry state.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vinayprograms/recoverkit/config"
	rkerrors "github.com/vinayprograms/recoverkit/errors"
	"github.com/vinayprograms/recoverkit/logging"
	"github.com/vinayprograms/recoverkit/recovery"
)

var Version = "dev"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	project  string
	logLevel string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "recoverkit",
		Short:         "Phase-based recovery guidance for failing tool invocations",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.project, "project", "p", "", "Project root (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	rootCmd.AddCommand(hookCmd(flags))
	rootCmd.AddCommand(statsCmd(flags))
	rootCmd.AddCommand(clearCmd(flags))
	rootCmd.AddCommand(resolveCmd(flags))
	rootCmd.AddCommand(pruneCmd(flags))
	rootCmd.AddCommand(failuresCmd(flags))
	rootCmd.AddCommand(watchCmd(flags))

	return rootCmd
}

// projectRoot returns the --project flag, or fallback, or the working directory.
func (f *globalFlags) projectRoot(fallback string) string {
	if f.project != "" {
		return f.project
	}
	if fallback != "" {
		return fallback
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// newLogger builds the stderr logger at the configured level.
func (f *globalFlags) newLogger(cfg *config.Config) *logging.Logger {
	level := cfg.LogLevel
	if f.logLevel != "" {
		level = f.logLevel
	}
	logger := logging.New()
	logger.SetLevel(logging.ParseLevel(level))
	return logger
}

// writeJSONError reports err on out as {"error": {...}} for --json callers
// and returns it so the exit status still reflects the failure.
func writeJSONError(out io.Writer, err error) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(map[string]interface{}{"error": rkerrors.From(err)}); encErr != nil {
		return encErr
	}
	return err
}

// openEngine loads config for root and opens its engine.
func (f *globalFlags) openEngine(root string) (*recovery.Engine, *config.Config, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, nil, err
	}
	return recovery.Open(cfg, f.newLogger(cfg)), cfg, nil
}
