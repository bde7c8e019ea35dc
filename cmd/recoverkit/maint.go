package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func clearCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <signature>",
		Short: "Forget a signature without recording an outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := flags.openEngine(flags.projectRoot(""))
			if err != nil {
				return err
			}
			defer engine.Close()

			if err := engine.Clear(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", args[0])
			return nil
		},
	}
}

func resolveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <signature>",
		Short: "Mark the last suggested fix as successful and reset the signature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := flags.openEngine(flags.projectRoot(""))
			if err != nil {
				return err
			}
			defer engine.Close()

			st, err := engine.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if st == nil {
				fmt.Fprintf(out, "%s was not tracked\n", args[0])
				return nil
			}
			fmt.Fprintf(out, "Resolved %s", args[0])
			if n := len(st.FixStrategiesAttempted); n > 0 {
				last := st.FixStrategiesAttempted[n-1]
				if last.Succeeded {
					fmt.Fprintf(out, " with: %s", last.Strategy)
				}
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}

func pruneCmd(flags *globalFlags) *cobra.Command {
	var hours int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove signatures not seen recently",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cfg, err := flags.openEngine(flags.projectRoot(""))
			if err != nil {
				return err
			}
			defer engine.Close()

			age := cfg.PruneAfter()
			if cmd.Flags().Changed("hours") {
				if hours < 1 {
					return fmt.Errorf("--hours must be at least 1")
				}
				age = time.Duration(hours) * time.Hour
			}

			removed, err := engine.Prune(cmd.Context(), age)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, sig := range removed {
				fmt.Fprintln(out, mutedStyle.Render("pruned "+sig))
			}
			fmt.Fprintf(out, "Pruned %d signature(s) older than %s\n", len(removed), age)
			return nil
		},
	}
	cmd.Flags().IntVar(&hours, "hours", 0, "Age threshold in hours (default: configured prune_after_hours)")
	return cmd
}
