package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vinayprograms/recoverkit/config"
	"github.com/vinayprograms/recoverkit/recovery"
	"github.com/vinayprograms/recoverkit/state"
)

func statsCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show tracked signatures by phase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fail := func(err error) error {
				if asJSON {
					return writeJSONError(out, err)
				}
				return err
			}

			engine, cfg, err := flags.openEngine(flags.projectRoot(""))
			if err != nil {
				return fail(err)
			}
			defer engine.Close()

			ctx := cmd.Context()
			stats, rows, err := collectStatus(ctx, engine, cfg)
			if err != nil {
				return fail(err)
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{
					"stats":      stats,
					"signatures": rows,
				})
			}
			fmt.Fprint(out, renderStatus(stats, rows, time.Now()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

// collectStatus gathers stats and one row per record, newest first. Session
// data fills in category and tool when available.
func collectStatus(ctx context.Context, engine *recovery.Engine, cfg *config.Config) (state.Stats, []statusRow, error) {
	records, err := engine.Records(ctx)
	if err != nil {
		return state.Stats{}, nil, err
	}
	stats := state.ComputeStats(records)

	rows := make([]statusRow, 0, len(records))
	for _, sig := range state.SortedSignatures(records) {
		r := records[sig].Sanitize()
		row := statusRow{
			Signature: sig,
			Phase:     r.Phase,
			Attempts:  r.AttemptsInPhase,
			Total:     r.TotalAttempts,
			Last:      r.LastAttemptAt,
		}
		if st, err := engine.Session(ctx, sig); err == nil && st != nil {
			row.Category = string(st.Category)
			row.Tool = st.ToolName
			row.Limit = cfg.Limits.Limit(st.Category)
		}
		rows = append(rows, row)
	}
	return stats, rows, nil
}
