package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vinayprograms/recoverkit/classify"
	rkerrors "github.com/vinayprograms/recoverkit/errors"
	"github.com/vinayprograms/recoverkit/memory"
)

func failuresCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "failures",
		Short: "Inspect recorded exhausted failures",
	}
	cmd.AddCommand(failuresSearchCmd(flags))
	return cmd
}

func failuresSearchCmd(flags *globalFlags) *cobra.Command {
	var (
		limit    int
		category string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Full-text search over recorded failures",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fail := func(err error) error {
				if asJSON {
					return writeJSONError(out, err)
				}
				return err
			}

			query := ""
			if len(args) == 1 {
				query = args[0]
			}

			opts := memory.SearchOpts{Limit: limit}
			if category != "" {
				cat, ok := classify.Parse(category)
				if !ok {
					return fail(rkerrors.InvalidInput(fmt.Sprintf("unknown category %q", category)))
				}
				opts.Category = string(cat)
			}

			engine, _, err := flags.openEngine(flags.projectRoot(""))
			if err != nil {
				return fail(err)
			}
			defer engine.Close()

			searcher, ok := engine.Recorder().(memory.Searcher)
			if !ok {
				return fail(memory.ErrNotSearchable)
			}
			results, err := searcher.Search(cmd.Context(), query, opts)
			if errors.Is(err, memory.ErrNotSearchable) {
				return fail(rkerrors.InvalidInput(`no searchable recorder configured; add "bleve" to recorders in config.toml`))
			}
			if err != nil {
				return fail(err)
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			fmt.Fprint(out, renderResults(query, results))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum results")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Restrict to one error category")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}
