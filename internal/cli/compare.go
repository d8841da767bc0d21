package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/apiparity/internal/report"
	"github.com/roach88/apiparity/internal/store"
)

// CompareOptions holds flags for the compare command.
type CompareOptions struct {
	*RootOptions
	Database string
}

// NewCompareCommand creates the compare command.
func NewCompareCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompareOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compare <base-run> <head-run>",
		Short: "Diff two recorded runs case by case",
		Long: `Compare two runs of the same suite from the run history and list every
case whose outcome changed. Run IDs may be abbreviated to a unique prefix.

Exits with code 1 when any case regressed (passed or skipped in the base run,
failed or errored in the head run).

Example:
  apiparity compare --db runs.db 0190c4a0 0190c4b7`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run history (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runCompare(opts *CompareOptions, baseID, headID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openHistory(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	cmp, err := st.Compare(cmd.Context(), baseID, headID)
	if err != nil {
		return runLookupFailure(formatter, baseID+" "+headID, err)
	}

	if opts.Format == "json" {
		if err := formatter.Success(cmp); err != nil {
			return err
		}
	} else {
		writeComparison(opts, cmd, cmp)
	}

	if n := cmp.Regressions(); n > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d case(s) regressed", n))
	}
	return nil
}

var changeGlyphs = map[store.ChangeKind]string{
	store.ChangeRegressed: report.GlyphFail,
	store.ChangeFixed:     report.GlyphPass,
	store.ChangeChanged:   report.GlyphError,
	store.ChangeAdded:     "+",
	store.ChangeRemoved:   "-",
}

func writeComparison(opts *CompareOptions, cmd *cobra.Command, cmp store.Comparison) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s suite: %s -> %s\n", cmp.Base.Suite, cmp.Base.RunID, cmp.Head.RunID)
	if cmp.Identical {
		fmt.Fprintf(w, "identical: %d case(s) with the same outcomes\n", cmp.Unchanged)
		return
	}

	for _, c := range cmp.Changes {
		before, after := string(c.Before), string(c.After)
		if before == "" {
			before = "-"
		}
		if after == "" {
			after = "-"
		}
		fmt.Fprintf(w, "  %s %-9s %s  %s -> %s\n", changeGlyphs[c.Kind], c.Kind, c.CaseID, before, after)
		if opts.Verbose && c.Message != "" {
			fmt.Fprintf(w, "      %s\n", c.Message)
		}
	}
	fmt.Fprintf(w, "%d changed, %d unchanged, %d regressed\n", len(cmp.Changes), cmp.Unchanged, cmp.Regressions())
}
