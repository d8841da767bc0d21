package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/apiparity/internal/ir"
	"github.com/roach88/apiparity/internal/report"
	"github.com/roach88/apiparity/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Suite    string
	BaseURL  string
	Limit    int
	Run      string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs, or show one stored report",
		Long: `List runs recorded with run --history, newest first.

With --run the stored report of that run is rendered like the run command
renders a fresh one. Run IDs may be abbreviated to a unique prefix.

Example:
  apiparity history --db runs.db --limit 10
  apiparity history --db runs.db --run 0190c4a0 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run history (required)")
	cmd.Flags().StringVar(&opts.Suite, "suite", "", "only list runs of this suite")
	cmd.Flags().StringVar(&opts.BaseURL, "base-url", "", "only list runs against this base URL")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list (0 for all)")
	cmd.Flags().StringVar(&opts.Run, "run", "", "show the stored report of this run")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openHistory(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	if opts.Run != "" {
		r, err := st.ReadReport(ctx, opts.Run)
		if err != nil {
			return runLookupFailure(formatter, opts.Run, err)
		}
		w := cmd.OutOrStdout()
		if opts.Format == "json" {
			err = report.WriteJSON(w, r)
		} else {
			err = report.WriteText(w, opts.Verbose, r)
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to write report", err)
		}
		return nil
	}

	runs, err := st.ListRuns(ctx, store.RunFilter{
		Suite:   ir.Suite(opts.Suite),
		BaseURL: opts.BaseURL,
		Limit:   opts.Limit,
	})
	if err != nil {
		_ = formatter.Error(ErrCodeHistory, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if opts.Format == "json" {
		return formatter.Success(runs)
	}

	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %-10s %s  %s  %d passed, %d failed, %d errored, %d skipped\n",
			r.RunID, r.Suite, r.StartedAt.Format(time.RFC3339), report.Verdict(r.Summary),
			r.Summary.Passed, r.Summary.Failed, r.Summary.Errored, r.Summary.Skipped)
		if opts.Verbose {
			fmt.Fprintf(w, "    %s  (%s, took %s)\n", r.BaseURL, r.ToolVersion, r.FinishedAt.Sub(r.StartedAt))
		}
	}
	return nil
}

func openHistory(formatter *OutputFormatter, path string) (*store.Store, error) {
	st, err := store.Open(path)
	if err != nil {
		_ = formatter.Error(ErrCodeHistory, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to open run history", err)
	}
	return st, nil
}

func runLookupFailure(formatter *OutputFormatter, id string, err error) error {
	if errors.Is(err, store.ErrRunNotFound) || errors.Is(err, store.ErrAmbiguousRun) {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), map[string]string{"run": id})
		return WrapExitError(ExitCommandError, fmt.Sprintf("[%s] no unique run %s", ErrCodeNotFound, id), err)
	}
	_ = formatter.Error(ErrCodeHistory, err.Error(), nil)
	return WrapExitError(ExitCommandError, "failed to read run history", err)
}
