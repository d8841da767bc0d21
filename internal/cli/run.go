package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/apiparity/internal/config"
	"github.com/roach88/apiparity/internal/harness"
	"github.com/roach88/apiparity/internal/ir"
	"github.com/roach88/apiparity/internal/report"
	"github.com/roach88/apiparity/internal/spec"
	"github.com/roach88/apiparity/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	ConfigFile  string
	BaseURL     string
	Spec        string
	Suite       string
	Categories  []string
	Strategies  []string
	Concurrency int
	Timeout     time.Duration
	RunTimeout  time.Duration
	Retries     int
	History     string
	JSONOut     string
	XLSXOut     string

	// Clock and RunIDs override report timestamps and run IDs (for testing).
	// If nil, the orchestrator defaults apply.
	Clock  harness.Clock
	RunIDs harness.RunIDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the behavioral and/or openapi suite against a base URL",
		Long: `Run contract tests against a live HTTP API.

The behavioral suite replays the fixed document-search catalog; the openapi
suite generates valid, boundary and invalid cases from a description
document. With --suite all both run as independent suites and the report
shows them side by side.

Flags override values from --config.

Example:
  apiparity run --base-url http://localhost:8080 --spec openapi.yaml
  apiparity run --config apiparity.yaml --suite behavioral --category health,basic
  apiparity run --base-url http://localhost:8080 --spec openapi.yaml --format json --history runs.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuites(opts, cmd)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.ConfigFile, "config", "c", "", "path to YAML configuration file")
	f.StringVar(&opts.BaseURL, "base-url", "", "base URL of the API under test")
	f.StringVar(&opts.Spec, "spec", "", "description document path or URL (openapi suite)")
	f.StringVar(&opts.Suite, "suite", defaults.Suite, "suite to run (behavioral|openapi|all)")
	f.StringSliceVar(&opts.Categories, "category", nil, "only run these categories (comma separated)")
	f.StringSliceVar(&opts.Strategies, "strategy", defaults.Strategies, "openapi generation strategies (valid,boundary,invalid)")
	f.IntVar(&opts.Concurrency, "concurrency", defaults.Concurrency, "maximum concurrent probes")
	f.DurationVar(&opts.Timeout, "timeout", defaults.Timeout, "per-request timeout")
	f.DurationVar(&opts.RunTimeout, "run-timeout", defaults.RunTimeout, "overall run timeout (0 disables)")
	f.IntVar(&opts.Retries, "retries", defaults.Retries, "retries for transport errors")
	f.StringVar(&opts.History, "history", "", "record runs in this SQLite database")
	f.StringVar(&opts.JSONOut, "json-out", "", "also write the JSON report to this file")
	f.StringVar(&opts.XLSXOut, "xlsx-out", "", "also write an XLSX workbook to this file")

	return cmd
}

// loadRunConfig builds the configuration: defaults, then the config file,
// then every flag the user set explicitly.
func loadRunConfig(opts *RunOptions, cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if opts.ConfigFile != "" {
		loaded, err := config.Load(opts.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL = opts.BaseURL
	}
	if flags.Changed("spec") {
		cfg.Spec = opts.Spec
	}
	if flags.Changed("suite") {
		cfg.Suite = opts.Suite
	}
	if flags.Changed("category") {
		cfg.Categories = opts.Categories
	}
	if flags.Changed("strategy") {
		cfg.Strategies = opts.Strategies
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = opts.Concurrency
	}
	if flags.Changed("timeout") {
		cfg.Timeout = opts.Timeout
	}
	if flags.Changed("run-timeout") {
		cfg.RunTimeout = opts.RunTimeout
	}
	if flags.Changed("retries") {
		cfg.Retries = opts.Retries
	}
	if flags.Changed("history") {
		cfg.History = opts.History
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSuites(opts *RunOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := loadRunConfig(opts, cmd)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	var history *store.Store
	if cfg.History != "" {
		logger.Debug("opening run history", "path", cfg.History)
		history, err = store.Open(cfg.History)
		if err != nil {
			_ = formatter.Error(ErrCodeHistory, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open run history", err)
		}
		defer func() {
			if closeErr := history.Close(); closeErr != nil {
				logger.Error("error closing run history", "error", closeErr)
			}
		}()
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Warn("received signal, aborting run", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	var (
		reports     []*ir.SuiteReport
		reporterErr error
	)
	for _, name := range cfg.Suites() {
		suiteOpts := []harness.Option{harness.WithLogger(logger)}
		if history != nil {
			suiteOpts = append(suiteOpts, harness.WithReporter(harness.ReporterFunc(history.WriteReport)))
		}
		if opts.Clock != nil {
			suiteOpts = append(suiteOpts, harness.WithClock(opts.Clock))
		}
		if opts.RunIDs != nil {
			suiteOpts = append(suiteOpts, harness.WithRunIDGenerator(opts.RunIDs))
		}

		o := harness.New(harness.Config{Suite: ir.Suite(name), Run: cfg}, suiteOpts...)
		r, err := o.Run(ctx)
		if r == nil {
			if spec.IsSpecLoadError(err) {
				return specLoadFailure(formatter, err)
			}
			_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
			return WrapExitError(ExitCommandError, fmt.Sprintf("%s suite did not run", name), err)
		}
		if err != nil {
			logger.Error("reporter failed", "suite", name, "error", err)
			reporterErr = errors.Join(reporterErr, err)
		}
		reports = append(reports, r)
	}

	if err := writeReports(opts, cmd.OutOrStdout(), reports); err != nil {
		return WrapExitError(ExitCommandError, "failed to write report", err)
	}
	if reporterErr != nil {
		return WrapExitError(ExitCommandError, "failed to record run history", reporterErr)
	}

	var total ir.Summary
	for _, r := range reports {
		total = total.Add(r.Summary)
	}
	if !total.OK() {
		return NewExitError(ExitFailure, fmt.Sprintf("%d failed, %d errored", total.Failed, total.Errored))
	}
	return nil
}

// writeReports renders reports to stdout and to the requested files.
func writeReports(opts *RunOptions, w io.Writer, reports []*ir.SuiteReport) error {
	var err error
	if opts.Format == "json" {
		err = report.WriteJSON(w, reports...)
	} else {
		err = report.WriteText(w, opts.Verbose, reports...)
	}
	if err != nil {
		return err
	}

	if opts.JSONOut != "" {
		if err := writeFile(opts.JSONOut, func(w io.Writer) error { return report.WriteJSON(w, reports...) }); err != nil {
			return err
		}
	}
	if opts.XLSXOut != "" {
		if err := writeFile(opts.XLSXOut, func(w io.Writer) error { return report.WriteXLSX(w, reports...) }); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()
	return write(f)
}
