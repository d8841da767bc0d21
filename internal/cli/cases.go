package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/apiparity/internal/cases"
	"github.com/roach88/apiparity/internal/config"
	"github.com/roach88/apiparity/internal/spec"
)

// CasesOptions holds flags for the cases command.
type CasesOptions struct {
	*RootOptions
	ConfigFile string
	Suite      string
	Strategies []string
	BaseURL    string
}

// CaseListing is one generated case as shown by the cases command.
type CaseListing struct {
	Seq      int    `json:"seq"`
	ID       string `json:"id"`
	Suite    string `json:"suite"`
	Category string `json:"category"`
	Label    string `json:"label"`
	Method   string `json:"method"`
	URL      string `json:"url"`
	Expect   string `json:"expect,omitempty"`
	Requests int    `json:"requests"`
}

// NewCasesCommand creates the cases command.
func NewCasesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CasesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cases [spec]",
		Short: "List the cases a run would execute, without sending requests",
		Long: `List generated test cases in execution order.

For the openapi suite (default) the description document is loaded and the
requested strategies are expanded. For --suite behavioral the fixed catalog
is listed using the endpoint configuration from --config.

Example:
  apiparity cases openapi.yaml --strategy boundary
  apiparity cases --suite behavioral --config apiparity.yaml --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			source := ""
			if len(args) == 1 {
				source = args[0]
			}
			return runCases(opts, source, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "path to YAML configuration file")
	cmd.Flags().StringVar(&opts.Suite, "suite", config.SuiteOpenAPI, "suite to list (behavioral|openapi)")
	cmd.Flags().StringSliceVar(&opts.Strategies, "strategy", []string{string(cases.StrategyAll)}, "strategies to expand (valid,boundary,invalid,all)")
	cmd.Flags().StringVar(&opts.BaseURL, "base-url", "", "prefix listed URLs with this base URL")

	return cmd
}

func runCases(opts *CasesOptions, source string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg := config.Default()
	if opts.ConfigFile != "" {
		loaded, err := config.Load(opts.ConfigFile)
		if err != nil {
			_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid configuration", err)
		}
		cfg = loaded
	}
	if source == "" {
		source = cfg.Spec
	}

	var list []cases.TestCase
	switch opts.Suite {
	case config.SuiteBehavioral:
		catalog, err := cases.Behavioral(cfg)
		if err != nil {
			_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to build behavioral catalog", err)
		}
		list = catalog
	case config.SuiteOpenAPI:
		if source == "" {
			_ = formatter.Error(ErrCodeConfig, "a description document is required for the openapi suite", nil)
			return NewExitError(ExitCommandError, "missing description document")
		}
		s, err := spec.Load(cmd.Context(), source, spec.WithLogger(newLogger(opts.RootOptions, cmd.ErrOrStderr())))
		if err != nil {
			return specLoadFailure(formatter, err)
		}

		var strategies []cases.Strategy
		for _, name := range opts.Strategies {
			st, err := cases.ParseStrategy(name)
			if err != nil {
				_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
				return WrapExitError(ExitCommandError, "invalid strategy", err)
			}
			for _, e := range st.Expand() {
				if !slices.Contains(strategies, e) {
					strategies = append(strategies, e)
				}
			}
		}

		gen := cases.New(cases.GeneratorConfig{DateStart: cfg.DateRange.Start, DateEnd: cfg.DateRange.End})
		for _, st := range strategies {
			for tc := range gen.Generate(s, st) {
				list = append(list, tc)
			}
		}
	default:
		msg := fmt.Sprintf("unknown suite %q (want behavioral or openapi)", opts.Suite)
		_ = formatter.Error(ErrCodeConfig, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	listings := make([]CaseListing, 0, len(list))
	for _, tc := range list {
		reqs := tc.Requests()
		listings = append(listings, CaseListing{
			Seq:      tc.Seq,
			ID:       tc.ID,
			Suite:    string(tc.Suite),
			Category: tc.Category,
			Label:    tc.Label,
			Method:   reqs[0].Method,
			URL:      reqs[0].URL(opts.BaseURL),
			Expect:   string(tc.Expect),
			Requests: len(reqs),
		})
	}

	if opts.Format == "json" {
		return formatter.Success(listings)
	}

	w := cmd.OutOrStdout()
	for _, c := range listings {
		fmt.Fprintf(w, "%4d  %s\n", c.Seq, c.ID)
		if opts.Verbose {
			fmt.Fprintf(w, "      %s %s", c.Method, c.URL)
			if c.Expect != "" {
				fmt.Fprintf(w, "  expect %s", c.Expect)
			}
			fmt.Fprintln(w)
		}
	}
	fmt.Fprintf(w, "%d case(s)\n", len(listings))
	return nil
}
