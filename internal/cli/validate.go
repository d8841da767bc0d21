package cli

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/apiparity/internal/spec"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool               `json:"valid"`
	Source     string             `json:"source"`
	Title      string             `json:"title,omitempty"`
	Version    string             `json:"version,omitempty"`
	Operations []OperationSummary `json:"operations"`
	Components []string           `json:"components"`
}

// OperationSummary identifies one operation of a description document.
type OperationSummary struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Path   string `json:"path"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <spec>",
		Short: "Load and self-check a description document",
		Long: `Load a description document (YAML, JSON or CUE; file path or http(s) URL),
resolve every internal $ref and run the structural self-check, without
contacting the API under test.

Exits with code 3 when the document cannot be loaded.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, source string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	logger := newLogger(opts, cmd.ErrOrStderr())

	s, err := spec.Load(cmd.Context(), source, spec.WithLogger(logger))
	if err != nil {
		return specLoadFailure(formatter, err)
	}

	result := ValidationResult{
		Valid:      true,
		Source:     s.Source,
		Title:      s.Title,
		Version:    s.Version,
		Operations: make([]OperationSummary, 0, len(s.Operations)),
		Components: slices.Sorted(maps.Keys(s.Components)),
	}
	for _, op := range s.Operations {
		result.Operations = append(result.Operations, OperationSummary{ID: op.ID, Method: op.Method, Path: op.Path})
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ %s is valid: %s %s, %d operation(s), %d component schema(s)\n",
		result.Source, result.Title, result.Version, len(result.Operations), len(result.Components))
	if opts.Verbose {
		for _, op := range result.Operations {
			fmt.Fprintf(w, "  %-7s %s (%s)\n", op.Method, op.Path, op.ID)
		}
	}
	return nil
}

// specLoadFailure reports a load error and maps it to an exit code:
// ExitSpecLoad for *spec.SpecLoadError, ExitCommandError otherwise.
func specLoadFailure(formatter *OutputFormatter, err error) error {
	var le *spec.SpecLoadError
	if !errors.As(err, &le) {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load description document", err)
	}

	details := map[string]string{"code": string(le.Code), "source": le.Source}
	if le.Pointer != "" {
		details["pointer"] = le.Pointer
	}
	_ = formatter.Error(ErrCodeSpecLoad, le.Error(), details)
	return WrapExitError(ExitSpecLoad, fmt.Sprintf("[%s] failed to load description document", ErrCodeSpecLoad), err)
}
