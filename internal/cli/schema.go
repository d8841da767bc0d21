package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/apiparity/internal/report"
)

// NewReportSchemaCommand creates the report-schema command.
func NewReportSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "report-schema",
		Short: "Print the JSON Schema of the JSON report",
		Long: `Print the JSON Schema (Draft 2020-12) describing the document written by
run --format json and --json-out, so CI tooling can validate it.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := report.Schema()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to generate schema", err)
			}
			data = append(data, '\n')

			if output != "" {
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return WrapExitError(ExitCommandError, "failed to write schema", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Schema written to %s\n", output)
				return nil
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the schema to this file instead of stdout")

	return cmd
}
