package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loomworks/loom/cmd/loom/internal"
	"github.com/loomworks/loom/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Validate a flow module",
	Long: `Validate a flow module against the full rule set.

Checks run in order: edge endpoints, per-node configuration (required
fields, unknown fields), start node and reachability, then cycle
detection. Cycles are warnings; a workflow may legitimately loop
through an eval node.

Exit codes:
  0 - module is valid (warnings allowed)
  1 - module has validation errors
  2 - syntax error or file not found`,
	Example: `  # Validate a module
  loom validate pipeline.flow

  # Full report as JSON
  loom validate pipeline.flow --output json`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

var validateOutput string

func init() {
	validateCmd.Flags().StringVar(&validateOutput, "output", "text", "Output format: text, json, yaml")
}

func runValidate(cmd *cobra.Command, args []string) error {
	format, err := internal.ParseFormat(validateOutput)
	if err != nil {
		return err
	}

	w, err := loadModule(cmd, args[0])
	if err != nil {
		return err
	}

	report := validate.Validate(w)
	out := cmd.OutOrStdout()

	if format != internal.FormatText {
		if err := internal.Encode(out, format, report); err != nil {
			return err
		}
	} else {
		errorCount := len(report.Errors())
		warningCount := len(report.Warnings())
		if report.Valid {
			internal.PrintSuccess(out, fmt.Sprintf("%s is valid (%d warnings)", args[0], warningCount))
		} else {
			internal.PrintFailure(out, fmt.Sprintf("%s has %d errors, %d warnings", args[0], errorCount, warningCount))
		}
		for _, issue := range report.Issues {
			fmt.Fprintf(out, "  %s\n", issue.String())
		}
	}

	if !report.Valid {
		return internal.NewCLIError(internal.ExitError, "validation failed")
	}
	return nil
}
