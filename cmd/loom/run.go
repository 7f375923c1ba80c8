package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loomworks/loom/cmd/loom/internal"
	"github.com/loomworks/loom/internal/dsl"
	"github.com/loomworks/loom/internal/exec"
	"github.com/loomworks/loom/internal/validate"
)

var runCmd = &cobra.Command{
	Use:   "run [WORKFLOW_ID]",
	Short: "Start a workflow execution",
	Long: `Start a workflow execution on the execution service.

The workflow is named either by id (already registered with the
service) or by a local flow module file. A local module is parsed and
validated first; an invalid module is never submitted. The module's
canonical source is sent along with the start request so the service
runs exactly what was validated.

Exit codes:
  0 - execution started
  1 - module failed validation or the execution failed under --watch
  2 - syntax error, bad arguments, or file not found
  11 - execution service unreachable or rejected the start`,
	Example: `  # Start a registered workflow by id
  loom run incident-pipeline

  # Start from a local module, seeding initial context
  loom run -f pipeline.flow --context env=staging --context region=us-east-1

  # Start and follow progress
  loom run -f pipeline.flow --watch`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

var (
	runFile    string
	runContext []string
	runWatch   bool
	runPlain   bool
)

func init() {
	runCmd.Flags().StringVarP(&runFile, "file", "f", "", "Path to a flow module to run")
	runCmd.Flags().StringArrayVar(&runContext, "context", nil, "Initial context entry as key=value (repeatable)")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "Follow the execution after starting it")
	runCmd.Flags().BoolVar(&runPlain, "plain", false, "Line-oriented progress output (implies --watch rendering without the live view)")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var workflowID, moduleText string
	switch {
	case runFile != "" && len(args) > 0:
		return internal.NewCLIError(internal.ExitInvalid,
			"give either a workflow id or --file, not both")
	case runFile != "":
		w, err := loadModule(cmd, runFile)
		if err != nil {
			return err
		}
		report := validate.Validate(w)
		if !report.Valid {
			out := cmd.OutOrStdout()
			internal.PrintFailure(out, fmt.Sprintf("%s has %d errors", runFile, len(report.Errors())))
			for _, issue := range report.Errors() {
				fmt.Fprintf(out, "  %s\n", issue.String())
			}
			return internal.NewCLIError(internal.ExitError,
				"refusing to start an invalid module")
		}
		workflowID = w.ID
		moduleText, _ = dsl.Generate(w)
	case len(args) == 1:
		workflowID = args[0]
	default:
		return internal.NewCLIError(internal.ExitInvalid,
			"workflow id or --file is required")
	}

	initialContext, err := parseContextEntries(runContext)
	if err != nil {
		return err
	}

	client := newExecClient()
	executionID, err := client.Start(ctx, exec.StartRequest{
		WorkflowID: workflowID,
		Module:     moduleText,
		Context:    initialContext,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	internal.PrintSuccess(out, fmt.Sprintf("started execution %s", executionID))

	if runWatch || runPlain {
		return watchExecution(cmd, executionID, runPlain)
	}

	fmt.Fprintf(out, "Follow it with: loom watch %s\n", executionID)
	return nil
}

// parseContextEntries turns repeated key=value flags into a context map.
func parseContextEntries(entries []string) (map[string]any, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(entries))
	for _, entry := range entries {
		key, value, found := strings.Cut(entry, "=")
		if !found || key == "" {
			return nil, internal.NewCLIError(internal.ExitInvalid,
				fmt.Sprintf("invalid context entry %q (want key=value)", entry))
		}
		out[key] = value
	}
	return out, nil
}
