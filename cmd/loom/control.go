package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/loomworks/loom/cmd/loom/internal"
	"github.com/loomworks/loom/internal/exec"
)

var pauseCmd = &cobra.Command{
	Use:   "pause EXECUTION_ID",
	Short: "Pause a running execution",
	Long: `Ask the execution service to pause a running execution.

The pause takes effect when the service emits the corresponding event;
an attached 'loom watch' reflects it as soon as the event arrives.`,
	Example: `  loom pause 0d9d9622-7a4c-4b65-9eae-9f11a4b0e6a1`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runControl(cmd, "pause", args[0], newExecClient().Pause)
	},
}

var resumeCmd = &cobra.Command{
	Use:     "resume EXECUTION_ID",
	Short:   "Resume a paused execution",
	Example: `  loom resume 0d9d9622-7a4c-4b65-9eae-9f11a4b0e6a1`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runControl(cmd, "resume", args[0], newExecClient().Resume)
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel EXECUTION_ID",
	Short: "Cancel an execution",
	Long: `Ask the execution service to cancel a running or paused execution.

Cancellation is cooperative: the request is delivered and the command
returns without waiting for the remote run to stop.`,
	Example: `  loom cancel 0d9d9622-7a4c-4b65-9eae-9f11a4b0e6a1`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runControl(cmd, "cancel", args[0], newExecClient().Cancel)
	},
}

// newExecClient builds the execution-service command client from the
// active configuration.
func newExecClient() *exec.Client {
	cfg := activeConfig()
	return exec.NewClient(cfg.Service.BaseURL,
		exec.WithHTTPClient(&http.Client{Timeout: cfg.Service.RequestTimeout}),
	)
}

// runControl sends a single lifecycle command bounded by the configured
// command timeout.
func runControl(cmd *cobra.Command, verb, executionID string, send func(context.Context, string) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), activeConfig().Exec.CommandTimeout)
	defer cancel()

	if err := send(ctx, executionID); err != nil {
		return err
	}
	internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("%s requested for execution %s", verb, executionID))
	return nil
}
