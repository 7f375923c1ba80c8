package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/loomworks/loom/cmd/loom/internal"
	"github.com/loomworks/loom/internal/exec"
	"github.com/loomworks/loom/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch EXECUTION_ID",
	Short: "Follow a running execution",
	Long: `Attach to a running execution and follow its progress.

In an interactive terminal this opens a live view with per-node status,
a log tail, and pause/resume/cancel keys. Outside a terminal, or with
--plain, progress is printed line by line instead.

The command returns when the execution reaches a terminal state. If the
event stream drops, the last known state is printed and the command
exits with a service error; reattach with a fresh 'loom watch'.

Exit codes:
  0 - execution completed
  1 - execution failed
  4 - execution cancelled
  11 - stream lost or execution service unreachable`,
	Example: `  # Follow an execution in the live view
  loom watch 0d9d9622-7a4c-4b65-9eae-9f11a4b0e6a1

  # Line-oriented output for scripts and CI
  loom watch --plain 0d9d9622-7a4c-4b65-9eae-9f11a4b0e6a1`,
	Args: cobra.ExactArgs(1),
	RunE: runWatchCmd,
}

var watchPlain bool

func init() {
	watchCmd.Flags().BoolVar(&watchPlain, "plain", false, "Line-oriented progress output instead of the live view")
}

func runWatchCmd(cmd *cobra.Command, args []string) error {
	return watchExecution(cmd, args[0], watchPlain)
}

// buildTracker wires the execution tracker against the configured
// service endpoints.
func buildTracker() *exec.Tracker {
	cfg := activeConfig()
	logger := slog.Default()
	dialer := exec.NewWSDialer(cfg.Service.WSBaseURL, exec.WithWSLogger(logger))
	return exec.NewTracker(dialer, newExecClient(),
		exec.WithLogger(logger),
		exec.WithLogCapacity(cfg.Exec.LogCapacity),
	)
}

// watchExecution attaches to an execution and follows it to a terminal
// state, choosing the live view or the plain reporter.
func watchExecution(cmd *cobra.Command, executionID string, plain bool) error {
	ctx := cmd.Context()

	tracker := buildTracker()
	defer tracker.Close()

	if err := tracker.Connect(ctx, executionID); err != nil {
		return err
	}

	var final exec.State
	if !plain && isInteractive() {
		st, err := tui.Run(ctx, tui.WatchConfig{
			ExecutionID: executionID,
			Session:     tracker,
		})
		if err != nil {
			return err
		}
		final = st
	} else {
		st, err := plainWatch(ctx, cmd, tracker)
		if err != nil {
			return err
		}
		final = st
	}

	return exitForState(executionID, final)
}

// isInteractive checks if stdin is a terminal.
func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// exitForState maps the final execution state to the command result.
func exitForState(executionID string, st exec.State) error {
	switch st.Status {
	case exec.StatusCompleted:
		return nil
	case exec.StatusFailed:
		return internal.NewCLIError(internal.ExitError,
			fmt.Sprintf("execution %s failed", executionID))
	case exec.StatusCancelled:
		return internal.NewCLIError(internal.ExitCancelled,
			fmt.Sprintf("execution %s cancelled", executionID))
	default:
		return internal.NewCLIError(internal.ExitServiceError,
			fmt.Sprintf("lost the event stream for execution %s (last status: %s)", executionID, st.Status))
	}
}

// plainWatch prints line-oriented progress until the execution reaches
// a terminal state or the stream drops.
func plainWatch(ctx context.Context, cmd *cobra.Command, session tui.Session) (exec.State, error) {
	out := cmd.OutOrStdout()
	updates := session.Updates()

	prev := session.Snapshot()
	fmt.Fprintf(out, "status: %s\n", prev.Status)

	for {
		select {
		case <-ctx.Done():
			return session.Snapshot(), ctx.Err()
		case st, ok := <-updates:
			if !ok {
				return session.Snapshot(), nil
			}
			printStateDelta(out, prev, st)
			if st.Status.IsTerminal() || !st.Connected {
				return st, nil
			}
			prev = st
		}
	}
}

// printStateDelta prints what changed between two consecutive states.
func printStateDelta(out io.Writer, prev, st exec.State) {
	if st.Status != prev.Status {
		fmt.Fprintf(out, "status: %s\n", st.Status)
	}

	ids := make([]string, 0, len(st.Nodes))
	for id := range st.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if st.Nodes[id] != prev.Nodes[id] {
			fmt.Fprintf(out, "node %s: %s\n", id, st.Nodes[id])
		}
	}

	for _, entry := range newLogEntries(prev, st) {
		if entry.NodeID != "" {
			fmt.Fprintf(out, "  [%s] %s\n", entry.NodeID, entry.Message)
		} else {
			fmt.Fprintf(out, "  %s\n", entry.Message)
		}
	}
}

// newLogEntries returns log entries present in st but not in prev. The
// ring may have dropped old entries, so the suffix is located by the
// last entry both states share.
func newLogEntries(prev, st exec.State) []exec.LogEntry {
	if len(prev.Logs) == 0 {
		return st.Logs
	}
	last := prev.Logs[len(prev.Logs)-1]
	for i := len(st.Logs) - 1; i >= 0; i-- {
		if st.Logs[i].Ts.Equal(last.Ts) && st.Logs[i].Message == last.Message {
			return st.Logs[i+1:]
		}
	}
	return st.Logs
}
