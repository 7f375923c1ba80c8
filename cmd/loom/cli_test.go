package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// canonicalModule is the canonical rendering of the two-node fixture;
// fmt must reproduce it byte for byte.
const canonicalModule = `export default {
  id: "incident-pipeline",
  start: "fetch",
  nodes: {
    fetch: {
      kind: "http",
      url: "https://status.example.com/incidents",
      method: "GET",
      next: "notify",
    },
    notify: {
      kind: "command",
      command: "echo",
      args: ["done"],
    },
  },
}
`

// invalidModule parses but fails validation: the http node has no url.
const invalidModule = `export default {
  id: "broken",
  start: "fetch",
  nodes: {
    fetch: {
      kind: "http",
      method: "GET",
      next: "notify",
    },
    notify: {
      kind: "command",
      command: "echo",
    },
  },
}
`

func writeFlowModule(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.flow")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newCLICommand(t *testing.T) (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.SetContext(context.Background())
	out := new(bytes.Buffer)
	errOut := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd, out, errOut
}

// resetGlobals restores shared command state after a test mutates it.
func resetGlobals(t *testing.T) {
	t.Helper()
	oldFlags := *globalFlags
	oldConfig := appConfig
	t.Cleanup(func() {
		*globalFlags = oldFlags
		appConfig = oldConfig
	})
}
