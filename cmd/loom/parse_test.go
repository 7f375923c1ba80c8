package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/loom/cmd/loom/internal"
)

func TestParseCommand_Text(t *testing.T) {
	resetGlobals(t)
	path := writeFlowModule(t, canonicalModule)
	cmd, out, _ := newCLICommand(t)

	parseOutput = "text"
	defer func() { parseOutput = "text" }()

	require.NoError(t, runParse(cmd, []string{path}))
	assert.Contains(t, out.String(), "parsed")
	assert.Contains(t, out.String(), "incident-pipeline")
	assert.Contains(t, out.String(), "Nodes: 2  Edges: 1")
}

func TestParseCommand_JSON(t *testing.T) {
	resetGlobals(t)
	path := writeFlowModule(t, canonicalModule)
	cmd, out, _ := newCLICommand(t)

	parseOutput = "json"
	defer func() { parseOutput = "text" }()

	require.NoError(t, runParse(cmd, []string{path}))

	var result parseResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, "incident-pipeline", result.ID)
	assert.Equal(t, "fetch", result.Start)
	assert.Equal(t, 2, result.Nodes)
	assert.Equal(t, 1, result.Edges)
}

func TestParseCommand_SyntaxError(t *testing.T) {
	resetGlobals(t)
	path := writeFlowModule(t, "export default { id: }")
	cmd, _, _ := newCLICommand(t)

	parseOutput = "text"
	err := runParse(cmd, []string{path})
	require.Error(t, err)

	var cliErr *internal.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, internal.ExitInvalid, cliErr.Code)
}

func TestParseCommand_MissingFile(t *testing.T) {
	resetGlobals(t)
	cmd, _, _ := newCLICommand(t)

	parseOutput = "text"
	err := runParse(cmd, []string{"/nonexistent/pipeline.flow"})
	require.Error(t, err)

	var cliErr *internal.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, internal.ExitInvalid, cliErr.Code)
	assert.Contains(t, cliErr.Message, "not found")
}

func TestParseCommand_BadOutputFormat(t *testing.T) {
	resetGlobals(t)
	cmd, _, _ := newCLICommand(t)

	parseOutput = "xml"
	defer func() { parseOutput = "text" }()

	err := runParse(cmd, []string{"ignored.flow"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}

func TestParseCommand_WarningsGoToStderr(t *testing.T) {
	resetGlobals(t)
	// Transition to a missing node is a parse warning, not an error.
	module := `export default {
  id: "warned",
  start: "fetch",
  nodes: {
    fetch: {
      kind: "http",
      url: "https://example.com",
      method: "GET",
      next: "ghost",
    },
  },
}
`
	path := writeFlowModule(t, module)
	cmd, out, errOut := newCLICommand(t)

	parseOutput = "text"
	require.NoError(t, runParse(cmd, []string{path}))
	assert.Contains(t, errOut.String(), "warning:")
	assert.NotContains(t, out.String(), "warning:")
}
