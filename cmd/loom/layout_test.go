package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetLayoutFlags() {
	layoutDirection = ""
	layoutOutput = "text"
}

func TestLayoutCommand_Table(t *testing.T) {
	resetGlobals(t)
	defer resetLayoutFlags()
	resetLayoutFlags()

	path := writeFlowModule(t, canonicalModule)
	cmd, out, _ := newCLICommand(t)

	require.NoError(t, runLayout(cmd, []string{path}))
	assert.Contains(t, out.String(), "NODE")
	assert.Contains(t, out.String(), "LAYER")
	assert.Contains(t, out.String(), "fetch")
	assert.Contains(t, out.String(), "notify")
}

func TestLayoutCommand_JSON(t *testing.T) {
	resetGlobals(t)
	defer resetLayoutFlags()
	resetLayoutFlags()
	layoutOutput = "json"

	path := writeFlowModule(t, canonicalModule)
	cmd, out, _ := newCLICommand(t)

	require.NoError(t, runLayout(cmd, []string{path}))

	var result layoutResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, "TB", result.Direction)
	assert.Len(t, result.Positions, 2)
	assert.Equal(t, 0, result.Layers["fetch"])
	assert.Equal(t, 1, result.Layers["notify"])
	assert.Less(t, result.Positions["fetch"].Y, result.Positions["notify"].Y,
		"top-to-bottom layout must stack layers downward")
}

func TestLayoutCommand_DirectionOverride(t *testing.T) {
	resetGlobals(t)
	defer resetLayoutFlags()
	resetLayoutFlags()
	layoutOutput = "json"
	layoutDirection = "lr"

	path := writeFlowModule(t, canonicalModule)
	cmd, out, _ := newCLICommand(t)

	require.NoError(t, runLayout(cmd, []string{path}))

	var result layoutResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, "LR", result.Direction)
	assert.Less(t, result.Positions["fetch"].X, result.Positions["notify"].X,
		"left-to-right layout must advance along x")
}

func TestLayoutCommand_BadDirection(t *testing.T) {
	resetGlobals(t)
	defer resetLayoutFlags()
	resetLayoutFlags()
	layoutDirection = "diagonal"

	cmd, _, _ := newCLICommand(t)
	err := runLayout(cmd, []string{"ignored.flow"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "diagonal")
}
