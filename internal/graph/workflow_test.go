package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeKind_IsValid(t *testing.T) {
	for _, kind := range AllKinds() {
		assert.True(t, kind.IsValid(), "kind %s should be valid", kind)
	}
	assert.False(t, NodeKind("teleport").IsValid())
	assert.False(t, NodeKind("").IsValid())
}

func TestNodeKind_Properties(t *testing.T) {
	assert.True(t, KindEnd.IsTerminal())
	assert.False(t, KindHTTP.IsTerminal())

	assert.True(t, KindEval.AllowsSelfLoop())
	for _, kind := range AllKinds() {
		if kind != KindEval {
			assert.False(t, kind.AllowsSelfLoop(), "kind %s should not allow self-loops", kind)
		}
	}
}

func TestNewConfig_CoversAllKinds(t *testing.T) {
	for _, kind := range AllKinds() {
		cfg, err := NewConfig(kind)
		require.NoError(t, err, "kind %s", kind)
		assert.Equal(t, kind, cfg.Kind())
	}

	_, err := NewConfig(NodeKind("teleport"))
	require.Error(t, err)
}

func TestEdgeID(t *testing.T) {
	assert.Equal(t, "fetch->notify", EdgeID("fetch", HandleDefault, "notify"))
	assert.Equal(t, "fetch#error->retry", EdgeID("fetch", HandleError, "retry"))
	assert.Equal(t, "check#true->deploy", EdgeID("check", HandleTrue, "deploy"))
}

func TestWorkflow_Accessors(t *testing.T) {
	w, err := NewWorkflow("access-flow").
		AddHTTPNode("fetch", "GET", "https://example.com").
		AddAgentNode("triage", "analyst", "triage the response").
		AddEndNode("done").
		Connect("fetch", "triage").
		ConnectHandle("fetch", HandleError, "done").
		Connect("triage", "done").
		Start("fetch").
		Build()
	require.NoError(t, err)

	assert.Equal(t, []string{"fetch"}, w.EntryNodes())
	assert.Equal(t, []string{"done"}, w.ExitNodes())
	assert.Equal(t, []string{"done", "fetch", "triage"}, w.NodeIDs())

	out := w.OutgoingEdges("fetch")
	require.Len(t, out, 2)
	assert.Equal(t, "triage", out[0].Target)
	assert.Equal(t, HandleError, out[1].SourceHandle)

	in := w.IncomingEdges("done")
	assert.Len(t, in, 2)

	_, ok := w.GetEdge("fetch->triage")
	assert.True(t, ok)
	_, ok = w.GetEdge("ghost->nowhere")
	assert.False(t, ok)
}

func TestWorkflow_Clone(t *testing.T) {
	w, err := NewWorkflow("clone-flow").
		AddCommandNode("build", "make", "all").
		Start("build").
		Build()
	require.NoError(t, err)
	w.Context = map[string]any{"retries": 3, "tags": []any{"ci"}}

	clone := w.Clone()
	require.Equal(t, w.ID, clone.ID)

	// Mutating the clone must not reach the original.
	clone.Nodes["build"].Label = "changed"
	clone.Context["retries"] = 9
	clone.Context["tags"].([]any)[0] = "changed"
	clone.Edges = append(clone.Edges, NewEdge("build", HandleDefault, "build"))

	assert.Empty(t, w.Nodes["build"].Label)
	assert.Equal(t, 3, w.Context["retries"])
	assert.Equal(t, "ci", w.Context["tags"].([]any)[0])
	assert.Empty(t, w.Edges)
}

func TestNodeRecord_CloneConfig(t *testing.T) {
	node := &NodeRecord{
		ID:   "fetch",
		Kind: KindHTTP,
		Config: &HTTPConfig{
			URL:     "https://example.com",
			Method:  "GET",
			Headers: map[string]string{"Accept": "application/json"},
		},
	}

	clone := node.Clone()
	clone.Config.(*HTTPConfig).Headers["Accept"] = "text/html"

	assert.Equal(t, "application/json", node.Config.(*HTTPConfig).Headers["Accept"])
}

func TestSummarize(t *testing.T) {
	w, err := NewWorkflow("sum-flow").
		WithName("Summary flow").
		WithReference("staging", "loom/envs/staging").
		WithEnv("staging").
		AddHTTPNode("fetch", "GET", "https://example.com").
		AddCommandNode("notify", "echo", "done").
		Connect("fetch", "notify").
		Start("fetch").
		Build()
	require.NoError(t, err)

	s := Summarize(w)
	assert.Equal(t, "sum-flow", s.ID)
	assert.Equal(t, 2, s.NodeCount)
	assert.Equal(t, 1, s.EdgeCount)
	assert.Equal(t, map[string]int{"http": 1, "command": 1}, s.Kinds)
	assert.Equal(t, []string{"fetch"}, s.EntryNodes)
	assert.Equal(t, []string{"notify"}, s.ExitNodes)
	assert.False(t, s.HasCycles)

	data, err := s.ToJSON()
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "sum-flow", decoded["id"])

	yamlData, err := s.ToYAML()
	require.NoError(t, err)
	assert.Contains(t, string(yamlData), "node_count: 2")

	assert.Contains(t, s.String(), "Workflow: sum-flow (Summary flow)")
	assert.Contains(t, s.String(), "command=1, http=1")
}
