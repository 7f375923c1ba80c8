package dsl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/loom/internal/graph"
)

// canonicalSample is the canonical rendering of messySample: sorted
// references, fixed module field order, topological node order, and a
// trailing comma on every entry.
const canonicalSample = `use ops from "loom/envs/ops"

export default {
  id: "fetch-notify",
  env: ops,
  context: {
    retries: 3,
  },
  start: "fetch",
  nodes: {
    fetch: {
      kind: "http",
      url: "https://example.com/data",
      method: "GET",
      next: "notify",
    },
    notify: {
      kind: "slash_command",
      command: "/notify",
      args: "done",
      next: "finish",
    },
    finish: {
      kind: "end",
    },
  },
}
`

func TestGenerate_Canonical(t *testing.T) {
	w, parseWarnings := mustParse(t, messySample)
	require.Empty(t, parseWarnings)

	out, warnings := Generate(w)
	assert.Empty(t, warnings)
	assert.Equal(t, canonicalSample, out)
}

func TestGenerate_DeterministicAcrossDeclarationOrder(t *testing.T) {
	permuted := `use ops from "loom/envs/ops"
export default {
  env: ops,
  context: { retries: 3 },
  nodes: {
    fetch: { kind: "http", url: "https://example.com/data", method: "GET", next: "notify" },
    finish: { kind: "end" },
    notify: { next: "finish", kind: "slash_command", args: "done", command: "/notify" },
  },
  id: "fetch-notify",
  start: "fetch",
}`
	w, _ := mustParse(t, permuted)
	out, warnings := Generate(w)
	assert.Empty(t, warnings)
	assert.Equal(t, canonicalSample, out)
}

func TestGenerate_BuilderGraph(t *testing.T) {
	w, err := graph.NewWorkflow("deploy").
		WithName("Deploy").
		WithReference("prod", "loom/envs/prod").
		WithEnv("prod").
		AddCommandNode("build", "make", "release").
		AddEvalNode("gate", "ctx.approved == true").
		AddEndNode("done").
		Connect("build", "gate").
		ConnectHandle("gate", graph.HandleTrue, "done").
		ConnectHandle("gate", graph.HandleFalse, "gate").
		Start("build").
		Build()
	require.NoError(t, err)

	out, warnings := Generate(w)
	assert.Empty(t, warnings)

	want := `use prod from "loom/envs/prod"

export default {
  id: "deploy",
  name: "Deploy",
  env: prod,
  start: "build",
  nodes: {
    build: {
      kind: "command",
      command: "make",
      args: ["release"],
      next: "gate",
    },
    gate: {
      kind: "eval",
      expression: "ctx.approved == true",
      onTrue: "done",
      onFalse: "gate",
    },
    done: {
      kind: "end",
    },
  },
}
`
	assert.Equal(t, want, out)

	reparsed, parseWarnings := mustParse(t, out)
	assert.Empty(t, parseWarnings)
	requireSameGraph(t, w, reparsed)
}

func TestGenerate_EmptyWorkflow(t *testing.T) {
	out, warnings := Generate(graph.New("empty"))
	assert.Empty(t, warnings)
	assert.Equal(t, "export default {\n  id: \"empty\",\n  start: \"\",\n  nodes: {},\n}\n", out)

	// the empty form parses back cleanly
	w, parseWarnings := mustParse(t, out)
	assert.Empty(t, parseWarnings)
	assert.Empty(t, w.Nodes)
}

func TestGenerate_NilWorkflow(t *testing.T) {
	out, warnings := Generate(nil)
	assert.Empty(t, out)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "nil workflow")
}

func TestGenerate_UnencodableStructure(t *testing.T) {
	w := graph.New("t")
	w.Start = "a"
	w.Nodes["a"] = &graph.NodeRecord{ID: "a", Kind: graph.KindCommand, Config: &graph.CommandConfig{Command: "x"}}
	w.Nodes["z"] = &graph.NodeRecord{ID: "z", Kind: graph.KindEnd, Config: &graph.EndConfig{}}
	w.Edges = append(w.Edges,
		graph.NewEdge("a", "weird", "z"),
		graph.NewEdge("z", graph.HandleDefault, "a"),
		graph.NewEdge("ghost", graph.HandleDefault, "a"),
	)

	out, warnings := Generate(w)
	joined := joinWarnings(warnings)
	assert.Contains(t, joined, `handle "weird"`)
	assert.Contains(t, joined, "terminal kind end has outgoing edges")
	assert.Contains(t, joined, "source node missing")

	// none of the unencodable edges make it into the text
	assert.NotContains(t, out, "weird")
	assert.NotContains(t, out, "next:")
}

func TestGenerate_ConfigMismatch(t *testing.T) {
	w := graph.New("t")
	w.Start = "a"
	w.Nodes["a"] = &graph.NodeRecord{ID: "a", Kind: graph.KindHTTP, Config: &graph.CommandConfig{Command: "x"}}

	out, warnings := Generate(w)
	assert.Contains(t, joinWarnings(warnings), "config kind command does not match node kind http")
	assert.Contains(t, out, `kind: "http",`)
	assert.Contains(t, out, `command: "x",`)
}

func TestGenerate_NilConfig(t *testing.T) {
	w := graph.New("t")
	w.Start = "a"
	w.Nodes["a"] = &graph.NodeRecord{ID: "a", Kind: graph.KindEnd}

	out, warnings := Generate(w)
	assert.Contains(t, joinWarnings(warnings), "has no config")
	assert.Contains(t, out, `kind: "end",`)
}

func TestGenerate_MultipleEdgesPerHandle(t *testing.T) {
	w := graph.New("t")
	w.Start = "a"
	w.Nodes["a"] = &graph.NodeRecord{ID: "a", Kind: graph.KindCommand, Config: &graph.CommandConfig{Command: "x"}}
	w.Nodes["b"] = &graph.NodeRecord{ID: "b", Kind: graph.KindEnd, Config: &graph.EndConfig{}}
	w.Nodes["c"] = &graph.NodeRecord{ID: "c", Kind: graph.KindEnd, Config: &graph.EndConfig{}}
	w.Edges = append(w.Edges,
		graph.NewEdge("a", graph.HandleDefault, "b"),
		graph.NewEdge("a", graph.HandleDefault, "c"),
	)

	out, warnings := Generate(w)
	assert.Contains(t, joinWarnings(warnings), `multiple "next" transitions`)
	assert.Contains(t, out, `next: "b",`)
	assert.NotContains(t, out, `next: "c",`)
}

func TestGenerate_CycleOrder(t *testing.T) {
	w := graph.New("t")
	w.Start = "a"
	w.Nodes["a"] = &graph.NodeRecord{ID: "a", Kind: graph.KindCommand, Config: &graph.CommandConfig{Command: "x"}}
	w.Nodes["b"] = &graph.NodeRecord{ID: "b", Kind: graph.KindCommand, Config: &graph.CommandConfig{Command: "y"}}
	w.Edges = append(w.Edges,
		graph.NewEdge("a", graph.HandleDefault, "b"),
		graph.NewEdge("b", graph.HandleDefault, "a"),
	)

	out, _ := Generate(w)
	// the cycle breaks at the lexicographically smallest node
	assert.Less(t, strings.Index(out, "    a: {"), strings.Index(out, "    b: {"))
}

func TestGenerate_EscapedStrings(t *testing.T) {
	w, err := graph.NewWorkflow("esc").
		WithDescription("say \"hi\"\nthen\ttab").
		AddEndNode("done").
		Start("done").
		Build()
	require.NoError(t, err)

	out, _ := Generate(w)
	assert.Contains(t, out, `description: "say \"hi\"\nthen\ttab",`)

	reparsed, _ := mustParse(t, out)
	assert.Equal(t, "say \"hi\"\nthen\ttab", reparsed.Description)
}

func TestGenerate_ExtraFieldCollision(t *testing.T) {
	w := graph.New("t")
	w.Start = "a"
	w.Nodes["a"] = &graph.NodeRecord{ID: "a", Kind: graph.KindHTTP, Config: &graph.HTTPConfig{
		URL:    "https://x",
		Method: "GET",
		Extra:  map[string]any{"url": "collides", "custom": 1},
	}}

	out, warnings := Generate(w)
	assert.Contains(t, joinWarnings(warnings), `extra field "url" collides`)
	assert.Contains(t, out, "custom: 1,")
	assert.NotContains(t, out, "collides")
}
