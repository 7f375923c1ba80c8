package dsl

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/loom/internal/graph"
)

// messySample is deliberately non-canonical: shuffled field order,
// comments, inline objects, and inconsistent trailing commas.
const messySample = `// fetch and notify
use ops from "loom/envs/ops"

export default {
  start: "fetch",
  id: "fetch-notify",
  nodes: {
    notify: {
      kind: "slash_command",
      command: "/notify",
      args: "done",
      next: "finish",
    },
    finish: { kind: "end" },
    fetch: {
      kind: "http",
      method: "GET",
      url: "https://example.com/data",
      next: "notify"
    },
  },
  context: { retries: 3 },
  env: ops,
}
`

func mustParse(t *testing.T, src string) (*graph.Workflow, []string) {
	t.Helper()
	w, warnings, err := Parse(src)
	require.NoError(t, err)
	require.NotNil(t, w)
	return w, warnings
}

func joinWarnings(warnings []string) string {
	return strings.Join(warnings, "\n")
}

func TestTokenize(t *testing.T) {
	tokens, err := tokenize("{\n  id: \"a b\", // comment\n  n: -1.5,\n}")
	require.NoError(t, err)

	types := make([]tokenType, 0, len(tokens))
	for _, tok := range tokens {
		types = append(types, tok.typ)
	}
	assert.Equal(t, []tokenType{
		tokenLBrace,
		tokenIdent, tokenColon, tokenString, tokenComma,
		tokenIdent, tokenColon, tokenNumber, tokenComma,
		tokenRBrace,
		tokenEOF,
	}, types)

	assert.Equal(t, "a b", tokens[3].value)
	assert.Equal(t, "-1.5", tokens[7].value)

	// "id" starts at line 2 column 3
	assert.Equal(t, 2, tokens[1].line)
	assert.Equal(t, 3, tokens[1].column)
	// "n" is on line 3, after the comment was discarded
	assert.Equal(t, 3, tokens[5].line)
}

func TestTokenize_StringEscapes(t *testing.T) {
	tokens, err := tokenize(`{ s: "quote \" slash \\ nl \n tab \t" }`)
	require.NoError(t, err)
	require.Equal(t, tokenString, tokens[3].typ)
	assert.Equal(t, "quote \" slash \\ nl \n tab \t", tokens[3].value)
}

func TestTokenize_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantMsg string
	}{
		{name: "unterminated string", src: "{ s: \"open", wantMsg: "unterminated string literal"},
		{name: "string broken by newline", src: "{ s: \"open\n\" }", wantMsg: "unterminated string literal"},
		{name: "invalid escape", src: `{ s: "\q" }`, wantMsg: "invalid escape sequence"},
		{name: "stray character", src: "{ a: @ }", wantMsg: "unexpected character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tokenize(tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestParse_Module(t *testing.T) {
	w, warnings := mustParse(t, messySample)
	assert.Empty(t, warnings)

	assert.Equal(t, "fetch-notify", w.ID)
	assert.Equal(t, "fetch", w.Start)
	assert.Equal(t, "ops", w.Env)
	assert.Equal(t, map[string]any{"retries": 3}, w.Context)

	require.Len(t, w.References, 1)
	assert.Equal(t, graph.Reference{Name: "ops", Path: "loom/envs/ops"}, w.References[0])

	require.Len(t, w.Nodes, 3)
	fetch, ok := w.GetNode("fetch")
	require.True(t, ok)
	assert.Equal(t, graph.KindHTTP, fetch.Kind)

	httpCfg, ok := fetch.Config.(*graph.HTTPConfig)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/data", httpCfg.URL)
	assert.Equal(t, "GET", httpCfg.Method)

	// edges follow node declaration order: notify first, then fetch
	require.Len(t, w.Edges, 2)
	assert.Equal(t, "notify->finish", w.Edges[0].ID)
	assert.Equal(t, "fetch->notify", w.Edges[1].ID)
	assert.Equal(t, graph.HandleDefault, w.Edges[1].SourceHandle)
}

func TestParse_NodeConfigs(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		check func(t *testing.T, node *graph.NodeRecord)
	}{
		{
			name: "agent",
			body: `{ kind: "agent", role: "triage", prompt: "Assess the incident", model: "small", tools: ["search", "read"], next: "done" }`,
			check: func(t *testing.T, node *graph.NodeRecord) {
				cfg, ok := node.Config.(*graph.AgentConfig)
				require.True(t, ok)
				assert.Equal(t, "triage", cfg.Role)
				assert.Equal(t, "Assess the incident", cfg.Prompt)
				assert.Equal(t, "small", cfg.Model)
				assert.Equal(t, []string{"search", "read"}, cfg.Tools)
			},
		},
		{
			name: "command",
			body: `{ kind: "command", command: "make", args: ["test"], dir: "/srv/app", env: { CI: "1" }, timeout_seconds: 300, next: "done" }`,
			check: func(t *testing.T, node *graph.NodeRecord) {
				cfg, ok := node.Config.(*graph.CommandConfig)
				require.True(t, ok)
				assert.Equal(t, "make", cfg.Command)
				assert.Equal(t, []string{"test"}, cfg.Args)
				assert.Equal(t, "/srv/app", cfg.Dir)
				assert.Equal(t, map[string]string{"CI": "1"}, cfg.Env)
				assert.Equal(t, 300, cfg.TimeoutSeconds)
			},
		},
		{
			name: "slash command",
			body: `{ kind: "slash_command", command: "/deploy", args: "staging", next: "done" }`,
			check: func(t *testing.T, node *graph.NodeRecord) {
				cfg, ok := node.Config.(*graph.SlashCommandConfig)
				require.True(t, ok)
				assert.Equal(t, "/deploy", cfg.Command)
				assert.Equal(t, "staging", cfg.Args)
			},
		},
		{
			name: "eval",
			body: `{ kind: "eval", expression: "ctx.ready == true", onTrue: "done", onFalse: "n" }`,
			check: func(t *testing.T, node *graph.NodeRecord) {
				cfg, ok := node.Config.(*graph.EvalConfig)
				require.True(t, ok)
				assert.Equal(t, "ctx.ready == true", cfg.Expression)
			},
		},
		{
			name: "http",
			body: `{ kind: "http", url: "https://api.internal/ping", method: "POST", headers: { Accept: "application/json" }, body: "{}", timeout_seconds: 10, next: "done" }`,
			check: func(t *testing.T, node *graph.NodeRecord) {
				cfg, ok := node.Config.(*graph.HTTPConfig)
				require.True(t, ok)
				assert.Equal(t, "https://api.internal/ping", cfg.URL)
				assert.Equal(t, "POST", cfg.Method)
				assert.Equal(t, map[string]string{"Accept": "application/json"}, cfg.Headers)
				assert.Equal(t, "{}", cfg.Body)
				assert.Equal(t, 10, cfg.TimeoutSeconds)
			},
		},
		{
			name: "llm",
			body: `{ kind: "llm", provider: "openai", model: "gpt-4o", prompt: "Summarize", temperature: 0.2, max_tokens: 512, next: "done" }`,
			check: func(t *testing.T, node *graph.NodeRecord) {
				cfg, ok := node.Config.(*graph.LLMConfig)
				require.True(t, ok)
				assert.Equal(t, "openai", cfg.Provider)
				assert.Equal(t, "gpt-4o", cfg.Model)
				assert.Equal(t, "Summarize", cfg.Prompt)
				assert.InDelta(t, 0.2, cfg.Temperature, 1e-9)
				assert.Equal(t, 512, cfg.MaxTokens)
			},
		},
		{
			name: "dynamic agent",
			body: `{ kind: "dynamic_agent", source: "ctx.agent_spec", model: "large", next: "done" }`,
			check: func(t *testing.T, node *graph.NodeRecord) {
				cfg, ok := node.Config.(*graph.DynamicAgentConfig)
				require.True(t, ok)
				assert.Equal(t, "ctx.agent_spec", cfg.Source)
				assert.Equal(t, "large", cfg.Model)
			},
		},
		{
			name: "dynamic command",
			body: `{ kind: "dynamic_command", source: "ctx.command_line", next: "done" }`,
			check: func(t *testing.T, node *graph.NodeRecord) {
				cfg, ok := node.Config.(*graph.DynamicCommandConfig)
				require.True(t, ok)
				assert.Equal(t, "ctx.command_line", cfg.Source)
			},
		},
		{
			name: "project update",
			body: `{ kind: "project_update", project: "loom", status: "in_progress", message: "rolling out", next: "done" }`,
			check: func(t *testing.T, node *graph.NodeRecord) {
				cfg, ok := node.Config.(*graph.ProjectUpdateConfig)
				require.True(t, ok)
				assert.Equal(t, "loom", cfg.Project)
				assert.Equal(t, "in_progress", cfg.Status)
				assert.Equal(t, "rolling out", cfg.Message)
			},
		},
		{
			name: "checkout",
			body: `{ kind: "checkout", repo: "git@example.com:loom/loom.git", ref: "main", depth: 1, next: "done" }`,
			check: func(t *testing.T, node *graph.NodeRecord) {
				cfg, ok := node.Config.(*graph.CheckoutConfig)
				require.True(t, ok)
				assert.Equal(t, "git@example.com:loom/loom.git", cfg.Repo)
				assert.Equal(t, "main", cfg.Ref)
				assert.Equal(t, 1, cfg.Depth)
			},
		},
		{
			name: "end",
			body: `{ kind: "end", message: "all done" }`,
			check: func(t *testing.T, node *graph.NodeRecord) {
				cfg, ok := node.Config.(*graph.EndConfig)
				require.True(t, ok)
				assert.Equal(t, "all done", cfg.Message)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := `export default {
  id: "t",
  start: "n",
  nodes: {
    n: ` + tt.body + `,
    done: { kind: "end" },
  },
}`
			w, _ := mustParse(t, src)
			node, ok := w.GetNode("n")
			require.True(t, ok)
			require.NotNil(t, node.Config)
			assert.Equal(t, node.Kind, node.Config.Kind())
			tt.check(t, node)
		})
	}
}

func TestParse_NodeCommonFields(t *testing.T) {
	src := `export default {
  id: "t",
  start: "n",
  nodes: {
    n: { kind: "command", command: "true", label: "no-op step", next: "done" },
    note: { kind: "end", label: "detached note", orphan: true },
    done: { kind: "end" },
  },
}`
	w, warnings := mustParse(t, src)
	assert.Empty(t, warnings)

	n, _ := w.GetNode("n")
	assert.Equal(t, "no-op step", n.Label)
	assert.False(t, n.Orphan)

	note, _ := w.GetNode("note")
	assert.Equal(t, "detached note", note.Label)
	assert.True(t, note.Orphan)
}

func TestParse_TransitionHandles(t *testing.T) {
	src := `export default {
  id: "t",
  start: "check",
  nodes: {
    check: { kind: "eval", expression: "ctx.ok", onTrue: "work", onFalse: "check" },
    work: { kind: "command", command: "run", next: "done", onError: "done" },
    done: { kind: "end" },
  },
}`
	w, warnings := mustParse(t, src)
	assert.Empty(t, warnings)

	require.Len(t, w.Edges, 4)
	assert.True(t, w.HasEdge("check", graph.HandleTrue, "work"))
	assert.True(t, w.HasEdge("check", graph.HandleFalse, "check"))
	assert.True(t, w.HasEdge("work", graph.HandleDefault, "done"))
	assert.True(t, w.HasEdge("work", graph.HandleError, "done"))

	// the eval self-loop is the one self-reference that does not warn
	assert.Equal(t, "check#false->check", w.Edges[1].ID)
}

func TestParse_UnknownFieldsPreserved(t *testing.T) {
	src := `export default {
  id: "t",
  start: "n",
  nodes: {
    n: { kind: "http", url: "https://x", method: "GET", retries: 5, trace: { sample: true }, next: "done" },
    done: { kind: "end" },
  },
}`
	w, warnings := mustParse(t, src)
	require.Contains(t, joinWarnings(warnings), `unknown field "retries"`)
	require.Contains(t, joinWarnings(warnings), `unknown field "trace"`)

	node, _ := w.GetNode("n")
	cfg := node.Config.(*graph.HTTPConfig)
	assert.Equal(t, map[string]any{
		"retries": 5,
		"trace":   map[string]any{"sample": true},
	}, cfg.Extra)
}

func TestParse_Warnings(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "transition to unknown node",
			src: `export default { id: "t", start: "n", nodes: {
  n: { kind: "command", command: "x", next: "ghost" },
} }`,
			want: `transition to unknown node "ghost"`,
		},
		{
			name: "branch transition on non-eval kind",
			src: `export default { id: "t", start: "n", nodes: {
  n: { kind: "command", command: "x", onTrue: "done", next: "done" },
  done: { kind: "end" },
} }`,
			want: `transition "onTrue" is not valid for kind command`,
		},
		{
			name: "next on eval kind",
			src: `export default { id: "t", start: "n", nodes: {
  n: { kind: "eval", expression: "1", next: "done", onTrue: "done", onFalse: "done" },
  done: { kind: "end" },
} }`,
			want: `transition "next" is not valid for kind eval`,
		},
		{
			name: "transition on end kind",
			src: `export default { id: "t", start: "n", nodes: {
  n: { kind: "command", command: "x", next: "done" },
  done: { kind: "end", next: "n" },
} }`,
			want: `transition "next" is not valid for kind end`,
		},
		{
			name: "self loop on non-eval kind",
			src: `export default { id: "t", start: "n", nodes: {
  n: { kind: "command", command: "x", next: "n" },
} }`,
			want: "self-referencing transition on kind command",
		},
		{
			name: "start references unknown node",
			src:  `export default { id: "t", start: "ghost", nodes: { n: { kind: "end" } } }`,
			want: `start references unknown node "ghost"`,
		},
		{
			name: "env references undeclared reference",
			src:  `export default { id: "t", env: prod, start: "n", nodes: { n: { kind: "end" } } }`,
			want: `env references undeclared reference "prod"`,
		},
		{
			name: "unknown module field",
			src:  `export default { id: "t", version: 2, start: "n", nodes: { n: { kind: "end" } } }`,
			want: `unknown module field "version"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, warnings := mustParse(t, tt.src)
			assert.Contains(t, joinWarnings(warnings), tt.want)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "empty input",
			src:  "",
			want: `expected "export"`,
		},
		{
			name: "use without from",
			src:  `use ops "loom/envs/ops"` + "\nexport default { id: \"t\", start: \"\", nodes: {} }",
			want: `expected "from"`,
		},
		{
			name: "missing id",
			src:  `export default { start: "n", nodes: {} }`,
			want: `missing required field "id"`,
		},
		{
			name: "empty id",
			src:  `export default { id: "", start: "n", nodes: {} }`,
			want: `field "id" must not be empty`,
		},
		{
			name: "missing start",
			src:  `export default { id: "t", nodes: {} }`,
			want: `missing required field "start"`,
		},
		{
			name: "missing nodes",
			src:  `export default { id: "t", start: "n" }`,
			want: `missing required field "nodes"`,
		},
		{
			name: "id not a string",
			src:  `export default { id: 7, start: "n", nodes: {} }`,
			want: `field "id" must be a string`,
		},
		{
			name: "duplicate field",
			src:  `export default { id: "t", id: "u", start: "n", nodes: {} }`,
			want: `duplicate field "id"`,
		},
		{
			name: "duplicate reference name",
			src:  "use a from \"x\"\nuse a from \"y\"\nexport default { id: \"t\", start: \"n\", nodes: {} }",
			want: `duplicate reference name "a"`,
		},
		{
			name: "unknown node kind",
			src:  `export default { id: "t", start: "n", nodes: { n: { kind: "teleport" } } }`,
			want: `unknown node kind "teleport"`,
		},
		{
			name: "node missing kind",
			src:  `export default { id: "t", start: "n", nodes: { n: { label: "x" } } }`,
			want: `missing required field "kind"`,
		},
		{
			name: "node not an object",
			src:  `export default { id: "t", start: "n", nodes: { n: "nope" } }`,
			want: "node must be an object",
		},
		{
			name: "timeout must be integer",
			src:  `export default { id: "t", start: "n", nodes: { n: { kind: "command", command: "x", timeout_seconds: 2.5 } } }`,
			want: `field "timeout_seconds" must be an integer`,
		},
		{
			name: "tools must be strings",
			src:  `export default { id: "t", start: "n", nodes: { n: { kind: "agent", prompt: "p", tools: [1] } } }`,
			want: `field "tools" must contain only strings`,
		},
		{
			name: "trailing text after export",
			src:  `export default { id: "t", start: "n", nodes: {} } extra`,
			want: "unexpected \"extra\" after module export",
		},
		{
			name: "second export",
			src:  `export default { id: "t", start: "n", nodes: {} } export default { id: "u", start: "n", nodes: {} }`,
			want: "after module export",
		},
		{
			name: "missing colon",
			src:  `export default { id "t" }`,
			want: "expected ':'",
		},
		{
			name: "missing comma between fields",
			src:  `export default { id: "t" start: "n", nodes: {} }`,
			want: "expected ',' or '}'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _, err := Parse(tt.src)
			require.Error(t, err)
			assert.Nil(t, w)
			assert.Contains(t, err.Error(), tt.want)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
		})
	}
}

func TestParse_ErrorPositions(t *testing.T) {
	src := "export default {\n  id: \"t\",\n  start: \"n\",\n  nodes: {\n    n: { kind: \"warp\" },\n  },\n}"
	_, _, err := Parse(src)
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "n", perr.NodeID)
	assert.Equal(t, 5, perr.Line)
	assert.Contains(t, perr.Error(), "(node n)")
	assert.Contains(t, perr.Error(), "line 5")
}

func TestParse_NumberForms(t *testing.T) {
	src := `export default {
  id: "t",
  context: { count: 42, ratio: 0.25, big: 1e6, neg: -7 },
  start: "n",
  nodes: { n: { kind: "end" } },
}`
	w, warnings := mustParse(t, src)
	assert.Empty(t, warnings)
	assert.Equal(t, map[string]any{
		"count": 42,
		"ratio": 0.25,
		"big":   1e6,
		"neg":   -7,
	}, w.Context)
}

func TestParse_QuotedNodeIDs(t *testing.T) {
	src := `export default {
  id: "t",
  start: "first-step",
  nodes: {
    "first-step": { kind: "command", command: "x", next: "done" },
    done: { kind: "end" },
  },
}`
	w, warnings := mustParse(t, src)
	assert.Empty(t, warnings)
	_, ok := w.GetNode("first-step")
	assert.True(t, ok)
	assert.True(t, w.HasEdge("first-step", graph.HandleDefault, "done"))
}
