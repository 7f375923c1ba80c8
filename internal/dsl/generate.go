package dsl

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/loomworks/loom/internal/graph"
)

// Generate renders a workflow graph as canonical flow-module text.
//
// The output is deterministic: references sort by name, module fields
// follow a fixed order, node entries follow a topological order from the
// graph structure with lexicographic tie-breaking, and map keys sort.
// Generation never fails; structure the text cannot express (edges on
// terminal nodes, handles with no transition field, colliding extra
// keys) is dropped and reported as a warning.
func Generate(w *graph.Workflow) (string, []string) {
	g := &generator{}
	if w == nil {
		g.warnf("cannot render nil workflow")
		return "", g.warnings
	}
	g.module(w)
	return g.sb.String(), g.warnings
}

type generator struct {
	sb       strings.Builder
	warnings []string
}

func (g *generator) warnf(format string, args ...any) {
	g.warnings = append(g.warnings, fmt.Sprintf(format, args...))
}

func (g *generator) writeLine(indent int, format string, args ...any) {
	g.sb.WriteString(strings.Repeat("  ", indent))
	fmt.Fprintf(&g.sb, format, args...)
	g.sb.WriteByte('\n')
}

func (g *generator) module(w *graph.Workflow) {
	g.header(w)

	g.sb.WriteString("export default {\n")
	g.writeLine(1, "id: %s,", quoteString(w.ID))
	if w.Name != "" {
		g.writeLine(1, "name: %s,", quoteString(w.Name))
	}
	if w.Description != "" {
		g.writeLine(1, "description: %s,", quoteString(w.Description))
	}
	if w.Env != "" {
		if bareSafe(w.Env) {
			g.writeLine(1, "env: %s,", w.Env)
		} else {
			g.writeLine(1, "env: %s,", quoteString(w.Env))
		}
	}
	if len(w.Context) > 0 {
		g.writeMapField(1, "context", w.Context)
	}
	g.writeLine(1, "start: %s,", quoteString(w.Start))
	g.nodes(w)
	g.sb.WriteString("}\n")
}

func (g *generator) header(w *graph.Workflow) {
	if len(w.References) == 0 {
		return
	}

	refs := make([]graph.Reference, len(w.References))
	copy(refs, w.References)
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })

	written := 0
	prev := ""
	for _, r := range refs {
		if !isIdent(r.Name) {
			g.warnf("reference name %q is not an identifier; dropped", r.Name)
			continue
		}
		if r.Name == prev {
			g.warnf("duplicate reference name %q dropped", r.Name)
			continue
		}
		prev = r.Name
		g.writeLine(0, "use %s from %s", r.Name, quoteString(r.Path))
		written++
	}
	if written > 0 {
		g.sb.WriteByte('\n')
	}
}

func (g *generator) nodes(w *graph.Workflow) {
	for _, e := range w.Edges {
		if _, ok := w.Nodes[e.Source]; !ok {
			g.warnf("edge %s: source node missing; dropped", e.ID)
		}
	}

	order := canonicalOrder(w)
	if len(order) == 0 {
		g.writeLine(1, "nodes: {},")
		return
	}

	g.writeLine(1, "nodes: {")
	for _, id := range order {
		node := w.Nodes[id]
		g.writeLine(2, "%s: {", keyString(id))
		g.writeLine(3, "kind: %s,", quoteString(string(node.Kind)))
		if node.Label != "" {
			g.writeLine(3, "label: %s,", quoteString(node.Label))
		}
		if node.Orphan {
			g.writeLine(3, "orphan: true,")
		}
		g.configFields(3, node)
		g.transitionFields(3, w, node)
		g.writeLine(2, "},")
	}
	g.writeLine(1, "},")
}

// canonicalOrder returns node IDs in topological order from the edge
// structure, visiting ready nodes lexicographically. Cycles are broken
// by forcing the smallest remaining ID. Self-loops do not count toward
// indegree so a self-targeting eval cannot stall the walk.
func canonicalOrder(w *graph.Workflow) []string {
	ids := w.NodeIDs()
	remaining := make(map[string]bool, len(ids))
	for _, id := range ids {
		remaining[id] = true
	}

	indeg := make(map[string]int, len(ids))
	for _, e := range w.Edges {
		if remaining[e.Source] && remaining[e.Target] && e.Source != e.Target {
			indeg[e.Target]++
		}
	}

	order := make([]string, 0, len(ids))
	for len(order) < len(ids) {
		pick := ""
		for _, id := range ids {
			if remaining[id] && indeg[id] == 0 {
				pick = id
				break
			}
		}
		if pick == "" {
			for _, id := range ids {
				if remaining[id] {
					pick = id
					break
				}
			}
		}

		delete(remaining, pick)
		order = append(order, pick)
		for _, e := range w.Edges {
			if e.Source == pick && e.Target != e.Source && remaining[e.Target] {
				indeg[e.Target]--
			}
		}
	}
	return order
}

func (g *generator) configFields(indent int, node *graph.NodeRecord) {
	if node.Config == nil {
		g.warnf("node %s has no config; rendering kind only", node.ID)
		return
	}
	if node.Config.Kind() != node.Kind {
		g.warnf("node %s: config kind %s does not match node kind %s", node.ID, node.Config.Kind(), node.Kind)
	}

	switch c := node.Config.(type) {
	case *graph.AgentConfig:
		g.stringField(indent, "role", c.Role)
		g.stringField(indent, "prompt", c.Prompt)
		g.stringField(indent, "model", c.Model)
		g.stringListField(indent, "tools", c.Tools)
		g.extraFields(indent, node.ID, c.Extra, "role", "prompt", "model", "tools")
	case *graph.CommandConfig:
		g.stringField(indent, "command", c.Command)
		g.stringListField(indent, "args", c.Args)
		g.stringField(indent, "dir", c.Dir)
		g.stringMapField(indent, "env", c.Env)
		g.intField(indent, "timeout_seconds", c.TimeoutSeconds)
		g.extraFields(indent, node.ID, c.Extra, "command", "args", "dir", "env", "timeout_seconds")
	case *graph.SlashCommandConfig:
		g.stringField(indent, "command", c.Command)
		g.stringField(indent, "args", c.Args)
		g.extraFields(indent, node.ID, c.Extra, "command", "args")
	case *graph.EvalConfig:
		g.stringField(indent, "expression", c.Expression)
		g.extraFields(indent, node.ID, c.Extra, "expression")
	case *graph.HTTPConfig:
		g.stringField(indent, "url", c.URL)
		g.stringField(indent, "method", c.Method)
		g.stringMapField(indent, "headers", c.Headers)
		g.stringField(indent, "body", c.Body)
		g.intField(indent, "timeout_seconds", c.TimeoutSeconds)
		g.extraFields(indent, node.ID, c.Extra, "url", "method", "headers", "body", "timeout_seconds")
	case *graph.LLMConfig:
		g.stringField(indent, "provider", c.Provider)
		g.stringField(indent, "model", c.Model)
		g.stringField(indent, "prompt", c.Prompt)
		g.floatField(indent, "temperature", c.Temperature)
		g.intField(indent, "max_tokens", c.MaxTokens)
		g.extraFields(indent, node.ID, c.Extra, "provider", "model", "prompt", "temperature", "max_tokens")
	case *graph.DynamicAgentConfig:
		g.stringField(indent, "source", c.Source)
		g.stringField(indent, "model", c.Model)
		g.extraFields(indent, node.ID, c.Extra, "source", "model")
	case *graph.DynamicCommandConfig:
		g.stringField(indent, "source", c.Source)
		g.extraFields(indent, node.ID, c.Extra, "source")
	case *graph.ProjectUpdateConfig:
		g.stringField(indent, "project", c.Project)
		g.stringField(indent, "status", c.Status)
		g.stringField(indent, "message", c.Message)
		g.extraFields(indent, node.ID, c.Extra, "project", "status", "message")
	case *graph.CheckoutConfig:
		g.stringField(indent, "repo", c.Repo)
		g.stringField(indent, "ref", c.Ref)
		g.intField(indent, "depth", c.Depth)
		g.extraFields(indent, node.ID, c.Extra, "repo", "ref", "depth")
	case *graph.EndConfig:
		g.stringField(indent, "message", c.Message)
		g.extraFields(indent, node.ID, c.Extra, "message")
	default:
		g.warnf("node %s: config type %T has no renderer", node.ID, node.Config)
	}
}

func (g *generator) transitionFields(indent int, w *graph.Workflow, node *graph.NodeRecord) {
	out := w.OutgoingEdges(node.ID)
	if len(out) == 0 {
		if !node.Kind.IsTerminal() && !node.Orphan {
			g.warnf("node %s has no outgoing edge and is not a terminal kind", node.ID)
		}
		return
	}
	if node.Kind.IsTerminal() {
		g.warnf("node %s: terminal kind %s has outgoing edges; dropped", node.ID, node.Kind)
		return
	}

	byField := make(map[string]string, len(out))
	for _, e := range out {
		field, ok := transitionField(e.SourceHandle)
		if !ok {
			g.warnf("edge %s uses handle %q with no transition field; dropped", e.ID, e.SourceHandle)
			continue
		}
		if _, allowed := transitionHandle(node.Kind, field); !allowed {
			g.warnf("edge %s: transition %q is not valid for kind %s; dropped", e.ID, field, node.Kind)
			continue
		}
		if prev, dup := byField[field]; dup {
			g.warnf("node %s: multiple %q transitions (%s kept, %s dropped)", node.ID, field, prev, e.Target)
			continue
		}
		byField[field] = e.Target
	}

	for _, field := range []string{"next", "onError", "onTrue", "onFalse"} {
		if target, ok := byField[field]; ok {
			g.writeLine(indent, "%s: %s,", field, quoteString(target))
		}
	}
}

func (g *generator) stringField(indent int, key, val string) {
	if val == "" {
		return
	}
	g.writeLine(indent, "%s: %s,", key, quoteString(val))
}

func (g *generator) intField(indent int, key string, val int) {
	if val == 0 {
		return
	}
	g.writeLine(indent, "%s: %s,", key, strconv.Itoa(val))
}

func (g *generator) floatField(indent int, key string, val float64) {
	if val == 0 {
		return
	}
	g.writeLine(indent, "%s: %s,", key, strconv.FormatFloat(val, 'g', -1, 64))
}

func (g *generator) stringListField(indent int, key string, vals []string) {
	if len(vals) == 0 {
		return
	}
	quoted := make([]string, len(vals))
	for i, v := range vals {
		quoted[i] = quoteString(v)
	}
	g.writeLine(indent, "%s: [%s],", key, strings.Join(quoted, ", "))
}

func (g *generator) stringMapField(indent int, key string, m map[string]string) {
	if len(m) == 0 {
		return
	}
	g.writeLine(indent, "%s: {", key)
	for _, k := range sortedStringKeys(m) {
		g.writeLine(indent+1, "%s: %s,", keyString(k), quoteString(m[k]))
	}
	g.writeLine(indent, "},")
}

// extraFields renders preserved unknown fields in sorted key order.
// Keys that collide with a declared field or transition name are
// dropped so the output never contains a duplicate field.
func (g *generator) extraFields(indent int, nodeID string, extra map[string]any, known ...string) {
	if len(extra) == 0 {
		return
	}
	knownSet := make(map[string]bool, len(known))
	for _, k := range known {
		knownSet[k] = true
	}

	for _, k := range sortedAnyKeys(extra) {
		if knownSet[k] || reservedNodeFields[k] {
			g.warnf("node %s: extra field %q collides with a declared field; dropped", nodeID, k)
			continue
		}
		g.writeAnyField(indent, k, extra[k])
	}
}

var reservedNodeFields = map[string]bool{
	"kind":    true,
	"label":   true,
	"orphan":  true,
	"next":    true,
	"onError": true,
	"onTrue":  true,
	"onFalse": true,
}

func (g *generator) writeAnyField(indent int, key string, v any) {
	if m, ok := v.(map[string]any); ok {
		g.writeMapField(indent, key, m)
		return
	}
	g.writeLine(indent, "%s: %s,", keyString(key), g.scalar(v))
}

func (g *generator) writeMapField(indent int, key string, m map[string]any) {
	if len(m) == 0 {
		g.writeLine(indent, "%s: {},", keyString(key))
		return
	}
	g.writeLine(indent, "%s: {", keyString(key))
	for _, k := range sortedAnyKeys(m) {
		g.writeAnyField(indent+1, k, m[k])
	}
	g.writeLine(indent, "},")
}

// scalar renders a value in inline form. Maps inside arrays render
// inline as well; block form is only used at field level.
func (g *generator) scalar(v any) string {
	switch t := v.(type) {
	case string:
		return quoteString(t)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return "null"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, g.scalar(item))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		parts := make([]string, 0, len(t))
		for _, k := range sortedAnyKeys(t) {
			parts = append(parts, fmt.Sprintf("%s: %s", keyString(k), g.scalar(t[k])))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		g.warnf("value of type %T rendered with default formatting", v)
		return fmt.Sprintf("%v", v)
	}
}

func quoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

func keyString(s string) string {
	if isIdent(s) {
		return s
	}
	return quoteString(s)
}

// bareSafe reports whether a value can render as a bare identifier
// without lexing back as a boolean or null literal.
func bareSafe(s string) bool {
	return isIdent(s) && s != "true" && s != "false" && s != "null"
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	if !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return true
}

func sortedAnyKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedStringKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
