// Package validate runs structural and semantic checks over a workflow
// graph, producing an ordered issue list instead of failing fast. Only
// error-severity issues make a workflow invalid; warnings surface
// things worth knowing (cycles, unknown fields, unreachable branches)
// that do not block execution.
package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/loomworks/loom/internal/graph"
)

// Severity classifies a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Machine codes for validation issues, grouped by the check that emits
// them. Codes are stable; messages are not.
const (
	WORKFLOW_NIL = "WORKFLOW_NIL"

	EDGE_SOURCE_MISSING = "EDGE_SOURCE_MISSING"
	EDGE_TARGET_MISSING = "EDGE_TARGET_MISSING"
	EDGE_SELF_LOOP      = "EDGE_SELF_LOOP"
	EDGE_FROM_END       = "EDGE_FROM_END"

	CONFIG_MISSING        = "CONFIG_MISSING"
	CONFIG_KIND_MISMATCH  = "CONFIG_KIND_MISMATCH"
	CONFIG_FIELD_REQUIRED = "CONFIG_FIELD_REQUIRED"
	CONFIG_FIELD_UNKNOWN  = "CONFIG_FIELD_UNKNOWN"

	START_NOT_SET  = "START_NOT_SET"
	START_UNKNOWN  = "START_UNKNOWN"
	NODE_ORPHANED  = "NODE_ORPHANED"
	EVAL_NO_BRANCH = "EVAL_NO_BRANCH"

	GRAPH_CYCLE            = "GRAPH_CYCLE"
	GRAPH_CYCLES_TRUNCATED = "GRAPH_CYCLES_TRUNCATED"
)

// Issue is a single validation finding.
type Issue struct {
	// Code is the machine-readable issue identifier
	Code string `json:"code"`
	// Severity is error or warning
	Severity Severity `json:"severity"`
	// Message is the human-readable description
	Message string `json:"message"`
	// NodeID is the related node, if any
	NodeID string `json:"node_id,omitempty"`
	// EdgeID is the related edge, if any
	EdgeID string `json:"edge_id,omitempty"`
	// Field is the related config field, if any
	Field string `json:"field,omitempty"`
}

func (i Issue) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", strings.ToUpper(string(i.Severity)), i.Code, i.Message)
	if i.NodeID != "" {
		fmt.Fprintf(&b, " (node: %s)", i.NodeID)
	}
	if i.EdgeID != "" {
		fmt.Fprintf(&b, " (edge: %s)", i.EdgeID)
	}
	return b.String()
}

// Report is the outcome of validating one workflow.
type Report struct {
	// Valid is false iff any issue has severity error.
	Valid bool `json:"valid"`
	// Issues lists all findings in check order.
	Issues []Issue `json:"issues"`
}

// Errors returns the error-severity issues.
func (r Report) Errors() []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			out = append(out, issue)
		}
	}
	return out
}

// Warnings returns the warning-severity issues.
func (r Report) Warnings() []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Severity == SeverityWarning {
			out = append(out, issue)
		}
	}
	return out
}

// Validate checks a workflow and returns the full report. Checks run in
// a fixed order: edge endpoints, per-node config rules, start and
// reachability, then cycle detection. Node-scoped checks visit nodes in
// sorted id order so reports are deterministic.
func Validate(w *graph.Workflow) Report {
	if w == nil {
		return Report{Valid: false, Issues: []Issue{{
			Code:     WORKFLOW_NIL,
			Severity: SeverityError,
			Message:  "workflow is nil",
		}}}
	}

	var issues []Issue
	issues = append(issues, checkEdges(w)...)
	issues = append(issues, checkConfigs(w)...)
	issues = append(issues, checkStart(w)...)
	issues = append(issues, checkCycles(w)...)

	valid := true
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			valid = false
			break
		}
	}
	return Report{Valid: valid, Issues: issues}
}

func checkEdges(w *graph.Workflow) []Issue {
	var issues []Issue
	for _, e := range w.Edges {
		src, srcOK := w.Nodes[e.Source]
		if !srcOK {
			issues = append(issues, Issue{
				Code:     EDGE_SOURCE_MISSING,
				Severity: SeverityError,
				Message:  fmt.Sprintf("edge references missing source node %q", e.Source),
				EdgeID:   e.ID,
			})
		}
		if _, ok := w.Nodes[e.Target]; !ok {
			issues = append(issues, Issue{
				Code:     EDGE_TARGET_MISSING,
				Severity: SeverityError,
				Message:  fmt.Sprintf("edge references missing target node %q", e.Target),
				EdgeID:   e.ID,
			})
		}
		if srcOK && e.Source == e.Target && !src.Kind.AllowsSelfLoop() {
			issues = append(issues, Issue{
				Code:     EDGE_SELF_LOOP,
				Severity: SeverityError,
				Message:  fmt.Sprintf("node of kind %s may not target itself", src.Kind),
				NodeID:   e.Source,
				EdgeID:   e.ID,
			})
		}
	}
	return issues
}

func checkConfigs(w *graph.Workflow) []Issue {
	var issues []Issue
	for _, id := range w.NodeIDs() {
		node := w.Nodes[id]

		if node.Config == nil {
			issues = append(issues, Issue{
				Code:     CONFIG_MISSING,
				Severity: SeverityError,
				Message:  fmt.Sprintf("node of kind %s has no config", node.Kind),
				NodeID:   id,
			})
			continue
		}
		if node.Config.Kind() != node.Kind {
			issues = append(issues, Issue{
				Code:     CONFIG_KIND_MISMATCH,
				Severity: SeverityError,
				Message:  fmt.Sprintf("config kind %s does not match node kind %s", node.Config.Kind(), node.Kind),
				NodeID:   id,
			})
			continue
		}

		issues = append(issues, checkRequiredFields(node)...)
		issues = append(issues, checkExtraFields(node)...)

		if node.Kind.IsTerminal() {
			for _, e := range w.OutgoingEdges(id) {
				issues = append(issues, Issue{
					Code:     EDGE_FROM_END,
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("terminal node has an outgoing edge to %q", e.Target),
					NodeID:   id,
					EdgeID:   e.ID,
				})
			}
		}
	}
	return issues
}

// httpMethods are the request methods the Http kind accepts.
var httpMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true,
	"DELETE": true, "HEAD": true, "OPTIONS": true,
}

// checkRequiredFields applies the kind-specific config rules. The
// switch is exhaustive over the closed kind set; a new kind must be
// handled here before it can validate.
func checkRequiredFields(node *graph.NodeRecord) []Issue {
	var issues []Issue
	missing := func(field string) {
		issues = append(issues, Issue{
			Code:     CONFIG_FIELD_REQUIRED,
			Severity: SeverityError,
			Message:  fmt.Sprintf("kind %s requires a non-empty %s", node.Kind, field),
			NodeID:   node.ID,
			Field:    field,
		})
	}

	switch c := node.Config.(type) {
	case *graph.AgentConfig:
		if c.Prompt == "" {
			missing("prompt")
		}
	case *graph.CommandConfig:
		if c.Command == "" {
			missing("command")
		}
	case *graph.SlashCommandConfig:
		if c.Command == "" {
			missing("command")
		}
	case *graph.EvalConfig:
		if c.Expression == "" {
			missing("expression")
		}
	case *graph.HTTPConfig:
		if c.URL == "" {
			missing("url")
		}
		if c.Method == "" {
			missing("method")
		} else if !httpMethods[c.Method] {
			issues = append(issues, Issue{
				Code:     CONFIG_FIELD_REQUIRED,
				Severity: SeverityError,
				Message:  fmt.Sprintf("unsupported http method %q", c.Method),
				NodeID:   node.ID,
				Field:    "method",
			})
		}
	case *graph.LLMConfig:
		if c.Prompt == "" {
			missing("prompt")
		}
	case *graph.DynamicAgentConfig:
		if c.Source == "" {
			missing("source")
		}
	case *graph.DynamicCommandConfig:
		if c.Source == "" {
			missing("source")
		}
	case *graph.ProjectUpdateConfig:
		if c.Project == "" {
			missing("project")
		}
	case *graph.CheckoutConfig:
		if c.Repo == "" {
			missing("repo")
		}
	case *graph.EndConfig:
		// no required fields
	}
	return issues
}

func checkExtraFields(node *graph.NodeRecord) []Issue {
	extra := configExtra(node.Config)
	if len(extra) == 0 {
		return nil
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	issues := make([]Issue, 0, len(keys))
	for _, k := range keys {
		issues = append(issues, Issue{
			Code:     CONFIG_FIELD_UNKNOWN,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("unknown field %q for kind %s", k, node.Kind),
			NodeID:   node.ID,
			Field:    k,
		})
	}
	return issues
}

func configExtra(cfg graph.NodeConfig) map[string]any {
	switch c := cfg.(type) {
	case *graph.AgentConfig:
		return c.Extra
	case *graph.CommandConfig:
		return c.Extra
	case *graph.SlashCommandConfig:
		return c.Extra
	case *graph.EvalConfig:
		return c.Extra
	case *graph.HTTPConfig:
		return c.Extra
	case *graph.LLMConfig:
		return c.Extra
	case *graph.DynamicAgentConfig:
		return c.Extra
	case *graph.DynamicCommandConfig:
		return c.Extra
	case *graph.ProjectUpdateConfig:
		return c.Extra
	case *graph.CheckoutConfig:
		return c.Extra
	case *graph.EndConfig:
		return c.Extra
	default:
		return nil
	}
}

func checkStart(w *graph.Workflow) []Issue {
	var issues []Issue

	if len(w.Nodes) > 0 && w.Start == "" {
		issues = append(issues, Issue{
			Code:     START_NOT_SET,
			Severity: SeverityError,
			Message:  "workflow has nodes but no start node",
		})
	}
	if w.Start != "" {
		if _, ok := w.Nodes[w.Start]; !ok {
			issues = append(issues, Issue{
				Code:     START_UNKNOWN,
				Severity: SeverityError,
				Message:  fmt.Sprintf("start references missing node %q", w.Start),
			})
		}
	}

	hasIncoming := make(map[string]bool, len(w.Nodes))
	for _, e := range w.Edges {
		hasIncoming[e.Target] = true
	}

	for _, id := range w.NodeIDs() {
		node := w.Nodes[id]
		if id != w.Start && !hasIncoming[id] && !node.Orphan {
			issues = append(issues, Issue{
				Code:     NODE_ORPHANED,
				Severity: SeverityError,
				Message:  "node has no incoming edge and is not marked orphan-tolerant",
				NodeID:   id,
			})
		}

		if node.Kind == graph.KindEval {
			var hasBranch bool
			for _, e := range w.OutgoingEdges(id) {
				if e.SourceHandle == graph.HandleTrue || e.SourceHandle == graph.HandleFalse {
					hasBranch = true
					break
				}
			}
			if !hasBranch {
				issues = append(issues, Issue{
					Code:     EVAL_NO_BRANCH,
					Severity: SeverityWarning,
					Message:  "eval node has neither an onTrue nor an onFalse transition",
					NodeID:   id,
				})
			}
		}
	}
	return issues
}

func checkCycles(w *graph.Workflow) []Issue {
	report := graph.FindWorkflowCycles(w)
	if !report.HasCycles() {
		return nil
	}

	issues := make([]Issue, 0, len(report.Cycles)+1)
	for _, cycle := range report.Cycles {
		issues = append(issues, Issue{
			Code:     GRAPH_CYCLE,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("cycle detected: %s", strings.Join(cycle, " -> ")),
			NodeID:   cycle[0],
		})
	}
	if report.Truncated {
		issues = append(issues, Issue{
			Code:     GRAPH_CYCLES_TRUNCATED,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("cycle enumeration stopped after %d cycles", len(report.Cycles)),
		})
	}
	return issues
}
