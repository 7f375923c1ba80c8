package graph

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Summary is a compact description of a workflow used by inspection
// commands and logs.
type Summary struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name,omitempty" yaml:"name,omitempty"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	NodeCount   int            `json:"node_count" yaml:"node_count"`
	EdgeCount   int            `json:"edge_count" yaml:"edge_count"`
	Kinds       map[string]int `json:"kinds" yaml:"kinds"`
	Start       string         `json:"start,omitempty" yaml:"start,omitempty"`
	EntryNodes  []string       `json:"entry_nodes,omitempty" yaml:"entry_nodes,omitempty"`
	ExitNodes   []string       `json:"exit_nodes,omitempty" yaml:"exit_nodes,omitempty"`
	Env         string         `json:"env,omitempty" yaml:"env,omitempty"`
	References  []Reference    `json:"references,omitempty" yaml:"references,omitempty"`
	HasCycles   bool           `json:"has_cycles" yaml:"has_cycles"`
}

// Summarize builds a Summary for the workflow.
func Summarize(w *Workflow) Summary {
	s := Summary{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		NodeCount:   len(w.Nodes),
		EdgeCount:   len(w.Edges),
		Kinds:       make(map[string]int),
		Start:       w.Start,
		EntryNodes:  w.EntryNodes(),
		ExitNodes:   w.ExitNodes(),
		Env:         w.Env,
		References:  w.References,
		HasCycles:   FindWorkflowCycles(w).HasCycles(),
	}
	for _, node := range w.Nodes {
		s.Kinds[node.Kind.String()]++
	}
	return s
}

// ToJSON serializes the summary as indented JSON.
func (s Summary) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal summary to JSON: %w", err)
	}
	return data, nil
}

// ToYAML serializes the summary as YAML.
func (s Summary) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal summary to YAML: %w", err)
	}
	return data, nil
}

// String returns a human-readable multi-line summary.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Workflow: %s", s.ID)
	if s.Name != "" {
		fmt.Fprintf(&b, " (%s)", s.Name)
	}
	fmt.Fprintf(&b, "\nNodes: %d  Edges: %d", s.NodeCount, s.EdgeCount)
	if len(s.Kinds) > 0 {
		kinds := make([]string, 0, len(s.Kinds))
		for kind := range s.Kinds {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		parts := make([]string, 0, len(kinds))
		for _, kind := range kinds {
			parts = append(parts, fmt.Sprintf("%s=%d", kind, s.Kinds[kind]))
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}
	if s.Start != "" {
		fmt.Fprintf(&b, "\nStart: %s", s.Start)
	}
	if len(s.EntryNodes) > 0 {
		fmt.Fprintf(&b, "\nEntries: %s", strings.Join(s.EntryNodes, ", "))
	}
	if len(s.ExitNodes) > 0 {
		fmt.Fprintf(&b, "\nExits: %s", strings.Join(s.ExitNodes, ", "))
	}
	if s.HasCycles {
		b.WriteString("\nContains cycles")
	}
	return b.String()
}
