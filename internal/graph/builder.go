package graph

import (
	"fmt"
)

// WorkflowBuilder provides a fluent API for constructing workflows.
// It accumulates errors during building and reports them all at Build()
// time, so call chains stay uncluttered.
type WorkflowBuilder struct {
	workflow *Workflow
	errors   []error
}

// NewWorkflow creates a new WorkflowBuilder for the given workflow ID.
func NewWorkflow(id string) *WorkflowBuilder {
	wb := &WorkflowBuilder{
		workflow: New(id),
	}
	if id == "" {
		wb.errors = append(wb.errors, fmt.Errorf("workflow must have an ID"))
	}
	return wb
}

// WithName sets the display name for the workflow.
func (wb *WorkflowBuilder) WithName(name string) *WorkflowBuilder {
	wb.workflow.Name = name
	return wb
}

// WithDescription sets the description for the workflow.
func (wb *WorkflowBuilder) WithDescription(desc string) *WorkflowBuilder {
	wb.workflow.Description = desc
	return wb
}

// WithContext sets one key of the initial shared context.
func (wb *WorkflowBuilder) WithContext(key string, value any) *WorkflowBuilder {
	if wb.workflow.Context == nil {
		wb.workflow.Context = make(map[string]any)
	}
	wb.workflow.Context[key] = value
	return wb
}

// WithReference appends a named external reference to the header block.
func (wb *WorkflowBuilder) WithReference(name, path string) *WorkflowBuilder {
	if name == "" || path == "" {
		wb.errors = append(wb.errors, fmt.Errorf("reference must have a name and a path"))
		return wb
	}
	if _, exists := wb.workflow.GetReference(name); exists {
		wb.errors = append(wb.errors, fmt.Errorf("reference %q already declared", name))
		return wb
	}
	wb.workflow.References = append(wb.workflow.References, Reference{Name: name, Path: path})
	return wb
}

// WithEnv names the execution environment reference.
func (wb *WorkflowBuilder) WithEnv(name string) *WorkflowBuilder {
	wb.workflow.Env = name
	return wb
}

// AddNode adds a node to the workflow.
// If a node with the same ID already exists, an error is accumulated.
func (wb *WorkflowBuilder) AddNode(node *NodeRecord) *WorkflowBuilder {
	if node == nil {
		wb.errors = append(wb.errors, fmt.Errorf("cannot add nil node"))
		return wb
	}
	if node.ID == "" {
		wb.errors = append(wb.errors, fmt.Errorf("node must have an ID"))
		return wb
	}
	if !node.Kind.IsValid() {
		wb.errors = append(wb.errors, fmt.Errorf("node %q has unknown kind %q", node.ID, node.Kind))
		return wb
	}
	if _, exists := wb.workflow.Nodes[node.ID]; exists {
		wb.errors = append(wb.errors, fmt.Errorf("node with ID %q already exists", node.ID))
		return wb
	}
	if node.Config == nil {
		cfg, err := NewConfig(node.Kind)
		if err != nil {
			wb.errors = append(wb.errors, err)
			return wb
		}
		node.Config = cfg
	} else if node.Config.Kind() != node.Kind {
		wb.errors = append(wb.errors,
			fmt.Errorf("node %q has kind %s but config kind %s", node.ID, node.Kind, node.Config.Kind()))
		return wb
	}
	wb.workflow.Nodes[node.ID] = node
	return wb
}

// AddHTTPNode is a helper that creates and adds an HTTP request node.
func (wb *WorkflowBuilder) AddHTTPNode(id, method, url string) *WorkflowBuilder {
	return wb.AddNode(&NodeRecord{
		ID:   id,
		Kind: KindHTTP,
		Config: &HTTPConfig{
			URL:    url,
			Method: method,
		},
	})
}

// AddCommandNode is a helper that creates and adds a shell command node.
func (wb *WorkflowBuilder) AddCommandNode(id, command string, args ...string) *WorkflowBuilder {
	return wb.AddNode(&NodeRecord{
		ID:   id,
		Kind: KindCommand,
		Config: &CommandConfig{
			Command: command,
			Args:    args,
		},
	})
}

// AddAgentNode is a helper that creates and adds an agent node.
func (wb *WorkflowBuilder) AddAgentNode(id, role, prompt string) *WorkflowBuilder {
	return wb.AddNode(&NodeRecord{
		ID:   id,
		Kind: KindAgent,
		Config: &AgentConfig{
			Role:   role,
			Prompt: prompt,
		},
	})
}

// AddEvalNode is a helper that creates and adds an eval node.
func (wb *WorkflowBuilder) AddEvalNode(id, expression string) *WorkflowBuilder {
	return wb.AddNode(&NodeRecord{
		ID:   id,
		Kind: KindEval,
		Config: &EvalConfig{
			Expression: expression,
		},
	})
}

// AddEndNode is a helper that creates and adds a terminal node.
func (wb *WorkflowBuilder) AddEndNode(id string) *WorkflowBuilder {
	return wb.AddNode(&NodeRecord{
		ID:     id,
		Kind:   KindEnd,
		Config: &EndConfig{},
	})
}

// Connect adds an edge over the default handle between two nodes.
func (wb *WorkflowBuilder) Connect(source, target string) *WorkflowBuilder {
	return wb.ConnectHandle(source, HandleDefault, target)
}

// ConnectHandle adds an edge over a named source handle between two nodes.
func (wb *WorkflowBuilder) ConnectHandle(source, handle, target string) *WorkflowBuilder {
	if wb.workflow.HasEdge(source, handle, target) {
		wb.errors = append(wb.errors, fmt.Errorf("edge %s already exists", EdgeID(source, handle, target)))
		return wb
	}
	wb.workflow.Edges = append(wb.workflow.Edges, NewEdge(source, handle, target))
	return wb
}

// Start sets the node where execution begins.
func (wb *WorkflowBuilder) Start(nodeID string) *WorkflowBuilder {
	wb.workflow.Start = nodeID
	return wb
}

// Build finalizes the workflow and returns it along with any errors
// accumulated during building.
func (wb *WorkflowBuilder) Build() (*Workflow, error) {
	if len(wb.workflow.Nodes) == 0 {
		wb.errors = append(wb.errors, fmt.Errorf("workflow must have at least one node"))
	}

	for _, edge := range wb.workflow.Edges {
		src, srcOK := wb.workflow.Nodes[edge.Source]
		if !srcOK {
			wb.errors = append(wb.errors, fmt.Errorf("edge references non-existent source node %q", edge.Source))
		}
		if _, ok := wb.workflow.Nodes[edge.Target]; !ok {
			wb.errors = append(wb.errors, fmt.Errorf("edge references non-existent target node %q", edge.Target))
		}
		if srcOK && edge.Source == edge.Target && !src.Kind.AllowsSelfLoop() {
			wb.errors = append(wb.errors,
				fmt.Errorf("node %q of kind %s may not target itself", edge.Source, src.Kind))
		}
	}

	if wb.workflow.Start != "" {
		if _, ok := wb.workflow.Nodes[wb.workflow.Start]; !ok {
			wb.errors = append(wb.errors, fmt.Errorf("start references non-existent node %q", wb.workflow.Start))
		}
	}

	if wb.workflow.Env != "" {
		if _, ok := wb.workflow.GetReference(wb.workflow.Env); !ok {
			wb.errors = append(wb.errors, fmt.Errorf("env references undeclared reference %q", wb.workflow.Env))
		}
	}

	if len(wb.errors) > 0 {
		return nil, fmt.Errorf("workflow build failed with %d error(s): %v", len(wb.errors), wb.errors)
	}

	return wb.workflow, nil
}
