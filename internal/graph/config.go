package graph

import (
	"github.com/loomworks/loom/internal/types"
)

// NodeConfig is the tagged-union value carried by every NodeRecord.
// The concrete type is fully determined by the node kind; consumers
// switch over the closed kind set rather than reflecting on the value.
//
// Every config keeps an Extra map holding fields it does not recognize.
// The parser fills it so that forward-compatible source survives a
// parse/generate round trip; the validator surfaces the keys as warnings.
type NodeConfig interface {
	// Kind returns the tag this config belongs to.
	Kind() NodeKind

	// Clone returns a deep copy of the config.
	Clone() NodeConfig
}

// NewConfig returns a zero config value for the given kind.
func NewConfig(kind NodeKind) (NodeConfig, error) {
	switch kind {
	case KindAgent:
		return &AgentConfig{}, nil
	case KindCommand:
		return &CommandConfig{}, nil
	case KindSlashCommand:
		return &SlashCommandConfig{}, nil
	case KindEval:
		return &EvalConfig{}, nil
	case KindHTTP:
		return &HTTPConfig{}, nil
	case KindLLM:
		return &LLMConfig{}, nil
	case KindDynamicAgent:
		return &DynamicAgentConfig{}, nil
	case KindDynamicCommand:
		return &DynamicCommandConfig{}, nil
	case KindProjectUpdate:
		return &ProjectUpdateConfig{}, nil
	case KindCheckout:
		return &CheckoutConfig{}, nil
	case KindEnd:
		return &EndConfig{}, nil
	default:
		return nil, types.NewError(types.REF_CONFIG_KIND, "unknown node kind "+string(kind))
	}
}

// AgentConfig configures an agent node.
type AgentConfig struct {
	Role   string         `json:"role,omitempty"`
	Prompt string         `json:"prompt"`
	Model  string         `json:"model,omitempty"`
	Tools  []string       `json:"tools,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

func (c *AgentConfig) Kind() NodeKind { return KindAgent }

func (c *AgentConfig) Clone() NodeConfig {
	out := *c
	out.Tools = cloneStrings(c.Tools)
	out.Extra = cloneAnyMap(c.Extra)
	return &out
}

// CommandConfig configures a shell command node.
type CommandConfig struct {
	Command        string            `json:"command"`
	Args           []string          `json:"args,omitempty"`
	Dir            string            `json:"dir,omitempty"`
	Env            map[string]string `json:"env,omitempty"`
	TimeoutSeconds int               `json:"timeout_seconds,omitempty"`
	Extra          map[string]any    `json:"extra,omitempty"`
}

func (c *CommandConfig) Kind() NodeKind { return KindCommand }

func (c *CommandConfig) Clone() NodeConfig {
	out := *c
	out.Args = cloneStrings(c.Args)
	out.Env = cloneStringMap(c.Env)
	out.Extra = cloneAnyMap(c.Extra)
	return &out
}

// SlashCommandConfig configures a slash-command node.
type SlashCommandConfig struct {
	Command string         `json:"command"`
	Args    string         `json:"args,omitempty"`
	Extra   map[string]any `json:"extra,omitempty"`
}

func (c *SlashCommandConfig) Kind() NodeKind { return KindSlashCommand }

func (c *SlashCommandConfig) Clone() NodeConfig {
	out := *c
	out.Extra = cloneAnyMap(c.Extra)
	return &out
}

// EvalConfig configures an eval node. The expression is opaque to the
// editor; only the runtime interprets it.
type EvalConfig struct {
	Expression string         `json:"expression"`
	Extra      map[string]any `json:"extra,omitempty"`
}

func (c *EvalConfig) Kind() NodeKind { return KindEval }

func (c *EvalConfig) Clone() NodeConfig {
	out := *c
	out.Extra = cloneAnyMap(c.Extra)
	return &out
}

// HTTPConfig configures an HTTP request node.
type HTTPConfig struct {
	URL            string            `json:"url"`
	Method         string            `json:"method"`
	Headers        map[string]string `json:"headers,omitempty"`
	Body           string            `json:"body,omitempty"`
	TimeoutSeconds int               `json:"timeout_seconds,omitempty"`
	Extra          map[string]any    `json:"extra,omitempty"`
}

func (c *HTTPConfig) Kind() NodeKind { return KindHTTP }

func (c *HTTPConfig) Clone() NodeConfig {
	out := *c
	out.Headers = cloneStringMap(c.Headers)
	out.Extra = cloneAnyMap(c.Extra)
	return &out
}

// LLMConfig configures a single-prompt model call node.
type LLMConfig struct {
	Provider    string         `json:"provider,omitempty"`
	Model       string         `json:"model,omitempty"`
	Prompt      string         `json:"prompt"`
	Temperature float64        `json:"temperature,omitempty"`
	MaxTokens   int            `json:"max_tokens,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

func (c *LLMConfig) Kind() NodeKind { return KindLLM }

func (c *LLMConfig) Clone() NodeConfig {
	out := *c
	out.Extra = cloneAnyMap(c.Extra)
	return &out
}

// DynamicAgentConfig configures an agent whose spec is produced from the
// shared context at run time.
type DynamicAgentConfig struct {
	Source string         `json:"source"`
	Model  string         `json:"model,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

func (c *DynamicAgentConfig) Kind() NodeKind { return KindDynamicAgent }

func (c *DynamicAgentConfig) Clone() NodeConfig {
	out := *c
	out.Extra = cloneAnyMap(c.Extra)
	return &out
}

// DynamicCommandConfig configures a command whose line is produced from
// the shared context at run time.
type DynamicCommandConfig struct {
	Source string         `json:"source"`
	Extra  map[string]any `json:"extra,omitempty"`
}

func (c *DynamicCommandConfig) Kind() NodeKind { return KindDynamicCommand }

func (c *DynamicCommandConfig) Clone() NodeConfig {
	out := *c
	out.Extra = cloneAnyMap(c.Extra)
	return &out
}

// ProjectUpdateConfig configures an external-project status update node.
type ProjectUpdateConfig struct {
	Project string         `json:"project"`
	Status  string         `json:"status,omitempty"`
	Message string         `json:"message,omitempty"`
	Extra   map[string]any `json:"extra,omitempty"`
}

func (c *ProjectUpdateConfig) Kind() NodeKind { return KindProjectUpdate }

func (c *ProjectUpdateConfig) Clone() NodeConfig {
	out := *c
	out.Extra = cloneAnyMap(c.Extra)
	return &out
}

// CheckoutConfig configures a repository checkout node.
type CheckoutConfig struct {
	Repo  string         `json:"repo"`
	Ref   string         `json:"ref,omitempty"`
	Depth int            `json:"depth,omitempty"`
	Extra map[string]any `json:"extra,omitempty"`
}

func (c *CheckoutConfig) Kind() NodeKind { return KindCheckout }

func (c *CheckoutConfig) Clone() NodeConfig {
	out := *c
	out.Extra = cloneAnyMap(c.Extra)
	return &out
}

// EndConfig configures a terminal node.
type EndConfig struct {
	Message string         `json:"message,omitempty"`
	Extra   map[string]any `json:"extra,omitempty"`
}

func (c *EndConfig) Kind() NodeKind { return KindEnd }

func (c *EndConfig) Clone() NodeConfig {
	out := *c
	out.Extra = cloneAnyMap(c.Extra)
	return &out
}

// Compile-time checks that every config satisfies NodeConfig.
var (
	_ NodeConfig = (*AgentConfig)(nil)
	_ NodeConfig = (*CommandConfig)(nil)
	_ NodeConfig = (*SlashCommandConfig)(nil)
	_ NodeConfig = (*EvalConfig)(nil)
	_ NodeConfig = (*HTTPConfig)(nil)
	_ NodeConfig = (*LLMConfig)(nil)
	_ NodeConfig = (*DynamicAgentConfig)(nil)
	_ NodeConfig = (*DynamicCommandConfig)(nil)
	_ NodeConfig = (*ProjectUpdateConfig)(nil)
	_ NodeConfig = (*CheckoutConfig)(nil)
	_ NodeConfig = (*EndConfig)(nil)
)

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneAnyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue deep-copies the JSON-shaped values that appear in context
// maps and Extra fields. Scalars are returned as-is.
func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneAnyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
