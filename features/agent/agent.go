// Package agent routes chat turns through an LLM that can call local
// capabilities: knowledge base retrieval, web search, the current date and
// document generation.
package agent

import "context"

const (
	RoleUser  = "user"
	RoleModel = "model"
	RoleTool  = "tool"
)

// Message is one turn of a conversation. Model messages may carry tool
// calls, tool messages carry the results being fed back.
type Message struct {
	Role    string
	Text    string
	Calls   []ToolCall
	Results []ToolResult
}

// ToolCall is a capability invocation requested by the model.
type ToolCall struct {
	Name string
	Args map[string]interface{}
}

// ToolResult is always text. Capability failures are reported here as
// text too, so the model can recover instead of the turn aborting.
type ToolResult struct {
	Name    string
	Content string
}

// Reply is a single generation step: either a final text answer, or one
// or more tool calls to execute before generating again.
type Reply struct {
	Text  string
	Calls []ToolCall
}

// ParamSpec describes one tool parameter in a provider-neutral way.
type ParamSpec struct {
	Type        string // string, integer, number, boolean
	Description string
}

type ToolSpec struct {
	Name        string
	Description string
	Params      map[string]ParamSpec
	Required    []string
}

// ChatModel is the LLM behind the router. The service drives the loop;
// the model only decides, per step, whether to answer or call tools.
type ChatModel interface {
	Generate(ctx context.Context, system string, history []Message, tools []ToolSpec) (Reply, error)
}
