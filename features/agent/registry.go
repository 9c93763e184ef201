package agent

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"
)

// Capability is a tool the model may call: its spec as advertised to the
// LLM, plus the function that executes it.
type Capability struct {
	Spec   ToolSpec
	Invoke func(ctx context.Context, args map[string]interface{}) (string, error)
}

var toolNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Registry holds the registered capabilities in registration order, which
// is the order they are advertised to the model.
type Registry struct {
	order []string
	caps  map[string]Capability
}

func NewRegistry() *Registry {
	return &Registry{caps: make(map[string]Capability)}
}

func (r *Registry) Register(c Capability) error {
	if !toolNameRe.MatchString(c.Spec.Name) {
		return fmt.Errorf("invalid tool name %q", c.Spec.Name)
	}
	if c.Invoke == nil {
		return fmt.Errorf("tool %s has no invoke function", c.Spec.Name)
	}
	if _, exists := r.caps[c.Spec.Name]; exists {
		return fmt.Errorf("tool %s already registered", c.Spec.Name)
	}
	r.caps[c.Spec.Name] = c
	r.order = append(r.order, c.Spec.Name)
	return nil
}

func (r *Registry) Specs() []ToolSpec {
	specs := make([]ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.caps[name].Spec)
	}
	return specs
}

// Dispatch executes one tool call under its own timeout. It never returns
// an error: unknown tools and failures become text results, leaving the
// model free to adjust course.
func (r *Registry) Dispatch(ctx context.Context, call ToolCall, timeout time.Duration) ToolResult {
	c, ok := r.caps[call.Name]
	if !ok {
		slog.WarnContext(ctx, "unknown tool requested", "tool", call.Name)
		return ToolResult{Name: call.Name, Content: fmt.Sprintf("Error: unknown tool %q", call.Name)}
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	content, err := c.Invoke(callCtx, call.Args)
	if err != nil {
		slog.ErrorContext(ctx, "tool execution failed", "tool", call.Name, "error", err, "duration", time.Since(started))
		return ToolResult{Name: call.Name, Content: "Error: " + err.Error()}
	}

	slog.InfoContext(ctx, "tool execution completed", "tool", call.Name, "duration", time.Since(started))
	return ToolResult{Name: call.Name, Content: content}
}
