package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"deskmate/features/agent"
)

// ChatModel generates conversation turns with function calling enabled.
// It satisfies agent.ChatModel.
type ChatModel struct {
	client *genai.Client
	model  string
}

func NewChatModel(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*ChatModel, error) {
	opts = append(opts, option.WithAPIKey(apiKey))
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &ChatModel{client: client, model: model}, nil
}

func (c *ChatModel) Close() error {
	return c.client.Close()
}

func (c *ChatModel) Generate(ctx context.Context, system string, history []agent.Message, tools []agent.ToolSpec) (agent.Reply, error) {
	if len(history) == 0 {
		return agent.Reply{}, fmt.Errorf("empty conversation")
	}

	model := c.client.GenerativeModel(c.model)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if len(tools) > 0 {
		model.Tools = []*genai.Tool{{FunctionDeclarations: declarations(tools)}}
	}

	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		contents = append(contents, toContent(m))
	}

	session := model.StartChat()
	session.History = contents[:len(contents)-1]

	last := contents[len(contents)-1]
	resp, err := session.SendMessage(ctx, last.Parts...)
	if err != nil {
		return agent.Reply{}, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return agent.Reply{}, fmt.Errorf("no candidates in model response")
	}

	var reply agent.Reply
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			reply.Text += string(p)
		case genai.FunctionCall:
			reply.Calls = append(reply.Calls, agent.ToolCall{Name: p.Name, Args: p.Args})
		}
	}
	return reply, nil
}

func toContent(m agent.Message) *genai.Content {
	switch m.Role {
	case agent.RoleModel:
		parts := []genai.Part{}
		if m.Text != "" {
			parts = append(parts, genai.Text(m.Text))
		}
		for _, call := range m.Calls {
			parts = append(parts, genai.FunctionCall{Name: call.Name, Args: call.Args})
		}
		return &genai.Content{Role: "model", Parts: parts}
	case agent.RoleTool:
		parts := make([]genai.Part, 0, len(m.Results))
		for _, r := range m.Results {
			parts = append(parts, genai.FunctionResponse{
				Name:     r.Name,
				Response: map[string]interface{}{"content": r.Content},
			})
		}
		// Function responses ride in a user turn on the wire.
		return &genai.Content{Role: "user", Parts: parts}
	default:
		return &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(m.Text)}}
	}
}

func declarations(tools []agent.ToolSpec) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decl := &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
		}
		if len(t.Params) > 0 {
			props := make(map[string]*genai.Schema, len(t.Params))
			for name, p := range t.Params {
				props[name] = &genai.Schema{
					Type:        schemaType(p.Type),
					Description: p.Description,
				}
			}
			decl.Parameters = &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   t.Required,
			}
		}
		decls = append(decls, decl)
	}
	return decls
}

func schemaType(t string) genai.Type {
	switch t {
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}
