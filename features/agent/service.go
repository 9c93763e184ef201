package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// maxToolRounds bounds how many generate/execute cycles one user turn may
// take before the service gives up.
const maxToolRounds = 5

const DefaultSystemPrompt = `You are an office assistant for the company intranet.
Answer questions about internal policies using the knowledge_base tool, and use
web_search for anything about the outside world. Use todays_date whenever the
current date matters. When asked to produce a memo or letter, write the full text
and pass it to create_document; do not write the date, the tool adds it. Answer
concisely and only from information you actually retrieved.`

type Service struct {
	model       ChatModel
	registry    *Registry
	system      string
	toolTimeout time.Duration
}

func NewService(model ChatModel, registry *Registry, system string, toolTimeout time.Duration) *Service {
	if system == "" {
		system = DefaultSystemPrompt
	}
	if toolTimeout <= 0 {
		toolTimeout = 30 * time.Second
	}
	return &Service{model: model, registry: registry, system: system, toolTimeout: toolTimeout}
}

// Respond drives one user turn to completion: the model either answers or
// requests tool calls, whose results are appended and fed back until it
// produces text.
func (s *Service) Respond(ctx context.Context, history []Message) (string, error) {
	if len(history) == 0 || history[len(history)-1].Role != RoleUser {
		return "", fmt.Errorf("conversation must end with a user message")
	}

	msgs := make([]Message, len(history))
	copy(msgs, history)

	for round := 0; round < maxToolRounds; round++ {
		reply, err := s.model.Generate(ctx, s.system, msgs, s.registry.Specs())
		if err != nil {
			return "", fmt.Errorf("generate: %w", err)
		}

		if len(reply.Calls) == 0 {
			return reply.Text, nil
		}

		msgs = append(msgs, Message{Role: RoleModel, Text: reply.Text, Calls: reply.Calls})

		results := make([]ToolResult, 0, len(reply.Calls))
		for _, call := range reply.Calls {
			slog.InfoContext(ctx, "dispatching tool call", "tool", call.Name, "round", round)
			results = append(results, s.registry.Dispatch(ctx, call, s.toolTimeout))
		}
		msgs = append(msgs, Message{Role: RoleTool, Results: results})
	}

	return "", fmt.Errorf("no final answer after %d tool rounds", maxToolRounds)
}
