package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"deskmate/features/agent"
	"deskmate/internal/adapter/gemini"
)

func TestChatModel_Generate_Text(t *testing.T) {
	ts := mockGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]interface{}{{
			"candidates": []map[string]interface{}{
				{
					"content": map[string]interface{}{
						"role":  "model",
						"parts": []map[string]interface{}{{"text": "The office opens at 9am."}},
					},
				},
			},
		}})
	})

	model, err := gemini.NewChatModel(context.Background(), "test-key", "gemini-2.0-flash", option.WithEndpoint(ts.URL))
	require.NoError(t, err)

	reply, err := model.Generate(context.Background(), "You are a helpful assistant.",
		[]agent.Message{{Role: agent.RoleUser, Text: "When does the office open?"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "The office opens at 9am.", reply.Text)
	assert.Empty(t, reply.Calls)
}

func TestChatModel_Generate_ToolCall(t *testing.T) {
	ts := mockGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]interface{}{{
			"candidates": []map[string]interface{}{
				{
					"content": map[string]interface{}{
						"role": "model",
						"parts": []map[string]interface{}{
							{"functionCall": map[string]interface{}{
								"name": "knowledge_base",
								"args": map[string]interface{}{"query": "vacation policy"},
							}},
						},
					},
				},
			},
		}})
	})

	model, err := gemini.NewChatModel(context.Background(), "test-key", "gemini-2.0-flash", option.WithEndpoint(ts.URL))
	require.NoError(t, err)

	tools := []agent.ToolSpec{{
		Name:        "knowledge_base",
		Description: "Search ingested documents",
		Params:      map[string]agent.ParamSpec{"query": {Type: "string", Description: "search query"}},
		Required:    []string{"query"},
	}}

	reply, err := model.Generate(context.Background(), "",
		[]agent.Message{{Role: agent.RoleUser, Text: "How many vacation days do I get?"}}, tools)
	require.NoError(t, err)
	assert.Empty(t, reply.Text)
	require.Len(t, reply.Calls, 1)
	assert.Equal(t, "knowledge_base", reply.Calls[0].Name)
	assert.Equal(t, "vacation policy", reply.Calls[0].Args["query"])
}

func TestChatModel_Generate_ToolResultRoundTrip(t *testing.T) {
	var gotBody map[string]interface{}
	ts := mockGemini(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]interface{}{{
			"candidates": []map[string]interface{}{
				{
					"content": map[string]interface{}{
						"role":  "model",
						"parts": []map[string]interface{}{{"text": "You get 25 vacation days."}},
					},
				},
			},
		}})
	})

	model, err := gemini.NewChatModel(context.Background(), "test-key", "gemini-2.0-flash", option.WithEndpoint(ts.URL))
	require.NoError(t, err)

	history := []agent.Message{
		{Role: agent.RoleUser, Text: "How many vacation days do I get?"},
		{Role: agent.RoleModel, Calls: []agent.ToolCall{{Name: "knowledge_base", Args: map[string]interface{}{"query": "vacation policy"}}}},
		{Role: agent.RoleTool, Results: []agent.ToolResult{{Name: "knowledge_base", Content: "Employees get 25 vacation days per year."}}},
	}

	reply, err := model.Generate(context.Background(), "", history, nil)
	require.NoError(t, err)
	assert.Equal(t, "You get 25 vacation days.", reply.Text)

	// The prior turns must be sent as history, the tool result as the
	// final message.
	contents, ok := gotBody["contents"].([]interface{})
	require.True(t, ok)
	assert.Len(t, contents, 3)
}

func TestChatModel_Generate_EmptyHistory(t *testing.T) {
	model, err := gemini.NewChatModel(context.Background(), "test-key", "gemini-2.0-flash")
	require.NoError(t, err)

	_, err = model.Generate(context.Background(), "", nil, nil)
	assert.Error(t, err)
}
