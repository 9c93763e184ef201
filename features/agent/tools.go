package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultSearchURL = "https://api.duckduckgo.com"

// Retriever is the knowledge base behind the knowledge_base tool.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]string, error)
}

// DocumentWriter backs the create_document tool.
type DocumentWriter interface {
	Create(content string) (string, error)
}

func stringArg(args map[string]interface{}, name string) (string, error) {
	v, ok := args[name].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("missing required argument %q", name)
	}
	return v, nil
}

func KnowledgeBaseTool(r Retriever, topK int) Capability {
	return Capability{
		Spec: ToolSpec{
			Name:        "knowledge_base",
			Description: "Search the company's ingested documents for internal policies, guides and procedures. Use this for any question about the company itself.",
			Params: map[string]ParamSpec{
				"query": {Type: "string", Description: "What to look up in the documents"},
			},
			Required: []string{"query"},
		},
		Invoke: func(ctx context.Context, args map[string]interface{}) (string, error) {
			query, err := stringArg(args, "query")
			if err != nil {
				return "", err
			}
			texts, err := r.Retrieve(ctx, query, topK)
			if err != nil {
				return "", err
			}
			if len(texts) == 0 {
				return "No relevant information found in the knowledge base.", nil
			}
			return strings.Join(texts, "\n\n---\n\n"), nil
		},
	}
}

type duckResponse struct {
	AbstractText  string `json:"AbstractText"`
	AbstractURL   string `json:"AbstractURL"`
	Heading       string `json:"Heading"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

// WebSearchTool queries the DuckDuckGo instant answer API. baseURL is
// overridable for tests.
func WebSearchTool(client *http.Client, baseURL string) Capability {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultSearchURL
	}
	return Capability{
		Spec: ToolSpec{
			Name:        "web_search",
			Description: "Search the internet for current events, news or general knowledge outside the company.",
			Params: map[string]ParamSpec{
				"query": {Type: "string", Description: "The search query"},
			},
			Required: []string{"query"},
		},
		Invoke: func(ctx context.Context, args map[string]interface{}) (string, error) {
			query, err := stringArg(args, "query")
			if err != nil {
				return "", err
			}

			u := fmt.Sprintf("%s/?q=%s&format=json&no_html=1", baseURL, url.QueryEscape(query))
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
			if err != nil {
				return "", err
			}
			resp, err := client.Do(req)
			if err != nil {
				return "", fmt.Errorf("search request failed: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				raw, _ := io.ReadAll(resp.Body)
				return "", fmt.Errorf("search error (status %d): %s", resp.StatusCode, string(raw))
			}

			var parsed duckResponse
			if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
				return "", fmt.Errorf("decode search response: %w", err)
			}

			var parts []string
			if parsed.AbstractText != "" {
				parts = append(parts, parsed.AbstractText)
			}
			for i, topic := range parsed.RelatedTopics {
				if i >= 3 {
					break
				}
				if topic.Text != "" {
					parts = append(parts, topic.Text)
				}
			}
			if len(parts) == 0 {
				return "No results found.", nil
			}
			return strings.Join(parts, "\n\n"), nil
		},
	}
}

// TodaysDateTool reports the real current date so the model never guesses
// it from training data. now is injectable for tests.
func TodaysDateTool(now func() time.Time) Capability {
	if now == nil {
		now = time.Now
	}
	return Capability{
		Spec: ToolSpec{
			Name:        "todays_date",
			Description: "Returns the actual current date. Always use this when 'today' or the current date matters.",
		},
		Invoke: func(ctx context.Context, args map[string]interface{}) (string, error) {
			return now().Format("January 02, 2006"), nil
		},
	}
}

func CreateDocumentTool(w DocumentWriter) Capability {
	return Capability{
		Spec: ToolSpec{
			Name:        "create_document",
			Description: "Create a formatted Word document from plain text. Pass the complete document text, including any To:/From:/Subject: header lines. Do not write a Date line; the tool stamps the current date itself.",
			Params: map[string]ParamSpec{
				"content": {Type: "string", Description: "The full text of the document"},
			},
			Required: []string{"content"},
		},
		Invoke: func(ctx context.Context, args map[string]interface{}) (string, error) {
			content, err := stringArg(args, "content")
			if err != nil {
				return "", err
			}
			path, err := w.Create(content)
			if err != nil {
				return "", err
			}
			return "Successfully created document: " + path, nil
		},
	}
}
