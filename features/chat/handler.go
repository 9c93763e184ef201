// Package chat exposes the conversational endpoint.
package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"deskmate/features/agent"
	"deskmate/internal/middleware"
)

const maxMessageLen = 8000

type Responder interface {
	Respond(ctx context.Context, history []agent.Message) (string, error)
}

type Handler struct {
	responder Responder
}

func NewHandler(r Responder) *Handler {
	return &Handler{responder: r}
}

type turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type chatRequest struct {
	Message string `json:"message"`
	History []turn `json:"history"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// Chat handles POST /chat. History carries prior user/assistant turns;
// tool traffic is never exposed to the client and never accepted from it.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "invalid JSON body", http.StatusBadRequest)
		return
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "message is required", http.StatusBadRequest)
		return
	}
	if len(req.Message) > maxMessageLen {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "message too long", http.StatusBadRequest)
		return
	}

	history := make([]agent.Message, 0, len(req.History)+1)
	for _, t := range req.History {
		role := agent.RoleUser
		if t.Role == "assistant" || t.Role == agent.RoleModel {
			role = agent.RoleModel
		}
		history = append(history, agent.Message{Role: role, Text: t.Text})
	}
	history = append(history, agent.Message{Role: agent.RoleUser, Text: req.Message})

	reply, err := h.responder.Respond(r.Context(), history)
	if err != nil {
		slog.ErrorContext(r.Context(), "chat turn failed", "error", err)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "failed to generate a reply", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"data": chatResponse{Reply: reply}})
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	})
}
