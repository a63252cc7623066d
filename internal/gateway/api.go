// ABOUTME: HTTP API handlers for the chat and conversation endpoints
// ABOUTME: JSON request/response surface over Gateway.ProcessTurn and the store

package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charlabot/charla/internal/auth"
	"github.com/charlabot/charla/internal/dialog"
	"github.com/charlabot/charla/internal/store"
)

// ChatRequest is the JSON request body for POST /chat.
type ChatRequest struct {
	Message string `json:"message"`
	UserTag string `json:"user_tag,omitempty"`
}

// ConversationResponse is the JSON shape for conversation resources.
type ConversationResponse struct {
	ID            string `json:"id"`
	UserTag       string `json:"user_tag,omitempty"`
	Status        string `json:"status"`
	NeedsAgent    bool   `json:"needs_agent"`
	MessagesCount int    `json:"messages_count"`
	SalesCount    int    `json:"sales_count"`
	SupportCount  int    `json:"support_count"`
	GeneralCount  int    `json:"general_count"`
	LowConfCount  int    `json:"low_conf_count"`
	LastCategory  string `json:"last_category,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// MessageResponse is the JSON shape for message history entries.
type MessageResponse struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

// Handler returns the HTTP handler for the full API surface. The metrics and
// conversation status endpoints require a bearer token when auth is enabled.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", g.handleRoot)
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/chat", g.handleChat)
	mux.HandleFunc("/conversations", g.handleConversations)

	protect := auth.RequireOperator(g.verifier)
	action := protect(http.HandlerFunc(g.handleConversationAction))
	mux.Handle("/metrics", protect(http.HandlerFunc(g.handleMetrics)))

	mux.HandleFunc("/conversations/", func(w http.ResponseWriter, r *http.Request) {
		g.handleConversationSubpath(w, r, action)
	})

	return mux
}

// handleRoot handles GET / with a service banner.
func (g *Gateway) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		g.sendJSONError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	g.writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": "Charla API está corriendo.",
		"help":    dialog.HelpText,
	})
}

// handleHealth handles GET /health, checking that the database answers.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if _, err := g.store.GlobalMetrics(r.Context()); err != nil {
		g.logger.Error("health check failed", "error", err)
		g.writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "db": "down"})
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "db": "up"})
}

// handleChat handles POST /chat?conv_id= — the single turn entry point.
func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	req, err := parseChatRequest(r.Body)
	if err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	convID := r.URL.Query().Get("conv_id")
	result, err := g.ProcessTurn(r.Context(), convID, req.UserTag, req.Message)
	if errors.Is(err, store.ErrNotFound) {
		g.sendJSONError(w, http.StatusNotFound, "conversación no encontrada")
		return
	}
	if err != nil {
		g.logger.Error("failed to process turn", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	g.writeJSON(w, http.StatusOK, result)
}

// parseChatRequest parses and validates a ChatRequest from the given reader.
func parseChatRequest(r io.Reader) (*ChatRequest, error) {
	var req ChatRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, errors.New("invalid JSON body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, errors.New("message is required")
	}
	return &req, nil
}

// handleConversations handles POST /conversations?user_tag= and
// GET /conversations?limit=.
func (g *Gateway) handleConversations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		conv, err := g.store.CreateConversation(r.Context(), r.URL.Query().Get("user_tag"))
		if err != nil {
			g.logger.Error("failed to create conversation", "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		g.writeJSON(w, http.StatusCreated, conversationResponse(conv))

	case http.MethodGet:
		limit := 50
		if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
			parsed, err := strconv.Atoi(limitStr)
			if err != nil || parsed < 1 {
				g.sendJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = parsed
		}

		convs, err := g.store.ListConversations(r.Context(), limit)
		if err != nil {
			g.logger.Error("failed to list conversations", "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		response := make([]ConversationResponse, len(convs))
		for i, conv := range convs {
			response[i] = conversationResponse(conv)
		}
		g.writeJSON(w, http.StatusOK, response)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleConversationSubpath dispatches /conversations/{id}[/messages|/assign|/close|/needs_agent].
func (g *Gateway) handleConversationSubpath(w http.ResponseWriter, r *http.Request, action http.Handler) {
	id, rest, ok := splitConversationPath(r.URL.Path)
	if !ok {
		g.sendJSONError(w, http.StatusBadRequest, "invalid path")
		return
	}

	switch rest {
	case "":
		g.handleGetConversation(w, r, id)
	case "messages":
		g.handleMessages(w, r, id)
	case "assign", "close", "needs_agent":
		action.ServeHTTP(w, r)
	default:
		g.sendJSONError(w, http.StatusNotFound, "not found")
	}
}

// splitConversationPath extracts the conversation ID and trailing segment from
// /conversations/{id} or /conversations/{id}/{rest}.
func splitConversationPath(path string) (id, rest string, ok bool) {
	trimmed := strings.TrimPrefix(path, "/conversations/")
	if trimmed == path || trimmed == "" {
		return "", "", false
	}
	id, rest, _ = strings.Cut(trimmed, "/")
	if id == "" || strings.Contains(rest, "/") {
		return "", "", false
	}
	return id, rest, true
}

// handleGetConversation handles GET /conversations/{id}.
func (g *Gateway) handleGetConversation(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	conv, err := g.store.GetConversation(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		g.sendJSONError(w, http.StatusNotFound, "conversación no encontrada")
		return
	}
	if err != nil {
		g.logger.Error("failed to get conversation", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	g.writeJSON(w, http.StatusOK, conversationResponse(conv))
}

// handleMessages handles GET (history) and DELETE (reset) on
// /conversations/{id}/messages.
func (g *Gateway) handleMessages(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		if _, err := g.store.GetConversation(r.Context(), id); errors.Is(err, store.ErrNotFound) {
			g.sendJSONError(w, http.StatusNotFound, "conversación no encontrada")
			return
		} else if err != nil {
			g.logger.Error("failed to get conversation", "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		msgs, err := g.store.GetMessages(r.Context(), id)
		if err != nil {
			g.logger.Error("failed to get messages", "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		response := make([]MessageResponse, len(msgs))
		for i, m := range msgs {
			response[i] = MessageResponse{
				ID:        m.ID,
				Role:      m.Role,
				Text:      m.Text,
				CreatedAt: m.CreatedAt.Format(time.RFC3339),
			}
		}
		g.writeJSON(w, http.StatusOK, response)

	case http.MethodDelete:
		err := g.store.ResetConversation(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			g.sendJSONError(w, http.StatusNotFound, "conversación no encontrada")
			return
		}
		if err != nil {
			g.logger.Error("failed to reset conversation", "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		g.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "Conversación reiniciada"})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleConversationAction handles POST /conversations/{id}/{assign|close|needs_agent}.
func (g *Gateway) handleConversationAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id, action, ok := splitConversationPath(r.URL.Path)
	if !ok {
		g.sendJSONError(w, http.StatusBadRequest, "invalid path")
		return
	}

	var status string
	var needsAgent bool
	switch action {
	case "assign":
		status, needsAgent = store.StatusAssigned, false
	case "close":
		status, needsAgent = store.StatusClosed, false
	case "needs_agent":
		status, needsAgent = store.StatusNeedsAgent, true
	default:
		g.sendJSONError(w, http.StatusNotFound, "not found")
		return
	}

	conv, err := g.store.SetStatus(r.Context(), id, status, &needsAgent)
	if errors.Is(err, store.ErrNotFound) {
		g.sendJSONError(w, http.StatusNotFound, "conversación no encontrada")
		return
	}
	if err != nil {
		g.logger.Error("failed to set status", "error", err, "action", action)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	g.logger.Info("conversation status changed",
		"id", id, "status", status, "operator", auth.OperatorFromContext(r.Context()))
	g.writeJSON(w, http.StatusOK, conversationResponse(conv))
}

// handleMetrics handles GET /metrics with the service-wide aggregate.
func (g *Gateway) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	m, err := g.store.GlobalMetrics(r.Context())
	if err != nil {
		g.logger.Error("failed to aggregate metrics", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	g.writeJSON(w, http.StatusOK, m)
}

func conversationResponse(conv *store.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:            conv.ID,
		UserTag:       conv.UserTag,
		Status:        conv.Status,
		NeedsAgent:    conv.NeedsAgent,
		MessagesCount: conv.MessagesCount,
		SalesCount:    conv.SalesCount,
		SupportCount:  conv.SupportCount,
		GeneralCount:  conv.GeneralCount,
		LowConfCount:  conv.LowConfCount,
		LastCategory:  conv.LastCategory,
		CreatedAt:     conv.CreatedAt.Format(time.RFC3339),
	}
}

// writeJSON writes a JSON response with the given status code.
func (g *Gateway) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
