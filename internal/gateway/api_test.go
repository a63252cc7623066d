// ABOUTME: HTTP API tests over httptest with a real SQLite store
// ABOUTME: Covers the chat turn cycle, conversation CRUD, auth and metrics

package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlabot/charla/internal/auth"
	"github.com/charlabot/charla/internal/dialog"
	"github.com/charlabot/charla/internal/kb"
	"github.com/charlabot/charla/internal/retrieval"
	"github.com/charlabot/charla/internal/store"
)

func newTestGateway(t *testing.T, verifier auth.TokenVerifier) *Gateway {
	t.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	index := retrieval.NewIndex(kb.SemanticCorpus())
	router := dialog.NewRouter(index, dialog.DefaultConfig(), nil)
	return New(st, router, verifier)
}

func postChat(t *testing.T, handler http.Handler, convID, message string) (*TurnResult, *httptest.ResponseRecorder) {
	t.Helper()

	body, err := json.Marshal(ChatRequest{Message: message})
	require.NoError(t, err)

	url := "/chat"
	if convID != "" {
		url += "?conv_id=" + convID
	}
	req := httptest.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		return nil, rec
	}
	var result TurnResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	return &result, rec
}

func TestHandleRoot(t *testing.T) {
	handler := newTestGateway(t, nil).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.Contains(t, body["help"], "reiniciar")
}

func TestHandleHealth(t *testing.T) {
	handler := newTestGateway(t, nil).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"db":"up"`)
}

func TestHandleChat_CreatesConversation(t *testing.T) {
	handler := newTestGateway(t, nil).Handler()

	result, rec := postChat(t, handler, "", "hola")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, result)

	assert.NotEmpty(t, result.ConversationID)
	assert.Contains(t, result.Reply, "1) Ventas")
}

func TestHandleChat_TurnCyclePersistsAcrossRequests(t *testing.T) {
	handler := newTestGateway(t, nil).Handler()

	first, _ := postChat(t, handler, "", "2")
	require.NotNil(t, first)
	assert.Equal(t, "soporte", first.Category)
	assert.Contains(t, first.Reply, "soporte")

	// The category survives because the second request rehydrates state from
	// the store.
	second, _ := postChat(t, handler, first.ConversationID, "no puedo entrar a la pagina")
	require.NotNil(t, second)
	assert.Equal(t, first.ConversationID, second.ConversationID)
	assert.Equal(t, "soporte", second.Category)
	assert.Contains(t, second.Reply, "mensaje de error")
}

func TestHandleChat_SalesSlotsSurviveRehydration(t *testing.T) {
	handler := newTestGateway(t, nil).Handler()

	first, _ := postChat(t, handler, "", "1")
	require.NotNil(t, first)

	postChat(t, handler, first.ConversationID, "quiero el plan mensual")
	postChat(t, handler, first.ConversationID, "para 5 usuarios en colombia")

	// All slots are filled from history, so agreeing escalates to a human.
	last, _ := postChat(t, handler, first.ConversationID, "sí, por favor")
	require.NotNil(t, last)
	assert.True(t, last.NeedsAgent)
	assert.Contains(t, last.Reply, "asesor humano")
}

func TestHandleChat_UnknownConversation(t *testing.T) {
	handler := newTestGateway(t, nil).Handler()

	_, rec := postChat(t, handler, "nonexistent", "hola")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleChat_EmptyMessage(t *testing.T) {
	handler := newTestGateway(t, nil).Handler()

	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader([]byte(`{"message":"  "}`)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConversationLifecycle(t *testing.T) {
	handler := newTestGateway(t, nil).Handler()

	// Create
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/conversations?user_tag=cliente-7", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	var conv ConversationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	assert.Equal(t, "cliente-7", conv.UserTag)
	assert.Equal(t, store.StatusOpen, conv.Status)

	_, createdErr := time.Parse(time.RFC3339, conv.CreatedAt)
	assert.NoError(t, createdErr)

	// Chat twice into it
	postChat(t, handler, conv.ID, "3")
	postChat(t, handler, conv.ID, "cual es el horario de atencion")

	// History has two user and two bot messages
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/conversations/"+conv.ID+"/messages", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var msgs []MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	require.Len(t, msgs, 4)
	assert.Equal(t, store.RoleUser, msgs[0].Role)
	assert.Equal(t, store.RoleBot, msgs[1].Role)

	// Counters rolled up
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/conversations/"+conv.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	assert.Equal(t, 4, conv.MessagesCount)
	assert.Equal(t, "general", conv.LastCategory)

	// Reset wipes history and counters
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/conversations/"+conv.ID+"/messages", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/conversations/"+conv.ID, nil))
	conv = ConversationResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	assert.Equal(t, 0, conv.MessagesCount)
	assert.Empty(t, conv.LastCategory)
}

func TestListConversations(t *testing.T) {
	handler := newTestGateway(t, nil).Handler()

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
			fmt.Sprintf("/conversations?user_tag=c%d", i), nil))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/conversations?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var convs []ConversationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &convs))
	assert.Len(t, convs, 2)
}

func TestConversationActions_RequireToken(t *testing.T) {
	verifier := auth.NewJWTVerifier([]byte("secret"))
	handler := newTestGateway(t, verifier).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/conversations", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	var conv ConversationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))

	// Without a token the action is rejected
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/conversations/"+conv.ID+"/assign", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// With a token it succeeds
	token, err := verifier.Generate("operador-ana", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/conversations/"+conv.ID+"/assign", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	assert.Equal(t, store.StatusAssigned, conv.Status)
	assert.False(t, conv.NeedsAgent)
}

func TestConversationActions_Close(t *testing.T) {
	handler := newTestGateway(t, nil).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/conversations", nil))
	var conv ConversationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/conversations/"+conv.ID+"/close", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	assert.Equal(t, store.StatusClosed, conv.Status)
}

func TestMetrics(t *testing.T) {
	handler := newTestGateway(t, nil).Handler()

	first, _ := postChat(t, handler, "", "1")
	require.NotNil(t, first)
	postChat(t, handler, first.ConversationID, "precios")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var m store.Metrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, 1, m.TotalConversations)
	assert.Equal(t, 4, m.Messages)
	assert.GreaterOrEqual(t, m.Sales, 1)
}

func TestEscalationFlagsConversation(t *testing.T) {
	handler := newTestGateway(t, nil).Handler()

	first, _ := postChat(t, handler, "", "2")
	require.NotNil(t, first)

	first, _ = postChat(t, handler, first.ConversationID, "quiero hablar con un agente humano")
	require.NotNil(t, first)
	assert.True(t, first.NeedsAgent)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/conversations/"+first.ConversationID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var conv ConversationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	assert.Equal(t, store.StatusNeedsAgent, conv.Status)
	assert.True(t, conv.NeedsAgent)
}
