// ABOUTME: Core turn-processing service tying the dialogue engine to persistence
// ABOUTME: Rehydrates conversation state from history, routes one turn, persists the outcome

package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charlabot/charla/internal/auth"
	"github.com/charlabot/charla/internal/dialog"
	"github.com/charlabot/charla/internal/nlp"
	"github.com/charlabot/charla/internal/store"
)

// Gateway exposes the dialogue engine over HTTP and processes chat turns
// against the store.
type Gateway struct {
	store    store.Store
	router   *dialog.Router
	verifier auth.TokenVerifier // nil disables operator auth
	logger   *slog.Logger
}

// New creates a Gateway. verifier may be nil to leave the operator surface
// unauthenticated.
func New(st store.Store, router *dialog.Router, verifier auth.TokenVerifier) *Gateway {
	return &Gateway{
		store:    st,
		router:   router,
		verifier: verifier,
		logger:   slog.Default().With("component", "gateway"),
	}
}

// TurnResult is the outcome of one processed chat turn.
type TurnResult struct {
	ConversationID string  `json:"conversation_id"`
	Reply          string  `json:"reply"`
	Category       string  `json:"category,omitempty"`
	Confidence     float64 `json:"confidence"`
	LowConfidence  bool    `json:"low_confidence"`
	NeedsAgent     bool    `json:"needs_agent"`
	End            bool    `json:"end"`
}

// ProcessTurn runs one user message through the dialogue engine. An empty
// conversationID creates a new conversation tagged with userTag. The state is
// rebuilt from the persisted history on every turn, so the service itself
// stays stateless.
func (g *Gateway) ProcessTurn(ctx context.Context, conversationID, userTag, message string) (*TurnResult, error) {
	var conv *store.Conversation
	var err error

	if conversationID == "" {
		conv, err = g.store.CreateConversation(ctx, userTag)
		if err != nil {
			return nil, fmt.Errorf("creating conversation: %w", err)
		}
	} else {
		conv, err = g.store.GetConversation(ctx, conversationID)
		if err != nil {
			return nil, err
		}
	}

	state, err := g.rehydrateState(ctx, conv)
	if err != nil {
		return nil, err
	}

	userText := strings.TrimSpace(message)
	res := g.router.RouteMessage(state, userText)

	if _, err := g.store.AppendMessage(ctx, conv.ID, store.RoleUser, userText); err != nil {
		return nil, fmt.Errorf("persisting user message: %w", err)
	}
	if _, err := g.store.AppendMessage(ctx, conv.ID, store.RoleBot, res.Reply); err != nil {
		return nil, fmt.Errorf("persisting bot message: %w", err)
	}

	if err := g.store.RecordTurnOutcome(ctx, conv.ID, string(res.Category), res.LowConfidence); err != nil {
		return nil, fmt.Errorf("recording turn outcome: %w", err)
	}

	needsAgent := true
	noAgent := false
	if res.NeedsAgent {
		if _, err := g.store.SetStatus(ctx, conv.ID, store.StatusNeedsAgent, &needsAgent); err != nil {
			return nil, fmt.Errorf("flagging agent: %w", err)
		}
	}
	if res.End {
		if _, err := g.store.SetStatus(ctx, conv.ID, store.StatusClosed, &noAgent); err != nil {
			return nil, fmt.Errorf("closing conversation: %w", err)
		}
	}

	g.logger.Info("turn processed",
		"conversation_id", conv.ID,
		"category", string(res.Category),
		"confidence", res.Confidence,
		"needs_agent", res.NeedsAgent)

	return &TurnResult{
		ConversationID: conv.ID,
		Reply:          res.Reply,
		Category:       string(res.Category),
		Confidence:     res.Confidence,
		LowConfidence:  res.LowConfidence,
		NeedsAgent:     res.NeedsAgent,
		End:            res.End,
	}, nil
}

// rehydrateState rebuilds the dialogue state from the persisted conversation:
// position from last_category, history from messages, sales slots re-derived
// from the user's prior turns.
func (g *Gateway) rehydrateState(ctx context.Context, conv *store.Conversation) (*dialog.State, error) {
	state := dialog.NewState()

	if conv.LastCategory != "" {
		category := nlp.Category(conv.LastCategory)
		state.LastCategory = category
		state.SelectedCategory = category
		state.Stage = dialog.StageChat
	}

	msgs, err := g.store.GetMessages(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	for _, m := range msgs {
		if m.Role == store.RoleUser {
			state.AddUser(m.Text)
		} else {
			state.AddBot(m.Text)
		}
	}

	state.RehydrateSales()
	return state, nil
}
