// ABOUTME: Optional NATS request/reply bridge for message-bus frontends
// ABOUTME: Carries the same turn-processing call as POST /chat over a subject

package natsbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/charlabot/charla/internal/gateway"
	"github.com/charlabot/charla/internal/store"
)

// DefaultTimeout bounds the processing of a single bus message.
const DefaultTimeout = 10 * time.Second

// TurnProcessor is the chat entry point the bridge forwards requests to.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, conversationID, userTag, message string) (*gateway.TurnResult, error)
}

// ChatRequest is the JSON payload expected on the request subject.
type ChatRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	UserTag        string `json:"user_tag,omitempty"`
	Message        string `json:"message"`
}

// ChatReply is the JSON payload sent back on the reply subject. Error is set
// instead of the result fields when the turn failed.
type ChatReply struct {
	*gateway.TurnResult
	Error string `json:"error,omitempty"`
}

// Bridge subscribes to a NATS subject and answers chat turns over
// request/reply.
type Bridge struct {
	conn      *nats.Conn
	sub       *nats.Subscription
	subject   string
	timeout   time.Duration
	processor TurnProcessor
	logger    *slog.Logger
}

// Connect dials the NATS server and returns an unstarted bridge. A zero
// timeout falls back to DefaultTimeout.
func Connect(url, subject string, timeout time.Duration, processor TurnProcessor) (*Bridge, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	conn, err := nats.Connect(url,
		nats.Name("charla-gateway"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	logger := slog.Default().With("component", "natsbridge")
	logger.Info("connected to NATS", "url", url, "subject", subject)

	return &Bridge{
		conn:      conn,
		subject:   subject,
		timeout:   timeout,
		processor: processor,
		logger:    logger,
	}, nil
}

// Start subscribes to the request subject.
func (b *Bridge) Start() error {
	sub, err := b.conn.Subscribe(b.subject, b.handleChatRequest)
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", b.subject, err)
	}
	b.sub = sub
	b.logger.Info("subscribed", "subject", b.subject)
	return nil
}

func (b *Bridge) handleChatRequest(msg *nats.Msg) {
	var req ChatRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		b.logger.Warn("invalid request payload", "error", err)
		b.reply(msg, &ChatReply{Error: "invalid request format"})
		return
	}
	if req.Message == "" {
		b.reply(msg, &ChatReply{Error: "message is required"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	result, err := b.processor.ProcessTurn(ctx, req.ConversationID, req.UserTag, req.Message)
	if errors.Is(err, store.ErrNotFound) {
		b.reply(msg, &ChatReply{Error: "conversation not found"})
		return
	}
	if err != nil {
		b.logger.Error("failed to process turn", "error", err)
		b.reply(msg, &ChatReply{Error: "internal error"})
		return
	}

	b.reply(msg, &ChatReply{TurnResult: result})
}

func (b *Bridge) reply(msg *nats.Msg, reply *ChatReply) {
	data, err := json.Marshal(reply)
	if err != nil {
		b.logger.Error("failed to marshal reply", "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		b.logger.Error("failed to send reply", "error", err)
	}
}

// Close unsubscribes and drains the connection.
func (b *Bridge) Close() error {
	if b.sub != nil {
		if err := b.sub.Unsubscribe(); err != nil {
			b.logger.Warn("unsubscribe failed", "error", err)
		}
	}
	if b.conn != nil {
		b.conn.Close()
		b.logger.Info("NATS connection closed")
	}
	return nil
}
