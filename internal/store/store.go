// ABOUTME: Store interface and data types for conversation persistence
// ABOUTME: Defines Conversation, Message structs and the Store interface for database operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Conversation statuses.
const (
	StatusOpen       = "open"
	StatusNeedsAgent = "needs_agent"
	StatusAssigned   = "assigned"
	StatusClosed     = "closed"
)

// ValidStatus reports whether s is one of the four conversation statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusOpen, StatusNeedsAgent, StatusAssigned, StatusClosed:
		return true
	}
	return false
}

// Conversation is one persisted conversation with its rolled-up counters.
type Conversation struct {
	ID            string
	UserTag       string
	Status        string
	NeedsAgent    bool
	MessagesCount int
	SalesCount    int
	SupportCount  int
	GeneralCount  int
	LowConfCount  int
	LastCategory  string
	CreatedAt     time.Time
}

// Message roles.
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// Message is one persisted turn entry within a conversation.
type Message struct {
	ID             string
	ConversationID string
	Role           string
	Text           string
	CreatedAt      time.Time
}

// Metrics is the service-wide aggregate over all conversations.
type Metrics struct {
	TotalConversations int `json:"total_conversations"`
	Open               int `json:"open"`
	NeedsAgent         int `json:"needs_agent"`
	Assigned           int `json:"assigned"`
	Closed             int `json:"closed"`
	Sales              int `json:"sales"`
	Support            int `json:"support"`
	General            int `json:"general"`
	LowConf            int `json:"low_conf"`
	Messages           int `json:"messages"`
}

// Store defines the interface for conversation and message persistence
type Store interface {
	// Conversations
	CreateConversation(ctx context.Context, userTag string) (*Conversation, error)
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	ListConversations(ctx context.Context, limit int) ([]*Conversation, error)

	// Messages
	AppendMessage(ctx context.Context, conversationID, role, text string) (*Message, error)
	GetMessages(ctx context.Context, conversationID string) ([]*Message, error)

	// ResetConversation deletes the history and zeroes the counters,
	// returning the conversation to its initial open state.
	ResetConversation(ctx context.Context, id string) error

	// RecordTurnOutcome rolls one routed turn into the per-category and
	// low-confidence counters and updates last_category.
	RecordTurnOutcome(ctx context.Context, id, category string, lowConfidence bool) error

	// SetStatus updates the conversation status; needsAgent is applied only
	// when non-nil.
	SetStatus(ctx context.Context, id, status string, needsAgent *bool) (*Conversation, error)

	// GlobalMetrics aggregates counters across every conversation.
	GlobalMetrics(ctx context.Context) (*Metrics, error)

	// Close releases any resources held by the store
	Close() error
}
