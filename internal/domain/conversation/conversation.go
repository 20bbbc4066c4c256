package conversation

import (
	"context"
	"strings"
	"time"

	"chat-insights-server/internal/domain/query"
	"chat-insights-server/internal/utils/idgen"
)

// ===============================================
// Conversation Types
// ===============================================

// Conversation is a named, owned, ordered collection of messages plus an
// optional LLM-generated summary and free-form metadata.
type Conversation struct {
	ID       uint           `json:"-"`
	PublicID string         `json:"conversation_id"`
	UserID   string         `json:"user_id"`
	Title    *string        `json:"title,omitempty"`
	Messages []Message      `json:"messages"`
	Summary  *string        `json:"summary,omitempty"`
	Metadata map[string]any `json:"metadata"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is a single utterance inside a conversation. Messages are
// append-only: once stored they are never edited or deleted on their own.
type Message struct {
	ID         uint      `json:"-"`
	SenderID   string    `json:"sender_id"`
	SenderName *string   `json:"sender_name,omitempty"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

// Metadata keys written by the summarization flow.
const (
	MetadataKeyKeywords  = "keywords"
	MetadataKeySentiment = "sentiment"
)

// ===============================================
// Conversation Repository
// ===============================================

// Filter narrows conversation list queries. The date range is inclusive and
// applies to created_at; Search matches message content.
type Filter struct {
	UserID      *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Search      *string
}

type Repository interface {
	Create(ctx context.Context, conv *Conversation) error
	// FindByPublicID returns a NOT_FOUND platform error when no row matches.
	FindByPublicID(ctx context.Context, publicID string) (*Conversation, error)
	FindByFilter(ctx context.Context, filter Filter, pagination query.Pagination) ([]*Conversation, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	// AppendMessage inserts the message and bumps the conversation's
	// updated_at in the same transaction.
	AppendMessage(ctx context.Context, conversationID uint, msg *Message) error
	// UpdateSummary sets the summary, merges metadata keys into the existing
	// map, bumps updated_at, and reports whether a row matched.
	UpdateSummary(ctx context.Context, publicID string, summary string, metadata map[string]any) (bool, error)
	// Delete reports whether a row was actually removed.
	Delete(ctx context.Context, publicID string) (bool, error)
}

// ===============================================
// Factory Functions
// ===============================================

// NewConversation builds a conversation owned by userID. When publicID is
// empty a fresh "conv_" identifier is generated.
func NewConversation(publicID, userID string, title *string, messages []Message, metadata map[string]any) (*Conversation, error) {
	if publicID == "" {
		generated, err := idgen.GenerateSecureID("conv", 16)
		if err != nil {
			return nil, err
		}
		publicID = generated
	}
	if metadata == nil {
		metadata = make(map[string]any)
	}

	now := time.Now().UTC()
	for i := range messages {
		if messages[i].Timestamp.IsZero() {
			messages[i].Timestamp = now
		}
	}

	return &Conversation{
		PublicID:  publicID,
		UserID:    userID,
		Title:     title,
		Messages:  messages,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NewMessage builds a message, stamping the current time when the caller did
// not provide one.
func NewMessage(senderID string, senderName *string, content string, timestamp time.Time) Message {
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	return Message{
		SenderID:   senderID,
		SenderName: senderName,
		Content:    content,
		Timestamp:  timestamp,
	}
}

// HasContent reports whether the message carries non-whitespace content.
func (m Message) HasContent() bool {
	return strings.TrimSpace(m.Content) != ""
}

// DisplayName returns the sender name, falling back to the sender id.
func (m Message) DisplayName() string {
	if m.SenderName != nil && *m.SenderName != "" {
		return *m.SenderName
	}
	return m.SenderID
}
