package chatrequests

import "time"

// MessagePayload is one chat message as supplied by a REST client.
type MessagePayload struct {
	SenderID   string     `json:"sender_id" binding:"required"`
	SenderName *string    `json:"sender_name"`
	Content    string     `json:"content" binding:"required"`
	Timestamp  *time.Time `json:"timestamp"`
}

// CreateChatRequest creates a conversation, optionally seeded with messages.
type CreateChatRequest struct {
	ConversationID string           `json:"conversation_id"`
	UserID         string           `json:"user_id" binding:"required"`
	Title          *string          `json:"title"`
	Messages       []MessagePayload `json:"messages"`
	Metadata       map[string]any   `json:"metadata"`
}

// AddMessageRequest appends a single message to an existing conversation.
type AddMessageRequest struct {
	ConversationID string         `json:"conversation_id" binding:"required"`
	Message        MessagePayload `json:"message" binding:"required"`
}

// SummarizeChatRequest asks for a summary of one conversation.
type SummarizeChatRequest struct {
	ConversationID         string `json:"conversation_id" binding:"required"`
	AdditionalInstructions string `json:"additional_instructions"`
}

// InsightsRequest asks for cross-conversation insights for one user.
type InsightsRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Limit  *int   `json:"limit"`
}
