package chatresponses

import (
	"time"

	"chat-insights-server/internal/domain/conversation"
	"chat-insights-server/internal/domain/insight"
	"chat-insights-server/internal/domain/query"
	"chat-insights-server/internal/utils/functional"
)

// MessageResponse is the wire form of one chat message.
type MessageResponse struct {
	SenderID   string    `json:"sender_id"`
	SenderName *string   `json:"sender_name,omitempty"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

// ChatResponse is the canonical wire form of a conversation.
type ChatResponse struct {
	ConversationID string            `json:"conversation_id"`
	UserID         string            `json:"user_id"`
	Title          *string           `json:"title,omitempty"`
	Messages       []MessageResponse `json:"messages"`
	Summary        *string           `json:"summary,omitempty"`
	Metadata       map[string]any    `json:"metadata"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// NewChatResponse maps a domain conversation onto its wire form.
func NewChatResponse(conv *conversation.Conversation) ChatResponse {
	messages := functional.Map(conv.Messages, func(msg conversation.Message) MessageResponse {
		return MessageResponse{
			SenderID:   msg.SenderID,
			SenderName: msg.SenderName,
			Content:    msg.Content,
			Timestamp:  msg.Timestamp,
		}
	})
	metadata := conv.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return ChatResponse{
		ConversationID: conv.PublicID,
		UserID:         conv.UserID,
		Title:          conv.Title,
		Messages:       messages,
		Summary:        conv.Summary,
		Metadata:       metadata,
		CreatedAt:      conv.CreatedAt,
		UpdatedAt:      conv.UpdatedAt,
	}
}

// ListChatsResponse is one page of a user's conversations.
type ListChatsResponse struct {
	Data     []ChatResponse `json:"data"`
	PageInfo query.PageInfo `json:"page_info"`
}

// NewListChatsResponse maps a page of conversations plus its page metadata.
func NewListChatsResponse(convs []*conversation.Conversation, pageInfo query.PageInfo) ListChatsResponse {
	data := functional.Map(convs, func(conv *conversation.Conversation) ChatResponse {
		return NewChatResponse(conv)
	})
	return ListChatsResponse{Data: data, PageInfo: pageInfo}
}

// SummarizeChatResponse is the result of summarizing one conversation.
type SummarizeChatResponse struct {
	ConversationID string   `json:"conversation_id"`
	Summary        string   `json:"summary"`
	Keywords       []string `json:"keywords"`
	Sentiment      string   `json:"sentiment"`
}

// NewSummarizeChatResponse maps a summarization result onto its wire form.
func NewSummarizeChatResponse(conversationID string, result *insight.Summary) SummarizeChatResponse {
	return SummarizeChatResponse{
		ConversationID: conversationID,
		Summary:        result.Summary,
		Keywords:       result.Keywords,
		Sentiment:      result.Sentiment,
	}
}

// InsightsResponse is the cross-conversation analysis for one user.
type InsightsResponse struct {
	Insights     string   `json:"insights"`
	CommonTopics []string `json:"common_topics"`
	Patterns     []string `json:"patterns"`
}

// NewInsightsResponse maps an insights result onto its wire form.
func NewInsightsResponse(result *insight.Insights) InsightsResponse {
	return InsightsResponse{
		Insights:     result.Insights,
		CommonTopics: result.CommonTopics,
		Patterns:     result.Patterns,
	}
}

// DeleteChatResponse acknowledges a successful delete.
type DeleteChatResponse struct {
	Message string `json:"message"`
}
