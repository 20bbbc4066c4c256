package chathandler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"chat-insights-server/internal/domain/conversation"
	"chat-insights-server/internal/domain/insight"
	"chat-insights-server/internal/domain/query"
	"chat-insights-server/internal/infrastructure/logger"
	"chat-insights-server/internal/infrastructure/metrics"
	"chat-insights-server/internal/interfaces/httpserver/requests"
	chatrequests "chat-insights-server/internal/interfaces/httpserver/requests/chat"
	chatresponses "chat-insights-server/internal/interfaces/httpserver/responses/chat"
	"chat-insights-server/internal/utils/functional"
	"chat-insights-server/internal/utils/platformerrors"
)

// Options bounds the handler's pagination and analysis behavior.
type Options struct {
	DefaultPageSize  int
	MaxPageSize      int
	InsightMaxChats  int
	SummarizeTimeout time.Duration
}

// ChatHandler serves the conversation REST surface.
type ChatHandler struct {
	chats    *conversation.Service
	analyzer insight.Analyzer
	opts     Options
	log      zerolog.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chats *conversation.Service, analyzer insight.Analyzer, opts Options) *ChatHandler {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 10
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = 100
	}
	if opts.InsightMaxChats <= 0 {
		opts.InsightMaxChats = 5
	}
	if opts.SummarizeTimeout <= 0 {
		opts.SummarizeTimeout = 30 * time.Second
	}
	return &ChatHandler{
		chats:    chats,
		analyzer: analyzer,
		opts:     opts,
		log:      logger.Component("handler.chat"),
	}
}

// CreateChat handles POST /chats.
func (h *ChatHandler) CreateChat(c *gin.Context) {
	var req chatrequests.CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, "invalid request body: "+err.Error())
		return
	}

	conv, err := h.chats.CreateConversation(c.Request.Context(), conversation.CreateConversationInput{
		PublicID: req.ConversationID,
		UserID:   req.UserID,
		Title:    req.Title,
		Messages: functional.Map(req.Messages, toDomainMessage),
		Metadata: req.Metadata,
	})
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}

	metrics.ConversationsCreatedTotal.Inc()
	c.JSON(http.StatusCreated, chatresponses.NewChatResponse(conv))
}

// GetChat handles GET /chats/:conversation_id.
func (h *ChatHandler) GetChat(c *gin.Context) {
	conv, err := h.chats.GetConversation(c.Request.Context(), c.Param("conversation_id"))
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	if conv == nil {
		platformerrors.WriteNotFound(c, "conversation not found")
		return
	}

	c.JSON(http.StatusOK, chatresponses.NewChatResponse(conv))
}

// AddMessage handles POST /chats/message.
func (h *ChatHandler) AddMessage(c *gin.Context) {
	var req chatrequests.AddMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, "invalid request body: "+err.Error())
		return
	}

	conv, err := h.chats.AddMessage(c.Request.Context(), req.ConversationID, toDomainMessage(req.Message))
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	if conv == nil {
		platformerrors.WriteNotFound(c, "conversation not found")
		return
	}

	metrics.MessagesAppendedTotal.Inc()
	c.JSON(http.StatusOK, chatresponses.NewChatResponse(conv))
}

// SummarizeChat handles POST /chats/summarize. The summary and its derived
// metadata are persisted before the response is written.
func (h *ChatHandler) SummarizeChat(c *gin.Context) {
	var req chatrequests.SummarizeChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, "invalid request body: "+err.Error())
		return
	}

	conv, err := h.chats.GetConversation(c.Request.Context(), req.ConversationID)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	if conv == nil {
		platformerrors.WriteNotFound(c, "conversation not found")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.opts.SummarizeTimeout)
	defer cancel()

	result, err := h.analyzer.Summarize(ctx, conv, req.AdditionalInstructions)
	if err != nil {
		metrics.RecordSummary("rest", "error")
		platformerrors.WriteError(c, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to generate summary"), h.log)
		return
	}

	if _, err := h.chats.UpdateSummary(ctx, req.ConversationID, result.Summary, map[string]any{
		conversation.MetadataKeyKeywords:  result.Keywords,
		conversation.MetadataKeySentiment: result.Sentiment,
	}); err != nil {
		metrics.RecordSummary("rest", "error")
		platformerrors.WriteError(c, err, h.log)
		return
	}

	metrics.RecordSummary("rest", "ok")
	c.JSON(http.StatusOK, chatresponses.NewSummarizeChatResponse(req.ConversationID, result))
}

// ListUserChats handles GET /users/:user_id/chats.
func (h *ChatHandler) ListUserChats(c *gin.Context) {
	pagination, err := requests.GetPaginationFromQuery(c, h.opts.DefaultPageSize, h.opts.MaxPageSize)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	start, end, err := requests.GetDateRangeFromQuery(c)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}

	filter := conversation.Filter{CreatedFrom: &start, CreatedTo: &end}
	if search := c.Query("search"); search != "" {
		filter.Search = &search
	}

	convs, total, err := h.chats.ListUserConversations(c.Request.Context(), c.Param("user_id"), filter, pagination)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}

	c.JSON(http.StatusOK, chatresponses.NewListChatsResponse(convs, query.NewPageInfo(pagination, total)))
}

// DeleteChat handles DELETE /chats/:conversation_id.
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	deleted, err := h.chats.DeleteConversation(c.Request.Context(), c.Param("conversation_id"))
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	if !deleted {
		platformerrors.WriteNotFound(c, "conversation not found")
		return
	}

	c.JSON(http.StatusOK, chatresponses.DeleteChatResponse{Message: "Conversation deleted successfully"})
}

// GenerateInsights handles POST /chats/insights. Capability failures degrade
// to a well-formed fallback body with a 200 status.
func (h *ChatHandler) GenerateInsights(c *gin.Context) {
	var req chatrequests.InsightsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, "invalid request body: "+err.Error())
		return
	}

	limit := h.opts.InsightMaxChats
	if req.Limit != nil && *req.Limit > 0 && *req.Limit < limit {
		limit = *req.Limit
	}

	convs, _, err := h.chats.ListUserConversations(c.Request.Context(), req.UserID, conversation.Filter{}, query.Pagination{Page: 1, Limit: limit})
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	if len(convs) == 0 {
		c.JSON(http.StatusOK, chatresponses.NewInsightsResponse(insight.NoConversationsInsights()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.opts.SummarizeTimeout)
	defer cancel()

	result, err := h.analyzer.GenerateInsights(ctx, convs)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", req.UserID).Msg("insight generation failed")
		c.JSON(http.StatusOK, chatresponses.NewInsightsResponse(insight.FallbackInsights(err)))
		return
	}

	c.JSON(http.StatusOK, chatresponses.NewInsightsResponse(result))
}

func toDomainMessage(payload chatrequests.MessagePayload) conversation.Message {
	timestamp := time.Time{}
	if payload.Timestamp != nil {
		timestamp = *payload.Timestamp
	}
	return conversation.NewMessage(payload.SenderID, payload.SenderName, payload.Content, timestamp)
}
