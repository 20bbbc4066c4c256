package chathandler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-insights-server/internal/domain/conversation"
	"chat-insights-server/internal/domain/insight"
	"chat-insights-server/internal/domain/query"
	"chat-insights-server/internal/interfaces/httpserver/handlers/chathandler"
	chatresponses "chat-insights-server/internal/interfaces/httpserver/responses/chat"
	"chat-insights-server/internal/utils/platformerrors"
)

type memoryRepo struct {
	mu     sync.Mutex
	nextID uint
	convs  map[string]*conversation.Conversation
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{convs: make(map[string]*conversation.Conversation)}
}

func (r *memoryRepo) Create(_ context.Context, conv *conversation.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	conv.ID = r.nextID
	r.convs[conv.PublicID] = conv
	return nil
}

func (r *memoryRepo) FindByPublicID(ctx context.Context, publicID string) (*conversation.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.convs[publicID]
	if !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "conversation not found", nil)
	}
	clone := *conv
	clone.Messages = append([]conversation.Message(nil), conv.Messages...)
	return &clone, nil
}

func (r *memoryRepo) matches(conv *conversation.Conversation, filter conversation.Filter) bool {
	if filter.UserID != nil && conv.UserID != *filter.UserID {
		return false
	}
	if filter.CreatedFrom != nil && conv.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && conv.CreatedAt.After(*filter.CreatedTo) {
		return false
	}
	if filter.Search != nil {
		needle := strings.ToLower(*filter.Search)
		found := false
		for _, msg := range conv.Messages {
			if strings.Contains(strings.ToLower(msg.Content), needle) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (r *memoryRepo) FindByFilter(_ context.Context, filter conversation.Filter, pagination query.Pagination) ([]*conversation.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := make([]*conversation.Conversation, 0)
	for _, conv := range r.convs {
		if r.matches(conv, filter) {
			matched = append(matched, conv)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	offset := pagination.Offset()
	if offset >= len(matched) {
		return []*conversation.Conversation{}, nil
	}
	end := offset + pagination.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (r *memoryRepo) Count(_ context.Context, filter conversation.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, conv := range r.convs {
		if r.matches(conv, filter) {
			total++
		}
	}
	return total, nil
}

func (r *memoryRepo) AppendMessage(_ context.Context, conversationID uint, msg *conversation.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, conv := range r.convs {
		if conv.ID == conversationID {
			conv.Messages = append(conv.Messages, *msg)
			conv.UpdatedAt = msg.Timestamp
			return nil
		}
	}
	return errors.New("conversation row vanished")
}

func (r *memoryRepo) UpdateSummary(_ context.Context, publicID string, summary string, metadata map[string]any) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.convs[publicID]
	if !ok {
		return false, nil
	}
	conv.Summary = &summary
	if conv.Metadata == nil {
		conv.Metadata = make(map[string]any)
	}
	for key, value := range metadata {
		conv.Metadata[key] = value
	}
	return true, nil
}

func (r *memoryRepo) Delete(_ context.Context, publicID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.convs[publicID]; !ok {
		return false, nil
	}
	delete(r.convs, publicID)
	return true, nil
}

type stubAnalyzer struct {
	summary     *insight.Summary
	summaryErr  error
	insights    *insight.Insights
	insightsErr error
}

func (a *stubAnalyzer) Summarize(context.Context, *conversation.Conversation, string) (*insight.Summary, error) {
	if a.summaryErr != nil {
		return nil, a.summaryErr
	}
	return a.summary, nil
}

func (a *stubAnalyzer) GenerateInsights(context.Context, []*conversation.Conversation) (*insight.Insights, error) {
	if a.insightsErr != nil {
		return nil, a.insightsErr
	}
	return a.insights, nil
}

func newTestRouter(repo *memoryRepo, analyzer insight.Analyzer) (*gin.Engine, *conversation.Service) {
	gin.SetMode(gin.TestMode)
	svc := conversation.NewService(repo)
	handler := chathandler.NewChatHandler(svc, analyzer, chathandler.Options{})

	router := gin.New()
	chats := router.Group("/chats")
	chats.POST("", handler.CreateChat)
	chats.POST("/message", handler.AddMessage)
	chats.POST("/summarize", handler.SummarizeChat)
	chats.POST("/insights", handler.GenerateInsights)
	chats.GET("/:conversation_id", handler.GetChat)
	chats.DELETE("/:conversation_id", handler.DeleteChat)
	router.GET("/users/:user_id/chats", handler.ListUserChats)
	return router, svc
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func seedConversation(t *testing.T, svc *conversation.Service, publicID, userID string, messages ...string) {
	t.Helper()
	msgs := make([]conversation.Message, 0, len(messages))
	for _, content := range messages {
		msgs = append(msgs, conversation.NewMessage(userID, nil, content, time.Now().UTC()))
	}
	_, err := svc.CreateConversation(context.Background(), conversation.CreateConversationInput{
		PublicID: publicID,
		UserID:   userID,
		Messages: msgs,
	})
	require.NoError(t, err)
}

func TestCreateChatGeneratesID(t *testing.T) {
	router, _ := newTestRouter(newMemoryRepo(), &stubAnalyzer{})

	rec := doJSON(t, router, http.MethodPost, "/chats", gin.H{
		"user_id": "user-1",
		"title":   "Support",
		"messages": []gin.H{
			{"sender_id": "user-1", "content": "hi"},
		},
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp chatresponses.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.ConversationID, "conv_"))
	assert.Equal(t, "user-1", resp.UserID)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "hi", resp.Messages[0].Content)
}

func TestCreateChatRequiresUserID(t *testing.T) {
	router, _ := newTestRouter(newMemoryRepo(), &stubAnalyzer{})

	rec := doJSON(t, router, http.MethodPost, "/chats", gin.H{"title": "orphan"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetChatNotFound(t *testing.T) {
	router, _ := newTestRouter(newMemoryRepo(), &stubAnalyzer{})

	rec := doJSON(t, router, http.MethodGet, "/chats/conv_missing", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListUserChatsPagination(t *testing.T) {
	router, svc := newTestRouter(newMemoryRepo(), &stubAnalyzer{})
	for i := 0; i < 15; i++ {
		seedConversation(t, svc, fmt.Sprintf("conv-%02d", i), "user-1")
	}
	seedConversation(t, svc, "conv-other", "user-2")

	rec := doJSON(t, router, http.MethodGet, "/users/user-1/chats?page=2&limit=10", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp chatresponses.ListChatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 5)
	assert.Equal(t, 2, resp.PageInfo.Page)
	assert.Equal(t, 10, resp.PageInfo.Limit)
	assert.Equal(t, int64(15), resp.PageInfo.Total)
	assert.Equal(t, 2, resp.PageInfo.TotalPages)
	assert.False(t, resp.PageInfo.HasNext)
	assert.True(t, resp.PageInfo.HasPrev)
}

func TestListUserChatsRejectsBadLimit(t *testing.T) {
	router, _ := newTestRouter(newMemoryRepo(), &stubAnalyzer{})

	for _, limit := range []string{"0", "101", "abc"} {
		rec := doJSON(t, router, http.MethodGet, "/users/user-1/chats?limit="+limit, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", limit)
	}
}

func TestListUserChatsRejectsMalformedDates(t *testing.T) {
	router, _ := newTestRouter(newMemoryRepo(), &stubAnalyzer{})

	rec := doJSON(t, router, http.MethodGet, "/users/user-1/chats?start_date=yesterday", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListUserChatsSearch(t *testing.T) {
	router, svc := newTestRouter(newMemoryRepo(), &stubAnalyzer{})
	seedConversation(t, svc, "conv-billing", "user-1", "my invoice is wrong")
	seedConversation(t, svc, "conv-greeting", "user-1", "hello there")

	rec := doJSON(t, router, http.MethodGet, "/users/user-1/chats?search=invoice", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp chatresponses.ListChatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "conv-billing", resp.Data[0].ConversationID)
}

func TestAddMessage(t *testing.T) {
	router, svc := newTestRouter(newMemoryRepo(), &stubAnalyzer{})
	seedConversation(t, svc, "conv-1", "user-1")

	rec := doJSON(t, router, http.MethodPost, "/chats/message", gin.H{
		"conversation_id": "conv-1",
		"message":         gin.H{"sender_id": "user-1", "content": "follow-up"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp chatresponses.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "follow-up", resp.Messages[0].Content)
}

func TestAddMessageNotFound(t *testing.T) {
	router, _ := newTestRouter(newMemoryRepo(), &stubAnalyzer{})

	rec := doJSON(t, router, http.MethodPost, "/chats/message", gin.H{
		"conversation_id": "conv-missing",
		"message":         gin.H{"sender_id": "user-1", "content": "anyone?"},
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteChat(t *testing.T) {
	router, svc := newTestRouter(newMemoryRepo(), &stubAnalyzer{})
	seedConversation(t, svc, "conv-1", "user-1")

	rec := doJSON(t, router, http.MethodDelete, "/chats/conv-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp chatresponses.DeleteChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Conversation deleted successfully", resp.Message)

	rec = doJSON(t, router, http.MethodDelete, "/chats/conv-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSummarizeChatPersistsSummary(t *testing.T) {
	analyzer := &stubAnalyzer{summary: &insight.Summary{
		Summary:   "user asked about billing",
		Keywords:  []string{"billing"},
		Sentiment: "negative",
	}}
	router, svc := newTestRouter(newMemoryRepo(), analyzer)
	seedConversation(t, svc, "conv-1", "user-1", "my invoice is wrong")

	rec := doJSON(t, router, http.MethodPost, "/chats/summarize", gin.H{"conversation_id": "conv-1"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp chatresponses.SummarizeChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "conv-1", resp.ConversationID)
	assert.Equal(t, "user asked about billing", resp.Summary)
	assert.Equal(t, []string{"billing"}, resp.Keywords)
	assert.Equal(t, "negative", resp.Sentiment)

	conv, err := svc.GetConversation(context.Background(), "conv-1")
	require.NoError(t, err)
	require.NotNil(t, conv.Summary)
	assert.Equal(t, "user asked about billing", *conv.Summary)
	assert.Equal(t, "negative", conv.Metadata[conversation.MetadataKeySentiment])
}

func TestSummarizeChatNotFound(t *testing.T) {
	router, _ := newTestRouter(newMemoryRepo(), &stubAnalyzer{})

	rec := doJSON(t, router, http.MethodPost, "/chats/summarize", gin.H{"conversation_id": "conv-missing"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSummarizeChatAnalyzerFailure(t *testing.T) {
	analyzer := &stubAnalyzer{summaryErr: errors.New("model overloaded")}
	router, svc := newTestRouter(newMemoryRepo(), analyzer)
	seedConversation(t, svc, "conv-1", "user-1", "hello")

	rec := doJSON(t, router, http.MethodPost, "/chats/summarize", gin.H{"conversation_id": "conv-1"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	conv, err := svc.GetConversation(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Nil(t, conv.Summary)
}

func TestInsightsNoConversations(t *testing.T) {
	router, _ := newTestRouter(newMemoryRepo(), &stubAnalyzer{})

	rec := doJSON(t, router, http.MethodPost, "/chats/insights", gin.H{"user_id": "user-1"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp chatresponses.InsightsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "No conversations found for analysis.", resp.Insights)
	assert.Empty(t, resp.CommonTopics)
	assert.Empty(t, resp.Patterns)
}

func TestInsightsAnalyzerFailureDegradesTo200(t *testing.T) {
	analyzer := &stubAnalyzer{insightsErr: errors.New("model overloaded")}
	router, svc := newTestRouter(newMemoryRepo(), analyzer)
	seedConversation(t, svc, "conv-1", "user-1", "hello")

	rec := doJSON(t, router, http.MethodPost, "/chats/insights", gin.H{"user_id": "user-1"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp chatresponses.InsightsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Insights, "Error generating insights")
	assert.Contains(t, resp.Insights, "model overloaded")
}

func TestInsights(t *testing.T) {
	analyzer := &stubAnalyzer{insights: &insight.Insights{
		Insights:     "mostly billing questions",
		CommonTopics: []string{"billing"},
		Patterns:     []string{"short sessions"},
	}}
	router, svc := newTestRouter(newMemoryRepo(), analyzer)
	seedConversation(t, svc, "conv-1", "user-1", "invoice")
	seedConversation(t, svc, "conv-2", "user-1", "refund")

	rec := doJSON(t, router, http.MethodPost, "/chats/insights", gin.H{"user_id": "user-1"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp chatresponses.InsightsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "mostly billing questions", resp.Insights)
	assert.Equal(t, []string{"billing"}, resp.CommonTopics)
	assert.Equal(t, []string{"short sessions"}, resp.Patterns)
}
