package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog"

	"chat-insights-server/internal/domain/conversation"
	"chat-insights-server/internal/domain/insight"
	"chat-insights-server/internal/infrastructure/logger"
)

const summarizeSystemPrompt = `You are an advanced AI assistant tasked with summarizing chat conversations.
For the given conversation, please provide:

1. A concise summary of the key points discussed (2-3 paragraphs)
2. A list of important keywords (5-10 words or phrases)
3. An overall sentiment analysis (positive, negative, neutral, or mixed)

Format your response as a JSON object with 'summary', 'keywords', and 'sentiment' keys.`

const insightsSystemPrompt = `You are an advanced AI assistant tasked with analyzing chat conversations and providing insights.
For the given set of conversations, please provide:

1. Overall insights about patterns, trends, or notable observations
2. Common topics or themes across conversations
3. Any patterns in communication style or effectiveness

Format your response as a JSON object with 'insights', 'common_topics', and 'patterns' keys.`

// insightConversationLimit caps how many conversations go into a single
// insights prompt to stay under model token limits.
const insightConversationLimit = 5

// OpenAIAnalyzer implements insight.Analyzer on top of an OpenAI-compatible
// chat completion endpoint.
type OpenAIAnalyzer struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
}

var _ insight.Analyzer = (*OpenAIAnalyzer)(nil)

// NewOpenAIAnalyzer builds an analyzer against the configured provider.
// baseURL may be empty to use the default OpenAI endpoint.
func NewOpenAIAnalyzer(apiKey, baseURL, model string) *OpenAIAnalyzer {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	return &OpenAIAnalyzer{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		log:    logger.Component("llm"),
	}
}

// Summarize implements insight.Analyzer. Conversations without messages are
// answered locally without an LLM round trip.
func (a *OpenAIAnalyzer) Summarize(ctx context.Context, conv *conversation.Conversation, instructions string) (*insight.Summary, error) {
	if conv == nil || len(conv.Messages) == 0 {
		return insight.EmptySummary(), nil
	}

	systemPrompt := summarizeSystemPrompt
	if instructions != "" {
		systemPrompt += "\n\nAdditional instructions: " + instructions
	}
	userPrompt := "Please summarize the following conversation:\n\n" + formatMessages(conv.Messages)

	content, err := a.complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	var result insight.Summary
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("decode summary response: %w", err)
	}
	if result.Summary == "" {
		result.Summary = "Summary not available."
	}
	if result.Keywords == nil {
		result.Keywords = []string{}
	}
	if result.Sentiment == "" {
		result.Sentiment = "neutral"
	}
	return &result, nil
}

// GenerateInsights implements insight.Analyzer over at most five
// conversations.
func (a *OpenAIAnalyzer) GenerateInsights(ctx context.Context, convs []*conversation.Conversation) (*insight.Insights, error) {
	if len(convs) == 0 {
		return insight.NoConversationsInsights(), nil
	}
	if len(convs) > insightConversationLimit {
		convs = convs[:insightConversationLimit]
	}

	var sections []string
	for i, conv := range convs {
		sections = append(sections, fmt.Sprintf("Conversation %d:\n%s", i+1, formatMessages(conv.Messages)))
	}
	userPrompt := "Please analyze the following conversations and provide insights:\n\n" + strings.Join(sections, "\n\n")

	content, err := a.complete(ctx, insightsSystemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	var result insight.Insights
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("decode insights response: %w", err)
	}
	if result.Insights == "" {
		result.Insights = "Insights not available."
	}
	if result.CommonTopics == nil {
		result.CommonTopics = []string{}
	}
	if result.Patterns == nil {
		result.Patterns = []string{}
	}
	return &result, nil
}

func (a *OpenAIAnalyzer) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: 0.5,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		a.log.Warn().Err(err).Str("model", a.model).Msg("chat completion failed")
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// formatMessages renders messages as "name: content" lines for the prompt.
func formatMessages(messages []conversation.Message) string {
	lines := make([]string, len(messages))
	for i, msg := range messages {
		lines[i] = msg.DisplayName() + ": " + msg.Content
	}
	return strings.Join(lines, "\n")
}
