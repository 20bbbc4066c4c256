package insight

import (
	"context"
	"fmt"

	"chat-insights-server/internal/domain/conversation"
)

// Summary is the structured result of summarizing one conversation.
type Summary struct {
	Summary   string   `json:"summary"`
	Keywords  []string `json:"keywords"`
	Sentiment string   `json:"sentiment"`
}

// Insights is the structured result of analyzing a set of conversations.
type Insights struct {
	Insights     string   `json:"insights"`
	CommonTopics []string `json:"common_topics"`
	Patterns     []string `json:"patterns"`
}

// Analyzer turns conversations into summaries and cross-conversation
// insights. Implementations call out to an LLM; callers bound the call with
// a context deadline and decide between propagating the error and degrading
// to the fallback structures below.
type Analyzer interface {
	Summarize(ctx context.Context, conv *conversation.Conversation, instructions string) (*Summary, error)
	GenerateInsights(ctx context.Context, convs []*conversation.Conversation) (*Insights, error)
}

// EmptySummary is returned for conversations with no messages, without an
// LLM round trip.
func EmptySummary() *Summary {
	return &Summary{
		Summary:   "No messages to summarize.",
		Keywords:  []string{},
		Sentiment: "neutral",
	}
}

// NoConversationsInsights is the fixed structure for users with no stored
// conversations.
func NoConversationsInsights() *Insights {
	return &Insights{
		Insights:     "No conversations found for analysis.",
		CommonTopics: []string{},
		Patterns:     []string{},
	}
}

// FallbackSummary degrades a capability failure into a well-formed result
// carrying the error text.
func FallbackSummary(err error) *Summary {
	return &Summary{
		Summary:   fmt.Sprintf("Error generating summary: %v", err),
		Keywords:  []string{},
		Sentiment: "unknown",
	}
}

// FallbackInsights degrades a capability failure into a well-formed result
// carrying the error text.
func FallbackInsights(err error) *Insights {
	return &Insights{
		Insights:     fmt.Sprintf("Error generating insights: %v", err),
		CommonTopics: []string{},
		Patterns:     []string{},
	}
}
