package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"chat-insights-server/internal/domain/conversation"
	"chat-insights-server/internal/domain/insight"
)

// EventType discriminates outbound websocket payloads.
type EventType string

const (
	EventTypeMessage EventType = "message"
	EventTypeSummary EventType = "summary"
	EventTypeError   EventType = "error"
)

// Event is one member of the outbound tagged union.
type Event interface {
	EventType() EventType
}

// MessagePayload is the wire shape of a chat message.
type MessagePayload struct {
	SenderID   string    `json:"sender_id"`
	SenderName *string   `json:"sender_name,omitempty"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

// MessageEvent announces a newly appended chat message.
type MessageEvent struct {
	Type    EventType      `json:"type"`
	Message MessagePayload `json:"message"`
}

func (MessageEvent) EventType() EventType { return EventTypeMessage }

// NewMessageEvent wraps a persisted message for broadcast.
func NewMessageEvent(msg conversation.Message) MessageEvent {
	return MessageEvent{
		Type: EventTypeMessage,
		Message: MessagePayload{
			SenderID:   msg.SenderID,
			SenderName: msg.SenderName,
			Content:    msg.Content,
			Timestamp:  msg.Timestamp,
		},
	}
}

// SummaryEvent announces a freshly generated conversation summary.
type SummaryEvent struct {
	Type      EventType `json:"type"`
	Summary   string    `json:"summary"`
	Keywords  []string  `json:"keywords"`
	Sentiment string    `json:"sentiment"`
}

func (SummaryEvent) EventType() EventType { return EventTypeSummary }

// NewSummaryEvent wraps a summarization result for broadcast.
func NewSummaryEvent(result *insight.Summary) SummaryEvent {
	return SummaryEvent{
		Type:      EventTypeSummary,
		Summary:   result.Summary,
		Keywords:  result.Keywords,
		Sentiment: result.Sentiment,
	}
}

// ErrorEvent reports a failure to one handle or a whole conversation.
type ErrorEvent struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
}

func (ErrorEvent) EventType() EventType { return EventTypeError }

// NewErrorEvent builds an error event with the given message.
func NewErrorEvent(message string) ErrorEvent {
	return ErrorEvent{Type: EventTypeError, Message: message}
}

// DecodeEvent parses an outbound payload back into its typed form. Clients
// and tests use this to validate the union at the boundary.
func DecodeEvent(data []byte) (Event, error) {
	var probe struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}

	switch probe.Type {
	case EventTypeMessage:
		var event MessageEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, err
		}
		return event, nil
	case EventTypeSummary:
		var event SummaryEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, err
		}
		return event, nil
	case EventTypeError:
		var event ErrorEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, err
		}
		return event, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", probe.Type)
	}
}

// InboundMessage is the payload clients send over the websocket.
type InboundMessage struct {
	SenderID      string  `json:"sender_id"`
	SenderName    *string `json:"sender_name"`
	Content       string  `json:"content"`
	AutoSummarize bool    `json:"auto_summarize"`
}
