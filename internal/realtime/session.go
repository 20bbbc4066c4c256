package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chat-insights-server/internal/domain/conversation"
	"chat-insights-server/internal/domain/insight"
	"chat-insights-server/internal/infrastructure/logger"
	"chat-insights-server/internal/infrastructure/metrics"
)

// Conn is the transport a session reads from and writes to. Send must be
// safe for concurrent use because broadcasts and session replies can race.
type Conn interface {
	ReadMessage() ([]byte, error)
	Send(data []byte) error
	Close() error
}

// Store is the slice of the conversation service a session depends on.
type Store interface {
	GetConversation(ctx context.Context, publicID string) (*conversation.Conversation, error)
	CreateConversation(ctx context.Context, input conversation.CreateConversationInput) (*conversation.Conversation, error)
	AddMessage(ctx context.Context, publicID string, msg conversation.Message) (*conversation.Conversation, error)
	UpdateSummary(ctx context.Context, publicID string, summary string, metadata map[string]any) (bool, error)
}

// State tracks a session through its lifecycle.
type State int32

const (
	StateConnecting State = iota
	StateActive
	StateClosed
)

// SessionConfig carries the collaborators and settings for one session.
type SessionConfig struct {
	ConversationID   string
	UserID           string
	Conn             Conn
	Registry         *Registry
	Store            Store
	Analyzer         insight.Analyzer
	SummarizeTimeout time.Duration
}

// Session coordinates one websocket connection: it subscribes the connection
// to its conversation, pumps inbound messages through the store, fans the
// results out, and optionally kicks off summarization.
type Session struct {
	conversationID   string
	userID           string
	conn             Conn
	registry         *Registry
	store            Store
	analyzer         insight.Analyzer
	summarizeTimeout time.Duration

	state State
	ready bool
	log   zerolog.Logger
}

// NewSession builds a session in the CONNECTING state.
func NewSession(cfg SessionConfig) *Session {
	timeout := cfg.SummarizeTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Session{
		conversationID:   cfg.ConversationID,
		userID:           cfg.UserID,
		conn:             cfg.Conn,
		registry:         cfg.Registry,
		store:            cfg.Store,
		analyzer:         cfg.Analyzer,
		summarizeTimeout: timeout,
		state:            StateConnecting,
		log: logger.Component("realtime.session").With().
			Str("conversation_id", cfg.ConversationID).
			Logger(),
	}
}

// State reports the session's current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Run drives the session until the connection closes or ctx is canceled.
// The connection is subscribed for the whole active phase and unsubscribed
// exactly once on the way out, whatever the exit path.
func (s *Session) Run(ctx context.Context) {
	s.registry.Subscribe(s.conversationID, s.conn)
	defer func() {
		s.state = StateClosed
		s.registry.Unsubscribe(s.conversationID, s.conn)
		s.conn.Close()
	}()

	s.resolveConversation(ctx)
	s.state = StateActive

	for {
		data, err := s.conn.ReadMessage()
		if err != nil {
			s.log.Debug().Err(err).Msg("connection closed")
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.handleInbound(ctx, data)
	}
}

// resolveConversation checks that the backing conversation exists, creating
// it when a user ID was supplied with the connection. A session without a
// backing conversation stays open but rejects inbound messages.
func (s *Session) resolveConversation(ctx context.Context) {
	if s.ready {
		return
	}

	conv, err := s.store.GetConversation(ctx, s.conversationID)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to resolve conversation")
		return
	}
	if conv != nil {
		s.ready = true
		return
	}

	if s.userID == "" {
		s.log.Warn().Msg("conversation does not exist and no user id was supplied")
		return
	}

	title := fmt.Sprintf("Conversation %s", s.conversationID)
	_, err = s.store.CreateConversation(ctx, conversation.CreateConversationInput{
		PublicID: s.conversationID,
		UserID:   s.userID,
		Title:    &title,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to create conversation")
		return
	}
	s.ready = true
}

func (s *Session) handleInbound(ctx context.Context, data []byte) {
	var inbound InboundMessage
	if err := json.Unmarshal(data, &inbound); err != nil {
		s.sendError("Invalid JSON data")
		return
	}

	// Empty and whitespace-only messages are dropped without feedback or
	// persistence.
	if strings.TrimSpace(inbound.Content) == "" {
		return
	}

	s.resolveConversation(ctx)
	if !s.ready {
		s.sendError("Conversation not initialized. Reconnect with a userId to create it.")
		return
	}

	senderID := inbound.SenderID
	if senderID == "" {
		senderID = uuid.NewString()
	}
	senderName := inbound.SenderName
	if senderName == nil {
		display := "User " + senderID
		senderName = &display
	}

	msg := conversation.NewMessage(senderID, senderName, inbound.Content, time.Now().UTC())
	updated, err := s.store.AddMessage(ctx, s.conversationID, msg)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to persist message")
		s.sendError("Failed to save message")
		return
	}
	if updated == nil {
		s.ready = false
		s.sendError("Conversation no longer exists")
		return
	}

	metrics.MessagesAppendedTotal.Inc()
	s.registry.Broadcast(s.conversationID, NewMessageEvent(msg))

	if inbound.AutoSummarize {
		go s.summarizeAndBroadcast(updated)
	}
}

// summarizeAndBroadcast runs detached from the session read loop so a slow
// model never blocks message handling, and so closing the connection does
// not abandon an in-flight summary.
func (s *Session) summarizeAndBroadcast(conv *conversation.Conversation) {
	ctx, cancel := context.WithTimeout(context.Background(), s.summarizeTimeout)
	defer cancel()

	result, err := s.analyzer.Summarize(ctx, conv, "")
	if err != nil {
		metrics.RecordSummary("realtime", "error")
		s.log.Error().Err(err).Msg("summarization failed")
		s.registry.Broadcast(s.conversationID, NewErrorEvent("Failed to generate summary: "+err.Error()))
		return
	}

	_, err = s.store.UpdateSummary(ctx, s.conversationID, result.Summary, map[string]any{
		conversation.MetadataKeyKeywords:  result.Keywords,
		conversation.MetadataKeySentiment: result.Sentiment,
	})
	if err != nil {
		metrics.RecordSummary("realtime", "error")
		s.log.Error().Err(err).Msg("failed to store summary")
		s.registry.Broadcast(s.conversationID, NewErrorEvent("Failed to save summary"))
		return
	}

	metrics.RecordSummary("realtime", "ok")
	s.registry.Broadcast(s.conversationID, NewSummaryEvent(result))
}

// sendError delivers an error event to this session's connection only.
func (s *Session) sendError(message string) {
	data, err := json.Marshal(NewErrorEvent(message))
	if err != nil {
		return
	}
	if err := s.conn.Send(data); err != nil {
		s.log.Warn().Err(err).Msg("failed to deliver error event")
	}
}
