package conversation

import (
	"context"
	"time"

	"chat-insights-server/internal/domain/query"
	"chat-insights-server/internal/utils/platformerrors"
)

// Service handles business logic for conversations.
type Service struct {
	repo Repository
}

// NewService creates a new conversation service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateConversationInput is the input for creating a conversation.
type CreateConversationInput struct {
	PublicID string
	UserID   string
	Title    *string
	Messages []Message
	Metadata map[string]any
}

// CreateConversation persists a new conversation, generating a public ID
// when the caller did not supply one.
func (s *Service) CreateConversation(ctx context.Context, input CreateConversationInput) (*Conversation, error) {
	if input.UserID == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "user_id is required", nil)
	}

	conv, err := NewConversation(input.PublicID, input.UserID, input.Title, input.Messages, input.Metadata)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to build conversation")
	}

	if err := s.repo.Create(ctx, conv); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to create conversation")
	}

	return conv, nil
}

// GetConversation fetches a conversation by its public ID. A missing
// conversation is not an error: the result is nil.
func (s *Service) GetConversation(ctx context.Context, publicID string) (*Conversation, error) {
	conv, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		if platformerrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to get conversation")
	}
	return conv, nil
}

// AddMessage appends a message to an existing conversation and returns the
// updated conversation, or nil when the conversation does not exist.
func (s *Service) AddMessage(ctx context.Context, publicID string, msg Message) (*Conversation, error) {
	conv, err := s.GetConversation(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, nil
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	if err := s.repo.AppendMessage(ctx, conv.ID, &msg); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to append message")
	}

	return s.GetConversation(ctx, publicID)
}

// UpdateSummary stores a summary on the conversation and merges the supplied
// metadata keys. Reports whether a conversation was actually updated.
func (s *Service) UpdateSummary(ctx context.Context, publicID string, summary string, metadata map[string]any) (bool, error) {
	updated, err := s.repo.UpdateSummary(ctx, publicID, summary, metadata)
	if err != nil {
		return false, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to update summary")
	}
	return updated, nil
}

// ListUserConversations returns one page of a user's conversations sorted by
// created_at descending, plus the total matching count.
func (s *Service) ListUserConversations(ctx context.Context, userID string, filter Filter, pagination query.Pagination) ([]*Conversation, int64, error) {
	filter.UserID = &userID

	convs, err := s.repo.FindByFilter(ctx, filter, pagination)
	if err != nil {
		return nil, 0, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list conversations")
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to count conversations")
	}

	return convs, total, nil
}

// DeleteConversation removes a conversation, reporting whether a row was
// actually deleted. Deleting an absent conversation is a no-op.
func (s *Service) DeleteConversation(ctx context.Context, publicID string) (bool, error) {
	deleted, err := s.repo.Delete(ctx, publicID)
	if err != nil {
		return false, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to delete conversation")
	}
	return deleted, nil
}
