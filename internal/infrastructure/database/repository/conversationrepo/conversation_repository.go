package conversationrepo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"chat-insights-server/internal/domain/conversation"
	"chat-insights-server/internal/domain/query"
	"chat-insights-server/internal/infrastructure/database/dbschema"
	"chat-insights-server/internal/utils/functional"
	"chat-insights-server/internal/utils/platformerrors"
)

// ConversationGormRepository persists conversations in Postgres via gorm.
type ConversationGormRepository struct {
	db *gorm.DB
}

var _ conversation.Repository = (*ConversationGormRepository)(nil)

func NewConversationGormRepository(db *gorm.DB) conversation.Repository {
	return &ConversationGormRepository{db: db}
}

// Create implements conversation.Repository.
func (repo *ConversationGormRepository) Create(ctx context.Context, conv *conversation.Conversation) error {
	model := dbschema.NewSchemaConversation(conv)
	if err := repo.db.WithContext(ctx).Create(model).Error; err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to create conversation")
	}

	// Reflect generated IDs and timestamps back into the domain object.
	conv.ID = model.ID
	conv.CreatedAt = model.CreatedAt
	conv.UpdatedAt = model.UpdatedAt
	for i := range model.Messages {
		conv.Messages[i].ID = model.Messages[i].ID
	}
	return nil
}

// FindByPublicID implements conversation.Repository.
func (repo *ConversationGormRepository) FindByPublicID(ctx context.Context, publicID string) (*conversation.Conversation, error) {
	var model dbschema.Conversation
	err := repo.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("public_id = ?", publicID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "conversation not found", err)
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to find conversation by public ID")
	}
	return model.EtoD(), nil
}

// FindByFilter implements conversation.Repository. Results are sorted by
// created_at descending.
func (repo *ConversationGormRepository) FindByFilter(ctx context.Context, filter conversation.Filter, pagination query.Pagination) ([]*conversation.Conversation, error) {
	sql := repo.applyFilter(repo.db.WithContext(ctx), filter).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("created_at DESC")

	if pagination.Limit > 0 {
		sql = sql.Offset(pagination.Offset()).Limit(pagination.Limit)
	}

	var rows []*dbschema.Conversation
	if err := sql.Find(&rows).Error; err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to find conversations")
	}

	return functional.Map(rows, func(row *dbschema.Conversation) *conversation.Conversation {
		return row.EtoD()
	}), nil
}

// Count implements conversation.Repository.
func (repo *ConversationGormRepository) Count(ctx context.Context, filter conversation.Filter) (int64, error) {
	var total int64
	err := repo.applyFilter(repo.db.WithContext(ctx).Model(&dbschema.Conversation{}), filter).
		Count(&total).Error
	if err != nil {
		return 0, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to count conversations")
	}
	return total, nil
}

// AppendMessage implements conversation.Repository. The message insert and
// the updated_at bump happen in one transaction.
func (repo *ConversationGormRepository) AppendMessage(ctx context.Context, conversationID uint, msg *conversation.Message) error {
	model := dbschema.NewSchemaConversationMessage(conversationID, msg)

	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		return tx.Model(&dbschema.Conversation{}).
			Where("id = ?", conversationID).
			Update("updated_at", time.Now().UTC()).Error
	})
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to append message")
	}

	msg.ID = model.ID
	msg.Timestamp = model.CreatedAt
	return nil
}

// UpdateSummary implements conversation.Repository. Metadata keys are merged
// into the stored map rather than replacing it.
func (repo *ConversationGormRepository) UpdateSummary(ctx context.Context, publicID string, summary string, metadata map[string]any) (bool, error) {
	updated := false
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model dbschema.Conversation
		if err := tx.Where("public_id = ?", publicID).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		merged := map[string]any(model.Metadata)
		if merged == nil {
			merged = make(map[string]any)
		}
		for k, v := range metadata {
			merged[k] = v
		}

		if err := tx.Model(&model).Updates(map[string]any{
			"summary":    summary,
			"metadata":   dbschema.JSONMap(merged),
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
			return err
		}
		updated = true
		return nil
	})
	if err != nil {
		return false, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to update summary")
	}
	return updated, nil
}

// Delete implements conversation.Repository and reports whether a row was
// actually removed. Message rows go with the conversation via the FK cascade.
func (repo *ConversationGormRepository) Delete(ctx context.Context, publicID string) (bool, error) {
	result := repo.db.WithContext(ctx).
		Where("public_id = ?", publicID).
		Delete(&dbschema.Conversation{})
	if result.Error != nil {
		return false, platformerrors.AsError(ctx, platformerrors.LayerRepository, result.Error, "failed to delete conversation")
	}
	return result.RowsAffected > 0, nil
}

// applyFilter applies filter conditions to the query.
func (repo *ConversationGormRepository) applyFilter(sql *gorm.DB, filter conversation.Filter) *gorm.DB {
	if filter.UserID != nil {
		sql = sql.Where("user_id = ?", *filter.UserID)
	}
	if filter.CreatedFrom != nil {
		sql = sql.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		sql = sql.Where("created_at <= ?", *filter.CreatedTo)
	}
	if filter.Search != nil && *filter.Search != "" {
		sql = sql.Where(
			"EXISTS (SELECT 1 FROM chat_api.conversation_messages m WHERE m.conversation_id = chat_api.conversations.id AND m.content ILIKE ?)",
			"%"+*filter.Search+"%",
		)
	}
	return sql
}
