package dbschema

import (
	"database/sql/driver"
	"encoding/json"

	"chat-insights-server/internal/domain/conversation"
	"chat-insights-server/internal/infrastructure/database"
	"chat-insights-server/internal/utils/functional"
)

func init() {
	database.RegisterSchemaForAutoMigrate(Conversation{})
	database.RegisterSchemaForAutoMigrate(ConversationMessage{})
}

// Conversation is the persisted conversation schema.
type Conversation struct {
	BaseModel
	PublicID string  `gorm:"type:varchar(64);uniqueIndex;not null"`
	UserID   string  `gorm:"type:varchar(128);index:idx_conversation_user_created,priority:1;not null"`
	Title    *string `gorm:"type:varchar(256)"`
	Summary  *string `gorm:"type:text"`
	Metadata JSONMap `gorm:"type:jsonb"`

	Messages []ConversationMessage `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

// ConversationMessage is the persisted message schema. Rows are append-only;
// ordering within a conversation follows the insert ID.
type ConversationMessage struct {
	BaseModel
	ConversationID uint    `gorm:"index;not null"`
	SenderID       string  `gorm:"type:varchar(128);not null"`
	SenderName     *string `gorm:"type:varchar(256)"`
	Content        string  `gorm:"type:text;not null"`
}

// JSONMap is a custom type for map[string]any stored as JSONB.
type JSONMap map[string]any

func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONMap) Scan(value any) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// NewSchemaConversation creates a database entity from the domain conversation.
func NewSchemaConversation(c *conversation.Conversation) *Conversation {
	return &Conversation{
		BaseModel: BaseModel{
			ID:        c.ID,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		},
		PublicID: c.PublicID,
		UserID:   c.UserID,
		Title:    c.Title,
		Summary:  c.Summary,
		Metadata: JSONMap(c.Metadata),
		Messages: functional.Map(c.Messages, func(m conversation.Message) ConversationMessage {
			return *NewSchemaConversationMessage(c.ID, &m)
		}),
	}
}

// NewSchemaConversationMessage creates a database entity from a domain message.
func NewSchemaConversationMessage(conversationID uint, m *conversation.Message) *ConversationMessage {
	return &ConversationMessage{
		BaseModel: BaseModel{
			ID:        m.ID,
			CreatedAt: m.Timestamp,
		},
		ConversationID: conversationID,
		SenderID:       m.SenderID,
		SenderName:     m.SenderName,
		Content:        m.Content,
	}
}

// EtoD converts the entity to its domain representation.
func (c *Conversation) EtoD() *conversation.Conversation {
	meta := map[string]any(c.Metadata)
	if meta == nil {
		meta = make(map[string]any)
	}
	return &conversation.Conversation{
		ID:       c.ID,
		PublicID: c.PublicID,
		UserID:   c.UserID,
		Title:    c.Title,
		Summary:  c.Summary,
		Metadata: meta,
		Messages: functional.Map(c.Messages, func(m ConversationMessage) conversation.Message {
			return *m.EtoD()
		}),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// EtoD converts the entity to its domain representation.
func (m *ConversationMessage) EtoD() *conversation.Message {
	return &conversation.Message{
		ID:         m.ID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Content:    m.Content,
		Timestamp:  m.CreatedAt,
	}
}
