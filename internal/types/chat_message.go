package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is append-only, ordered by CreatedAt.
type ChatMessage struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	BacklogID uuid.UUID      `gorm:"type:uuid;index;not null" json:"backlog_id"`
	Backlog   *Backlog       `gorm:"constraint:OnDelete:CASCADE;foreignKey:BacklogID;references:ID" json:"-"`
	UserID    uuid.UUID      `gorm:"type:uuid;index;not null" json:"user_id"`
	Role      string         `gorm:"column:role;not null" json:"role"`
	Content   string         `gorm:"column:content;not null" json:"content"`
	Metadata  datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
}

func (ChatMessage) TableName() string { return "chat_messages" }
