package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	StoryStatusBacklog    = "backlog"
	StoryStatusInProgress = "in_progress"
	StoryStatusDone       = "done"
)

func ValidStoryStatus(s string) bool {
	switch s {
	case StoryStatusBacklog, StoryStatusInProgress, StoryStatusDone:
		return true
	default:
		return false
	}
}

// UserStory may predate backlogs; legacy rows carry a nil BacklogID.
type UserStory struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID             uuid.UUID      `gorm:"type:uuid;index;not null" json:"user_id"`
	BacklogID          *uuid.UUID     `gorm:"type:uuid;index" json:"backlog_id,omitempty"`
	Backlog            *Backlog       `gorm:"constraint:OnDelete:CASCADE;foreignKey:BacklogID;references:ID" json:"-"`
	Title              string         `gorm:"column:title;not null" json:"title"`
	Description        string         `gorm:"column:description;not null" json:"description"`
	AcceptanceCriteria datatypes.JSON `gorm:"column:acceptance_criteria;type:jsonb" json:"acceptance_criteria"`
	Status             string         `gorm:"column:status;not null;default:backlog" json:"status"`
	CreatedAt          time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null" json:"updated_at"`
}

func (UserStory) TableName() string { return "user_stories" }
