package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	TaskPriorityLow      = "low"
	TaskPriorityMedium   = "medium"
	TaskPriorityHigh     = "high"
	TaskPriorityCritical = "critical"

	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusDone       = "done"
)

func ValidTaskPriority(p string) bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityCritical:
		return true
	default:
		return false
	}
}

func ValidTaskStatus(s string) bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	default:
		return false
	}
}

// Task rows are display-ordered within their parent story by OrderIndex;
// new tasks are appended after the current maximum.
type Task struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	UserStoryID    uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_story_id"`
	UserStory      *UserStory `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserStoryID;references:ID" json:"-"`
	Title          string     `gorm:"column:title;not null" json:"title"`
	Description    string     `gorm:"column:description;not null" json:"description"`
	Priority       string     `gorm:"column:priority;not null;default:medium" json:"priority"`
	EstimatedHours *float64   `gorm:"column:estimated_hours" json:"estimated_hours,omitempty"`
	Status         string     `gorm:"column:status;not null;default:todo" json:"status"`
	OrderIndex     int        `gorm:"column:order_index;not null;default:0" json:"order_index"`
	CreatedAt      time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null" json:"updated_at"`
}

func (Task) TableName() string { return "tasks" }
