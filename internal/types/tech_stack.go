package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ComplexitySimple   = "simple"
	ComplexityModerate = "moderate"
	ComplexityComplex  = "complex"
)

func ValidComplexity(c string) bool {
	switch c {
	case ComplexitySimple, ComplexityModerate, ComplexityComplex:
		return true
	default:
		return false
	}
}

// TechStackSuggestion holds the single current recommendation set for a
// backlog; saving a new one replaces the prior row(s).
type TechStackSuggestion struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	BacklogID          uuid.UUID      `gorm:"type:uuid;index;not null" json:"backlog_id"`
	Backlog            *Backlog       `gorm:"constraint:OnDelete:CASCADE;foreignKey:BacklogID;references:ID" json:"-"`
	UserID             uuid.UUID      `gorm:"type:uuid;index;not null" json:"user_id"`
	ProjectType        string         `gorm:"column:project_type;not null" json:"project_type"`
	Complexity         string         `gorm:"column:complexity;not null" json:"complexity"`
	EstimatedTimeframe string         `gorm:"column:estimated_timeframe" json:"estimated_timeframe"`
	KeyFeatures        datatypes.JSON `gorm:"column:key_features;type:jsonb" json:"key_features"`
	Suggestions        datatypes.JSON `gorm:"column:suggestions;type:jsonb" json:"suggestions"`
	CreatedAt          time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null" json:"updated_at"`
}

func (TechStackSuggestion) TableName() string { return "tech_stack_suggestions" }
