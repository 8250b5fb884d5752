package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sarrietav-dev/ai-backlog/internal/platform/logger"
	"github.com/sarrietav-dev/ai-backlog/internal/types"
)

type TechStackRepo interface {
	// Replace deletes any prior suggestion rows for the (backlog, user) pair
	// and inserts the new one, so at most one current set survives per
	// backlog. Run inside a transaction by the caller.
	Replace(ctx context.Context, tx *gorm.DB, suggestion *types.TechStackSuggestion) (*types.TechStackSuggestion, error)
	GetLatestForBacklog(ctx context.Context, tx *gorm.DB, backlogID, userID uuid.UUID) (*types.TechStackSuggestion, error)
	DeleteByBacklog(ctx context.Context, tx *gorm.DB, backlogID, userID uuid.UUID) error
}

type techStackRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTechStackRepo(db *gorm.DB, baseLog *logger.Logger) TechStackRepo {
	return &techStackRepo{db: db, log: baseLog.With("repo", "TechStackRepo")}
}

func (r *techStackRepo) Replace(ctx context.Context, tx *gorm.DB, suggestion *types.TechStackSuggestion) (*types.TechStackSuggestion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("backlog_id = ? AND user_id = ?", suggestion.BacklogID, suggestion.UserID).
		Delete(&types.TechStackSuggestion{}).Error; err != nil {
		return nil, err
	}
	if err := transaction.WithContext(ctx).Create(suggestion).Error; err != nil {
		return nil, err
	}
	return suggestion, nil
}

func (r *techStackRepo) GetLatestForBacklog(ctx context.Context, tx *gorm.DB, backlogID, userID uuid.UUID) (*types.TechStackSuggestion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.TechStackSuggestion
	err := transaction.WithContext(ctx).
		Where("backlog_id = ? AND user_id = ?", backlogID, userID).
		Order("created_at DESC").
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *techStackRepo) DeleteByBacklog(ctx context.Context, tx *gorm.DB, backlogID, userID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("backlog_id = ? AND user_id = ?", backlogID, userID).
		Delete(&types.TechStackSuggestion{}).Error
}
