package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sarrietav-dev/ai-backlog/internal/platform/logger"
	"github.com/sarrietav-dev/ai-backlog/internal/types"
)

type UserStoryRepo interface {
	Create(ctx context.Context, tx *gorm.DB, stories []*types.UserStory) ([]*types.UserStory, error)
	GetByIDForUser(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID) (*types.UserStory, error)
	ListByBacklog(ctx context.Context, tx *gorm.DB, backlogID uuid.UUID, limit int) ([]*types.UserStory, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UserStory, error)
	// UpdateStatus is scoped by (id, user_id) in one statement; a foreign id
	// affects zero rows and surfaces as gorm.ErrRecordNotFound.
	UpdateStatus(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID, status string) (*types.UserStory, error)
	Delete(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID) (int64, error)
}

type userStoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserStoryRepo(db *gorm.DB, baseLog *logger.Logger) UserStoryRepo {
	return &userStoryRepo{db: db, log: baseLog.With("repo", "UserStoryRepo")}
}

func (r *userStoryRepo) Create(ctx context.Context, tx *gorm.DB, stories []*types.UserStory) ([]*types.UserStory, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(stories) == 0 {
		return []*types.UserStory{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&stories).Error; err != nil {
		return nil, err
	}
	return stories, nil
}

func (r *userStoryRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID) (*types.UserStory, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.UserStory
	err := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&result).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *userStoryRepo) ListByBacklog(ctx context.Context, tx *gorm.DB, backlogID uuid.UUID, limit int) ([]*types.UserStory, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.UserStory
	q := transaction.WithContext(ctx).
		Where("backlog_id = ?", backlogID).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *userStoryRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UserStory, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.UserStory
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *userStoryRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID, status string) (*types.UserStory, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.UserStory{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.GetByIDForUser(ctx, transaction, id, userID)
}

func (r *userStoryRepo) Delete(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&types.UserStory{})
	return res.RowsAffected, res.Error
}
