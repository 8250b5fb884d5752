package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sarrietav-dev/ai-backlog/internal/platform/logger"
	"github.com/sarrietav-dev/ai-backlog/internal/types"
)

type TaskRepo interface {
	Create(ctx context.Context, tx *gorm.DB, tasks []*types.Task) ([]*types.Task, error)
	ListByStory(ctx context.Context, tx *gorm.DB, storyID uuid.UUID) ([]*types.Task, error)
	// MaxOrderIndex returns the current maximum order_index for the story and
	// whether any task exists at all.
	MaxOrderIndex(ctx context.Context, tx *gorm.DB, storyID uuid.UUID) (int, bool, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID, status string) (*types.Task, error)
	Delete(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID) (int64, error)
}

type taskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRepo(db *gorm.DB, baseLog *logger.Logger) TaskRepo {
	return &taskRepo{db: db, log: baseLog.With("repo", "TaskRepo")}
}

func (r *taskRepo) Create(ctx context.Context, tx *gorm.DB, tasks []*types.Task) ([]*types.Task, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(tasks) == 0 {
		return []*types.Task{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepo) ListByStory(ctx context.Context, tx *gorm.DB, storyID uuid.UUID) ([]*types.Task, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Task
	if err := transaction.WithContext(ctx).
		Where("user_story_id = ?", storyID).
		Order("order_index ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *taskRepo) MaxOrderIndex(ctx context.Context, tx *gorm.DB, storyID uuid.UUID) (int, bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var top types.Task
	err := transaction.WithContext(ctx).
		Where("user_story_id = ?", storyID).
		Order("order_index DESC").
		First(&top).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return top.OrderIndex, true, nil
}

func (r *taskRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID, status string) (*types.Task, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Task{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	var result types.Task
	if err := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *taskRepo) Delete(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&types.Task{})
	return res.RowsAffected, res.Error
}
