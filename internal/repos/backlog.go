package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sarrietav-dev/ai-backlog/internal/platform/logger"
	"github.com/sarrietav-dev/ai-backlog/internal/types"
)

type BacklogRepo interface {
	Create(ctx context.Context, tx *gorm.DB, backlog *types.Backlog) (*types.Backlog, error)
	// GetByIDForUser filters by both primary key and owner; a foreign row
	// comes back as not-found.
	GetByIDForUser(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID) (*types.Backlog, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Backlog, error)
	Update(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID, updates map[string]any) (*types.Backlog, error)
	Delete(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID) (int64, error)
}

type backlogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBacklogRepo(db *gorm.DB, baseLog *logger.Logger) BacklogRepo {
	return &backlogRepo{db: db, log: baseLog.With("repo", "BacklogRepo")}
}

func (r *backlogRepo) Create(ctx context.Context, tx *gorm.DB, backlog *types.Backlog) (*types.Backlog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(backlog).Error; err != nil {
		return nil, err
	}
	return backlog, nil
}

func (r *backlogRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID) (*types.Backlog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.Backlog
	err := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&result).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *backlogRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Backlog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Backlog
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *backlogRepo) Update(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID, updates map[string]any) (*types.Backlog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Backlog{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.GetByIDForUser(ctx, transaction, id, userID)
}

func (r *backlogRepo) Delete(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&types.Backlog{})
	return res.RowsAffected, res.Error
}
