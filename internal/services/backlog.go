package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sarrietav-dev/ai-backlog/internal/clients/redis"
	"github.com/sarrietav-dev/ai-backlog/internal/platform/logger"
	"github.com/sarrietav-dev/ai-backlog/internal/repos"
	"github.com/sarrietav-dev/ai-backlog/internal/schema"
	"github.com/sarrietav-dev/ai-backlog/internal/types"
)

// ErrNotFound covers every lookup scoped to the requesting user. A backlog
// owned by someone else is indistinguishable from one that does not exist.
var ErrNotFound = fmt.Errorf("not found")

type BacklogService interface {
	Create(ctx context.Context, userID uuid.UUID, name, description string) (*types.Backlog, error)
	Get(ctx context.Context, id, userID uuid.UUID) (*types.Backlog, error)
	List(ctx context.Context, userID uuid.UUID) ([]*types.Backlog, error)
	Update(ctx context.Context, id, userID uuid.UUID, name, description *string) (*types.Backlog, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

type backlogService struct {
	db          *gorm.DB
	log         *logger.Logger
	backlogRepo repos.BacklogRepo
	cache       redis.TechStackCache
}

func NewBacklogService(db *gorm.DB, log *logger.Logger, backlogRepo repos.BacklogRepo, cache redis.TechStackCache) BacklogService {
	return &backlogService{
		db:          db,
		log:         log.With("service", "BacklogService"),
		backlogRepo: backlogRepo,
		cache:       cache,
	}
}

func (bs *backlogService) Create(ctx context.Context, userID uuid.UUID, name, description string) (*types.Backlog, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &schema.ValidationError{Fields: []schema.FieldError{
			{Field: "name", Message: "backlog name required"},
		}}
	}
	backlog := &types.Backlog{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        name,
		Description: strings.TrimSpace(description),
	}
	return bs.backlogRepo.Create(ctx, nil, backlog)
}

func (bs *backlogService) Get(ctx context.Context, id, userID uuid.UUID) (*types.Backlog, error) {
	backlog, err := bs.backlogRepo.GetByIDForUser(ctx, nil, id, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch backlog: %w", err)
	}
	return backlog, nil
}

func (bs *backlogService) List(ctx context.Context, userID uuid.UUID) ([]*types.Backlog, error) {
	return bs.backlogRepo.ListByUser(ctx, nil, userID)
}

func (bs *backlogService) Update(ctx context.Context, id, userID uuid.UUID, name, description *string) (*types.Backlog, error) {
	updates := map[string]any{}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, &schema.ValidationError{Fields: []schema.FieldError{
				{Field: "name", Message: "backlog name required"},
			}}
		}
		updates["name"] = trimmed
	}
	if description != nil {
		updates["description"] = strings.TrimSpace(*description)
	}
	if len(updates) == 0 {
		return bs.Get(ctx, id, userID)
	}
	backlog, err := bs.backlogRepo.Update(ctx, nil, id, userID, updates)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update backlog: %w", err)
	}
	return backlog, nil
}

func (bs *backlogService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	rows, err := bs.backlogRepo.Delete(ctx, nil, id, userID)
	if err != nil {
		return fmt.Errorf("delete backlog: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	if bs.cache != nil {
		if cErr := bs.cache.Invalidate(ctx, id, userID); cErr != nil {
			bs.log.Warn("failed to invalidate tech stack cache", "backlog_id", id, "error", cErr)
		}
	}
	return nil
}
