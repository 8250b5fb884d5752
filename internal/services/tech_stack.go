package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sarrietav-dev/ai-backlog/internal/clients/redis"
	"github.com/sarrietav-dev/ai-backlog/internal/platform/logger"
	"github.com/sarrietav-dev/ai-backlog/internal/platform/openai"
	"github.com/sarrietav-dev/ai-backlog/internal/prompts"
	"github.com/sarrietav-dev/ai-backlog/internal/repos"
	"github.com/sarrietav-dev/ai-backlog/internal/schema"
	"github.com/sarrietav-dev/ai-backlog/internal/types"
)

type TechStackService interface {
	Generate(ctx context.Context, backlogID, userID uuid.UUID, onDelta func(delta string)) (*schema.TechStackPayload, error)
	Save(ctx context.Context, backlogID, userID uuid.UUID, payload *schema.TechStackPayload) (*types.TechStackSuggestion, error)
	GetLatest(ctx context.Context, backlogID, userID uuid.UUID) (*types.TechStackSuggestion, error)
}

type techStackService struct {
	db            *gorm.DB
	log           *logger.Logger
	ai            openai.Client
	backlogRepo   repos.BacklogRepo
	storyRepo     repos.UserStoryRepo
	techStackRepo repos.TechStackRepo
	cache         redis.TechStackCache
}

func NewTechStackService(
	db *gorm.DB,
	log *logger.Logger,
	ai openai.Client,
	backlogRepo repos.BacklogRepo,
	storyRepo repos.UserStoryRepo,
	techStackRepo repos.TechStackRepo,
	cache redis.TechStackCache,
) TechStackService {
	return &techStackService{
		db:            db,
		log:           log.With("service", "TechStackService"),
		ai:            ai,
		backlogRepo:   backlogRepo,
		storyRepo:     storyRepo,
		techStackRepo: techStackRepo,
		cache:         cache,
	}
}

func (tss *techStackService) Generate(ctx context.Context, backlogID, userID uuid.UUID, onDelta func(delta string)) (*schema.TechStackPayload, error) {
	backlog, err := tss.backlogRepo.GetByIDForUser(ctx, nil, backlogID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch backlog: %w", err)
	}
	stories, err := tss.storyRepo.ListByBacklog(ctx, nil, backlogID, 0)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}

	projectContext := prompts.TechStackProjectContext(backlog, stories)

	genCtx, cancel := withGenerationTimeout(ctx)
	defer cancel()
	raw, err := tss.ai.StreamJSON(
		genCtx,
		prompts.TechStackSystem(),
		prompts.TechStackUser(projectContext),
		"tech_stack",
		schema.TechStackJSONSchema(),
		onDelta,
	)
	if err != nil {
		return nil, newGenerationError("tech_stack", err)
	}

	var payload schema.TechStackPayload
	if err := decodeGenerated("tech_stack", raw, &payload); err != nil {
		return nil, err
	}
	if err := payload.Validate(); err != nil {
		return nil, newGenerationError("tech_stack", err)
	}
	return &payload, nil
}

func (tss *techStackService) Save(ctx context.Context, backlogID, userID uuid.UUID, payload *schema.TechStackPayload) (*types.TechStackSuggestion, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	if _, err := tss.backlogRepo.GetByIDForUser(ctx, nil, backlogID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch backlog: %w", err)
	}

	suggestionsJSON, err := json.Marshal(payload.Suggestions)
	if err != nil {
		return nil, fmt.Errorf("marshal suggestions: %w", err)
	}
	featuresJSON, err := json.Marshal(payload.KeyFeatures)
	if err != nil {
		return nil, fmt.Errorf("marshal key features: %w", err)
	}

	suggestion := &types.TechStackSuggestion{
		ID:                 uuid.New(),
		BacklogID:          backlogID,
		UserID:             userID,
		ProjectType:        payload.ProjectType,
		Complexity:         payload.Complexity,
		EstimatedTimeframe: payload.EstimatedTimeframe,
		KeyFeatures:        datatypes.JSON(featuresJSON),
		Suggestions:        datatypes.JSON(suggestionsJSON),
	}

	// One suggestion set per backlog. The replace happens in a single
	// transaction so readers never observe an empty window.
	var saved *types.TechStackSuggestion
	txErr := tss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rErr error
		saved, rErr = tss.techStackRepo.Replace(ctx, tx, suggestion)
		return rErr
	})
	if txErr != nil {
		return nil, fmt.Errorf("save tech stack: %w", txErr)
	}

	if tss.cache != nil {
		if cErr := tss.cache.Set(ctx, saved); cErr != nil {
			tss.log.Warn("failed to cache tech stack", "backlog_id", backlogID, "error", cErr)
		}
	}
	return saved, nil
}

// GetLatest returns nil without error when the backlog exists but has no
// suggestion saved yet. ErrNotFound is reserved for foreign backlogs.
func (tss *techStackService) GetLatest(ctx context.Context, backlogID, userID uuid.UUID) (*types.TechStackSuggestion, error) {
	if _, err := tss.backlogRepo.GetByIDForUser(ctx, nil, backlogID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch backlog: %w", err)
	}

	if tss.cache != nil {
		cached, cErr := tss.cache.Get(ctx, backlogID, userID)
		if cErr != nil {
			tss.log.Warn("tech stack cache read failed", "backlog_id", backlogID, "error", cErr)
		} else if cached != nil {
			return cached, nil
		}
	}

	suggestion, err := tss.techStackRepo.GetLatestForBacklog(ctx, nil, backlogID, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch tech stack: %w", err)
	}
	if suggestion == nil {
		return nil, nil
	}
	if tss.cache != nil {
		if cErr := tss.cache.Set(ctx, suggestion); cErr != nil {
			tss.log.Warn("failed to cache tech stack", "backlog_id", backlogID, "error", cErr)
		}
	}
	return suggestion, nil
}
