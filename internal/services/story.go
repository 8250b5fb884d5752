package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sarrietav-dev/ai-backlog/internal/platform/logger"
	"github.com/sarrietav-dev/ai-backlog/internal/platform/openai"
	"github.com/sarrietav-dev/ai-backlog/internal/prompts"
	"github.com/sarrietav-dev/ai-backlog/internal/repos"
	"github.com/sarrietav-dev/ai-backlog/internal/schema"
	"github.com/sarrietav-dev/ai-backlog/internal/types"
)

type StoryService interface {
	GenerateFromPrompt(ctx context.Context, prompt string, onDelta func(delta string)) (*schema.StoriesPayload, error)
	GenerateFromChat(ctx context.Context, backlogID, userID uuid.UUID, messages []openai.Message, onDelta func(delta string)) (*schema.StoriesPayload, error)
	SaveStories(ctx context.Context, userID uuid.UUID, backlogID *uuid.UUID, payload *schema.StoriesPayload) ([]*types.UserStory, error)
	UpdateStatus(ctx context.Context, id, userID uuid.UUID, status string) (*types.UserStory, error)
	ListByBacklog(ctx context.Context, backlogID, userID uuid.UUID) ([]*types.UserStory, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*types.UserStory, error)
}

type storyService struct {
	db          *gorm.DB
	log         *logger.Logger
	ai          openai.Client
	backlogRepo repos.BacklogRepo
	storyRepo   repos.UserStoryRepo
	messageRepo repos.ChatMessageRepo
}

func NewStoryService(
	db *gorm.DB,
	log *logger.Logger,
	ai openai.Client,
	backlogRepo repos.BacklogRepo,
	storyRepo repos.UserStoryRepo,
	messageRepo repos.ChatMessageRepo,
) StoryService {
	return &storyService{
		db:          db,
		log:         log.With("service", "StoryService"),
		ai:          ai,
		backlogRepo: backlogRepo,
		storyRepo:   storyRepo,
		messageRepo: messageRepo,
	}
}

func (ss *storyService) GenerateFromPrompt(ctx context.Context, prompt string, onDelta func(delta string)) (*schema.StoriesPayload, error) {
	req := schema.PromptRequest{Prompt: prompt}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	genCtx, cancel := withGenerationTimeout(ctx)
	defer cancel()
	raw, err := ss.ai.StreamJSON(
		genCtx,
		prompts.StoryGeneratorSystem(),
		prompts.StoryGeneratorUser(req.Prompt),
		"user_stories",
		schema.StoriesJSONSchema(),
		onDelta,
	)
	if err != nil {
		return nil, newGenerationError("stories", err)
	}

	var payload schema.StoriesPayload
	if err := decodeGenerated("stories", raw, &payload); err != nil {
		return nil, err
	}
	if err := payload.Validate(); err != nil {
		return nil, newGenerationError("stories", err)
	}
	return &payload, nil
}

func (ss *storyService) GenerateFromChat(ctx context.Context, backlogID, userID uuid.UUID, messages []openai.Message, onDelta func(delta string)) (*schema.StoriesPayload, error) {
	backlog, err := ss.backlogRepo.GetByIDForUser(ctx, nil, backlogID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch backlog: %w", err)
	}

	var (
		history  []*types.ChatMessage
		existing []*types.UserStory
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var hErr error
		history, hErr = ss.messageRepo.ListRecentByBacklog(gctx, nil, backlogID, prompts.MaxChatHistoryMessages)
		return hErr
	})
	g.Go(func() error {
		var sErr error
		existing, sErr = ss.storyRepo.ListByBacklog(gctx, nil, backlogID, prompts.MaxContextStories)
		return sErr
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load generation context: %w", err)
	}

	// The persisted window and the client-supplied turns together form the
	// conversation; either alone is enough.
	conversation := prompts.ChatConversation(history, messages)
	if len(conversation) == 0 {
		return nil, &schema.ValidationError{Fields: []schema.FieldError{
			{Field: "messages", Message: "no conversation to generate stories from"},
		}}
	}

	genCtx, cancel := withGenerationTimeout(ctx)
	defer cancel()
	raw, err := ss.ai.StreamJSON(
		genCtx,
		prompts.StoriesFromChatSystem(backlog, conversation, existing),
		prompts.StoriesFromChatUser(),
		"user_stories",
		schema.StoriesJSONSchema(),
		onDelta,
	)
	if err != nil {
		return nil, newGenerationError("stories", err)
	}

	var payload schema.StoriesPayload
	if err := decodeGenerated("stories", raw, &payload); err != nil {
		return nil, err
	}
	if err := payload.Validate(); err != nil {
		return nil, newGenerationError("stories", err)
	}
	return &payload, nil
}

func (ss *storyService) SaveStories(ctx context.Context, userID uuid.UUID, backlogID *uuid.UUID, payload *schema.StoriesPayload) ([]*types.UserStory, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	if backlogID != nil {
		if _, err := ss.backlogRepo.GetByIDForUser(ctx, nil, *backlogID, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("fetch backlog: %w", err)
		}
	}

	stories := make([]*types.UserStory, 0, len(payload.Stories))
	for _, in := range payload.Stories {
		criteria, err := json.Marshal(in.AcceptanceCriteria)
		if err != nil {
			return nil, fmt.Errorf("marshal acceptance criteria: %w", err)
		}
		stories = append(stories, &types.UserStory{
			ID:                 uuid.New(),
			BacklogID:          backlogID,
			UserID:             userID,
			Title:              in.Title,
			Description:        in.Description,
			AcceptanceCriteria: datatypes.JSON(criteria),
			Status:             types.StoryStatusBacklog,
		})
	}

	var saved []*types.UserStory
	txErr := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cErr error
		saved, cErr = ss.storyRepo.Create(ctx, tx, stories)
		return cErr
	})
	if txErr != nil {
		return nil, fmt.Errorf("save stories: %w", txErr)
	}
	return saved, nil
}

func (ss *storyService) UpdateStatus(ctx context.Context, id, userID uuid.UUID, status string) (*types.UserStory, error) {
	if !types.ValidStoryStatus(status) {
		return nil, &schema.ValidationError{Fields: []schema.FieldError{
			{Field: "status", Message: fmt.Sprintf("invalid story status %q", status)},
		}}
	}
	story, err := ss.storyRepo.UpdateStatus(ctx, nil, id, userID, status)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update story status: %w", err)
	}
	return story, nil
}

func (ss *storyService) ListByBacklog(ctx context.Context, backlogID, userID uuid.UUID) ([]*types.UserStory, error) {
	if _, err := ss.backlogRepo.GetByIDForUser(ctx, nil, backlogID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch backlog: %w", err)
	}
	return ss.storyRepo.ListByBacklog(ctx, nil, backlogID, 0)
}

func (ss *storyService) ListByUser(ctx context.Context, userID uuid.UUID) ([]*types.UserStory, error) {
	return ss.storyRepo.ListByUser(ctx, nil, userID)
}
