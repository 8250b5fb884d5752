package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/sarrietav-dev/ai-backlog/internal/platform/logger"
	"github.com/sarrietav-dev/ai-backlog/internal/platform/openai"
	"github.com/sarrietav-dev/ai-backlog/internal/prompts"
	"github.com/sarrietav-dev/ai-backlog/internal/repos"
	"github.com/sarrietav-dev/ai-backlog/internal/schema"
	"github.com/sarrietav-dev/ai-backlog/internal/types"
)

type ChatService interface {
	// StreamReply runs one assistant turn for the backlog's chat. Text deltas
	// are forwarded to onDelta as they arrive and both the user turn and the
	// finished assistant turn are persisted.
	StreamReply(ctx context.Context, backlogID, userID uuid.UUID, messages []openai.Message, onDelta func(delta string)) (*types.ChatMessage, error)
	ListMessages(ctx context.Context, backlogID, userID uuid.UUID) ([]*types.ChatMessage, error)
}

type chatService struct {
	db          *gorm.DB
	log         *logger.Logger
	ai          openai.Client
	backlogRepo repos.BacklogRepo
	messageRepo repos.ChatMessageRepo
	storyRepo   repos.UserStoryRepo
}

func NewChatService(
	db *gorm.DB,
	log *logger.Logger,
	ai openai.Client,
	backlogRepo repos.BacklogRepo,
	messageRepo repos.ChatMessageRepo,
	storyRepo repos.UserStoryRepo,
) ChatService {
	return &chatService{
		db:          db,
		log:         log.With("service", "ChatService"),
		ai:          ai,
		backlogRepo: backlogRepo,
		messageRepo: messageRepo,
		storyRepo:   storyRepo,
	}
}

func (cs *chatService) StreamReply(ctx context.Context, backlogID, userID uuid.UUID, messages []openai.Message, onDelta func(delta string)) (*types.ChatMessage, error) {
	backlog, err := cs.backlogRepo.GetByIDForUser(ctx, nil, backlogID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch backlog: %w", err)
	}

	incoming := lastUserMessage(messages)
	if incoming == "" {
		return nil, &schema.ValidationError{Fields: []schema.FieldError{
			{Field: "messages", Message: "a user message is required"},
		}}
	}

	var (
		history []*types.ChatMessage
		stories []*types.UserStory
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var hErr error
		history, hErr = cs.messageRepo.ListRecentByBacklog(gctx, nil, backlogID, prompts.MaxChatHistoryMessages)
		return hErr
	})
	g.Go(func() error {
		var sErr error
		stories, sErr = cs.storyRepo.ListByBacklog(gctx, nil, backlogID, prompts.MaxContextStories)
		return sErr
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load chat context: %w", err)
	}

	userTurn := &types.ChatMessage{
		ID:        uuid.New(),
		BacklogID: backlogID,
		UserID:    userID,
		Role:      types.ChatRoleUser,
		Content:   incoming,
	}
	if _, err := cs.messageRepo.Create(ctx, nil, []*types.ChatMessage{userTurn}); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}

	system := prompts.ChatSystemPrompt(backlog, stories)
	conversation := prompts.ChatConversation(history, messages)

	genCtx, cancel := withGenerationTimeout(ctx)
	defer cancel()
	reply, err := cs.ai.StreamChat(genCtx, system, conversation, onDelta)
	if err != nil {
		return nil, newGenerationError("chat", err)
	}

	assistantTurn := &types.ChatMessage{
		ID:        uuid.New(),
		BacklogID: backlogID,
		UserID:    userID,
		Role:      types.ChatRoleAssistant,
		Content:   reply,
	}
	if _, err := cs.messageRepo.Create(ctx, nil, []*types.ChatMessage{assistantTurn}); err != nil {
		// The reply already streamed to the client. Log and return it anyway.
		cs.log.Warn("failed to persist assistant message", "backlog_id", backlogID, "error", err)
	}
	return assistantTurn, nil
}

func (cs *chatService) ListMessages(ctx context.Context, backlogID, userID uuid.UUID) ([]*types.ChatMessage, error) {
	if _, err := cs.backlogRepo.GetByIDForUser(ctx, nil, backlogID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch backlog: %w", err)
	}
	return cs.messageRepo.ListByBacklog(ctx, nil, backlogID)
}

func lastUserMessage(messages []openai.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == openai.RoleUser {
			return strings.TrimSpace(messages[i].Content)
		}
	}
	return ""
}
