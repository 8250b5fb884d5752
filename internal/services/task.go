package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sarrietav-dev/ai-backlog/internal/platform/logger"
	"github.com/sarrietav-dev/ai-backlog/internal/platform/openai"
	"github.com/sarrietav-dev/ai-backlog/internal/prompts"
	"github.com/sarrietav-dev/ai-backlog/internal/repos"
	"github.com/sarrietav-dev/ai-backlog/internal/schema"
	"github.com/sarrietav-dev/ai-backlog/internal/types"
)

type TaskService interface {
	Generate(ctx context.Context, userID uuid.UUID, req *schema.TaskGenerationRequest, onDelta func(delta string)) (*schema.TasksPayload, error)
	SaveTasks(ctx context.Context, userID, storyID uuid.UUID, payload *schema.TasksPayload) ([]*types.Task, error)
	UpdateStatus(ctx context.Context, id, userID uuid.UUID, status string) (*types.Task, error)
	ListByStory(ctx context.Context, storyID, userID uuid.UUID) ([]*types.Task, error)
}

type taskService struct {
	db        *gorm.DB
	log       *logger.Logger
	ai        openai.Client
	storyRepo repos.UserStoryRepo
	taskRepo  repos.TaskRepo
}

func NewTaskService(
	db *gorm.DB,
	log *logger.Logger,
	ai openai.Client,
	storyRepo repos.UserStoryRepo,
	taskRepo repos.TaskRepo,
) TaskService {
	return &taskService{
		db:        db,
		log:       log.With("service", "TaskService"),
		ai:        ai,
		storyRepo: storyRepo,
		taskRepo:  taskRepo,
	}
}

func (ts *taskService) Generate(ctx context.Context, userID uuid.UUID, req *schema.TaskGenerationRequest, onDelta func(delta string)) (*schema.TasksPayload, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	storyID, err := uuid.Parse(req.UserStoryID)
	if err != nil {
		return nil, &schema.ValidationError{Fields: []schema.FieldError{
			{Field: "userStoryId", Message: "must be a valid UUID"},
		}}
	}

	story, err := ts.storyRepo.GetByIDForUser(ctx, nil, storyID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch user story: %w", err)
	}
	existing, err := ts.taskRepo.ListByStory(ctx, nil, storyID)
	if err != nil {
		return nil, fmt.Errorf("list existing tasks: %w", err)
	}

	genCtx, cancel := withGenerationTimeout(ctx)
	defer cancel()
	raw, err := ts.ai.StreamJSON(
		genCtx,
		prompts.TaskBreakdownSystem(story, existing, req.Context),
		prompts.TaskBreakdownUser(),
		"tasks",
		schema.TasksJSONSchema(),
		onDelta,
	)
	if err != nil {
		return nil, newGenerationError("tasks", err)
	}

	var payload schema.TasksPayload
	if err := decodeGenerated("tasks", raw, &payload); err != nil {
		return nil, err
	}
	if err := payload.Validate(); err != nil {
		return nil, newGenerationError("tasks", err)
	}
	return &payload, nil
}

func (ts *taskService) SaveTasks(ctx context.Context, userID, storyID uuid.UUID, payload *schema.TasksPayload) ([]*types.Task, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	if _, err := ts.storyRepo.GetByIDForUser(ctx, nil, storyID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch user story: %w", err)
	}

	var saved []*types.Task
	txErr := ts.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// New tasks go after the story's current tail.
		maxIdx, exists, mErr := ts.taskRepo.MaxOrderIndex(ctx, tx, storyID)
		if mErr != nil {
			return fmt.Errorf("read max order index: %w", mErr)
		}
		start := 0
		if exists {
			start = maxIdx + 1
		}

		tasks := make([]*types.Task, 0, len(payload.Tasks))
		for i, in := range payload.Tasks {
			tasks = append(tasks, &types.Task{
				ID:             uuid.New(),
				UserID:         userID,
				UserStoryID:    storyID,
				Title:          in.Title,
				Description:    in.Description,
				Priority:       in.Priority,
				EstimatedHours: in.EstimatedHours,
				Status:         types.TaskStatusTodo,
				OrderIndex:     start + i,
			})
		}
		var cErr error
		saved, cErr = ts.taskRepo.Create(ctx, tx, tasks)
		return cErr
	})
	if txErr != nil {
		return nil, fmt.Errorf("save tasks: %w", txErr)
	}
	return saved, nil
}

func (ts *taskService) UpdateStatus(ctx context.Context, id, userID uuid.UUID, status string) (*types.Task, error) {
	if !types.ValidTaskStatus(status) {
		return nil, &schema.ValidationError{Fields: []schema.FieldError{
			{Field: "status", Message: fmt.Sprintf("invalid task status %q", status)},
		}}
	}
	task, err := ts.taskRepo.UpdateStatus(ctx, nil, id, userID, status)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update task status: %w", err)
	}
	return task, nil
}

func (ts *taskService) ListByStory(ctx context.Context, storyID, userID uuid.UUID) ([]*types.Task, error) {
	if _, err := ts.storyRepo.GetByIDForUser(ctx, nil, storyID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch user story: %w", err)
	}
	return ts.taskRepo.ListByStory(ctx, nil, storyID)
}
