package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sarrietav-dev/ai-backlog/internal/platform/openai"
	"github.com/sarrietav-dev/ai-backlog/internal/repos"
	"github.com/sarrietav-dev/ai-backlog/internal/schema"
	"github.com/sarrietav-dev/ai-backlog/internal/types"
)

func seedUser(t *testing.T, db *gorm.DB) *types.User {
	t.Helper()
	user := &types.User{
		ID:       uuid.New(),
		Email:    uuid.New().String() + "@example.com",
		Password: "hashed",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedBacklog(t *testing.T, db *gorm.DB, userID uuid.UUID) *types.Backlog {
	t.Helper()
	backlog := &types.Backlog{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        "Meal Planner",
		Description: "Plan weekly meals",
	}
	if err := db.Create(backlog).Error; err != nil {
		t.Fatalf("seed backlog: %v", err)
	}
	return backlog
}

func seedStory(t *testing.T, db *gorm.DB, userID uuid.UUID, backlogID *uuid.UUID) *types.UserStory {
	t.Helper()
	story := &types.UserStory{
		ID:          uuid.New(),
		UserID:      userID,
		BacklogID:   backlogID,
		Title:       "As a user, I want to plan meals",
		Description: "Weekly meal planning",
		Status:      types.StoryStatusBacklog,
	}
	if err := db.Create(story).Error; err != nil {
		t.Fatalf("seed story: %v", err)
	}
	return story
}

func newStoryService(t *testing.T, db *gorm.DB, ai *fakeAIClient) StoryService {
	t.Helper()
	log := newTestLogger(t)
	return NewStoryService(
		db, log, ai,
		repos.NewBacklogRepo(db, log),
		repos.NewUserStoryRepo(db, log),
		repos.NewChatMessageRepo(db, log),
	)
}

func newTaskService(t *testing.T, db *gorm.DB, ai *fakeAIClient) TaskService {
	t.Helper()
	log := newTestLogger(t)
	return NewTaskService(
		db, log, ai,
		repos.NewUserStoryRepo(db, log),
		repos.NewTaskRepo(db, log),
	)
}

const storiesJSON = `{"stories":[{"title":"As a user, I want to add recipes","description":"Recipe CRUD","acceptanceCriteria":["Recipes persist"]}]}`

func TestStoryGenerateFromPromptStreamsAndValidates(t *testing.T) {
	db := newTestDB(t)
	ai := &fakeAIClient{jsonText: storiesJSON}
	svc := newStoryService(t, db, ai)

	var streamed strings.Builder
	payload, err := svc.GenerateFromPrompt(context.Background(), "A weekly meal planning application", streamedWriter(&streamed))
	if err != nil {
		t.Fatalf("GenerateFromPrompt: %v", err)
	}
	if len(payload.Stories) != 1 || payload.Stories[0].Title != "As a user, I want to add recipes" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if streamed.String() != storiesJSON {
		t.Fatalf("streamed text mismatch: %q", streamed.String())
	}
	if ai.lastSchema != "user_stories" {
		t.Fatalf("schema name: got %q", ai.lastSchema)
	}
}

func streamedWriter(b *strings.Builder) func(string) {
	return func(delta string) { b.WriteString(delta) }
}

func TestStoryGenerateFromPromptRejectsShortPrompt(t *testing.T) {
	db := newTestDB(t)
	svc := newStoryService(t, db, &fakeAIClient{jsonText: storiesJSON})

	_, err := svc.GenerateFromPrompt(context.Background(), "too short", nil)
	if _, ok := schema.AsValidationError(err); !ok {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func TestStoryGenerateFromPromptInvalidModelJSON(t *testing.T) {
	db := newTestDB(t)
	svc := newStoryService(t, db, &fakeAIClient{jsonText: `{"stories": not json`})

	_, err := svc.GenerateFromPrompt(context.Background(), "A weekly meal planning application", nil)
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("want GenerationError, got %v", err)
	}
}

func TestStorySaveStoriesOwnershipMasked(t *testing.T) {
	db := newTestDB(t)
	svc := newStoryService(t, db, &fakeAIClient{})

	owner := seedUser(t, db)
	other := seedUser(t, db)
	backlog := seedBacklog(t, db, owner.ID)

	payload := &schema.StoriesPayload{Stories: []schema.UserStoryInput{{
		Title:              "As a user, I want something",
		Description:        "Details",
		AcceptanceCriteria: []string{"It works"},
	}}}

	if _, err := svc.SaveStories(context.Background(), other.ID, &backlog.ID, payload); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign backlog: want ErrNotFound got %v", err)
	}

	saved, err := svc.SaveStories(context.Background(), owner.ID, &backlog.ID, payload)
	if err != nil {
		t.Fatalf("SaveStories: %v", err)
	}
	if len(saved) != 1 {
		t.Fatalf("saved count: want=1 got=%d", len(saved))
	}
	if saved[0].Status != types.StoryStatusBacklog {
		t.Fatalf("initial status: got %q", saved[0].Status)
	}
	if saved[0].BacklogID == nil || *saved[0].BacklogID != backlog.ID {
		t.Fatalf("backlog id not set: %+v", saved[0].BacklogID)
	}
}

func TestStorySaveStoriesWithoutBacklog(t *testing.T) {
	db := newTestDB(t)
	svc := newStoryService(t, db, &fakeAIClient{})
	user := seedUser(t, db)

	payload := &schema.StoriesPayload{Stories: []schema.UserStoryInput{{
		Title:              "Standalone story",
		Description:        "No backlog yet",
		AcceptanceCriteria: []string{"Saved anyway"},
	}}}
	saved, err := svc.SaveStories(context.Background(), user.ID, nil, payload)
	if err != nil {
		t.Fatalf("SaveStories: %v", err)
	}
	if saved[0].BacklogID != nil {
		t.Fatal("backlog id should stay nil")
	}
}

func TestTaskSaveAppendsOrderIndexAcrossRounds(t *testing.T) {
	db := newTestDB(t)
	svc := newTaskService(t, db, &fakeAIClient{})

	user := seedUser(t, db)
	backlog := seedBacklog(t, db, user.ID)
	story := seedStory(t, db, user.ID, &backlog.ID)

	round := func(titles ...string) []*types.Task {
		inputs := make([]schema.TaskInput, 0, len(titles))
		for _, title := range titles {
			inputs = append(inputs, schema.TaskInput{Title: title, Description: "d"})
		}
		saved, err := svc.SaveTasks(context.Background(), user.ID, story.ID, &schema.TasksPayload{Tasks: inputs})
		if err != nil {
			t.Fatalf("SaveTasks: %v", err)
		}
		return saved
	}

	first := round("a", "b", "c")
	for i, task := range first {
		if task.OrderIndex != i {
			t.Fatalf("first round index %d: got %d", i, task.OrderIndex)
		}
		if task.Priority != types.TaskPriorityMedium {
			t.Fatalf("priority default: got %q", task.Priority)
		}
		if task.Status != types.TaskStatusTodo {
			t.Fatalf("initial status: got %q", task.Status)
		}
	}

	second := round("d", "e")
	if second[0].OrderIndex != 3 || second[1].OrderIndex != 4 {
		t.Fatalf("second round indexes: got %d, %d", second[0].OrderIndex, second[1].OrderIndex)
	}
}

func TestTaskUpdateStatusOwnershipMasked(t *testing.T) {
	db := newTestDB(t)
	svc := newTaskService(t, db, &fakeAIClient{})

	owner := seedUser(t, db)
	other := seedUser(t, db)
	backlog := seedBacklog(t, db, owner.ID)
	story := seedStory(t, db, owner.ID, &backlog.ID)

	saved, err := svc.SaveTasks(context.Background(), owner.ID, story.ID, &schema.TasksPayload{
		Tasks: []schema.TaskInput{{Title: "t", Description: "d"}},
	})
	if err != nil {
		t.Fatalf("SaveTasks: %v", err)
	}

	if _, err := svc.UpdateStatus(context.Background(), saved[0].ID, other.ID, types.TaskStatusDone); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign update: want ErrNotFound got %v", err)
	}

	updated, err := svc.UpdateStatus(context.Background(), saved[0].ID, owner.ID, types.TaskStatusInProgress)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != types.TaskStatusInProgress {
		t.Fatalf("status: got %q", updated.Status)
	}

	if _, err := svc.UpdateStatus(context.Background(), saved[0].ID, owner.ID, "blocked"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestTaskGenerateUsesStoryAndContext(t *testing.T) {
	db := newTestDB(t)
	tasksJSON := `{"tasks":[{"title":"Build form","description":"d","priority":"high","estimatedHours":3}]}`
	ai := &fakeAIClient{jsonText: tasksJSON}
	svc := newTaskService(t, db, ai)

	user := seedUser(t, db)
	backlog := seedBacklog(t, db, user.ID)
	story := seedStory(t, db, user.ID, &backlog.ID)

	payload, err := svc.Generate(context.Background(), user.ID, &schema.TaskGenerationRequest{
		UserStoryID: story.ID.String(),
		Context:     "Reuse the design system components.",
	}, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(payload.Tasks) != 1 || payload.Tasks[0].Priority != types.TaskPriorityHigh {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if !strings.Contains(ai.lastSystem, story.Title) {
		t.Fatal("story title missing from prompt")
	}
	if !strings.Contains(ai.lastSystem, "Reuse the design system components.") {
		t.Fatal("extra context missing from prompt")
	}
}

func TestStoryGenerateFromChatUsesSuppliedMessages(t *testing.T) {
	db := newTestDB(t)
	ai := &fakeAIClient{jsonText: storiesJSON}
	svc := newStoryService(t, db, ai)

	user := seedUser(t, db)
	backlog := seedBacklog(t, db, user.ID)

	// No persisted history; the client-side conversation alone must do.
	supplied := []openai.Message{{Role: openai.RoleUser, Content: "I want walkers to set their own rates"}}
	payload, err := svc.GenerateFromChat(context.Background(), backlog.ID, user.ID, supplied, nil)
	if err != nil {
		t.Fatalf("GenerateFromChat: %v", err)
	}
	if len(payload.Stories) != 1 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if !strings.Contains(ai.lastSystem, "I want walkers to set their own rates") {
		t.Fatal("supplied message missing from prompt")
	}
	if ai.lastSchema != "user_stories" {
		t.Fatalf("schema name: got %q", ai.lastSchema)
	}
}

func TestStoryGenerateFromChatMergesPersistedHistory(t *testing.T) {
	db := newTestDB(t)
	ai := &fakeAIClient{jsonText: storiesJSON}
	svc := newStoryService(t, db, ai)

	user := seedUser(t, db)
	backlog := seedBacklog(t, db, user.ID)
	persisted := &types.ChatMessage{
		ID:        uuid.New(),
		BacklogID: backlog.ID,
		UserID:    user.ID,
		Role:      types.ChatRoleUser,
		Content:   "The app is for dog walkers",
	}
	if err := db.Create(persisted).Error; err != nil {
		t.Fatalf("seed message: %v", err)
	}

	supplied := []openai.Message{{Role: openai.RoleUser, Content: "Walkers should set their own rates"}}
	if _, err := svc.GenerateFromChat(context.Background(), backlog.ID, user.ID, supplied, nil); err != nil {
		t.Fatalf("GenerateFromChat: %v", err)
	}
	if !strings.Contains(ai.lastSystem, "The app is for dog walkers") {
		t.Fatal("persisted history missing from prompt")
	}
	if !strings.Contains(ai.lastSystem, "Walkers should set their own rates") {
		t.Fatal("supplied message missing from prompt")
	}
}

func TestStoryGenerateFromChatEmptyConversation(t *testing.T) {
	db := newTestDB(t)
	svc := newStoryService(t, db, &fakeAIClient{jsonText: storiesJSON})

	user := seedUser(t, db)
	backlog := seedBacklog(t, db, user.ID)

	_, err := svc.GenerateFromChat(context.Background(), backlog.ID, user.ID, nil, nil)
	if _, ok := schema.AsValidationError(err); !ok {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func TestTaskUpdateStatusTimestampsAdvance(t *testing.T) {
	db := newTestDB(t)
	svc := newTaskService(t, db, &fakeAIClient{})

	user := seedUser(t, db)
	backlog := seedBacklog(t, db, user.ID)
	story := seedStory(t, db, user.ID, &backlog.ID)

	saved, err := svc.SaveTasks(context.Background(), user.ID, story.ID, &schema.TasksPayload{
		Tasks: []schema.TaskInput{{Title: "t", Description: "d"}},
	})
	if err != nil {
		t.Fatalf("SaveTasks: %v", err)
	}

	first, err := svc.UpdateStatus(context.Background(), saved[0].ID, user.ID, types.TaskStatusInProgress)
	if err != nil {
		t.Fatalf("first UpdateStatus: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	second, err := svc.UpdateStatus(context.Background(), saved[0].ID, user.ID, types.TaskStatusDone)
	if err != nil {
		t.Fatalf("second UpdateStatus: %v", err)
	}

	if second.Status != types.TaskStatusDone {
		t.Fatalf("final status: got %q", second.Status)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Fatalf("updated_at did not advance: first=%v second=%v", first.UpdatedAt, second.UpdatedAt)
	}
}
