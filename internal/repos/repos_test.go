package repos

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sarrietav-dev/ai-backlog/internal/platform/logger"
	"github.com/sarrietav-dev/ai-backlog/internal/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&types.User{},
		&types.UserToken{},
		&types.Backlog{},
		&types.ChatMessage{},
		&types.UserStory{},
		&types.Task{},
		&types.TechStackSuggestion{},
	)
	if err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

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
		ID:     uuid.New(),
		UserID: userID,
		Name:   "Test Backlog",
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
		Title:       "As a user, I want a thing",
		Description: "Thing description",
		Status:      types.StoryStatusBacklog,
	}
	if err := db.Create(story).Error; err != nil {
		t.Fatalf("seed story: %v", err)
	}
	return story
}

func TestBacklogRepoOwnershipScoping(t *testing.T) {
	db := newTestDB(t)
	repo := NewBacklogRepo(db, newTestLogger(t))
	ctx := context.Background()

	owner := seedUser(t, db)
	other := seedUser(t, db)
	backlog := seedBacklog(t, db, owner.ID)

	if _, err := repo.GetByIDForUser(ctx, nil, backlog.ID, owner.ID); err != nil {
		t.Fatalf("owner lookup: %v", err)
	}
	if _, err := repo.GetByIDForUser(ctx, nil, backlog.ID, other.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("foreign lookup: want ErrRecordNotFound got %v", err)
	}

	if _, err := repo.Update(ctx, nil, backlog.ID, other.ID, map[string]any{"name": "hijacked"}); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("foreign update: want ErrRecordNotFound got %v", err)
	}

	rows, err := repo.Delete(ctx, nil, backlog.ID, other.ID)
	if err != nil {
		t.Fatalf("foreign delete: %v", err)
	}
	if rows != 0 {
		t.Fatalf("foreign delete rows: want=0 got=%d", rows)
	}
}

func TestTaskRepoMaxOrderIndex(t *testing.T) {
	db := newTestDB(t)
	repo := NewTaskRepo(db, newTestLogger(t))
	ctx := context.Background()

	user := seedUser(t, db)
	backlog := seedBacklog(t, db, user.ID)
	story := seedStory(t, db, user.ID, &backlog.ID)

	_, exists, err := repo.MaxOrderIndex(ctx, nil, story.ID)
	if err != nil {
		t.Fatalf("MaxOrderIndex empty: %v", err)
	}
	if exists {
		t.Fatal("empty story should report no tasks")
	}

	tasks := []*types.Task{
		{ID: uuid.New(), UserID: user.ID, UserStoryID: story.ID, Title: "a", Description: "a", Priority: types.TaskPriorityMedium, Status: types.TaskStatusTodo, OrderIndex: 0},
		{ID: uuid.New(), UserID: user.ID, UserStoryID: story.ID, Title: "b", Description: "b", Priority: types.TaskPriorityMedium, Status: types.TaskStatusTodo, OrderIndex: 1},
	}
	if _, err := repo.Create(ctx, nil, tasks); err != nil {
		t.Fatalf("Create: %v", err)
	}

	max, exists, err := repo.MaxOrderIndex(ctx, nil, story.ID)
	if err != nil {
		t.Fatalf("MaxOrderIndex: %v", err)
	}
	if !exists || max != 1 {
		t.Fatalf("MaxOrderIndex: want (1,true) got (%d,%v)", max, exists)
	}
}

func TestTaskRepoListByStoryOrdersByIndex(t *testing.T) {
	db := newTestDB(t)
	repo := NewTaskRepo(db, newTestLogger(t))
	ctx := context.Background()

	user := seedUser(t, db)
	backlog := seedBacklog(t, db, user.ID)
	story := seedStory(t, db, user.ID, &backlog.ID)

	// Inserted out of order on purpose.
	for _, idx := range []int{2, 0, 1} {
		task := &types.Task{
			ID: uuid.New(), UserID: user.ID, UserStoryID: story.ID,
			Title: "t", Description: "t",
			Priority: types.TaskPriorityMedium, Status: types.TaskStatusTodo,
			OrderIndex: idx,
		}
		if _, err := repo.Create(ctx, nil, []*types.Task{task}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err := repo.ListByStory(ctx, nil, story.ID)
	if err != nil {
		t.Fatalf("ListByStory: %v", err)
	}
	for i, task := range got {
		if task.OrderIndex != i {
			t.Fatalf("position %d has order index %d", i, task.OrderIndex)
		}
	}
}

func TestUserStoryRepoUpdateStatusScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserStoryRepo(db, newTestLogger(t))
	ctx := context.Background()

	owner := seedUser(t, db)
	other := seedUser(t, db)
	backlog := seedBacklog(t, db, owner.ID)
	story := seedStory(t, db, owner.ID, &backlog.ID)

	if _, err := repo.UpdateStatus(ctx, nil, story.ID, other.ID, types.StoryStatusDone); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("foreign status update: want ErrRecordNotFound got %v", err)
	}

	updated, err := repo.UpdateStatus(ctx, nil, story.ID, owner.ID, types.StoryStatusInProgress)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != types.StoryStatusInProgress {
		t.Fatalf("status: got %q", updated.Status)
	}
}

func TestChatMessageRepoRecentWindowOldestFirst(t *testing.T) {
	db := newTestDB(t)
	repo := NewChatMessageRepo(db, newTestLogger(t))
	ctx := context.Background()

	user := seedUser(t, db)
	backlog := seedBacklog(t, db, user.ID)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		msg := &types.ChatMessage{
			ID:        uuid.New(),
			BacklogID: backlog.ID,
			UserID:    user.ID,
			Role:      types.ChatRoleUser,
			Content:   string(rune('a' + i)),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if _, err := repo.Create(ctx, nil, []*types.ChatMessage{msg}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err := repo.ListRecentByBacklog(ctx, nil, backlog.ID, 3)
	if err != nil {
		t.Fatalf("ListRecentByBacklog: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("window size: want=3 got=%d", len(got))
	}
	// Newest three, presented oldest first.
	if got[0].Content != "c" || got[2].Content != "e" {
		t.Fatalf("window order: got %q %q %q", got[0].Content, got[1].Content, got[2].Content)
	}
}

func TestTechStackRepoReplaceLeavesOneRow(t *testing.T) {
	db := newTestDB(t)
	repo := NewTechStackRepo(db, newTestLogger(t))
	ctx := context.Background()

	user := seedUser(t, db)
	backlog := seedBacklog(t, db, user.ID)

	for i := 0; i < 3; i++ {
		s := &types.TechStackSuggestion{
			ID:                 uuid.New(),
			BacklogID:          backlog.ID,
			UserID:             user.ID,
			ProjectType:        "web application",
			Complexity:         types.ComplexityModerate,
			EstimatedTimeframe: "2 months",
		}
		if _, err := repo.Replace(ctx, nil, s); err != nil {
			t.Fatalf("Replace: %v", err)
		}
	}

	var count int64
	if err := db.Model(&types.TechStackSuggestion{}).
		Where("backlog_id = ?", backlog.ID).
		Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("row count after replaces: want=1 got=%d", count)
	}

	latest, err := repo.GetLatestForBacklog(ctx, nil, backlog.ID, user.ID)
	if err != nil {
		t.Fatalf("GetLatestForBacklog: %v", err)
	}
	if latest == nil {
		t.Fatal("expected a suggestion")
	}

	missing, err := repo.GetLatestForBacklog(ctx, nil, uuid.New(), user.ID)
	if err != nil {
		t.Fatalf("GetLatestForBacklog missing: %v", err)
	}
	if missing != nil {
		t.Fatal("expected nil for unknown backlog")
	}
}
