package services

import (
	"context"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sarrietav-dev/ai-backlog/internal/platform/logger"
	"github.com/sarrietav-dev/ai-backlog/internal/platform/openai"
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

// fakeAIClient scripts responses and records the prompts it was given.
type fakeAIClient struct {
	text     string
	jsonText string
	err      error

	lastSystem   string
	lastUser     string
	lastMessages []openai.Message
	lastSchema   string
	calls        int
}

func (f *fakeAIClient) GenerateText(ctx context.Context, system, user string) (string, error) {
	f.record(system, user, nil, "")
	return f.text, f.err
}

func (f *fakeAIClient) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	f.record(system, user, nil, schemaName)
	return nil, f.err
}

func (f *fakeAIClient) StreamText(ctx context.Context, system, user string, onDelta func(delta string)) (string, error) {
	f.record(system, user, nil, "")
	return f.stream(f.text, onDelta)
}

func (f *fakeAIClient) StreamChat(ctx context.Context, system string, messages []openai.Message, onDelta func(delta string)) (string, error) {
	f.record(system, "", messages, "")
	return f.stream(f.text, onDelta)
}

func (f *fakeAIClient) StreamJSON(ctx context.Context, system, user, schemaName string, schema map[string]any, onDelta func(delta string)) (string, error) {
	f.record(system, user, nil, schemaName)
	return f.stream(f.jsonText, onDelta)
}

func (f *fakeAIClient) record(system, user string, messages []openai.Message, schemaName string) {
	f.calls++
	f.lastSystem = system
	f.lastUser = user
	f.lastMessages = messages
	f.lastSchema = schemaName
}

func (f *fakeAIClient) stream(full string, onDelta func(delta string)) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if onDelta != nil {
		// Two chunks is enough to exercise delta handling.
		mid := len(full) / 2
		onDelta(full[:mid])
		onDelta(full[mid:])
	}
	return full, nil
}
