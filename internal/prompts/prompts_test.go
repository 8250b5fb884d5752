package prompts

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/sarrietav-dev/ai-backlog/internal/platform/openai"
	"github.com/sarrietav-dev/ai-backlog/internal/types"
)

func testBacklog() *types.Backlog {
	return &types.Backlog{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Name:        "Fitness Tracker",
		Description: "Track workouts and progress",
	}
}

func testStory(title string) *types.UserStory {
	criteria, _ := json.Marshal([]string{"Given a workout, it is saved", "The history list updates"})
	return &types.UserStory{
		ID:                 uuid.New(),
		Title:              title,
		Description:        "Story description",
		AcceptanceCriteria: datatypes.JSON(criteria),
	}
}

func TestChatSystemPromptIncludesBacklogAndStories(t *testing.T) {
	backlog := testBacklog()
	stories := []*types.UserStory{testStory("As a user, I want to log workouts")}

	got := ChatSystemPrompt(backlog, stories)
	for _, want := range []string{
		`"Fitness Tracker"`,
		"Backlog Description: Track workouts and progress",
		"1. As a user, I want to log workouts",
		"Given a workout, it is saved, The history list updates",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("prompt missing %q:\n%s", want, got)
		}
	}
}

func TestChatSystemPromptCapsStories(t *testing.T) {
	var stories []*types.UserStory
	for i := 0; i < MaxContextStories+5; i++ {
		stories = append(stories, testStory(fmt.Sprintf("Story %02d", i)))
	}
	got := ChatSystemPrompt(testBacklog(), stories)
	if !strings.Contains(got, fmt.Sprintf("Story %02d", MaxContextStories-1)) {
		t.Fatal("last in-window story missing")
	}
	if strings.Contains(got, fmt.Sprintf("Story %02d", MaxContextStories)) {
		t.Fatal("story beyond the window leaked into the prompt")
	}
}

func TestChatSystemPromptPlaceholders(t *testing.T) {
	story := &types.UserStory{ID: uuid.New(), Title: "Bare story"}
	got := ChatSystemPrompt(testBacklog(), []*types.UserStory{story})
	if !strings.Contains(got, noDescriptionPlaceholder) {
		t.Fatal("missing description placeholder")
	}
	if !strings.Contains(got, noCriteriaPlaceholder) {
		t.Fatal("missing criteria placeholder")
	}
}

func TestChatConversationWindowOldestFirst(t *testing.T) {
	var history []*types.ChatMessage
	for i := 0; i < MaxChatHistoryMessages+10; i++ {
		history = append(history, &types.ChatMessage{
			Role:    types.ChatRoleUser,
			Content: fmt.Sprintf("message %02d", i),
		})
	}
	incoming := []openai.Message{{Role: openai.RoleUser, Content: "latest"}}

	got := ChatConversation(history, incoming)
	if len(got) != MaxChatHistoryMessages+1 {
		t.Fatalf("window size: want=%d got=%d", MaxChatHistoryMessages+1, len(got))
	}
	// The most recent history survives; the oldest inside the window comes first.
	if got[0].Content != "message 10" {
		t.Fatalf("first message: got %q", got[0].Content)
	}
	if got[len(got)-1].Content != "latest" {
		t.Fatalf("incoming turn must come last, got %q", got[len(got)-1].Content)
	}
}

func TestChatConversationNormalizesRoles(t *testing.T) {
	history := []*types.ChatMessage{
		{Role: "system", Content: "odd role"},
		{Role: types.ChatRoleAssistant, Content: "reply"},
	}
	got := ChatConversation(history, nil)
	if got[0].Role != openai.RoleUser {
		t.Fatalf("unknown role should map to user, got %q", got[0].Role)
	}
	if got[1].Role != openai.RoleAssistant {
		t.Fatalf("assistant role lost, got %q", got[1].Role)
	}
}

func TestStoriesFromChatSystemRendersConversation(t *testing.T) {
	conversation := []openai.Message{
		{Role: openai.RoleUser, Content: "I want a meal planner"},
		{Role: openai.RoleAssistant, Content: "What diets should it support?"},
		{Role: openai.RoleUser, Content: "   "},
	}
	existing := []*types.UserStory{testStory("As a user, I want recipes")}

	got := StoriesFromChatSystem(testBacklog(), conversation, existing)
	if !strings.Contains(got, "User: I want a meal planner") {
		t.Fatal("user turn missing")
	}
	if !strings.Contains(got, "Assistant: What diets should it support?") {
		t.Fatal("assistant turn missing")
	}
	if strings.Contains(got, "User: \n") {
		t.Fatal("blank turn should be skipped")
	}
	if !strings.Contains(got, "- As a user, I want recipes: Story description") {
		t.Fatal("existing story list missing")
	}
}

func TestTaskBreakdownSystemVerbatimContext(t *testing.T) {
	story := testStory("As a user, I want reminders")
	existing := []*types.Task{{Title: "Set up schema", Description: "Reminder table"}}
	extra := "Use the existing notification service."

	got := TaskBreakdownSystem(story, existing, extra)
	if !strings.Contains(got, "ADDITIONAL CONTEXT: "+extra) {
		t.Fatal("extra context must be appended verbatim")
	}
	if !strings.Contains(got, "- Set up schema: Reminder table") {
		t.Fatal("existing task list missing")
	}

	noExtra := TaskBreakdownSystem(story, nil, "  ")
	if strings.Contains(noExtra, "ADDITIONAL CONTEXT") {
		t.Fatal("blank context must not add the section")
	}
}

func TestTechStackProjectContext(t *testing.T) {
	backlog := testBacklog()
	stories := []*types.UserStory{testStory("As a user, I want charts")}

	got := TechStackProjectContext(backlog, stories)
	for _, want := range []string{
		"PROJECT: Fitness Tracker",
		"DESCRIPTION: Track workouts and progress",
		"1. As a user, I want charts",
		"Acceptance Criteria: Given a workout, it is saved, The history list updates",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("context missing %q:\n%s", want, got)
		}
	}

	empty := TechStackProjectContext(backlog, nil)
	if !strings.Contains(empty, "No user stories available") {
		t.Fatal("missing empty-stories fallback")
	}
}
