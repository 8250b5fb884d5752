package prompts

import (
	"fmt"
	"strings"

	"github.com/sarrietav-dev/ai-backlog/internal/platform/openai"
	"github.com/sarrietav-dev/ai-backlog/internal/types"
)

const storyGeneratorSystem = `You are a seasoned Product Manager with expertise in writing clear, actionable user stories.

Your task is to analyze the user's product idea and generate a comprehensive backlog of user stories.

RULES:
1. Generate 5-8 user stories maximum
2. Each story must follow the format: "As a [user type], I want [goal] so that [benefit]"
3. Stories should be ordered by priority (most important first)
4. Each story needs 2-4 specific, testable acceptance criteria
5. Focus on MVP (Minimum Viable Product) features first
6. Include both core functionality and basic user experience features
7. Make acceptance criteria specific and measurable
8. Consider different user types (end users, admins, etc.)

Return ONLY valid JSON that matches the expected schema. No additional text or formatting.`

// StoryGeneratorSystem is the fixed role template for prompt-driven story
// generation.
func StoryGeneratorSystem() string {
	return storyGeneratorSystem
}

// StoryGeneratorUser wraps the caller's free-text product idea.
func StoryGeneratorUser(prompt string) string {
	return "Generate user stories for this product idea: " + prompt
}

// StoriesFromChatSystem composes the role template for deriving stories from
// a conversation, including the conversation itself and the backlog's
// existing stories listed to avoid duplication.
func StoriesFromChatSystem(backlog *types.Backlog, conversation []openai.Message, existing []*types.UserStory) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a seasoned Product Manager analyzing a conversation about the %q product backlog.\n\n", backlog.Name)
	b.WriteString("Based on the conversation below, generate specific, actionable user stories that capture the discussed requirements and features.\n\n")

	b.WriteString("CONVERSATION CONTEXT:\n")
	b.WriteString(renderConversation(conversation))

	b.WriteString(`

RULES:
1. Generate 3-6 user stories based on the conversation
2. Each story must follow the format: "As a [user type], I want [goal] so that [benefit]"
3. Stories should be specific to what was discussed in the conversation
4. Each story needs 2-4 specific, testable acceptance criteria
5. Focus on the most important features mentioned in the conversation
6. Make acceptance criteria specific and measurable
7. Consider different user types mentioned in the conversation`)

	if len(existing) > MaxContextStories {
		existing = existing[:MaxContextStories]
	}
	if len(existing) > 0 {
		b.WriteString("\n\nEXISTING STORIES TO AVOID DUPLICATION:")
		for _, story := range existing {
			fmt.Fprintf(&b, "\n- %s: %s", story.Title, orPlaceholder(story.Description, noDescriptionPlaceholder))
		}
	}

	b.WriteString("\n\nReturn ONLY valid JSON that matches the expected schema. No additional text or formatting.")
	return b.String()
}

// StoriesFromChatUser is the fixed task instruction paired with
// StoriesFromChatSystem.
func StoriesFromChatUser() string {
	return "Analyze the conversation and generate user stories based on the discussed features and requirements."
}

func renderConversation(conversation []openai.Message) string {
	parts := make([]string, 0, len(conversation))
	for _, m := range conversation {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		speaker := "User"
		if m.Role == openai.RoleAssistant {
			speaker = "Assistant"
		}
		parts = append(parts, speaker+": "+m.Content)
	}
	return strings.Join(parts, "\n\n")
}
