package prompts

import (
	"fmt"
	"strings"

	"github.com/sarrietav-dev/ai-backlog/internal/platform/openai"
	"github.com/sarrietav-dev/ai-backlog/internal/types"
)

const chatRoleInstructions = `You are having a conversation about this product. Your role is to:
1. Help clarify product requirements and features
2. Ask insightful questions about user needs and business goals
3. Suggest improvements or alternative approaches
4. Provide expert product management advice
5. Help identify edge cases and potential issues
6. Discuss technical feasibility when relevant

Keep your responses conversational, helpful, and focused on product development. Reference existing stories and context when relevant. Ask follow-up questions to better understand the user's needs.`

// ChatSystemPrompt composes the product-manager assistant role with the
// backlog's identifying data and its existing stories.
func ChatSystemPrompt(backlog *types.Backlog, stories []*types.UserStory) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a senior Product Manager AI assistant helping with the %q product backlog.", backlog.Name)

	if strings.TrimSpace(backlog.Description) != "" {
		fmt.Fprintf(&b, "\n\nBacklog Description: %s", backlog.Description)
	}

	if len(stories) > MaxContextStories {
		stories = stories[:MaxContextStories]
	}
	if len(stories) > 0 {
		b.WriteString("\n\nExisting User Stories in this backlog:")
		for i, story := range stories {
			fmt.Fprintf(&b, "\n%d. %s", i+1, story.Title)
			fmt.Fprintf(&b, "\n   Description: %s", orPlaceholder(story.Description, noDescriptionPlaceholder))
			fmt.Fprintf(&b, "\n   Acceptance Criteria: %s", joinCriteria(story.AcceptanceCriteria))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(chatRoleInstructions)
	return b.String()
}

// ChatConversation replays a bounded window of prior history, oldest first,
// followed by the incoming turns, preserving creation order.
func ChatConversation(history []*types.ChatMessage, incoming []openai.Message) []openai.Message {
	if len(history) > MaxChatHistoryMessages {
		history = history[len(history)-MaxChatHistoryMessages:]
	}
	out := make([]openai.Message, 0, len(history)+len(incoming))
	for _, m := range history {
		role := m.Role
		if role != types.ChatRoleAssistant {
			role = types.ChatRoleUser
		}
		out = append(out, openai.Message{Role: role, Content: m.Content})
	}
	out = append(out, incoming...)
	return out
}
