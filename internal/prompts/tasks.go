package prompts

import (
	"fmt"
	"strings"

	"github.com/sarrietav-dev/ai-backlog/internal/types"
)

// TaskBreakdownSystem composes the development-lead role template with the
// parent story's full fields, all of its existing tasks (listed to avoid
// duplication) and any caller-supplied free-text context, appended verbatim.
func TaskBreakdownSystem(story *types.UserStory, existingTasks []*types.Task, extraContext string) string {
	var b strings.Builder
	b.WriteString("You are an experienced Software Development Lead breaking down user stories into actionable tasks.\n\n")

	b.WriteString("USER STORY TO BREAK DOWN:\n")
	fmt.Fprintf(&b, "Title: %s\n", story.Title)
	fmt.Fprintf(&b, "Description: %s\n", orPlaceholder(story.Description, noDescriptionPlaceholder))
	fmt.Fprintf(&b, "Acceptance Criteria: %s", joinCriteria(story.AcceptanceCriteria))

	b.WriteString(`

RULES FOR TASK GENERATION:
1. Generate 3-8 specific, actionable development tasks
2. Each task should be completable in 1-8 hours
3. Tasks should follow software development best practices
4. Include tasks for: implementation, testing, documentation, and code review
5. Consider different aspects: frontend, backend, database, API, testing, deployment
6. Make tasks specific and measurable
7. Prioritize tasks appropriately (low, medium, high, critical)
8. Provide realistic hour estimates for each task
9. Tasks should cover the full development lifecycle for this story

TASK CATEGORIES TO CONSIDER:
- Analysis & Planning
- Database/Schema changes
- Backend API development
- Frontend implementation
- Unit testing
- Integration testing
- Documentation
- Code review
- Deployment preparation`)

	if strings.TrimSpace(extraContext) != "" {
		b.WriteString("\n\nADDITIONAL CONTEXT: ")
		b.WriteString(extraContext)
	}

	if len(existingTasks) > 0 {
		b.WriteString("\n\nEXISTING TASKS TO AVOID DUPLICATION:")
		for _, task := range existingTasks {
			fmt.Fprintf(&b, "\n- %s: %s", task.Title, orPlaceholder(task.Description, noDescriptionPlaceholder))
		}
	}

	b.WriteString("\n\nReturn ONLY valid JSON that matches the expected schema. No additional text or formatting.")
	return b.String()
}

// TaskBreakdownUser is the fixed task instruction paired with
// TaskBreakdownSystem.
func TaskBreakdownUser() string {
	return "Break down this user story into specific, actionable development tasks that cover the complete implementation lifecycle."
}
