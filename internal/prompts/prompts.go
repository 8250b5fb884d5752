// Package prompts builds the instruction strings handed to the completion
// service. Construction is deterministic: fixed role templates, interpolated
// backlog/story data, and bounded context windows. Individual field values
// are never truncated; only collection windows are.
package prompts

const (
	// MaxChatHistoryMessages bounds how many prior chat messages are replayed
	// into a prompt, most recent kept, presented oldest first.
	MaxChatHistoryMessages = 20

	// MaxContextStories bounds how many existing stories are listed so the
	// model avoids duplicating them.
	MaxContextStories = 10

	// Missing fields render as explicit placeholders so the instruction text
	// stays well-formed instead of silently dropping a line.
	noDescriptionPlaceholder = "No description provided"
	noCriteriaPlaceholder    = "None specified"
)
