package schema

import (
	"fmt"
	"strings"
)

const (
	storyTitleMaxLen       = 200
	storyDescriptionMaxLen = 2000
	promptMinLen           = 10
	promptMaxLen           = 1000
)

type UserStoryInput struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	AcceptanceCriteria []string `json:"acceptanceCriteria"`
}

// StoriesPayload is both the LLM response shape for story generation and the
// save-stories request body.
type StoriesPayload struct {
	Stories []UserStoryInput `json:"stories"`
}

func (p *StoriesPayload) Validate() error {
	v := &ValidationError{}
	if len(p.Stories) == 0 {
		v.add("stories", "at least one user story is required")
		return v.orNil()
	}
	for i, story := range p.Stories {
		validateStory(v, fmt.Sprintf("stories[%d]", i), story)
	}
	return v.orNil()
}

func validateStory(v *ValidationError, prefix string, s UserStoryInput) {
	if strings.TrimSpace(s.Title) == "" {
		v.add(prefix+".title", "title is required")
	} else if len(s.Title) > storyTitleMaxLen {
		v.add(prefix+".title", fmt.Sprintf("title must be under %d characters", storyTitleMaxLen))
	}
	if strings.TrimSpace(s.Description) == "" {
		v.add(prefix+".description", "description is required")
	} else if len(s.Description) > storyDescriptionMaxLen {
		v.add(prefix+".description", fmt.Sprintf("description must be under %d characters", storyDescriptionMaxLen))
	}
	if len(s.AcceptanceCriteria) == 0 {
		v.add(prefix+".acceptanceCriteria", "at least one acceptance criteria is required")
		return
	}
	for i, c := range s.AcceptanceCriteria {
		if strings.TrimSpace(c) == "" {
			v.add(fmt.Sprintf("%s.acceptanceCriteria[%d]", prefix, i), "acceptance criteria cannot be empty")
		}
	}
}

// PromptRequest is the generate-stories request body.
type PromptRequest struct {
	Prompt string `json:"prompt"`
}

func (p *PromptRequest) Validate() error {
	v := &ValidationError{}
	if len(p.Prompt) < promptMinLen {
		v.add("prompt", fmt.Sprintf("prompt must be at least %d characters", promptMinLen))
	} else if len(p.Prompt) > promptMaxLen {
		v.add("prompt", fmt.Sprintf("prompt must be under %d characters", promptMaxLen))
	}
	return v.orNil()
}

// StoriesJSONSchema is the json_schema handed to the completion service for
// story generation.
func StoriesJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"stories"},
		"properties": map[string]any{
			"stories": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"title", "description", "acceptanceCriteria"},
					"properties": map[string]any{
						"title": map[string]any{
							"type":      "string",
							"minLength": 1,
							"maxLength": storyTitleMaxLen,
						},
						"description": map[string]any{
							"type":      "string",
							"minLength": 1,
							"maxLength": storyDescriptionMaxLen,
						},
						"acceptanceCriteria": map[string]any{
							"type":     "array",
							"minItems": 1,
							"items":    map[string]any{"type": "string", "minLength": 1},
						},
					},
				},
			},
		},
	}
}
