package schema

import (
	"fmt"
	"strings"

	"github.com/sarrietav-dev/ai-backlog/internal/types"
)

const (
	taskTitleMaxLen       = 200
	taskDescriptionMaxLen = 1000
	taskMinHours          = 0.1
	taskMaxHours          = 999.9
)

type TaskInput struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Priority       string   `json:"priority,omitempty"`
	EstimatedHours *float64 `json:"estimatedHours,omitempty"`
}

// TasksPayload is both the LLM response shape for task generation and the
// save-tasks request body.
type TasksPayload struct {
	Tasks []TaskInput `json:"tasks"`
}

// Validate checks every task and defaults an absent priority to medium.
func (p *TasksPayload) Validate() error {
	v := &ValidationError{}
	if len(p.Tasks) == 0 {
		v.add("tasks", "at least one task is required")
		return v.orNil()
	}
	for i := range p.Tasks {
		validateTask(v, fmt.Sprintf("tasks[%d]", i), &p.Tasks[i])
	}
	return v.orNil()
}

func validateTask(v *ValidationError, prefix string, t *TaskInput) {
	if strings.TrimSpace(t.Title) == "" {
		v.add(prefix+".title", "title is required")
	} else if len(t.Title) > taskTitleMaxLen {
		v.add(prefix+".title", fmt.Sprintf("title must be under %d characters", taskTitleMaxLen))
	}
	if strings.TrimSpace(t.Description) == "" {
		v.add(prefix+".description", "description is required")
	} else if len(t.Description) > taskDescriptionMaxLen {
		v.add(prefix+".description", fmt.Sprintf("description must be under %d characters", taskDescriptionMaxLen))
	}
	if t.Priority == "" {
		t.Priority = types.TaskPriorityMedium
	} else if !types.ValidTaskPriority(t.Priority) {
		v.add(prefix+".priority", "priority must be one of low, medium, high, critical")
	}
	if t.EstimatedHours != nil {
		if *t.EstimatedHours < taskMinHours || *t.EstimatedHours > taskMaxHours {
			v.add(prefix+".estimatedHours", fmt.Sprintf("estimatedHours must be between %.1f and %.1f", taskMinHours, taskMaxHours))
		}
	}
}

// TaskGenerationRequest is the generate-tasks request body.
type TaskGenerationRequest struct {
	UserStoryID string `json:"userStoryId"`
	Context     string `json:"context,omitempty"`
}

func (r *TaskGenerationRequest) Validate() error {
	v := &ValidationError{}
	if strings.TrimSpace(r.UserStoryID) == "" {
		v.add("userStoryId", "userStoryId is required")
	}
	return v.orNil()
}

// TasksJSONSchema is the json_schema handed to the completion service for
// task breakdown.
func TasksJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"tasks"},
		"properties": map[string]any{
			"tasks": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"title", "description", "priority"},
					"properties": map[string]any{
						"title": map[string]any{
							"type":      "string",
							"minLength": 1,
							"maxLength": taskTitleMaxLen,
						},
						"description": map[string]any{
							"type":      "string",
							"minLength": 1,
							"maxLength": taskDescriptionMaxLen,
						},
						"priority": map[string]any{
							"type": "string",
							"enum": []string{
								types.TaskPriorityLow,
								types.TaskPriorityMedium,
								types.TaskPriorityHigh,
								types.TaskPriorityCritical,
							},
						},
						"estimatedHours": map[string]any{
							"type":    "number",
							"minimum": taskMinHours,
							"maximum": taskMaxHours,
						},
					},
				},
			},
		},
	}
}
