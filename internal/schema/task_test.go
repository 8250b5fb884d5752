package schema

import (
	"testing"

	"github.com/sarrietav-dev/ai-backlog/internal/types"
)

func validTaskInput() TaskInput {
	hours := 4.5
	return TaskInput{
		Title:          "Create login form",
		Description:    "Form with email and password fields",
		Priority:       types.TaskPriorityHigh,
		EstimatedHours: &hours,
	}
}

func TestTasksPayloadValid(t *testing.T) {
	p := TasksPayload{Tasks: []TaskInput{validTaskInput()}}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestTasksPayloadDefaultsPriority(t *testing.T) {
	task := validTaskInput()
	task.Priority = ""
	p := TasksPayload{Tasks: []TaskInput{task}}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if p.Tasks[0].Priority != types.TaskPriorityMedium {
		t.Fatalf("priority not defaulted: got %q", p.Tasks[0].Priority)
	}
}

func TestTasksPayloadRejectsUnknownPriority(t *testing.T) {
	task := validTaskInput()
	task.Priority = "urgent"
	p := TasksPayload{Tasks: []TaskInput{task}}
	if err := p.Validate(); err == nil {
		t.Fatal("expected validation error for unknown priority")
	}
}

func TestTasksPayloadHoursBounds(t *testing.T) {
	for _, hours := range []float64{0.05, 1000} {
		task := validTaskInput()
		task.EstimatedHours = &hours
		p := TasksPayload{Tasks: []TaskInput{task}}
		if err := p.Validate(); err == nil {
			t.Fatalf("expected validation error for %v hours", hours)
		}
	}
	task := validTaskInput()
	task.EstimatedHours = nil
	p := TasksPayload{Tasks: []TaskInput{task}}
	if err := p.Validate(); err != nil {
		t.Fatalf("nil hours should be allowed: %v", err)
	}
}

func TestTaskGenerationRequestValidate(t *testing.T) {
	req := TaskGenerationRequest{}
	if err := req.Validate(); err == nil {
		t.Fatal("expected error for missing userStoryId")
	}
	req.UserStoryID = "9f1c0f24-0b9e-4a2f-9f40-6d2f1c1c2a11"
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
