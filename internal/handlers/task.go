package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sarrietav-dev/ai-backlog/internal/platform/logger"
	"github.com/sarrietav-dev/ai-backlog/internal/schema"
	"github.com/sarrietav-dev/ai-backlog/internal/services"
)

type TaskHandler struct {
	log         *logger.Logger
	taskService services.TaskService
}

func NewTaskHandler(log *logger.Logger, taskService services.TaskService) *TaskHandler {
	return &TaskHandler{
		log:         log.With("handler", "TaskHandler"),
		taskService: taskService,
	}
}

// Generate handles POST /api/generate-tasks.
func (th *TaskHandler) Generate(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	var req schema.TaskGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err)
		return
	}

	onDelta, wrote := streamSetup(c)
	_, err := th.taskService.Generate(c.Request.Context(), userID, &req, onDelta)
	if err != nil {
		if wrote() {
			th.log.Warn("task generation stream aborted", "user_story_id", req.UserStoryID, "error", err)
			return
		}
		RespondServiceError(c, err)
	}
}

// Save handles POST /api/save-tasks.
func (th *TaskHandler) Save(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	var req struct {
		UserStoryID string             `json:"userStoryId"`
		Tasks       []schema.TaskInput `json:"tasks"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err)
		return
	}
	storyID, err := uuid.Parse(req.UserStoryID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", fmt.Errorf("invalid userStoryId: %w", err))
		return
	}

	payload := &schema.TasksPayload{Tasks: req.Tasks}
	saved, err := th.taskService.SaveTasks(c.Request.Context(), userID, storyID, payload)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"success":    true,
		"savedTasks": saved,
		"count":      len(saved),
	})
}

// UpdateStatus handles PATCH /api/update-task-status.
func (th *TaskHandler) UpdateStatus(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	var req struct {
		TaskID string `json:"taskId"`
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err)
		return
	}
	taskID, err := uuid.Parse(req.TaskID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", fmt.Errorf("invalid taskId: %w", err))
		return
	}
	task, err := th.taskService.UpdateStatus(c.Request.Context(), taskID, userID, req.Status)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"success": true, "task": task})
}

// ListByStory handles GET /api/stories/:storyId/tasks.
func (th *TaskHandler) ListByStory(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	storyID, ok := pathUUID(c, "storyId")
	if !ok {
		return
	}
	tasks, err := th.taskService.ListByStory(c.Request.Context(), storyID, userID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"tasks": tasks})
}
