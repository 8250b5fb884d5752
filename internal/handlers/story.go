package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sarrietav-dev/ai-backlog/internal/platform/logger"
	"github.com/sarrietav-dev/ai-backlog/internal/platform/openai"
	"github.com/sarrietav-dev/ai-backlog/internal/schema"
	"github.com/sarrietav-dev/ai-backlog/internal/services"
)

type StoryHandler struct {
	log          *logger.Logger
	storyService services.StoryService
}

func NewStoryHandler(log *logger.Logger, storyService services.StoryService) *StoryHandler {
	return &StoryHandler{
		log:          log.With("handler", "StoryHandler"),
		storyService: storyService,
	}
}

// Generate handles POST /api/generate-stories. The structured JSON output is
// streamed to the client as it is produced.
func (sh *StoryHandler) Generate(c *gin.Context) {
	if _, ok := requestUserID(c); !ok {
		return
	}
	var req schema.PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err)
		return
	}

	onDelta, wrote := streamSetup(c)
	_, err := sh.storyService.GenerateFromPrompt(c.Request.Context(), req.Prompt, onDelta)
	if err != nil {
		if wrote() {
			sh.log.Warn("story generation stream aborted", "error", err)
			return
		}
		RespondServiceError(c, err)
	}
}

// GenerateFromChat handles POST /api/generate-stories-from-chat. The supplied
// messages are merged with the backlog's persisted history.
func (sh *StoryHandler) GenerateFromChat(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	var req struct {
		BacklogID string           `json:"backlogId"`
		Messages  []openai.Message `json:"messages"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err)
		return
	}
	backlogID, err := uuid.Parse(req.BacklogID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", fmt.Errorf("invalid backlogId: %w", err))
		return
	}

	onDelta, wrote := streamSetup(c)
	_, err = sh.storyService.GenerateFromChat(c.Request.Context(), backlogID, userID, req.Messages, onDelta)
	if err != nil {
		if wrote() {
			sh.log.Warn("story generation stream aborted", "backlog_id", backlogID, "error", err)
			return
		}
		RespondServiceError(c, err)
	}
}

// Save handles POST /api/save-stories.
func (sh *StoryHandler) Save(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	var req struct {
		Stories   []schema.UserStoryInput `json:"stories"`
		BacklogID *string                 `json:"backlogId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err)
		return
	}
	var backlogID *uuid.UUID
	if req.BacklogID != nil && *req.BacklogID != "" {
		id, err := uuid.Parse(*req.BacklogID)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_ID", fmt.Errorf("invalid backlogId: %w", err))
			return
		}
		backlogID = &id
	}

	payload := &schema.StoriesPayload{Stories: req.Stories}
	saved, err := sh.storyService.SaveStories(c.Request.Context(), userID, backlogID, payload)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"success":      true,
		"savedStories": saved,
		"count":        len(saved),
	})
}

// UpdateStatus handles PATCH /api/update-story-status.
func (sh *StoryHandler) UpdateStatus(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	var req struct {
		StoryID string `json:"storyId"`
		Status  string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err)
		return
	}
	storyID, err := uuid.Parse(req.StoryID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", fmt.Errorf("invalid storyId: %w", err))
		return
	}
	story, err := sh.storyService.UpdateStatus(c.Request.Context(), storyID, userID, req.Status)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"success": true, "story": story})
}

// ListByBacklog handles GET /api/backlogs/:backlogId/stories.
func (sh *StoryHandler) ListByBacklog(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	backlogID, ok := pathUUID(c, "backlogId")
	if !ok {
		return
	}
	stories, err := sh.storyService.ListByBacklog(c.Request.Context(), backlogID, userID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"stories": stories})
}

// List handles GET /api/stories, every story owned by the caller.
func (sh *StoryHandler) List(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	stories, err := sh.storyService.ListByUser(c.Request.Context(), userID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"stories": stories})
}
