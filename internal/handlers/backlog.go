package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sarrietav-dev/ai-backlog/internal/services"
)

type BacklogHandler struct {
	backlogService services.BacklogService
	chatService    services.ChatService
}

func NewBacklogHandler(backlogService services.BacklogService, chatService services.ChatService) *BacklogHandler {
	return &BacklogHandler{backlogService: backlogService, chatService: chatService}
}

func (bh *BacklogHandler) Create(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err)
		return
	}
	backlog, err := bh.backlogService.Create(c.Request.Context(), userID, req.Name, req.Description)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"backlog": backlog})
}

func (bh *BacklogHandler) Get(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "backlogId")
	if !ok {
		return
	}
	backlog, err := bh.backlogService.Get(c.Request.Context(), id, userID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"backlog": backlog})
}

func (bh *BacklogHandler) List(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	backlogs, err := bh.backlogService.List(c.Request.Context(), userID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"backlogs": backlogs})
}

func (bh *BacklogHandler) Update(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "backlogId")
	if !ok {
		return
	}
	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err)
		return
	}
	backlog, err := bh.backlogService.Update(c.Request.Context(), id, userID, req.Name, req.Description)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"backlog": backlog})
}

func (bh *BacklogHandler) Delete(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "backlogId")
	if !ok {
		return
	}
	if err := bh.backlogService.Delete(c.Request.Context(), id, userID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

func (bh *BacklogHandler) ListMessages(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "backlogId")
	if !ok {
		return
	}
	messages, err := bh.chatService.ListMessages(c.Request.Context(), id, userID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"messages": messages})
}
