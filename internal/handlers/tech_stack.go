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

type TechStackHandler struct {
	log              *logger.Logger
	techStackService services.TechStackService
}

func NewTechStackHandler(log *logger.Logger, techStackService services.TechStackService) *TechStackHandler {
	return &TechStackHandler{
		log:              log.With("handler", "TechStackHandler"),
		techStackService: techStackService,
	}
}

// Generate handles POST /api/generate-tech-stack.
func (tsh *TechStackHandler) Generate(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	var req struct {
		BacklogID string `json:"backlogId"`
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
	_, err = tsh.techStackService.Generate(c.Request.Context(), backlogID, userID, onDelta)
	if err != nil {
		if wrote() {
			tsh.log.Warn("tech stack generation stream aborted", "backlog_id", backlogID, "error", err)
			return
		}
		RespondServiceError(c, err)
	}
}

// Save handles POST /api/save-tech-stack. Saving replaces any prior
// suggestion set for the backlog.
func (tsh *TechStackHandler) Save(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	var req struct {
		BacklogID string `json:"backlogId"`
		schema.TechStackPayload
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

	saved, err := tsh.techStackService.Save(c.Request.Context(), backlogID, userID, &req.TechStackPayload)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"success": true, "data": saved})
}

// GetCached handles GET /api/get-cached-tech-stack?backlogId=. An owned
// backlog with nothing saved yet is a plain 200 with cached=false, not an
// error.
func (tsh *TechStackHandler) GetCached(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	backlogID, err := uuid.Parse(c.Query("backlogId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", fmt.Errorf("invalid backlogId: %w", err))
		return
	}

	suggestion, err := tsh.techStackService.GetLatest(c.Request.Context(), backlogID, userID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	if suggestion == nil {
		RespondOK(c, gin.H{"cached": false})
		return
	}
	RespondOK(c, gin.H{"cached": true, "data": suggestion})
}
