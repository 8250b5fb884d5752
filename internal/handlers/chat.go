package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sarrietav-dev/ai-backlog/internal/platform/logger"
	"github.com/sarrietav-dev/ai-backlog/internal/platform/openai"
	"github.com/sarrietav-dev/ai-backlog/internal/services"
)

type ChatHandler struct {
	log         *logger.Logger
	chatService services.ChatService
}

func NewChatHandler(log *logger.Logger, chatService services.ChatService) *ChatHandler {
	return &ChatHandler{
		log:         log.With("handler", "ChatHandler"),
		chatService: chatService,
	}
}

// Stream handles POST /api/chat. The assistant reply is streamed back as
// plain text chunks.
func (ch *ChatHandler) Stream(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	var req struct {
		BacklogID string           `json:"backlogId"`
		Messages  []openai.Message `json:"messages"`
		Message   string           `json:"message"`
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
	messages := req.Messages
	if len(messages) == 0 && req.Message != "" {
		messages = []openai.Message{{Role: openai.RoleUser, Content: req.Message}}
	}

	onDelta, wrote := streamSetup(c)
	_, err = ch.chatService.StreamReply(c.Request.Context(), backlogID, userID, messages, onDelta)
	if err != nil {
		if wrote() {
			ch.log.Warn("chat stream aborted", "backlog_id", backlogID, "error", err)
			return
		}
		RespondServiceError(c, err)
	}
}
